package tracker

import "github.com/lcalzada-xor/netrack/internal/core/domain"

// accept filters frames the tracker does not know how to track. It has no
// side effects; the returned reason labels the rejection metric.
func accept(f *domain.Frame) (string, bool) {
	if f.Corrupt {
		return "corrupt", false
	}
	switch f.Category {
	case domain.CategoryManagement, domain.CategoryControl, domain.CategoryData, domain.CategoryPhy:
	default:
		return "category", false
	}
	if f.Subtype == domain.SubtypeUnknown {
		return "subtype", false
	}
	return "", true
}

// classify decides the type of a new record. It is never revisited.
func classify(f *domain.Frame) domain.NetworkType {
	switch {
	case f.Is(domain.CategoryManagement, domain.SubtypeProbeReq):
		return domain.NetworkProbe
	case f.Distrib == domain.DistribAdhoc:
		return domain.NetworkAdhoc
	default:
		return domain.NetworkAP
	}
}

// clientFor returns the station side of a data frame and the direction it
// was seen in.
func clientFor(f *domain.Frame) (domain.MAC, domain.ClientType) {
	switch f.Distrib {
	case domain.DistribFromDS:
		return f.Dest, domain.ClientFromDS
	case domain.DistribToDS:
		return f.Source, domain.ClientToDS
	case domain.DistribInterDS:
		return f.Source, domain.ClientInterDS
	default:
		return f.Source, domain.ClientUnknown
	}
}
