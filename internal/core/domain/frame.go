package domain

import "time"

// FrameCategory is the 802.11 frame type as classified by the decoder.
type FrameCategory uint8

const (
	CategoryUnknown FrameCategory = iota
	CategoryNoise
	CategoryManagement
	CategoryControl
	CategoryPhy
	CategoryData
)

func (c FrameCategory) String() string {
	switch c {
	case CategoryNoise:
		return "noise"
	case CategoryManagement:
		return "management"
	case CategoryControl:
		return "control"
	case CategoryPhy:
		return "phy"
	case CategoryData:
		return "data"
	default:
		return "unknown"
	}
}

// FrameSubtype narrows management frames down to the ones the tracker treats
// specially. Every other known subtype is SubtypeOther.
type FrameSubtype uint8

const (
	SubtypeUnknown FrameSubtype = iota
	SubtypeBeacon
	SubtypeProbeReq
	SubtypeProbeResp
	SubtypeOther
)

func (s FrameSubtype) String() string {
	switch s {
	case SubtypeBeacon:
		return "beacon"
	case SubtypeProbeReq:
		return "probe_req"
	case SubtypeProbeResp:
		return "probe_resp"
	case SubtypeOther:
		return "other"
	default:
		return "unknown"
	}
}

// Distribution is the DS direction of a frame.
type Distribution uint8

const (
	DistribUnknown Distribution = iota
	DistribFromDS
	DistribToDS
	DistribInterDS
	DistribAdhoc
)

// GPSSample is one position fix attached to a frame.
type GPSSample struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	Speed float64 `json:"spd"`
}

// RadioSample is the layer-1 metadata the capture source attached to a frame.
// DataRate is in units of 100kbps.
type RadioSample struct {
	Signal   int      `json:"signal"`
	Noise    int      `json:"noise"`
	Carrier  Carrier  `json:"carrier"`
	Encoding Encoding `json:"encoding"`
	DataRate int      `json:"datarate"`
}

// Frame is one classified link-layer frame handed to the tracker.
type Frame struct {
	// BSSID is the network identity the frame belongs to. For probe requests it
	// is the sender's address.
	BSSID MAC
	// Source and Dest are the transmitter and receiver, zero when unknown.
	Source MAC
	Dest   MAC

	Category  FrameCategory
	Subtype   FrameSubtype
	Distrib   Distribution
	Corrupt   bool
	Encrypted bool

	GPS   *GPSSample
	Radio *RadioSample

	// Management payload
	SSID           string
	SSIDBlank      bool
	BeaconInfo     string
	Channel        int
	BeaconInterval int
	MaxRate        float64
	WEP            bool

	Length    int
	Timestamp time.Time
}

// Is reports whether the frame has the given category and subtype.
func (f *Frame) Is(c FrameCategory, s FrameSubtype) bool {
	return f.Category == c && f.Subtype == s
}

// HasSSID reports whether the frame carries a usable, non-blank SSID.
func (f *Frame) HasSSID() bool {
	return len(f.SSID) > 0 && !f.SSIDBlank
}
