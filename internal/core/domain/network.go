package domain

import (
	"fmt"
	"time"
)

// NetworkType is decided once when a network record is created.
type NetworkType int

const (
	NetworkAP NetworkType = iota
	NetworkAdhoc
	NetworkProbe
)

func (t NetworkType) String() string {
	switch t {
	case NetworkAP:
		return "ap"
	case NetworkAdhoc:
		return "adhoc"
	case NetworkProbe:
		return "probe"
	default:
		return "unknown"
	}
}

// IPType says how the address block of a network was learned.
type IPType int

const (
	IPTypeNone IPType = iota
	IPTypeFactory
	IPTypeUDP
	IPTypeARP
	IPTypeTCP
	IPTypeDHCP
	IPTypeGroup
)

// IPv4 is an address in network byte order.
type IPv4 [4]byte

// String renders dotted-quad form.
func (ip IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
}

// IPData is the best guess at a network's addressing.
type IPData struct {
	Type    IPType `json:"atype"`
	Block   IPv4   `json:"range"`
	Netmask IPv4   `json:"netmask"`
	Gateway IPv4   `json:"gateway"`
}

// GPSExtent is the bounding box and centroid accumulator over every fix seen
// with a record. Min fields only decrease and max fields only increase.
type GPSExtent struct {
	Valid bool `json:"valid"`

	MinLat   float64 `json:"min_lat"`
	MinLon   float64 `json:"min_lon"`
	MinAlt   float64 `json:"min_alt"`
	MinSpeed float64 `json:"min_spd"`
	MaxLat   float64 `json:"max_lat"`
	MaxLon   float64 `json:"max_lon"`
	MaxAlt   float64 `json:"max_alt"`
	MaxSpeed float64 `json:"max_spd"`

	AggLat    float64 `json:"agg_lat"`
	AggLon    float64 `json:"agg_lon"`
	AggAlt    float64 `json:"agg_alt"`
	AggPoints int64   `json:"agg_points"`
}

// NewGPSExtent returns an extent whose bounds are inverted so the first fix
// sets both min and max.
func NewGPSExtent() GPSExtent {
	return GPSExtent{
		MinLat:   90,
		MinLon:   180,
		MinAlt:   100000,
		MinSpeed: 100000,
		MaxLat:   -90,
		MaxLon:   -180,
		MaxAlt:   -100000,
		MaxSpeed: 0,
	}
}

// Add widens the extent to include s and accumulates it for the centroid.
func (g *GPSExtent) Add(s GPSSample) {
	g.Valid = true

	g.MinLat = min(g.MinLat, s.Lat)
	g.MinLon = min(g.MinLon, s.Lon)
	g.MinAlt = min(g.MinAlt, s.Alt)
	g.MinSpeed = min(g.MinSpeed, s.Speed)

	g.MaxLat = max(g.MaxLat, s.Lat)
	g.MaxLon = max(g.MaxLon, s.Lon)
	g.MaxAlt = max(g.MaxAlt, s.Alt)
	g.MaxSpeed = max(g.MaxSpeed, s.Speed)

	g.AggLat += s.Lat
	g.AggLon += s.Lon
	g.AggAlt += s.Alt
	g.AggPoints++
}

// Centroid returns the average position, ok is false before the first fix.
func (g GPSExtent) Centroid() (lat, lon, alt float64, ok bool) {
	if g.AggPoints == 0 {
		return 0, 0, 0, false
	}
	n := float64(g.AggPoints)
	return g.AggLat / n, g.AggLon / n, g.AggAlt / n, true
}

// SignalFloor is the dBm value a signal maximum starts from.
const SignalFloor = -256

// SignalStats tracks layer-1 quality for a record.
type SignalStats struct {
	LastSignal int `json:"last_signal"`
	LastNoise  int `json:"last_noise"`
	MinSignal  int `json:"min_signal"`
	MinNoise   int `json:"min_noise"`
	MaxSignal  int `json:"max_signal"`
	MaxNoise   int `json:"max_noise"`

	// Position of the strongest signal seen while a fix was available.
	PeakLat float64 `json:"peak_lat"`
	PeakLon float64 `json:"peak_lon"`
	PeakAlt float64 `json:"peak_alt"`

	Carriers  CarrierSet  `json:"carrierset"`
	Encodings EncodingSet `json:"encodingset"`

	// MinSeenRate is the lowest data rate seen, 100kbps units, 0 until the first rate.
	MinSeenRate int `json:"maxseenrate"`
}

// NewSignalStats returns stats whose maxima start at SignalFloor.
func NewSignalStats() SignalStats {
	return SignalStats{
		MaxSignal: SignalFloor,
		MaxNoise:  SignalFloor,
	}
}

// Add folds one radio sample in. gps may be nil; the peak position only moves
// when a fix accompanies a new signal maximum.
func (s *SignalStats) Add(r RadioSample, gps *GPSSample) {
	s.LastSignal = r.Signal
	s.LastNoise = r.Noise

	s.MinSignal = min(s.MinSignal, r.Signal)
	s.MinNoise = min(s.MinNoise, r.Noise)

	if r.Noise > s.MaxNoise {
		s.MaxNoise = r.Noise
	}

	if r.Signal > s.MaxSignal {
		s.MaxSignal = r.Signal
		if gps != nil {
			s.PeakLat = gps.Lat
			s.PeakLon = gps.Lon
			s.PeakAlt = gps.Alt
		}
	}

	if r.DataRate > 0 && (s.MinSeenRate == 0 || r.DataRate < s.MinSeenRate) {
		s.MinSeenRate = r.DataRate
	}

	s.Carriers = s.Carriers.With(r.Carrier)
	s.Encodings = s.Encodings.With(r.Encoding)
}

// TrackedNetwork is the live model of one observed network. Values handed out
// by the tracker are copies; only the tracker mutates the original.
type TrackedNetwork struct {
	BSSID MAC         `json:"bssid"`
	Type  NetworkType `json:"type"`

	SSID       string `json:"ssid"`
	Cloaked    bool   `json:"cloaked"`
	Uncloaked  bool   `json:"uncloaked"`
	BeaconInfo string `json:"beacon_info,omitempty"`

	Channel    int      `json:"channel"`
	BeaconRate int      `json:"beacon_rate"`
	MaxRate    float64  `json:"max_rate"`
	Crypt      CryptSet `json:"crypt"`

	LLCPackets   int `json:"llc_packets"`
	DataPackets  int `json:"data_packets"`
	CryptPackets int `json:"crypt_packets"`
	WeakPackets  int `json:"weak_packets"`
	DupeIVs      int `json:"dupe_iv_packets"`
	Decrypted    int `json:"decrypted"`

	Signal SignalStats `json:"signal"`
	GPS    GPSExtent   `json:"gps"`
	IP     IPData      `json:"ip"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Datasize  int64     `json:"datasize"`

	// Dirty marks unpushed changes. The tracker sets it, the transport clears it.
	Dirty bool `json:"-"`
}

// NewTrackedNetwork returns an empty record for bssid with its statistics at
// their starting bounds.
func NewTrackedNetwork(bssid MAC) *TrackedNetwork {
	return &TrackedNetwork{
		BSSID:  bssid,
		Signal: NewSignalStats(),
		GPS:    NewGPSExtent(),
	}
}

// DisplaySSID returns the name for notices and reports.
func (n *TrackedNetwork) DisplaySSID() string {
	if (n.Cloaked && !n.Uncloaked) || n.SSID == "" {
		return "<no ssid>"
	}
	return n.SSID
}
