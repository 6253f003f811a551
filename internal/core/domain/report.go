package domain

import "time"

// ReportData aggregates everything the network inventory report renders.
type ReportData struct {
	GeneratedAt time.Time
	Stats       SystemStats
	Networks    []TrackedNetwork
	Clients     []TrackedClient
	Notices     []Notice
}

// NetworkSnapshot is one row of network history.
type NetworkSnapshot struct {
	BSSID        MAC       `json:"bssid"`
	TakenAt      time.Time `json:"taken_at"`
	SSID         string    `json:"ssid"`
	Channel      int       `json:"channel"`
	LastSignal   int       `json:"last_signal"`
	MaxSignal    int       `json:"max_signal"`
	LLCPackets   int       `json:"llc_packets"`
	DataPackets  int       `json:"data_packets"`
	CryptPackets int       `json:"crypt_packets"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
}
