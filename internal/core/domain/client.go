package domain

import "time"

// ClientType is the DS direction a client was last seen talking in.
type ClientType int

const (
	ClientUnknown ClientType = iota
	ClientFromDS
	ClientToDS
	ClientInterDS
	ClientEstablished
)

// ClientKey identifies a client within its network.
type ClientKey struct {
	BSSID MAC
	MAC   MAC
}

// TrackedClient is a station seen exchanging data frames with a network.
type TrackedClient struct {
	BSSID MAC        `json:"bssid"`
	MAC   MAC        `json:"mac"`
	Type  ClientType `json:"type"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	DataPackets  int `json:"data_packets"`
	CryptPackets int `json:"crypt_packets"`
	WeakPackets  int `json:"weak_packets"`
	Decrypted    int `json:"decrypted"`

	Signal   SignalStats `json:"signal"`
	GPS      GPSExtent   `json:"gps"`
	IP       IPData      `json:"ip"`
	MaxRate  float64     `json:"max_rate"`
	Datasize int64       `json:"datasize"`

	Dirty bool `json:"-"`
}

// NewTrackedClient returns an empty client record.
func NewTrackedClient(key ClientKey) *TrackedClient {
	return &TrackedClient{
		BSSID:  key.BSSID,
		MAC:    key.MAC,
		Signal: NewSignalStats(),
		GPS:    NewGPSExtent(),
	}
}

// Key returns the client's table key.
func (c *TrackedClient) Key() ClientKey {
	return ClientKey{BSSID: c.BSSID, MAC: c.MAC}
}
