package protocol

// Network field identifiers, positionally addressed by consumers.
const (
	NetworkBSSID = iota
	NetworkType
	NetworkSSID
	NetworkBeaconInfo
	NetworkLLCPackets
	NetworkDataPackets
	NetworkCryptPackets
	NetworkWeakPackets
	NetworkChannel
	NetworkWEP
	NetworkFirstTime
	NetworkLastTime
	NetworkAType
	NetworkRangeIP
	NetworkNetmaskIP
	NetworkGatewayIP
	NetworkGPSFixed
	NetworkMinLat
	NetworkMinLon
	NetworkMinAlt
	NetworkMinSpd
	NetworkMaxLat
	NetworkMaxLon
	NetworkMaxAlt
	NetworkMaxSpd
	NetworkOctets
	NetworkCloaked
	NetworkBeaconRate
	NetworkMaxRate
	NetworkManufKey
	NetworkManufScore
	NetworkQuality
	NetworkSignal
	NetworkNoise
	NetworkBestQuality
	NetworkBestSignal
	NetworkBestNoise
	NetworkBestLat
	NetworkBestLon
	NetworkBestAlt
	NetworkAggLat
	NetworkAggLon
	NetworkAggAlt
	NetworkAggPoints
	NetworkDatasize
	NetworkTurbocellNID
	NetworkTurbocellMode
	NetworkTurbocellSat
	NetworkCarrierSet
	NetworkMaxSeenRate
	NetworkEncodingSet
	NetworkDecrypted
	NetworkDupeIVPackets

	networkMaxField
)

// NetworkFields is the NETWORK field table. Order is part of the wire format.
var NetworkFields = []string{
	"bssid", "type", "ssid", "beaconinfo",
	"llcpackets", "datapackets", "cryptpackets",
	"weakpackets", "channel", "wep", "firsttime",
	"lasttime", "atype", "rangeip", "netmaskip",
	"gatewayip", "gpsfixed",
	"minlat", "minlon", "minalt", "minspd",
	"maxlat", "maxlon", "maxalt", "maxspd",
	"octets", "cloaked", "beaconrate", "maxrate",
	"manufkey", "manufscore",
	"quality", "signal", "noise",
	"bestquality", "bestsignal", "bestnoise",
	"bestlat", "bestlon", "bestalt",
	"agglat", "agglon", "aggalt", "aggpoints",
	"datasize",
	"turbocellnid", "turbocellmode", "turbocellsat",
	"carrierset", "maxseenrate", "encodingset",
	"decrypted", "dupeivpackets",
}

// ClientFields is the CLIENT field table.
var ClientFields = []string{
	"bssid", "mac", "type", "firsttime", "lasttime",
	"manufkey", "manufscore",
	"datapackets", "cryptpackets", "weakpackets",
	"gpsfixed",
	"minlat", "minlon", "minalt", "minspd",
	"maxlat", "maxlon", "maxalt", "maxspd",
	"agglat", "agglon", "aggalt", "aggpoints",
	"maxrate",
	"quality", "signal", "noise",
	"bestquality", "bestsignal", "bestnoise",
	"bestlat", "bestlon", "bestalt",
	"atype", "ip", "datasize", "maxseenrate", "encodingset",
	"decrypted", "wep",
}

// RemoveFields is the REMOVE field table.
var RemoveFields = []string{"bssid"}

// StatusFields is the STATUS field table carrying message bus notices.
var StatusFields = []string{"text", "flags"}

// Delimiter wraps string fields so an empty value stays distinguishable from
// the field separator.
const Delimiter = "\x01"

// EmptyString is how an empty or hidden string field is rendered.
const EmptyString = Delimiter + " " + Delimiter

func wrap(s string) string {
	if s == "" {
		return EmptyString
	}
	return Delimiter + s + Delimiter
}
