package storage

import (
	"fmt"
	"net"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
)

// toModel converts a domain entity to its database row.
func toModel(n domain.TrackedNetwork) NetworkModel {
	return NetworkModel{
		BSSID:        n.BSSID.String(),
		Type:         int(n.Type),
		SSID:         n.SSID,
		Cloaked:      n.Cloaked,
		Uncloaked:    n.Uncloaked,
		BeaconInfo:   n.BeaconInfo,
		Channel:      n.Channel,
		BeaconRate:   n.BeaconRate,
		MaxRate:      n.MaxRate,
		Crypt:        uint32(n.Crypt),
		LLCPackets:   n.LLCPackets,
		DataPackets:  n.DataPackets,
		CryptPackets: n.CryptPackets,
		WeakPackets:  n.WeakPackets,
		DupeIVs:      n.DupeIVs,
		Decrypted:    n.Decrypted,
		Datasize:     n.Datasize,
		Signal:       n.Signal,
		GPS:          n.GPS,
		IPType:       int(n.IP.Type),
		IPBlock:      n.IP.Block.String(),
		IPNetmask:    n.IP.Netmask.String(),
		IPGateway:    n.IP.Gateway.String(),
		FirstSeen:    n.FirstSeen,
		LastSeen:     n.LastSeen,
	}
}

// toDomain converts a database model to a domain entity.
func toDomain(m NetworkModel) (*domain.TrackedNetwork, error) {
	bssid, err := domain.ParseMAC(m.BSSID)
	if err != nil {
		return nil, fmt.Errorf("stored network %q: %w", m.BSSID, err)
	}

	n := &domain.TrackedNetwork{
		BSSID:        bssid,
		Type:         domain.NetworkType(m.Type),
		SSID:         m.SSID,
		Cloaked:      m.Cloaked,
		Uncloaked:    m.Uncloaked,
		BeaconInfo:   m.BeaconInfo,
		Channel:      m.Channel,
		BeaconRate:   m.BeaconRate,
		MaxRate:      m.MaxRate,
		Crypt:        domain.CryptSet(m.Crypt),
		LLCPackets:   m.LLCPackets,
		DataPackets:  m.DataPackets,
		CryptPackets: m.CryptPackets,
		WeakPackets:  m.WeakPackets,
		DupeIVs:      m.DupeIVs,
		Decrypted:    m.Decrypted,
		Datasize:     m.Datasize,
		Signal:       m.Signal,
		GPS:          m.GPS,
		IP: domain.IPData{
			Type:    domain.IPType(m.IPType),
			Block:   parseIPv4(m.IPBlock),
			Netmask: parseIPv4(m.IPNetmask),
			Gateway: parseIPv4(m.IPGateway),
		},
		FirstSeen: m.FirstSeen,
		LastSeen:  m.LastSeen,
	}
	return n, nil
}

func toSnapshotModel(n domain.TrackedNetwork, takenAt time.Time) SnapshotModel {
	lat, lon, _, _ := n.GPS.Centroid()
	return SnapshotModel{
		BSSID:        n.BSSID.String(),
		TakenAt:      takenAt,
		SSID:         n.DisplaySSID(),
		Channel:      n.Channel,
		LastSignal:   n.Signal.LastSignal,
		MaxSignal:    n.Signal.MaxSignal,
		LLCPackets:   n.LLCPackets,
		DataPackets:  n.DataPackets,
		CryptPackets: n.CryptPackets,
		Lat:          lat,
		Lon:          lon,
	}
}

func toSnapshot(m SnapshotModel) (domain.NetworkSnapshot, error) {
	bssid, err := domain.ParseMAC(m.BSSID)
	if err != nil {
		return domain.NetworkSnapshot{}, fmt.Errorf("stored snapshot %d: %w", m.ID, err)
	}
	return domain.NetworkSnapshot{
		BSSID:        bssid,
		TakenAt:      m.TakenAt,
		SSID:         m.SSID,
		Channel:      m.Channel,
		LastSignal:   m.LastSignal,
		MaxSignal:    m.MaxSignal,
		LLCPackets:   m.LLCPackets,
		DataPackets:  m.DataPackets,
		CryptPackets: m.CryptPackets,
		Lat:          m.Lat,
		Lon:          m.Lon,
	}, nil
}

func parseIPv4(s string) domain.IPv4 {
	var out domain.IPv4
	if ip := net.ParseIP(s).To4(); ip != nil {
		copy(out[:], ip)
	}
	return out
}
