package capture

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

// Common SSIDs for realistic mock data
var commonSSIDs = []string{
	"HomeNetwork", "NETGEAR-5G", "Starbucks WiFi", "TP-Link_2.4GHz",
	"Linksys", "Office-Network", "Guest-WiFi", "DIRECT-Printer",
	"AndroidAP", "CoffeeShop_Free", "Airport_WiFi", "Hotel-Guest",
}

var mockChannels = []int{1, 6, 11, 36, 40, 44, 48, 149}

type mockNetwork struct {
	bssid   domain.MAC
	ssid    string
	channel int
	cloaked bool
	wep     bool
	clients []domain.MAC
}

// MockSource generates synthetic traffic from a fixed population of networks
// so the pipeline can run without a monitor-mode interface.
type MockSource struct {
	Interval time.Duration
	GPS      ports.GPSProvider

	rng      *rand.Rand
	networks []mockNetwork
	probers  []domain.MAC
	stop     chan struct{}
}

// NewMock creates a mock source with the given number of networks. seed makes
// the generated population and traffic reproducible.
func NewMock(networks int, interval time.Duration, gps ports.GPSProvider, seed int64) *MockSource {
	rng := rand.New(rand.NewSource(seed))
	m := &MockSource{
		Interval: interval,
		GPS:      gps,
		rng:      rng,
		stop:     make(chan struct{}),
	}

	for i := 0; i < networks; i++ {
		n := mockNetwork{
			bssid:   domain.MAC{0x00, 0x1E, 0xBD, byte(rng.Intn(256)), byte(i >> 8), byte(i)},
			ssid:    commonSSIDs[i%len(commonSSIDs)],
			channel: mockChannels[rng.Intn(len(mockChannels))],
			cloaked: rng.Float32() < 0.2,
			wep:     rng.Float32() < 0.1,
		}
		for c := 0; c < 1+rng.Intn(3); c++ {
			n.clients = append(n.clients, domain.MAC{0x00, 0x17, 0xF2, byte(i), byte(c), byte(rng.Intn(256))})
		}
		m.networks = append(m.networks, n)
	}
	for i := 0; i < 3; i++ {
		m.probers = append(m.probers, domain.MAC{0x02, 0x12, 0xFB, 0x00, 0x00, byte(i)})
	}
	return m
}

// Start emits frames until the context is cancelled or Close is called.
func (m *MockSource) Start(ctx context.Context, out chan<- domain.Frame) error {
	if len(m.networks) == 0 {
		return fmt.Errorf("mock source has no networks")
	}
	log.Println("Starting mock capture (generating fake traffic)...")

	received := telemetry.FramesReceived.WithLabelValues("mock")
	for {
		f := m.next()
		received.Inc()

		select {
		case out <- f:
		case <-ctx.Done():
			return nil
		case <-m.stop:
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-m.stop:
			return nil
		case <-time.After(m.Interval):
		}
	}
}

// Close stops a running Start.
func (m *MockSource) Close() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

// next builds one frame. Beacons dominate, cloaked networks occasionally
// answer a probe with their real name.
func (m *MockSource) next() domain.Frame {
	n := m.networks[m.rng.Intn(len(m.networks))]

	f := domain.Frame{
		Timestamp: time.Now(),
		Radio: &domain.RadioSample{
			Signal:   -40 - m.rng.Intn(50),
			Noise:    -95,
			Carrier:  domain.Carrier80211g,
			Encoding: domain.EncodingOFDM,
			DataRate: 540,
		},
		Length: 100 + m.rng.Intn(1400),
	}
	if m.GPS != nil {
		if fix, ok := m.GPS.Fix(); ok {
			// jitter by a few metres so extents have some area
			fix.Lat += (m.rng.Float64() - 0.5) * 0.0005
			fix.Lon += (m.rng.Float64() - 0.5) * 0.0005
			f.GPS = &fix
		}
	}

	switch roll := m.rng.Float32(); {
	case roll < 0.5:
		f.Category = domain.CategoryManagement
		f.Subtype = domain.SubtypeBeacon
		f.BSSID, f.Source = n.bssid, n.bssid
		f.Dest = domain.MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
		f.Channel = n.channel
		f.BeaconInterval = 100
		f.MaxRate = 54
		f.WEP = n.wep
		if n.cloaked {
			f.SSIDBlank = true
		} else {
			f.SSID = n.ssid
		}
	case roll < 0.6:
		f.Category = domain.CategoryManagement
		f.Subtype = domain.SubtypeProbeResp
		f.BSSID, f.Source = n.bssid, n.bssid
		f.Dest = n.clients[0]
		f.Channel = n.channel
		f.SSID = n.ssid
		f.WEP = n.wep
	case roll < 0.7:
		sta := m.probers[m.rng.Intn(len(m.probers))]
		f.Category = domain.CategoryManagement
		f.Subtype = domain.SubtypeProbeReq
		f.BSSID, f.Source = sta, sta
		f.Dest = domain.MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
		f.SSID = commonSSIDs[m.rng.Intn(len(commonSSIDs))]
	default:
		sta := n.clients[m.rng.Intn(len(n.clients))]
		f.Category = domain.CategoryData
		f.Subtype = domain.SubtypeOther
		f.BSSID = n.bssid
		f.Encrypted = n.wep
		if m.rng.Intn(2) == 0 {
			f.Distrib = domain.DistribToDS
			f.Source, f.Dest = sta, n.bssid
		} else {
			f.Distrib = domain.DistribFromDS
			f.Source, f.Dest = n.bssid, sta
		}
	}
	return f
}
