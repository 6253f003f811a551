package parser

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	apMAC     = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	staMAC    = net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x01}
	otherMAC  = net.HardwareAddr{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0x02}
	gwMAC     = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	broadcast = net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
)

// packetBuilder assembles raw 802.11 frames for decoding.
type packetBuilder struct {
	data []byte
}

func header(fc, flags byte, a1, a2, a3 net.HardwareAddr) []byte {
	h := make([]byte, 24)
	h[0] = fc
	h[1] = flags
	copy(h[4:], a1)
	copy(h[10:], a2)
	copy(h[16:], a3)
	return h
}

func (pb *packetBuilder) mgmt(fc byte, a1, a2, a3 net.HardwareAddr, caps uint16) *packetBuilder {
	pb.data = append(pb.data, header(fc, 0, a1, a2, a3)...)
	pb.data = append(pb.data,
		0, 0, 0, 0, 0, 0, 0, 0, // timestamp
		0x64, 0x00, // interval 100
		byte(caps), byte(caps>>8),
	)
	return pb
}

func (pb *packetBuilder) probeReq(sa net.HardwareAddr) *packetBuilder {
	pb.data = append(pb.data, header(0x40, 0, broadcast, sa, broadcast)...)
	return pb
}

func (pb *packetBuilder) ie(id byte, val []byte) *packetBuilder {
	pb.data = append(pb.data, id, byte(len(val)))
	pb.data = append(pb.data, val...)
	return pb
}

func (pb *packetBuilder) raw(b ...byte) *packetBuilder {
	pb.data = append(pb.data, b...)
	return pb
}

func (pb *packetBuilder) build() gopacket.Packet {
	// FCS
	pb.data = append(pb.data, 0xDE, 0xAD, 0xBE, 0xEF)
	return gopacket.NewPacket(pb.data, layers.LayerTypeDot11, gopacket.Default)
}

func dataFrame(flags byte, a1, a2, a3 net.HardwareAddr) gopacket.Packet {
	pb := &packetBuilder{}
	pb.raw(header(0x08, flags, a1, a2, a3)...)
	pb.raw(0xAA, 0xAA, 0x03, 0x00, 0x00, 0x00, 0x08, 0x00)
	return pb.build()
}

type fixedGPS struct {
	fix domain.GPSSample
	ok  bool
}

func (g fixedGPS) Fix() (domain.GPSSample, bool) { return g.fix, g.ok }

func TestDecodeBeacon(t *testing.T) {
	d := NewDecoder(nil, false)

	pkt := (&packetBuilder{}).
		mgmt(0x80, broadcast, apMAC, apMAC, capESS|capPrivacy).
		ie(0, []byte("HomeNet")).
		ie(1, []byte{0x82, 0x84, 0x8B, 0x96}).
		ie(3, []byte{6}).
		ie(50, []byte{0x0C, 0x12, 0x18, 0x6C}).
		build()

	f, ok := d.Decode(pkt)
	require.True(t, ok)

	assert.Equal(t, domain.CategoryManagement, f.Category)
	assert.Equal(t, domain.SubtypeBeacon, f.Subtype)
	assert.Equal(t, domain.MustParseMAC("00:11:22:33:44:55"), f.BSSID)
	assert.Equal(t, "HomeNet", f.SSID)
	assert.False(t, f.SSIDBlank)
	assert.Equal(t, 6, f.Channel)
	assert.Equal(t, 54.0, f.MaxRate)
	assert.Equal(t, 100, f.BeaconInterval)
	assert.True(t, f.WEP)
	assert.Equal(t, domain.DistribUnknown, f.Distrib)
	assert.Nil(t, f.GPS)
	assert.False(t, f.Timestamp.IsZero())
}

func TestDecodeBlankBeacon(t *testing.T) {
	d := NewDecoder(nil, false)

	pkt := (&packetBuilder{}).
		mgmt(0x80, broadcast, apMAC, apMAC, capESS).
		ie(0, []byte{0, 0, 0, 0}).
		build()

	f, ok := d.Decode(pkt)
	require.True(t, ok)
	assert.True(t, f.SSIDBlank)
	assert.Empty(t, f.SSID)
	assert.False(t, f.HasSSID())
	assert.False(t, f.WEP)
}

func TestDecodeAdhocBeacon(t *testing.T) {
	d := NewDecoder(nil, false)

	pkt := (&packetBuilder{}).
		mgmt(0x80, broadcast, staMAC, apMAC, capIBSS).
		ie(0, []byte("mesh")).
		build()

	f, ok := d.Decode(pkt)
	require.True(t, ok)
	assert.Equal(t, domain.DistribAdhoc, f.Distrib)
}

func TestDecodeProbeResponse(t *testing.T) {
	d := NewDecoder(nil, false)

	pkt := (&packetBuilder{}).
		mgmt(0x50, staMAC, apMAC, apMAC, capESS).
		ie(0, []byte("Hidden")).
		build()

	f, ok := d.Decode(pkt)
	require.True(t, ok)
	assert.Equal(t, domain.SubtypeProbeResp, f.Subtype)
	assert.Equal(t, domain.MustParseMAC("00:11:22:33:44:55"), f.BSSID)
	assert.Equal(t, domain.MustParseMAC("AA:BB:CC:DD:EE:01"), f.Dest)
	assert.Equal(t, "Hidden", f.SSID)
}

func TestDecodeProbeRequestUsesSender(t *testing.T) {
	d := NewDecoder(nil, false)

	pkt := (&packetBuilder{}).probeReq(staMAC).ie(0, []byte("Cafe")).build()

	f, ok := d.Decode(pkt)
	require.True(t, ok)
	assert.Equal(t, domain.SubtypeProbeReq, f.Subtype)
	assert.Equal(t, domain.MustParseMAC("AA:BB:CC:DD:EE:01"), f.BSSID)
	assert.Equal(t, f.Source, f.BSSID)
	assert.Equal(t, "Cafe", f.SSID)
}

func TestDecodeDataDistribution(t *testing.T) {
	d := NewDecoder(nil, false)
	ap := domain.MustParseMAC("00:11:22:33:44:55")
	sta := domain.MustParseMAC("AA:BB:CC:DD:EE:01")

	tests := []struct {
		name    string
		flags   byte
		a1, a2  net.HardwareAddr
		a3      net.HardwareAddr
		distrib domain.Distribution
		bssid   domain.MAC
		source  domain.MAC
	}{
		{"to ds", 0x01, apMAC, staMAC, gwMAC, domain.DistribToDS, ap, sta},
		{"from ds", 0x02, staMAC, apMAC, gwMAC, domain.DistribFromDS, ap, domain.MustParseMAC("02:00:00:00:00:01")},
		{"adhoc", 0x00, otherMAC, staMAC, apMAC, domain.DistribAdhoc, ap, sta},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := d.Decode(dataFrame(tt.flags, tt.a1, tt.a2, tt.a3))
			require.True(t, ok)
			assert.Equal(t, domain.CategoryData, f.Category)
			assert.Equal(t, tt.distrib, f.Distrib)
			assert.Equal(t, tt.bssid, f.BSSID)
			assert.Equal(t, tt.source, f.Source)
		})
	}
}

func TestDecodeInterDS(t *testing.T) {
	d := NewDecoder(nil, false)

	pb := &packetBuilder{}
	pb.raw(header(0x08, 0x03, otherMAC, apMAC, gwMAC)...)
	pb.raw(staMAC...) // addr4
	pb.raw(0xAA, 0xAA, 0x03, 0x00, 0x00, 0x00, 0x08, 0x00)

	f, ok := d.Decode(pb.build())
	require.True(t, ok)
	assert.Equal(t, domain.DistribInterDS, f.Distrib)
	assert.Equal(t, domain.MustParseMAC("00:11:22:33:44:55"), f.BSSID)
	assert.Equal(t, domain.MustParseMAC("AA:BB:CC:DD:EE:01"), f.Source)
}

func TestDecodeProtectedData(t *testing.T) {
	d := NewDecoder(nil, false)

	f, ok := d.Decode(dataFrame(0x41, apMAC, staMAC, gwMAC))
	require.True(t, ok)
	assert.True(t, f.Encrypted)
}

func TestDecodeControlFrames(t *testing.T) {
	d := NewDecoder(nil, false)

	t.Run("ps-poll is kept as phy", func(t *testing.T) {
		pb := &packetBuilder{}
		pb.raw(0xA4, 0x00, 0x01, 0xC0)
		pb.raw(apMAC...)
		pb.raw(staMAC...)

		f, ok := d.Decode(pb.build())
		require.True(t, ok)
		assert.Equal(t, domain.CategoryPhy, f.Category)
		assert.Equal(t, domain.MustParseMAC("00:11:22:33:44:55"), f.BSSID)
	})

	t.Run("ack is dropped", func(t *testing.T) {
		pb := &packetBuilder{}
		pb.raw(0xD4, 0x00, 0x00, 0x00)
		pb.raw(staMAC...)

		_, ok := d.Decode(pb.build())
		assert.False(t, ok)
	})
}

func TestDecodeGarbageIsNoise(t *testing.T) {
	d := NewDecoder(nil, false)

	pkt := gopacket.NewPacket([]byte{0x01, 0x02}, layers.LayerTypeDot11, gopacket.Default)
	f, ok := d.Decode(pkt)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryNoise, f.Category)
}

func TestDecodeAttachesGPS(t *testing.T) {
	fix := domain.GPSSample{Lat: 40.4168, Lon: -3.7038, Alt: 667, Speed: 1.5}
	d := NewDecoder(fixedGPS{fix: fix, ok: true}, false)

	f, ok := d.Decode(dataFrame(0x01, apMAC, staMAC, gwMAC))
	require.True(t, ok)
	require.NotNil(t, f.GPS)
	assert.Equal(t, fix, *f.GPS)

	d = NewDecoder(fixedGPS{ok: false}, false)
	f, _ = d.Decode(dataFrame(0x01, apMAC, staMAC, gwMAC))
	assert.Nil(t, f.GPS)
}

func TestDecodeUsesCaptureTimestamp(t *testing.T) {
	d := NewDecoder(nil, false)
	pkt := dataFrame(0x01, apMAC, staMAC, gwMAC)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pkt.Metadata().Timestamp = ts

	f, ok := d.Decode(pkt)
	require.True(t, ok)
	assert.Equal(t, ts, f.Timestamp)
	assert.Equal(t, len(pkt.Data()), f.Length)
}

func TestRadioSample(t *testing.T) {
	rt := &layers.RadioTap{
		DBMAntennaSignal: -42,
		DBMAntennaNoise:  -95,
		Rate:             108, // 54 Mbps
		ChannelFlags:     layers.RadioTapChannelFlagsGhz2 | layers.RadioTapChannelFlagsOFDM,
	}

	r := radioSample(rt)
	assert.Equal(t, -42, r.Signal)
	assert.Equal(t, -95, r.Noise)
	assert.Equal(t, 540, r.DataRate)
	assert.Equal(t, domain.Carrier80211g, r.Carrier)
	assert.Equal(t, domain.EncodingOFDM, r.Encoding)

	rt.ChannelFlags = layers.RadioTapChannelFlagsGhz2 | layers.RadioTapChannelFlagsCCK
	r = radioSample(rt)
	assert.Equal(t, domain.Carrier80211b, r.Carrier)
	assert.Equal(t, domain.EncodingCCK, r.Encoding)

	rt.ChannelFlags = layers.RadioTapChannelFlagsGhz5 | layers.RadioTapChannelFlagsOFDM
	assert.Equal(t, domain.Carrier80211a, radioSample(rt).Carrier)

	rt.Present = layers.RadioTapPresentMCS
	assert.Equal(t, domain.Carrier80211n, radioSample(rt).Carrier)
}

func TestFrequencyToChannel(t *testing.T) {
	tests := map[int]int{
		2412: 1,
		2437: 6,
		2472: 13,
		2484: 14,
		5180: 36,
		5825: 165,
		5955: 1,
		900:  0,
	}
	for freq, want := range tests {
		assert.Equal(t, want, frequencyToChannel(freq), "freq %d", freq)
	}
}
