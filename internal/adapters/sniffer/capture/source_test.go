package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/lcalzada-xor/netrack/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beaconBytes(bssid byte, ssid string) []byte {
	b := []byte{0x80, 0x00, 0x00, 0x00}
	b = append(b, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	b = append(b, 0x00, 0x11, 0x22, 0x33, 0x44, bssid)
	b = append(b, 0x00, 0x11, 0x22, 0x33, 0x44, bssid)
	b = append(b, 0x00, 0x00)
	b = append(b, 0, 0, 0, 0, 0, 0, 0, 0, 0x64, 0x00, 0x01, 0x00)
	b = append(b, 0x00, byte(len(ssid)))
	b = append(b, ssid...)
	return append(b, 0xDE, 0xAD, 0xBE, 0xEF)
}

func writeCapture(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeIEEE802_11))
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, data := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Second),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

func collect(out <-chan domain.Frame) []domain.Frame {
	var frames []domain.Frame
	for {
		select {
		case f := <-out:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func TestNewValidatesInput(t *testing.T) {
	dec := parser.NewDecoder(nil, false)

	_, err := New(Config{}, dec)
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = New(Config{Interface: "wlan0", File: "x.pcap"}, dec)
	assert.Error(t, err)

	s, err := New(Config{File: "x.pcap"}, dec)
	require.NoError(t, err)
	assert.Equal(t, int32(defaultSnaplen), s.Config.Snaplen)
	assert.Equal(t, "file", s.Name())
}

func TestFileSourceReplaysCapture(t *testing.T) {
	path := writeCapture(t, beaconBytes(0x01, "alpha"), beaconBytes(0x02, "beta"))

	s, err := New(Config{File: path}, parser.NewDecoder(nil, false))
	require.NoError(t, err)

	out := make(chan domain.Frame, 10)
	require.NoError(t, s.Start(context.Background(), out))

	frames := collect(out)
	require.Len(t, frames, 2)
	assert.Equal(t, "alpha", frames[0].SSID)
	assert.Equal(t, domain.MustParseMAC("00:11:22:33:44:02"), frames[1].BSSID)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC), frames[1].Timestamp.UTC())
}

func TestFileSourceMissingFile(t *testing.T) {
	s, err := New(Config{File: filepath.Join(t.TempDir(), "nope.pcap")}, parser.NewDecoder(nil, false))
	require.NoError(t, err)

	err = s.Start(context.Background(), make(chan domain.Frame, 1))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStartAfterCloseFails(t *testing.T) {
	path := writeCapture(t, beaconBytes(0x01, "alpha"))
	s, err := New(Config{File: path}, parser.NewDecoder(nil, false))
	require.NoError(t, err)

	s.Close()
	s.Close()
	assert.Error(t, s.Start(context.Background(), make(chan domain.Frame, 1)))
}

func TestFileSourceStopsOnCancel(t *testing.T) {
	path := writeCapture(t, beaconBytes(0x01, "alpha"), beaconBytes(0x02, "beta"))
	s, err := New(Config{File: path}, parser.NewDecoder(nil, false))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan domain.Frame) // unbuffered and never read

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, out) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestMockSourceGeneratesTraffic(t *testing.T) {
	m := NewMock(5, time.Millisecond, nil, 42)
	require.Len(t, m.networks, 5)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan domain.Frame, 64)
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx, out) }()

	seen := map[domain.FrameCategory]int{}
	for i := 0; i < 50; i++ {
		select {
		case f := <-out:
			seen[f.Category]++
			assert.False(t, f.BSSID.IsZero())
			assert.NotNil(t, f.Radio)
		case <-time.After(2 * time.Second):
			t.Fatal("mock source stalled")
		}
	}

	m.Close()
	m.Close()
	require.NoError(t, <-done)
	assert.Positive(t, seen[domain.CategoryManagement])
}

func TestMockSourceWithoutNetworks(t *testing.T) {
	m := NewMock(0, time.Millisecond, nil, 1)
	assert.Error(t, m.Start(context.Background(), make(chan domain.Frame)))
}
