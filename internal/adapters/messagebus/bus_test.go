package messagebus

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestBus(history int) (*Bus, *bytes.Buffer) {
	var buf bytes.Buffer
	b := New(history, slog.New(slog.NewTextHandler(&buf, nil)))
	b.now = func() time.Time { return time.Unix(1700000000, 0) }
	return b, &buf
}

func TestNotifyLogsAtSeverity(t *testing.T) {
	b, buf := newTestBus(4)

	b.Notify(context.Background(), domain.SeverityInfo, "Detected new network")
	b.Notify(context.Background(), domain.SeverityError, "failed to write SSID cache file")

	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=\"Detected new network\"")
	assert.Contains(t, out, "level=ERROR msg=\"failed to write SSID cache file\"")
}

func TestRecentKeepsOrderAndBound(t *testing.T) {
	b, _ := newTestBus(3)
	ctx := context.Background()

	assert.Empty(t, b.Recent())

	for i := 0; i < 5; i++ {
		b.Notify(ctx, domain.SeverityInfo, fmt.Sprintf("n%d", i))
	}

	recent := b.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, "n2", recent[0].Text)
	assert.Equal(t, "n4", recent[2].Text)
}

func TestRecentBeforeWrap(t *testing.T) {
	b, _ := newTestBus(3)
	b.Notify(context.Background(), domain.SeverityInfo, "a")
	b.Notify(context.Background(), domain.SeverityInfo, "b")

	recent := b.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "a", recent[0].Text)
}

func TestSubscribe(t *testing.T) {
	b, _ := newTestBus(0)
	ctx := context.Background()

	var got []domain.Notice
	cancel := b.Subscribe(func(n domain.Notice) { got = append(got, n) })

	b.Notify(ctx, domain.SeverityError, "boom")
	cancel()
	b.Notify(ctx, domain.SeverityInfo, "ignored")

	require.Len(t, got, 1)
	assert.Equal(t, domain.SeverityError, got[0].Severity)
	assert.Equal(t, "boom", got[0].Text)
	assert.Equal(t, int64(1700000000), got[0].Time.Unix())
}

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recordingConn) Publish(subj string, data []byte) error {
	r.subjects = append(r.subjects, subj)
	r.payloads = append(r.payloads, data)
	return r.err
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var s structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &s))
	return s.AsMap()
}

func TestNATSPublisherNotice(t *testing.T) {
	conn := &recordingConn{}
	p := &NATSPublisher{conn: conn, prefix: "netrack"}

	p.PublishNotice(domain.Notice{Time: time.Unix(1700000000, 0), Severity: domain.SeverityError, Text: "disk full"})

	require.Equal(t, []string{"netrack.notice"}, conn.subjects)
	msg := decode(t, conn.payloads[0])
	assert.Equal(t, "error", msg["severity"])
	assert.Equal(t, "disk full", msg["text"])
	assert.Equal(t, float64(1700000000), msg["time"])
}

func TestNATSPublisherNetworkLifecycle(t *testing.T) {
	conn := &recordingConn{}
	p := &NATSPublisher{conn: conn}
	ctx := context.Background()

	n := domain.NewTrackedNetwork(domain.MustParseMAC("00:11:22:33:44:55"))
	n.SSID = "HomeNet"
	n.Channel = 11
	n.GPS.Add(domain.GPSSample{Lat: 10, Lon: 20})

	p.OnNetworkAdded(ctx, *n)
	p.OnNetworkRemoved(ctx, n.BSSID)

	require.Equal(t, []string{SubjectNetworkAdded, SubjectNetworkRemoved}, conn.subjects)

	added := decode(t, conn.payloads[0])
	assert.Equal(t, "00:11:22:33:44:55", added["bssid"])
	assert.Equal(t, "HomeNet", added["ssid"])
	assert.Equal(t, "ap", added["type"])
	assert.Equal(t, float64(11), added["channel"])
	assert.Equal(t, float64(10), added["lat"])

	removed := decode(t, conn.payloads[1])
	assert.Equal(t, "00:11:22:33:44:55", removed["bssid"])
}

func TestNATSPublisherSwallowsErrors(t *testing.T) {
	conn := &recordingConn{err: assert.AnError}
	p := &NATSPublisher{conn: conn}

	assert.NotPanics(t, func() {
		p.PublishNotice(domain.Notice{Text: "x"})
	})
	assert.Len(t, conn.subjects, 1)
}
