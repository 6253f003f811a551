package messagebus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Subjects under the configured prefix.
const (
	SubjectNotice         = "notice"
	SubjectNetworkAdded   = "network.added"
	SubjectNetworkRemoved = "network.removed"
)

// publisher is the part of *nats.Conn the fan-out needs.
type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher mirrors notices and network lifecycle events onto NATS as
// protobuf encoded structs.
type NATSPublisher struct {
	conn   publisher
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher connects to url. Subjects are prefix + "." + suffix.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("netrack"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	slog.Info("Connected to NATS server", "url", url, "prefix", prefix)
	return &NATSPublisher{conn: nc, nc: nc, prefix: prefix}, nil
}

func (p *NATSPublisher) subject(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "." + suffix
}

func (p *NATSPublisher) publish(suffix string, fields map[string]any) error {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject(suffix), data)
}

// PublishNotice is a Bus subscriber.
func (p *NATSPublisher) PublishNotice(n domain.Notice) {
	if err := p.publish(SubjectNotice, noticeFields(n)); err != nil {
		slog.Warn("NATS notice publish failed", "error", err)
	}
}

// OnNetworkAdded publishes the new record.
func (p *NATSPublisher) OnNetworkAdded(_ context.Context, n domain.TrackedNetwork) {
	if err := p.publish(SubjectNetworkAdded, networkFields(n)); err != nil {
		slog.Warn("NATS network publish failed", "bssid", n.BSSID, "error", err)
	}
}

// OnNetworkRemoved publishes the identity of a pruned record.
func (p *NATSPublisher) OnNetworkRemoved(_ context.Context, bssid domain.MAC) {
	if err := p.publish(SubjectNetworkRemoved, map[string]any{"bssid": bssid.String()}); err != nil {
		slog.Warn("NATS removal publish failed", "bssid", bssid, "error", err)
	}
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			slog.Warn("NATS drain failed", "error", err)
		}
	}
}

func noticeFields(n domain.Notice) map[string]any {
	return map[string]any{
		"time":     n.Time.Unix(),
		"severity": n.Severity.String(),
		"text":     n.Text,
	}
}

func networkFields(n domain.TrackedNetwork) map[string]any {
	lat, lon, _, _ := n.GPS.Centroid()
	return map[string]any{
		"bssid":      n.BSSID.String(),
		"type":       n.Type.String(),
		"ssid":       n.DisplaySSID(),
		"cloaked":    n.Cloaked,
		"channel":    n.Channel,
		"first_seen": n.FirstSeen.Unix(),
		"max_signal": n.Signal.MaxSignal,
		"lat":        lat,
		"lon":        lon,
	}
}
