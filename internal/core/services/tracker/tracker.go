package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

// ErrMissingCollaborator is returned by New when a required dependency is nil.
var ErrMissingCollaborator = errors.New("tracker: missing required collaborator")

// Config controls optional tracking behavior.
type Config struct {
	// TrackProbeNetworks folds probe requests into the network their sender
	// was last seen associated with instead of creating a probe-only record.
	TrackProbeNetworks bool

	// Now is the clock used for first/last seen. Defaults to time.Now.
	Now func() time.Time
}

// Tracker implements ports.Tracker. A single goroutine is expected to call
// ProcessFrame; readers get copies and never see a record mid-update.
type Tracker struct {
	mu         sync.RWMutex
	networks   map[domain.MAC]*domain.TrackedNetwork
	clients    map[domain.ClientKey]*domain.TrackedClient
	probeAssoc map[domain.MAC]domain.MAC // client -> owning network

	ssids    ports.SSIDCache
	ips      ports.IPCache
	notifier ports.Notifier
	subject  *Subject

	trackProbes bool
	now         func() time.Time
}

// New creates a tracker. The caches and notifier are required.
func New(cfg Config, ssids ports.SSIDCache, ips ports.IPCache, notifier ports.Notifier) (*Tracker, error) {
	switch {
	case ssids == nil:
		return nil, fmt.Errorf("%w: ssid cache", ErrMissingCollaborator)
	case ips == nil:
		return nil, fmt.Errorf("%w: ip cache", ErrMissingCollaborator)
	case notifier == nil:
		return nil, fmt.Errorf("%w: notifier", ErrMissingCollaborator)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Tracker{
		networks:    make(map[domain.MAC]*domain.TrackedNetwork),
		clients:     make(map[domain.ClientKey]*domain.TrackedClient),
		probeAssoc:  make(map[domain.MAC]domain.MAC),
		ssids:       ssids,
		ips:         ips,
		notifier:    notifier,
		subject:     NewSubject(),
		trackProbes: cfg.TrackProbeNetworks,
		now:         now,
	}, nil
}

// Subject exposes the observer registry.
func (t *Tracker) Subject() *Subject {
	return t.subject
}

// outcome collects side effects produced under the lock so they can be
// delivered after it is released.
type outcome struct {
	notices []string
	added   *domain.TrackedNetwork
}

func (o *outcome) notice(format string, args ...any) {
	o.notices = append(o.notices, fmt.Sprintf(format, args...))
}

// ProcessFrame implements ports.Tracker.
func (t *Tracker) ProcessFrame(ctx context.Context, f domain.Frame) bool {
	if reason, ok := accept(&f); !ok {
		telemetry.FramesRejected.WithLabelValues(reason).Inc()
		return false
	}

	var out outcome

	t.mu.Lock()
	now := t.now()

	net := t.resolve(&f)
	if net == nil {
		net = t.create(&f, now, &out)
	} else if f.Is(domain.CategoryManagement, domain.SubtypeBeacon) && !f.HasSSID() &&
		net.SSID == "" && !net.Cloaked {
		t.markCloaked(net)
	}

	net.Dirty = true
	net.LastSeen = now

	if f.GPS != nil {
		net.GPS.Add(*f.GPS)
	}
	if f.Radio != nil {
		net.Signal.Add(*f.Radio, f.GPS)
	}

	t.foldBeacon(net, &f)
	t.decloak(net, &f, &out)
	countFrame(net, &f)

	if f.Category == domain.CategoryData {
		t.trackClient(net, &f, now)
	}
	t.associate(net, &f)

	count := len(t.networks)
	t.mu.Unlock()

	telemetry.FramesTracked.WithLabelValues(f.Category.String()).Inc()
	telemetry.NetworksTracked.Set(float64(count))

	for _, text := range out.notices {
		t.notifier.Notify(ctx, domain.SeverityInfo, text)
	}
	if out.added != nil {
		t.subject.NotifyAdded(ctx, *out.added)
	}
	return true
}

// resolve finds the record owning f. The direct lookup always wins over the
// probe association.
func (t *Tracker) resolve(f *domain.Frame) *domain.TrackedNetwork {
	if net, ok := t.networks[f.BSSID]; ok {
		return net
	}
	if !t.trackProbes || !f.Is(domain.CategoryManagement, domain.SubtypeProbeReq) {
		return nil
	}
	if owner, ok := t.probeAssoc[f.BSSID]; ok {
		return t.networks[owner]
	}
	return nil
}

func (t *Tracker) create(f *domain.Frame, now time.Time, out *outcome) *domain.TrackedNetwork {
	net := domain.NewTrackedNetwork(f.BSSID)

	if ip, ok := t.ips.Lookup(f.BSSID); ok {
		net.IP = ip
	}

	if f.Is(domain.CategoryManagement, domain.SubtypeBeacon) {
		if f.HasSSID() {
			net.SSID = f.SSID
			net.Cloaked = false
		} else {
			t.markCloaked(net)
		}
	}

	net.Type = classify(f)
	net.FirstSeen = now

	t.networks[net.BSSID] = net

	telemetry.NetworksCreated.WithLabelValues(net.Type.String()).Inc()
	slog.Debug("network created", "bssid", net.BSSID.String(), "type", net.Type.String())

	out.notice("Detected new network '%s' BSSID %s", net.DisplaySSID(), net.BSSID)
	snapshot := *net
	out.added = &snapshot
	return net
}

// markCloaked flags a network whose beacons carry no name and seeds the name
// from the SSID cache when a previous run resolved it.
func (t *Tracker) markCloaked(net *domain.TrackedNetwork) {
	net.Cloaked = true
	if ssid, ok := t.ssids.Lookup(net.BSSID); ok {
		net.SSID = ssid
		net.Uncloaked = true
		telemetry.Decloaks.WithLabelValues("cache").Inc()
	}
}

func (t *Tracker) foldBeacon(net *domain.TrackedNetwork, f *domain.Frame) {
	if !f.Is(domain.CategoryManagement, domain.SubtypeBeacon) {
		return
	}

	net.BeaconInfo = f.BeaconInfo

	// A named beacon always wins, even over a name resolved earlier.
	if f.HasSSID() {
		net.SSID = f.SSID
	}

	if f.MaxRate > net.MaxRate {
		net.MaxRate = f.MaxRate
	}
	if f.WEP {
		net.Crypt |= domain.CryptWEP
	}

	net.Channel = f.Channel
	net.BeaconRate = f.BeaconInterval
}

func (t *Tracker) decloak(net *domain.TrackedNetwork, f *domain.Frame, out *outcome) {
	if !net.Cloaked || net.Uncloaked {
		return
	}
	if !f.Is(domain.CategoryManagement, domain.SubtypeProbeResp) || !f.HasSSID() {
		return
	}

	net.Uncloaked = true
	net.SSID = f.SSID
	t.ssids.Set(net.BSSID, f.SSID)

	telemetry.Decloaks.WithLabelValues("probe_resp").Inc()
	out.notice("Discovered SSID \"%s\" for cloaked network %s", net.SSID, net.BSSID)
}

func countFrame(net *domain.TrackedNetwork, f *domain.Frame) {
	switch f.Category {
	case domain.CategoryManagement, domain.CategoryPhy:
		net.LLCPackets++
	case domain.CategoryData:
		net.DataPackets++
		if f.Encrypted {
			net.CryptPackets++
		}
		net.Datasize += int64(f.Length)
	}
}

// associate remembers which network a station talks to so its later probe
// requests can be folded into that network.
func (t *Tracker) associate(net *domain.TrackedNetwork, f *domain.Frame) {
	if !t.trackProbes {
		return
	}

	var station domain.MAC
	switch {
	case f.Category == domain.CategoryData && f.Distrib == domain.DistribToDS:
		station = f.Source
	case f.Is(domain.CategoryManagement, domain.SubtypeProbeResp):
		station = f.Dest
	default:
		return
	}

	if station.IsZero() || station.IsMulticast() || station == net.BSSID {
		return
	}
	t.probeAssoc[station] = net.BSSID
}

// Network implements ports.Tracker.
func (t *Tracker) Network(bssid domain.MAC) (domain.TrackedNetwork, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	net, ok := t.networks[bssid]
	if !ok {
		return domain.TrackedNetwork{}, false
	}
	return *net, true
}

// Networks implements ports.Tracker.
func (t *Tracker) Networks() []domain.TrackedNetwork {
	t.mu.RLock()
	all := make([]domain.TrackedNetwork, 0, len(t.networks))
	for _, net := range t.networks {
		all = append(all, *net)
	}
	t.mu.RUnlock()

	sortNetworks(all)
	return all
}

// Clients implements ports.Tracker.
func (t *Tracker) Clients() []domain.TrackedClient {
	t.mu.RLock()
	all := make([]domain.TrackedClient, 0, len(t.clients))
	for _, c := range t.clients {
		all = append(all, *c)
	}
	t.mu.RUnlock()

	sortClients(all)
	return all
}

// ProbeOwner returns the network a station's probe requests are folded into.
func (t *Tracker) ProbeOwner(station domain.MAC) (domain.MAC, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	owner, ok := t.probeAssoc[station]
	return owner, ok
}

// DrainDirty implements ports.Tracker.
func (t *Tracker) DrainDirty() ([]domain.TrackedNetwork, []domain.TrackedClient) {
	t.mu.Lock()
	var nets []domain.TrackedNetwork
	for _, net := range t.networks {
		if net.Dirty {
			nets = append(nets, *net)
			net.Dirty = false
		}
	}
	var clients []domain.TrackedClient
	for _, c := range t.clients {
		if c.Dirty {
			clients = append(clients, *c)
			c.Dirty = false
		}
	}
	t.mu.Unlock()

	sortNetworks(nets)
	sortClients(clients)
	return nets, clients
}

// Prune implements ports.Tracker. Clients and probe associations of a pruned
// network go with it.
func (t *Tracker) Prune(ctx context.Context, ttl time.Duration) []domain.MAC {
	if ttl <= 0 {
		return nil
	}

	t.mu.Lock()
	threshold := t.now().Add(-ttl)
	var removed []domain.MAC
	for bssid, net := range t.networks {
		if net.LastSeen.Before(threshold) {
			delete(t.networks, bssid)
			removed = append(removed, bssid)
		}
	}
	if len(removed) > 0 {
		for key := range t.clients {
			if _, ok := t.networks[key.BSSID]; !ok {
				delete(t.clients, key)
			}
		}
		for station, owner := range t.probeAssoc {
			if _, ok := t.networks[owner]; !ok {
				delete(t.probeAssoc, station)
			}
		}
	}
	count := len(t.networks)
	t.mu.Unlock()

	telemetry.NetworksTracked.Set(float64(count))

	slices.SortFunc(removed, domain.MAC.Compare)
	for _, bssid := range removed {
		t.subject.NotifyRemoved(ctx, bssid)
	}
	return removed
}

// Count implements ports.Tracker.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.networks)
}

func sortNetworks(nets []domain.TrackedNetwork) {
	slices.SortFunc(nets, func(a, b domain.TrackedNetwork) int {
		return a.BSSID.Compare(b.BSSID)
	})
}

func sortClients(clients []domain.TrackedClient) {
	slices.SortFunc(clients, func(a, b domain.TrackedClient) int {
		if c := a.BSSID.Compare(b.BSSID); c != 0 {
			return c
		}
		return a.MAC.Compare(b.MAC)
	})
}
