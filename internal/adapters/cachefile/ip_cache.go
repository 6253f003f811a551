package cachefile

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

// LiveIPSource supplies the current addressing of a tracked network, if any.
type LiveIPSource func(bssid domain.MAC) (domain.IPData, bool)

// IPCache maps network identities to inferred addressing. It implements
// ports.IPCache.
type IPCache struct {
	file    file
	mu      sync.RWMutex
	entries map[domain.MAC]domain.IPData
}

// NewIPCache creates a cache backed by path.
func NewIPCache(path string, notifier ports.Notifier) *IPCache {
	return &IPCache{
		file: file{
			format:   format{name: "IP", tag: "IPCACHE", version: IPVersion},
			path:     path,
			notifier: notifier,
		},
		entries: make(map[domain.MAC]domain.IPData),
	}
}

// Enabled reports whether the cache has a backing file.
func (c *IPCache) Enabled() bool {
	return c.file.path != ""
}

// Path returns the backing file path.
func (c *IPCache) Path() string {
	return c.file.path
}

// Load merges the backing file into memory, see SSIDCache.Load.
func (c *IPCache) Load(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	staged := make(map[domain.MAC]domain.IPData)
	_, err := c.file.read(ctx, func(line string) error {
		mac, ip, err := parseIPLine(line)
		if err != nil {
			return err
		}
		staged[mac] = ip
		return nil
	})

	// staged only holds lines from a file whose version matched
	c.mu.Lock()
	for mac, ip := range staged {
		c.entries[mac] = ip
	}
	n := len(c.entries)
	c.mu.Unlock()

	telemetry.CacheEntries.WithLabelValues("ip").Set(float64(n))
	return err
}

// Store rewrites the backing file. For entries whose network is still being
// tracked, live wins over the cached value. live may be nil.
func (c *IPCache) Store(ctx context.Context, live LiveIPSource) error {
	if !c.Enabled() {
		return nil
	}

	entries := c.Entries()
	_, err := c.file.write(ctx, func(w io.Writer) (int, error) {
		for i, e := range entries {
			ip := e.IP
			if live != nil {
				if current, ok := live(e.BSSID); ok {
					ip = current
				}
			}
			if _, err := io.WriteString(w, formatIPLine(e.BSSID, ip)); err != nil {
				return i, err
			}
		}
		return len(entries), nil
	})
	return err
}

// Lookup implements ports.IPCache.
func (c *IPCache) Lookup(bssid domain.MAC) (domain.IPData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ip, ok := c.entries[bssid]
	return ip, ok
}

// Set records addressing for a network.
func (c *IPCache) Set(bssid domain.MAC, ip domain.IPData) {
	c.mu.Lock()
	c.entries[bssid] = ip
	n := len(c.entries)
	c.mu.Unlock()
	telemetry.CacheEntries.WithLabelValues("ip").Set(float64(n))
}

// Len returns the number of entries.
func (c *IPCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// IPEntry is one cache mapping.
type IPEntry struct {
	BSSID domain.MAC    `json:"bssid"`
	IP    domain.IPData `json:"ip"`
}

// Entries returns every mapping ordered by BSSID.
func (c *IPCache) Entries() []IPEntry {
	c.mu.RLock()
	out := make([]IPEntry, 0, len(c.entries))
	for mac, ip := range c.entries {
		out = append(out, IPEntry{BSSID: mac, IP: ip})
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b IPEntry) int { return a.BSSID.Compare(b.BSSID) })
	return out
}

// Addresses are stored as the signed 32-bit value of the network-order bytes
// read on a little-endian host, which keeps files interchangeable with the
// x86 tools that produce them.
func ipToInt(ip domain.IPv4) int32 {
	return int32(binary.LittleEndian.Uint32(ip[:]))
}

func intToIP(v int32) domain.IPv4 {
	var ip domain.IPv4
	binary.LittleEndian.PutUint32(ip[:], uint32(v))
	return ip
}

// parseIPLine parses "<mac> <ip> <netmask> <gateway>".
func parseIPLine(line string) (domain.MAC, domain.IPData, error) {
	mac, rest, err := splitMAC(line)
	if err != nil {
		return domain.MAC{}, domain.IPData{}, err
	}

	parts := strings.Fields(rest)
	if len(parts) != 3 {
		return domain.MAC{}, domain.IPData{}, errBadLine
	}
	var vals [3]int32
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return domain.MAC{}, domain.IPData{}, errBadLine
		}
		vals[i] = int32(v)
	}

	return mac, domain.IPData{
		Block:   intToIP(vals[0]),
		Netmask: intToIP(vals[1]),
		Gateway: intToIP(vals[2]),
	}, nil
}

func formatIPLine(bssid domain.MAC, ip domain.IPData) string {
	return fmt.Sprintf("%s %d %d %d\n", bssid, ipToInt(ip.Block), ipToInt(ip.Netmask), ipToInt(ip.Gateway))
}
