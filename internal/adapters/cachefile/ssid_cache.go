package cachefile

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

// SSIDCache maps network identities to SSIDs resolved for cloaked networks.
// It implements ports.SSIDCache. With an empty path it still works in memory
// but Load and Store do nothing.
type SSIDCache struct {
	file    file
	mu      sync.RWMutex
	entries map[domain.MAC]string
}

// NewSSIDCache creates a cache backed by path.
func NewSSIDCache(path string, notifier ports.Notifier) *SSIDCache {
	return &SSIDCache{
		file: file{
			format:   format{name: "SSID", tag: "SSIDCACHE", version: SSIDVersion},
			path:     path,
			notifier: notifier,
		},
		entries: make(map[domain.MAC]string),
	}
}

// Enabled reports whether the cache has a backing file.
func (c *SSIDCache) Enabled() bool {
	return c.file.path != ""
}

// Path returns the backing file path.
func (c *SSIDCache) Path() string {
	return c.file.path
}

// Load merges the backing file into memory. A missing file loads nothing. An
// unreadable version line or a version mismatch leaves memory untouched and
// returns the cause. Bad or overlong lines are skipped. If reading fails part
// way, the lines parsed so far are kept and the error is returned.
func (c *SSIDCache) Load(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	staged := make(map[domain.MAC]string)
	_, err := c.file.read(ctx, func(line string) error {
		mac, ssid, err := parseSSIDLine(line)
		if err != nil {
			return err
		}
		staged[mac] = ssid
		return nil
	})

	// staged only holds lines from a file whose version matched
	c.mu.Lock()
	for mac, ssid := range staged {
		c.entries[mac] = ssid
	}
	n := len(c.entries)
	c.mu.Unlock()

	telemetry.CacheEntries.WithLabelValues("ssid").Set(float64(n))
	return err
}

// Store rewrites the backing file with every entry in memory.
func (c *SSIDCache) Store(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	entries := c.Entries()
	_, err := c.file.write(ctx, func(w io.Writer) (int, error) {
		n := 0
		for _, e := range entries {
			line, ok := formatSSIDLine(e.BSSID, e.SSID)
			if !ok {
				continue
			}
			if _, err := io.WriteString(w, line); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	})
	return err
}

// Lookup implements ports.SSIDCache.
func (c *SSIDCache) Lookup(bssid domain.MAC) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ssid, ok := c.entries[bssid]
	return ssid, ok
}

// Set implements ports.SSIDCache.
func (c *SSIDCache) Set(bssid domain.MAC, ssid string) {
	c.mu.Lock()
	c.entries[bssid] = ssid
	n := len(c.entries)
	c.mu.Unlock()
	telemetry.CacheEntries.WithLabelValues("ssid").Set(float64(n))
}

// Len returns the number of entries.
func (c *SSIDCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// SSIDEntry is one cache mapping.
type SSIDEntry struct {
	BSSID domain.MAC `json:"bssid"`
	SSID  string     `json:"ssid"`
}

// Entries returns every mapping ordered by BSSID.
func (c *SSIDCache) Entries() []SSIDEntry {
	c.mu.RLock()
	out := make([]SSIDEntry, 0, len(c.entries))
	for mac, ssid := range c.entries {
		out = append(out, SSIDEntry{BSSID: mac, SSID: ssid})
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b SSIDEntry) int { return a.BSSID.Compare(b.BSSID) })
	return out
}

// parseSSIDLine parses "<mac> \x01<ssid>\x01". The SSID must be 1 to
// MaxSSIDLen bytes and cannot contain the delimiter.
func parseSSIDLine(line string) (domain.MAC, string, error) {
	mac, rest, err := splitMAC(line)
	if err != nil {
		return domain.MAC{}, "", err
	}
	if len(rest) < 3 || rest[0] != '\x01' || rest[len(rest)-1] != '\x01' {
		return domain.MAC{}, "", errBadLine
	}
	ssid := rest[1 : len(rest)-1]
	if len(ssid) > MaxSSIDLen || strings.Contains(ssid, "\x01") {
		return domain.MAC{}, "", errBadLine
	}
	return mac, ssid, nil
}

// formatSSIDLine renders one entry, truncating long SSIDs. SSIDs that are
// empty or contain the delimiter or a line break cannot be represented and
// are skipped.
func formatSSIDLine(bssid domain.MAC, ssid string) (string, bool) {
	if len(ssid) > MaxSSIDLen {
		ssid = ssid[:MaxSSIDLen]
	}
	if ssid == "" || strings.ContainsAny(ssid, "\x01\r\n") {
		return "", false
	}
	return fmt.Sprintf("%s \x01%s\x01\n", bssid, ssid), true
}
