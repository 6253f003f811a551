package cachefile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notice struct {
	sev  domain.Severity
	text string
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *recordingNotifier) Notify(_ context.Context, sev domain.Severity, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{sev, text})
}

func (n *recordingNotifier) count(sev domain.Severity) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, x := range n.notices {
		if x.sev == sev {
			c++
		}
	}
	return c
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSSIDCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ssid_map")
	n := &recordingNotifier{}

	want := map[domain.MAC]string{
		domain.MustParseMAC("00:11:22:33:44:55"): "Home",
		domain.MustParseMAC("00:11:22:33:44:66"): "with spaces  in it",
		domain.MustParseMAC("00:11:22:33:44:77"): strings.Repeat("x", MaxSSIDLen),
	}

	out := NewSSIDCache(path, n)
	for mac, ssid := range want {
		out.Set(mac, ssid)
	}
	require.NoError(t, out.Store(ctx))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "SSIDCACHE_VERSION: 2\n"))
	assert.Contains(t, string(raw), "00:11:22:33:44:55 \x01Home\x01\n")

	in := NewSSIDCache(path, n)
	require.NoError(t, in.Load(ctx))
	assert.Equal(t, len(want), in.Len())
	for mac, ssid := range want {
		got, ok := in.Lookup(mac)
		require.True(t, ok)
		assert.Equal(t, ssid, got)
	}
	assert.Empty(t, n.notices)
}

func TestSSIDCache_StoreTruncatesAndSkips(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ssid_map")

	c := NewSSIDCache(path, &recordingNotifier{})
	long := domain.MustParseMAC("00:00:00:00:00:01")
	bad := domain.MustParseMAC("00:00:00:00:00:02")
	c.Set(long, strings.Repeat("a", 80))
	c.Set(bad, "has\x01delim")
	require.NoError(t, c.Store(ctx))

	in := NewSSIDCache(path, &recordingNotifier{})
	require.NoError(t, in.Load(ctx))
	got, ok := in.Lookup(long)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("a", MaxSSIDLen), got)
	_, ok = in.Lookup(bad)
	assert.False(t, ok)
}

func TestSSIDCache_VersionMismatchRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ssid_map", "SSIDCACHE_VERSION: 1\n00:11:22:33:44:55 \x01Home\x01\n")
	n := &recordingNotifier{}

	c := NewSSIDCache(path, n)
	err := c.Load(context.Background())
	assert.ErrorIs(t, err, ErrVersionMismatch)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1, n.count(domain.SeverityError))

	absent := NewSSIDCache(filepath.Join(dir, "missing"), &recordingNotifier{})
	require.NoError(t, absent.Load(context.Background()))
	assert.Equal(t, absent.Entries(), c.Entries())
}

func TestSSIDCache_BadVersionLine(t *testing.T) {
	for name, content := range map[string]string{
		"garbage": "hello\n00:11:22:33:44:55 \x01Home\x01\n",
		"empty":   "",
		"not int": "SSIDCACHE_VERSION: two\n",
		"ip tag":  "IPCACHE_VERSION: 2\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "ssid_map", content)
			c := NewSSIDCache(path, &recordingNotifier{})
			assert.ErrorIs(t, c.Load(context.Background()), ErrBadVersionLine)
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestSSIDCache_SkipsMalformedLine(t *testing.T) {
	var b strings.Builder
	b.WriteString("SSIDCACHE_VERSION: 2\n")
	for i := 0; i < 9; i++ {
		fmt.Fprintf(&b, "00:11:22:33:44:%02X \x01net%d\x01\n", i, i)
		if i == 4 {
			b.WriteString("00:11:22:33:44:FF missing delimiters\n")
		}
	}
	path := writeFile(t, t.TempDir(), "ssid_map", b.String())
	n := &recordingNotifier{}

	c := NewSSIDCache(path, n)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 9, c.Len())
	assert.Equal(t, 1, n.count(domain.SeverityInfo))
}

func TestSSIDCache_SkipsOverlongLine(t *testing.T) {
	var b strings.Builder
	b.WriteString("SSIDCACHE_VERSION: 2\n")
	for i := 0; i < 10; i++ {
		if i == 5 {
			b.WriteString("garbage" + strings.Repeat("x", 70*1024) + "\n")
		}
		fmt.Fprintf(&b, "00:11:22:33:44:%02X \x01net%d\x01", i, i)
		if i < 9 {
			b.WriteString("\n")
		}
	}
	path := writeFile(t, t.TempDir(), "ssid_map", b.String())
	n := &recordingNotifier{}

	c := NewSSIDCache(path, n)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 10, c.Len())
	assert.Equal(t, 1, n.count(domain.SeverityInfo))

	got, ok := c.Lookup(domain.MustParseMAC("00:11:22:33:44:09"))
	require.True(t, ok, "unterminated last line still loads")
	assert.Equal(t, "net9", got)
}

func TestSSIDCache_OverlongVersionLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ssid_map",
		"SSIDCACHE_VERSION: 2"+strings.Repeat(" ", 2*maxLineLen)+"\n00:11:22:33:44:55 \x01Home\x01\n")
	c := NewSSIDCache(path, &recordingNotifier{})
	assert.ErrorIs(t, c.Load(context.Background()), ErrBadVersionLine)
	assert.Equal(t, 0, c.Len())
}

func TestSSIDCache_StoreSkipsLineBreaks(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ssid_map")
	good := domain.MustParseMAC("00:00:00:00:00:01")

	c := NewSSIDCache(path, &recordingNotifier{})
	c.Set(good, "Home")
	c.Set(domain.MustParseMAC("00:00:00:00:00:02"), "two\nlines")
	c.Set(domain.MustParseMAC("00:00:00:00:00:03"), "carriage\rreturn")
	require.NoError(t, c.Store(ctx))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SSIDCACHE_VERSION: 2\n00:00:00:00:00:01 \x01Home\x01\n", string(raw))

	n := &recordingNotifier{}
	in := NewSSIDCache(path, n)
	require.NoError(t, in.Load(ctx))
	assert.Equal(t, 1, in.Len())
	assert.Equal(t, 0, n.count(domain.SeverityInfo))
}

func TestParseVersion(t *testing.T) {
	f := format{name: "SSID", tag: "SSIDCACHE", version: SSIDVersion}
	tests := []struct {
		line string
		want int
		ok   bool
	}{
		{"SSIDCACHE_VERSION: 2", 2, true},
		{"SSIDCACHE_VERSION:2", 2, true},
		{"SSIDCACHE_VERSION: \t 2", 2, true},
		{"SSIDCACHE_VERSION: 2 written by netrack", 2, true},
		{"SSIDCACHE_VERSION: 12abc", 12, true},
		{"SSIDCACHE_VERSION: -1", -1, true},
		{"SSIDCACHE_VERSION:", 0, false},
		{"SSIDCACHE_VERSION: v2", 0, false},
		{" SSIDCACHE_VERSION: 2", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := f.parseVersion(tt.line)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrBadVersionLine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadLine(t *testing.T) {
	errDisk := errors.New("disk gone")
	r := bufio.NewReaderSize(io.MultiReader(
		strings.NewReader("first\r\n"+strings.Repeat("y", maxLineLen+1)+"\n"+strings.Repeat("z", maxLineLen)+"\nlast"),
		iotest.ErrReader(errDisk),
	), 16)

	line, err := readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	_, err = readLine(r)
	assert.ErrorIs(t, err, errLongLine)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Len(t, line, maxLineLen)

	line, err = readLine(r)
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = readLine(r)
	assert.ErrorIs(t, err, errDisk)
}

func TestParseSSIDLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{"ok", "00:11:22:33:44:55 \x01Home\x01", nil},
		{"lowercase mac", "aa:bb:cc:dd:ee:ff \x01Home\x01", nil},
		{"bad mac", "ZZ:11:22:33:44:55 \x01Home\x01", errBadMAC},
		{"no payload", "00:11:22:33:44:55", errBadLine},
		{"empty ssid", "00:11:22:33:44:55 \x01\x01", errBadLine},
		{"unterminated", "00:11:22:33:44:55 \x01Home", errBadLine},
		{"too long", "00:11:22:33:44:55 \x01" + strings.Repeat("a", 65) + "\x01", errBadLine},
		{"inner delimiter", "00:11:22:33:44:55 \x01a\x01b\x01", errBadLine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseSSIDLine(tt.line)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSSIDCache_Disabled(t *testing.T) {
	c := NewSSIDCache("", &recordingNotifier{})
	assert.False(t, c.Enabled())
	require.NoError(t, c.Load(context.Background()))

	c.Set(domain.MustParseMAC("00:11:22:33:44:55"), "Home")
	require.NoError(t, c.Store(context.Background()))
	got, ok := c.Lookup(domain.MustParseMAC("00:11:22:33:44:55"))
	assert.True(t, ok)
	assert.Equal(t, "Home", got)
}

func TestSSIDCache_StoreFailureIsReported(t *testing.T) {
	n := &recordingNotifier{}
	c := NewSSIDCache(filepath.Join(t.TempDir(), "no", "such", "dir", "ssid_map"), n)
	c.Set(domain.MustParseMAC("00:11:22:33:44:55"), "Home")

	assert.Error(t, c.Store(context.Background()))
	assert.Equal(t, 1, n.count(domain.SeverityError))
}

func TestIPCache_RoundTripAndLivePreference(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ip_map")

	cached := domain.MustParseMAC("00:11:22:33:44:55")
	tracked := domain.MustParseMAC("00:11:22:33:44:66")

	c := NewIPCache(path, &recordingNotifier{})
	c.Set(cached, domain.IPData{
		Block:   domain.IPv4{192, 168, 1, 0},
		Netmask: domain.IPv4{255, 255, 255, 0},
		Gateway: domain.IPv4{192, 168, 1, 1},
	})
	c.Set(tracked, domain.IPData{Block: domain.IPv4{10, 0, 0, 0}})

	live := func(bssid domain.MAC) (domain.IPData, bool) {
		if bssid == tracked {
			return domain.IPData{Block: domain.IPv4{172, 16, 0, 0}, Netmask: domain.IPv4{255, 255, 0, 0}}, true
		}
		return domain.IPData{}, false
	}
	require.NoError(t, c.Store(ctx, live))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "IPCACHE_VERSION: 2", lines[0])
	// 192.168.1.0 read little-endian is 0x0001A8C0.
	assert.Equal(t, "00:11:22:33:44:55 108736 16777215 16885952", lines[1])

	in := NewIPCache(path, &recordingNotifier{})
	require.NoError(t, in.Load(ctx))
	got, ok := in.Lookup(cached)
	require.True(t, ok)
	assert.Equal(t, domain.IPv4{192, 168, 1, 0}, got.Block)
	assert.Equal(t, domain.IPv4{255, 255, 255, 0}, got.Netmask)
	assert.Equal(t, domain.IPv4{192, 168, 1, 1}, got.Gateway)

	got, ok = in.Lookup(tracked)
	require.True(t, ok)
	assert.Equal(t, domain.IPv4{172, 16, 0, 0}, got.Block, "live value written instead of stale cache")
}

func TestIPCache_NegativeIntegers(t *testing.T) {
	ip := domain.IPv4{10, 0, 0, 200}
	v := ipToInt(ip)
	assert.Less(t, v, int32(0))
	assert.Equal(t, ip, intToIP(v))

	path := writeFile(t, t.TempDir(), "ip_map", fmt.Sprintf("IPCACHE_VERSION: 2\n00:11:22:33:44:55 %d 0 0\n", v))
	c := NewIPCache(path, &recordingNotifier{})
	require.NoError(t, c.Load(context.Background()))
	got, ok := c.Lookup(domain.MustParseMAC("00:11:22:33:44:55"))
	require.True(t, ok)
	assert.Equal(t, ip, got.Block)
}

func TestIPCache_SkipsMalformedLines(t *testing.T) {
	content := "IPCACHE_VERSION: 2\n" +
		"00:11:22:33:44:55 1 2 3\n" +
		"00:11:22:33:44:56 1 2\n" +
		"00:11:22:33:44:57 1 2 x\n" +
		"nothex 1 2 3\n" +
		"\n" +
		"00:11:22:33:44:58 4 5 6\n"
	path := writeFile(t, t.TempDir(), "ip_map", content)
	n := &recordingNotifier{}

	c := NewIPCache(path, n)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 3, n.count(domain.SeverityInfo))
}

func TestIPCache_SkipsOverlongLine(t *testing.T) {
	var b strings.Builder
	b.WriteString("IPCACHE_VERSION: 2\n")
	for i := 0; i < 6; i++ {
		if i == 3 {
			b.WriteString("00:11:22:33:44:FF " + strings.Repeat("1 ", 40*1024) + "\n")
		}
		fmt.Fprintf(&b, "00:11:22:33:44:%02X %d 0 0\n", i, i)
	}
	path := writeFile(t, t.TempDir(), "ip_map", b.String())
	n := &recordingNotifier{}

	c := NewIPCache(path, n)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 6, c.Len())
	assert.Equal(t, 1, n.count(domain.SeverityInfo))
	_, ok := c.Lookup(domain.MustParseMAC("00:11:22:33:44:FF"))
	assert.False(t, ok)
}

func TestIPCache_VersionMismatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ip_map", "IPCACHE_VERSION: 7\n00:11:22:33:44:55 1 2 3\n")
	c := NewIPCache(path, &recordingNotifier{})
	assert.ErrorIs(t, c.Load(context.Background()), ErrVersionMismatch)
	assert.Equal(t, 0, c.Len())
}

func TestLoadMissingFileReportsError(t *testing.T) {
	n := &recordingNotifier{}
	c := NewIPCache(filepath.Join(t.TempDir(), "absent"), n)
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, 0, c.Len())
	require.Len(t, n.notices, 1)
	assert.Equal(t, domain.SeverityError, n.notices[0].sev)
	assert.Contains(t, n.notices[0].text, "failed to read IP cache file")
}
