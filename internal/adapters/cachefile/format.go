package cachefile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/core/ports"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Current on-disk versions. Bump only on an incompatible format change.
const (
	SSIDVersion = 2
	IPVersion   = 2
)

// MaxSSIDLen is the longest SSID a cache line can carry.
const MaxSSIDLen = 64

// maxLineLen bounds one line of a cache file. Longer lines are skipped.
const maxLineLen = 1024

var (
	// ErrBadVersionLine is returned when the first line is not a version tag.
	ErrBadVersionLine = errors.New("unreadable cache version line")

	// ErrVersionMismatch is returned when the file was written by another format version.
	ErrVersionMismatch = errors.New("cache version mismatch")

	errBadLine  = errors.New("invalid line")
	errLongLine = fmt.Errorf("line longer than %d bytes", maxLineLen)
	errBadMAC   = errors.New("invalid MAC address")
)

// LineError describes a data line that was skipped.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// format describes one cache file kind.
type format struct {
	name    string // used in notices, "SSID" or "IP"
	tag     string // version line tag
	version int
}

func (f format) versionLine() string {
	return fmt.Sprintf("%s_VERSION: %d", f.tag, f.version)
}

// parseVersion reads "<TAG>_VERSION: <n>". Whitespace around the number and
// anything after it are ignored.
func (f format) parseVersion(line string) (int, error) {
	rest, ok := strings.CutPrefix(line, f.tag+"_VERSION:")
	if !ok {
		return 0, ErrBadVersionLine
	}
	rest = strings.TrimLeft(rest, " \t")
	end := 0
	if end < len(rest) && (rest[end] == '-' || rest[end] == '+') {
		end++
	}
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	v, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, ErrBadVersionLine
	}
	return v, nil
}

// readLine returns the next line without its terminator. A line longer than
// maxLineLen is consumed whole and reported with errLongLine. At the end of
// the input it returns io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	var (
		buf  []byte
		long bool
	)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return "", err
		}
		if !long {
			if len(buf)+len(chunk) > maxLineLen {
				long, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if long {
		return "", errLongLine
	}
	return string(buf), nil
}

// file is the I/O shared by both caches.
type file struct {
	format
	path     string
	notifier ports.Notifier
}

func (f *file) notify(ctx context.Context, sev domain.Severity, msg string, args ...any) {
	f.notifier.Notify(ctx, sev, fmt.Sprintf(msg, args...))
}

// read streams data lines of the file into parse. A missing file is reported
// but reads as empty. A bad version line or a version mismatch returns an
// error before parse is called. Line level failures are reported and skipped.
// A read error part way through stops reading and is returned along with the
// count of lines already parsed, which the caller keeps.
func (f *file) read(ctx context.Context, parse func(line string) error) (loaded int, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "cachefile.Load")
	span.SetAttributes(attribute.String("cache", f.name), attribute.String("path", f.path))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			telemetry.CacheErrors.WithLabelValues(f.name, "read").Inc()
		}
		span.SetAttributes(attribute.Int("entries", loaded))
		span.End()
	}()

	fh, err := os.Open(f.path)
	if err != nil {
		f.notify(ctx, domain.SeverityError, "failed to read %s cache file '%s': %v", f.name, f.path, err)
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	defer fh.Close()

	r := bufio.NewReader(fh)
	first, err := readLine(r)
	if err != nil {
		f.notify(ctx, domain.SeverityError, "failed to read %s cache file version, cache file will be replaced", f.name)
		if errors.Is(err, io.EOF) || errors.Is(err, errLongLine) {
			return 0, ErrBadVersionLine
		}
		return 0, fmt.Errorf("%w: %v", ErrBadVersionLine, err)
	}

	ver, err := f.parseVersion(strings.TrimRight(first, "\r"))
	if err != nil {
		f.notify(ctx, domain.SeverityError, "failed to read %s cache file version, cache file will be replaced", f.name)
		return 0, err
	}
	if ver != f.version {
		f.notify(ctx, domain.SeverityError, "different %s cache version, cache file will be replaced (got %d expected %d)",
			f.name, ver, f.version)
		return 0, fmt.Errorf("%w: got %d expected %d", ErrVersionMismatch, ver, f.version)
	}

	lineNo := 1
	for {
		line, err := readLine(r)
		if errors.Is(err, io.EOF) {
			return loaded, nil
		}
		lineNo++
		if err == nil {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			err = parse(line)
		} else if !errors.Is(err, errLongLine) {
			f.notify(ctx, domain.SeverityError, "failed to read %s cache file '%s': %v", f.name, f.path, err)
			return loaded, err
		}
		if err != nil {
			lerr := &LineError{Line: lineNo, Err: err}
			if errors.Is(err, errBadMAC) {
				f.notify(ctx, domain.SeverityInfo, "invalid MAC address in %s cache file (%v), skipping", f.name, lerr)
			} else {
				f.notify(ctx, domain.SeverityInfo, "invalid line in %s cache file (%v), skipping", f.name, lerr)
			}
			continue
		}
		loaded++
	}
}

// write replaces the file with the version line followed by what emit writes.
// The new content goes to a temporary file renamed over the old one.
func (f *file) write(ctx context.Context, emit func(w io.Writer) (int, error)) (written int, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "cachefile.Store")
	span.SetAttributes(attribute.String("cache", f.name), attribute.String("path", f.path))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			telemetry.CacheErrors.WithLabelValues(f.name, "write").Inc()
			f.notify(ctx, domain.SeverityError, "failed to write %s cache file '%s': %v", f.name, f.path, err)
		}
		span.SetAttributes(attribute.Int("entries", written))
		span.End()
	}()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if _, err := fmt.Fprintln(w, f.versionLine()); err != nil {
		tmp.Close()
		return 0, err
	}
	written, err = emit(w)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return 0, err
	}
	return written, nil
}

// splitMAC cuts the leading hardware address token off a data line.
func splitMAC(line string) (domain.MAC, string, error) {
	macStr, rest, ok := strings.Cut(line, " ")
	if !ok {
		return domain.MAC{}, "", errBadLine
	}
	mac, err := domain.ParseMAC(macStr)
	if err != nil {
		return domain.MAC{}, "", fmt.Errorf("%w: %q", errBadMAC, macStr)
	}
	return mac, rest, nil
}
