package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/google/gopacket/pcapgo"
	"github.com/lcalzada-xor/netrack/internal/adapters/sniffer/parser"
	"github.com/lcalzada-xor/netrack/internal/core/domain"
	"github.com/lcalzada-xor/netrack/internal/telemetry"
)

// ErrNoInput is returned when neither an interface nor a capture file is set.
var ErrNoInput = errors.New("capture: no interface or file configured")

const defaultSnaplen = 65536

// Config selects where packets come from. Exactly one of Interface and File
// must be set.
type Config struct {
	Interface string
	File      string
	// Filter is a BPF expression applied to live captures.
	Filter  string
	Snaplen int32
	Debug   bool
}

// Source reads 802.11 packets from a monitor interface or a pcap file and
// forwards decoded frames.
type Source struct {
	Config  Config
	decoder *parser.Decoder

	mu     sync.Mutex
	closer io.Closer
	closed bool
}

// New validates the configuration and returns an unopened source.
func New(cfg Config, dec *parser.Decoder) (*Source, error) {
	if cfg.Interface == "" && cfg.File == "" {
		return nil, ErrNoInput
	}
	if cfg.Interface != "" && cfg.File != "" {
		return nil, fmt.Errorf("capture: interface %q and file %q are mutually exclusive", cfg.Interface, cfg.File)
	}
	if cfg.Snaplen <= 0 {
		cfg.Snaplen = defaultSnaplen
	}
	return &Source{Config: cfg, decoder: dec}, nil
}

// Name identifies the source in metrics and logs.
func (s *Source) Name() string {
	if s.Config.File != "" {
		return "file"
	}
	return s.Config.Interface
}

// Start opens the capture and blocks until the context is cancelled, the
// source is closed, or a capture file runs out.
func (s *Source) Start(ctx context.Context, out chan<- domain.Frame) error {
	data, linkType, err := s.open()
	if err != nil {
		return err
	}
	defer s.Close()

	ps := gopacket.NewPacketSource(data, linkType)
	ps.NoCopy = true
	packets := ps.Packets()

	log.Printf("Capture: reading from %s (link type %s)", s.describe(), linkType)

	received := telemetry.FramesReceived.WithLabelValues(s.Name())
	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-packets:
			if !ok {
				log.Printf("Capture: %s exhausted", s.describe())
				return nil
			}
			received.Inc()

			frame, keep := s.decoder.Decode(pkt)
			if !keep {
				continue
			}

			select {
			case out <- frame:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Close releases the capture handle. It is safe to call more than once and
// unblocks a running Start.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.closer != nil {
		if err := s.closer.Close(); err != nil && s.Config.Debug {
			log.Printf("Capture: close %s: %v", s.describe(), err)
		}
	}
}

func (s *Source) describe() string {
	if s.Config.File != "" {
		return s.Config.File
	}
	return "interface " + s.Config.Interface
}

func (s *Source) open() (gopacket.PacketDataSource, layers.LinkType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, fmt.Errorf("capture: %s already closed", s.describe())
	}

	if s.Config.File != "" {
		return s.openFile()
	}
	return s.openLive()
}

func (s *Source) openLive() (gopacket.PacketDataSource, layers.LinkType, error) {
	handle, err := pcap.OpenLive(s.Config.Interface, s.Config.Snaplen, true, pcap.BlockForever)
	if err != nil {
		return nil, 0, fmt.Errorf("open interface %s: %w", s.Config.Interface, err)
	}
	if s.Config.Filter != "" {
		if err := handle.SetBPFFilter(s.Config.Filter); err != nil {
			handle.Close()
			return nil, 0, fmt.Errorf("set BPF filter %q: %w", s.Config.Filter, err)
		}
	}
	s.closer = closerFunc(handle.Close)
	return handle, handle.LinkType(), nil
}

func (s *Source) openFile() (gopacket.PacketDataSource, layers.LinkType, error) {
	f, err := os.Open(s.Config.File)
	if err != nil {
		return nil, 0, fmt.Errorf("open capture file: %w", err)
	}

	if strings.HasSuffix(strings.ToLower(s.Config.File), ".pcapng") {
		r, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("read pcapng header: %w", err)
		}
		s.closer = f
		return r, r.LinkType(), nil
	}

	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("read pcap header: %w", err)
	}
	s.closer = f
	return r, r.LinkType(), nil
}

type closerFunc func()

func (c closerFunc) Close() error {
	c()
	return nil
}
