package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/lcalzada-xor/netrack/internal/core/services/protocol"
)

// Config holds all application configuration.
type Config struct {
	Capture  CaptureConfig  `yaml:"capture"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Caches   CacheConfig    `yaml:"caches"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Storage  StorageConfig  `yaml:"storage"`
	Web      WebConfig      `yaml:"web"`
	NATS     NATSConfig     `yaml:"nats"`
	GPS      GPSConfig      `yaml:"gps"`
	GRPCPort int            `yaml:"grpc_port"`
	Debug    bool           `yaml:"debug"`
}

// CaptureConfig selects the frame source. Exactly one of Interface, File or
// Mock must be set.
type CaptureConfig struct {
	Interface    string        `yaml:"interface"`
	File         string        `yaml:"file"`
	Filter       string        `yaml:"filter"`
	Snaplen      int           `yaml:"snaplen"`
	Mock         bool          `yaml:"mock"`
	MockNetworks int           `yaml:"mock_networks"`
	MockInterval time.Duration `yaml:"mock_interval"`
	// Monitor switches Interface to monitor mode at startup and back to
	// managed on exit.
	Monitor bool `yaml:"monitor"`
	// Hop tunes Interface round robin over HopChannels, or over every channel
	// the radio supports when the list is empty.
	Hop         bool          `yaml:"hop"`
	HopChannels []int         `yaml:"hop_channels"`
	HopDwell    time.Duration `yaml:"hop_dwell"`
}

type TrackerConfig struct {
	TrackProbeNetworks bool          `yaml:"track_probe_networks"`
	TTL                time.Duration `yaml:"ttl"`
	PruneInterval      time.Duration `yaml:"prune_interval"`
}

// CacheConfig locates the SSID and IP cache files. An empty path disables
// that cache.
type CacheConfig struct {
	SSIDPath      string        `yaml:"ssid_path"`
	IPPath        string        `yaml:"ip_path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type ProtocolConfig struct {
	PushInterval   time.Duration `yaml:"push_interval"`
	CacheHitPolicy string        `yaml:"cache_hit_policy"`
	SendBuffer     int           `yaml:"send_buffer"`
}

type StorageConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Path          string        `yaml:"path"`
	BufferSize    int           `yaml:"buffer_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Retention     time.Duration `yaml:"retention"`
}

type WebConfig struct {
	Addr           string   `yaml:"addr"`
	User           string   `yaml:"user"`
	PasswordHash   string   `yaml:"password_hash"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// NATSConfig enables fan-out of notices and network events when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type GPSConfig struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
	Alt float64 `yaml:"alt"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	dir := dataDir()
	return &Config{
		Capture: CaptureConfig{
			Snaplen:      65536,
			MockNetworks: 12,
			MockInterval: 100 * time.Millisecond,
			HopDwell:     300 * time.Millisecond,
		},
		Tracker: TrackerConfig{
			TTL:           30 * time.Minute,
			PruneInterval: time.Minute,
		},
		Caches: CacheConfig{
			SSIDPath:      filepath.Join(dir, "ssid_map"),
			IPPath:        filepath.Join(dir, "ip_map"),
			FlushInterval: 5 * time.Minute,
		},
		Protocol: ProtocolConfig{
			PushInterval:   time.Second,
			CacheHitPolicy: "stop",
			SendBuffer:     1024,
		},
		Storage: StorageConfig{
			Enabled:       true,
			Path:          filepath.Join(dir, "netrack.db"),
			BufferSize:    10000,
			FlushInterval: 5 * time.Second,
			Retention:     7 * 24 * time.Hour,
		},
		Web: WebConfig{
			Addr: ":8080",
		},
		NATS: NATSConfig{
			SubjectPrefix: "netrack",
		},
		GPS: GPSConfig{
			Lat: 40.4168,
			Lng: -3.7038,
		},
		GRPCPort: 9000,
	}
}

// dataDir returns ~/.netrack, or the working directory when there is no home.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("Could not get user home directory, using current dir", "error", err)
		return "."
	}
	return filepath.Join(home, ".netrack")
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment (including a .env file) and the flags the user actually set,
// in that order of precedence, then validates it.
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg, err := Resolve(flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve applies the same precedence as Load without validating, for
// commands that only read a few settings. Flags not bound on flags are
// skipped.
func Resolve(flags *pflag.FlagSet) (*Config, error) {
	envFile, _ := flags.GetString(flagEnvFile)
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg := Default()

	path, _ := flags.GetString(flagConfig)
	if !flags.Changed(flagConfig) {
		if p, ok := os.LookupEnv(envPrefix + "CONFIG"); ok {
			path = p
		}
	}
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := applyFlags(flags, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFile exports the variables of a dotenv file. Variables already in
// the environment win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	sources := 0
	for _, set := range []bool{c.Capture.Interface != "", c.Capture.File != "", c.Capture.Mock} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return errors.New("no frame source: set an interface, a capture file or mock mode")
	case sources > 1:
		return errors.New("only one frame source may be set")
	}

	if (c.Capture.Monitor || c.Capture.Hop) && c.Capture.Interface == "" {
		return errors.New("monitor mode and channel hopping need a capture interface")
	}
	if c.Capture.Hop && c.Capture.HopDwell <= 0 {
		return fmt.Errorf("hop dwell must be positive, got %s", c.Capture.HopDwell)
	}

	if _, err := protocol.ParseCacheHitPolicy(c.Protocol.CacheHitPolicy); err != nil {
		return err
	}
	if c.Protocol.PushInterval <= 0 {
		return fmt.Errorf("push interval must be positive, got %s", c.Protocol.PushInterval)
	}
	if c.Web.User != "" && c.Web.PasswordHash == "" {
		return errors.New("web user set without a password hash")
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return errors.New("storage enabled without a database path")
	}
	return nil
}

// CacheHitPolicy returns the parsed serializer policy. Validate has already
// rejected unknown names.
func (c *Config) CacheHitPolicy() protocol.CacheHitPolicy {
	p, _ := protocol.ParseCacheHitPolicy(c.Protocol.CacheHitPolicy)
	return p
}
