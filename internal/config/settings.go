package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

const (
	envPrefix   = "NETRACK_"
	flagConfig  = "config"
	flagEnvFile = "env-file"
)

// setting binds one Config field to a flag and an environment variable.
type setting struct {
	flag  string
	short string
	usage string
	field func(*Config) any
}

// env is the variable name: NETRACK_ plus the flag name in upper snake case.
func (s setting) env() string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(s.flag, "-", "_"))
}

var settings = []setting{
	{"interface", "i", "Network interface in monitor mode", func(c *Config) any { return &c.Capture.Interface }},
	{"pcap", "r", "Replay frames from a capture file", func(c *Config) any { return &c.Capture.File }},
	{"filter", "", "BPF filter for live capture", func(c *Config) any { return &c.Capture.Filter }},
	{"snaplen", "", "Capture snapshot length", func(c *Config) any { return &c.Capture.Snaplen }},
	{"mock", "", "Generate synthetic traffic instead of capturing", func(c *Config) any { return &c.Capture.Mock }},
	{"mock-networks", "", "Number of simulated networks", func(c *Config) any { return &c.Capture.MockNetworks }},
	{"mock-interval", "", "Delay between simulated frames", func(c *Config) any { return &c.Capture.MockInterval }},
	{"monitor", "", "Put the interface in monitor mode and restore it on exit", func(c *Config) any { return &c.Capture.Monitor }},
	{"hop", "", "Hop channels on the capture interface", func(c *Config) any { return &c.Capture.Hop }},
	{"hop-channels", "", "Channels to hop over (default: every supported channel)", func(c *Config) any { return &c.Capture.HopChannels }},
	{"hop-dwell", "", "Time spent on each channel", func(c *Config) any { return &c.Capture.HopDwell }},

	{"track-probe-networks", "", "Create networks for directed probe requests", func(c *Config) any { return &c.Tracker.TrackProbeNetworks }},
	{"ttl", "", "Remove networks not seen for this long (0 keeps them)", func(c *Config) any { return &c.Tracker.TTL }},
	{"prune-interval", "", "How often idle networks are checked", func(c *Config) any { return &c.Tracker.PruneInterval }},

	{"ssid-cache", "", "SSID cache file (empty disables)", func(c *Config) any { return &c.Caches.SSIDPath }},
	{"ip-cache", "", "IP cache file (empty disables)", func(c *Config) any { return &c.Caches.IPPath }},
	{"cache-flush-interval", "", "How often the cache files are written", func(c *Config) any { return &c.Caches.FlushInterval }},

	{"push-interval", "", "How often changed records are pushed to consumers", func(c *Config) any { return &c.Protocol.PushInterval }},
	{"cache-hit-policy", "", "Serializer behaviour on a repeated field: stop or continue", func(c *Config) any { return &c.Protocol.CacheHitPolicy }},
	{"send-buffer", "", "Per-consumer outbound queue length", func(c *Config) any { return &c.Protocol.SendBuffer }},

	{"store", "", "Persist network snapshots", func(c *Config) any { return &c.Storage.Enabled }},
	{"db", "", "Path to SQLite database", func(c *Config) any { return &c.Storage.Path }},
	{"store-buffer", "", "Pending snapshot queue length", func(c *Config) any { return &c.Storage.BufferSize }},
	{"store-interval", "", "Snapshot batch interval", func(c *Config) any { return &c.Storage.FlushInterval }},
	{"retention", "", "Drop snapshots older than this (0 keeps them)", func(c *Config) any { return &c.Storage.Retention }},

	{"addr", "", "HTTP server address", func(c *Config) any { return &c.Web.Addr }},
	{"web-user", "", "HTTP basic auth user (empty disables auth)", func(c *Config) any { return &c.Web.User }},
	{"web-password-hash", "", "bcrypt hash of the HTTP basic auth password", func(c *Config) any { return &c.Web.PasswordHash }},
	{"allowed-origins", "", "Browser origins accepted on /ws", func(c *Config) any { return &c.Web.AllowedOrigins }},

	{"nats-url", "", "NATS server for event fan-out (empty disables)", func(c *Config) any { return &c.NATS.URL }},
	{"nats-prefix", "", "NATS subject prefix", func(c *Config) any { return &c.NATS.SubjectPrefix }},

	{"lat", "", "Static latitude", func(c *Config) any { return &c.GPS.Lat }},
	{"lng", "", "Static longitude", func(c *Config) any { return &c.GPS.Lng }},
	{"alt", "", "Static altitude", func(c *Config) any { return &c.GPS.Alt }},

	{"grpc", "", "gRPC health server port", func(c *Config) any { return &c.GRPCPort }},
	{"debug", "d", "Enable verbose debug logging", func(c *Config) any { return &c.Debug }},
}

// BindFlags registers every setting on fs with the built-in defaults.
func BindFlags(fs *pflag.FlagSet) {
	bind(fs, settings)
}

// BindCacheFlags registers the config file flags and the cache paths only.
func BindCacheFlags(fs *pflag.FlagSet) {
	var subset []setting
	for _, s := range settings {
		if s.flag == "ssid-cache" || s.flag == "ip-cache" {
			subset = append(subset, s)
		}
	}
	bind(fs, subset)
}

func bind(fs *pflag.FlagSet, list []setting) {
	fs.String(flagConfig, "", "YAML configuration file (env "+envPrefix+"CONFIG)")
	fs.String(flagEnvFile, ".env", "dotenv file loaded before reading the environment")

	def := Default()
	for _, s := range list {
		usage := fmt.Sprintf("%s (env %s)", s.usage, s.env())
		switch p := s.field(def).(type) {
		case *string:
			fs.StringP(s.flag, s.short, *p, usage)
		case *int:
			fs.IntP(s.flag, s.short, *p, usage)
		case *bool:
			fs.BoolP(s.flag, s.short, *p, usage)
		case *float64:
			fs.Float64P(s.flag, s.short, *p, usage)
		case *time.Duration:
			fs.DurationP(s.flag, s.short, *p, usage)
		case *[]string:
			fs.StringSliceP(s.flag, s.short, *p, usage)
		case *[]int:
			fs.IntSliceP(s.flag, s.short, *p, usage)
		}
	}
}

func applyEnv(cfg *Config) error {
	for _, s := range settings {
		raw, ok := os.LookupEnv(s.env())
		if !ok {
			continue
		}
		if err := parseInto(s.field(cfg), raw); err != nil {
			return fmt.Errorf("%s: %w", s.env(), err)
		}
	}
	return nil
}

// applyFlags copies only the flags set on the command line.
func applyFlags(fs *pflag.FlagSet, cfg *Config) error {
	for _, s := range settings {
		if fs.Lookup(s.flag) == nil || !fs.Changed(s.flag) {
			continue
		}
		var err error
		switch p := s.field(cfg).(type) {
		case *string:
			*p, err = fs.GetString(s.flag)
		case *int:
			*p, err = fs.GetInt(s.flag)
		case *bool:
			*p, err = fs.GetBool(s.flag)
		case *float64:
			*p, err = fs.GetFloat64(s.flag)
		case *time.Duration:
			*p, err = fs.GetDuration(s.flag)
		case *[]string:
			*p, err = fs.GetStringSlice(s.flag)
		case *[]int:
			*p, err = fs.GetIntSlice(s.flag)
		}
		if err != nil {
			return fmt.Errorf("flag --%s: %w", s.flag, err)
		}
	}
	return nil
}

func parseInto(field any, raw string) error {
	var err error
	switch p := field.(type) {
	case *string:
		*p = raw
	case *int:
		*p, err = strconv.Atoi(raw)
	case *bool:
		*p, err = strconv.ParseBool(raw)
	case *float64:
		*p, err = strconv.ParseFloat(raw, 64)
	case *time.Duration:
		*p, err = time.ParseDuration(raw)
	case *[]string:
		*p = splitList(raw)
	case *[]int:
		var out []int
		for _, part := range splitList(raw) {
			n, convErr := strconv.Atoi(part)
			if convErr != nil {
				return convErr
			}
			out = append(out, n)
		}
		*p = out
	}
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
