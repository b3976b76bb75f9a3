package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Addr           string
	GRPCAddr       string
	DBPath         string
	Persistence    bool
	FlushInterval  time.Duration
	SignaturesPath string
	OUIPath        string // optional "XX:XX:XX Vendor" file for WiFi vendor lookup
	Interface      string
	PcapPath       string // capture file to replay instead of live capture
	Latitude       float64
	Longitude      float64
	MockScenario   string
	MockInterval   time.Duration
	AllowedOrigins []string
	Tracing        bool
	Debug          bool
}

// Load parses command line flags and environment variables to populate Config.
// Flags take precedence over environment variables.
func Load(args []string) (*Config, error) {
	cfg := &Config{}

	// Defaults and Environment Variables
	origins := getEnv("TAILWATCH_ALLOWED_ORIGINS", "")
	cfg.Addr = getEnv("TAILWATCH_ADDR", ":8080")
	cfg.GRPCAddr = getEnv("TAILWATCH_GRPC_ADDR", ":9000")
	cfg.DBPath = getEnv("TAILWATCH_DB", getDefaultDBPath())
	cfg.Persistence = getEnvBool("TAILWATCH_PERSIST", true)
	cfg.FlushInterval = getEnvDuration("TAILWATCH_FLUSH_INTERVAL", 5*time.Second)
	cfg.SignaturesPath = getEnv("TAILWATCH_SIGNATURES", "")
	cfg.OUIPath = getEnv("TAILWATCH_OUI", "")
	cfg.Interface = getEnv("TAILWATCH_INTERFACE", "")
	cfg.PcapPath = getEnv("TAILWATCH_PCAP", "")
	cfg.Latitude = getEnvFloat("TAILWATCH_LAT", 40.4168)
	cfg.Longitude = getEnvFloat("TAILWATCH_LNG", -3.7038)
	cfg.MockScenario = getEnv("MOCK_SCENARIO", "")
	cfg.MockInterval = getEnvDuration("TAILWATCH_MOCK_INTERVAL", 5*time.Second)
	cfg.Tracing = getEnvBool("TAILWATCH_TRACING", false)
	cfg.Debug = getEnvBool("TAILWATCH_DEBUG", false)

	// Command Line Flags (Override Env)
	fs := flag.NewFlagSet("tailwatch", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	fs.StringVar(&cfg.GRPCAddr, "grpc", cfg.GRPCAddr, "gRPC health server address (empty to disable)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database")
	fs.BoolVar(&cfg.Persistence, "persist", cfg.Persistence, "Persist alerts and correlated threats")
	fs.DurationVar(&cfg.FlushInterval, "flush", cfg.FlushInterval, "Persistence flush interval")
	fs.StringVar(&cfg.SignaturesPath, "signatures", cfg.SignaturesPath, "Signature table JSON (empty for the built-in table)")
	fs.StringVar(&cfg.OUIPath, "oui", cfg.OUIPath, "OUI vendor file merged over the built-in table")
	fs.StringVar(&cfg.Interface, "i", cfg.Interface, "WiFi interface in monitor mode")
	fs.StringVar(&cfg.PcapPath, "pcap", cfg.PcapPath, "Replay an 802.11 capture file instead of live capture")
	fs.Float64Var(&cfg.Latitude, "lat", cfg.Latitude, "Static Latitude")
	fs.Float64Var(&cfg.Longitude, "lng", cfg.Longitude, "Static Longitude")
	fs.StringVar(&cfg.MockScenario, "mock", cfg.MockScenario, "Run a simulated scenario: basic, following, separated, surveillance, all")
	fs.DurationVar(&cfg.MockInterval, "mock-interval", cfg.MockInterval, "Pause between simulated scan rounds")
	fs.StringVar(&origins, "origins", origins, "Allowed WebSocket origins (comma separated, * for any)")
	fs.BoolVar(&cfg.Tracing, "trace", cfg.Tracing, "Export OpenTelemetry traces to stdout")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.AllowedOrigins = splitList(origins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that flags and env parsing cannot.
func (c *Config) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Longitude)
	}
	if c.Addr == "" {
		return fmt.Errorf("http address must not be empty")
	}
	if c.Persistence && c.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive, got %s", c.FlushInterval)
	}
	if c.MockInterval <= 0 {
		return fmt.Errorf("mock interval must be positive, got %s", c.MockInterval)
	}
	return nil
}

// MockMode reports whether a simulated scenario replaces real capture.
func (c *Config) MockMode() bool {
	return c.MockScenario != ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getDefaultDBPath returns ~/.tailwatch/tailwatch.db, creating the directory.
func getDefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Printf("Warning: Could not get user home directory, using current dir: %v", err)
		return "tailwatch.db"
	}

	dir := filepath.Join(home, ".tailwatch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("Warning: Could not create .tailwatch directory, using current dir: %v", err)
		return "tailwatch.db"
	}

	return filepath.Join(dir, "tailwatch.db")
}
