package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type StreamMode string

const (
	StreamModeGRPC      StreamMode = "grpc"
	StreamModeWebSocket StreamMode = "websocket"
	StreamModeStdout    StreamMode = "stdout"
)

type Config struct {
	NodeID   string
	Hostname string

	SampleInterval  time.Duration
	SnapshotTimeout time.Duration
	ErrorBackoff    time.Duration

	StreamMode        StreamMode
	BackendGRPCAddr   string
	BackendWSURL      string
	BackendToken      string
	GRPCMetricsMethod string
	SendTimeout       time.Duration

	WebSocketWriteTimeout time.Duration
	WebSocketPingInterval time.Duration

	TLSEnabled    bool
	TLSSkipVerify bool
	TLSCAPath     string
	TLSCertPath   string
	TLSKeyPath    string

	ProbeListenAddr string
	HealthInterval  time.Duration
	ShutdownTimeout time.Duration

	LogJSON  bool
	LogLevel string
}

// fileConfig is the optional yaml underlay; environment variables override
// anything set here.
type fileConfig struct {
	NodeID          string `yaml:"node_id"`
	SampleInterval  string `yaml:"sample_interval"`
	SnapshotTimeout string `yaml:"snapshot_timeout"`
	ErrorBackoff    string `yaml:"error_backoff"`
	StreamMode      string `yaml:"stream_mode"`
	BackendGRPCAddr string `yaml:"backend_grpc_addr"`
	BackendWSURL    string `yaml:"backend_ws_url"`
	BackendToken    string `yaml:"backend_token"`
	ProbeListenAddr string `yaml:"probe_listen_addr"`
	LogLevel        string `yaml:"log_level"`
}

func Load() (Config, error) {
	return load(os.Getenv("SYSMON_CONFIG_FILE"))
}

func load(filePath string) (Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	var fc fileConfig
	if filePath != "" {
		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return Config{}, fmt.Errorf("read config file: %w", readErr)
		}
		if yamlErr := yaml.Unmarshal(raw, &fc); yamlErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", yamlErr)
		}
	}

	sampleInterval := envDuration("SYSMON_SAMPLE_INTERVAL", fileDuration(fc.SampleInterval, time.Second))
	cfg := Config{
		NodeID:                env("SYSMON_NODE_ID", firstNonEmpty(fc.NodeID, hostname)),
		Hostname:              hostname,
		SampleInterval:        sampleInterval,
		SnapshotTimeout:       envDuration("SYSMON_SNAPSHOT_TIMEOUT", fileDuration(fc.SnapshotTimeout, sampleInterval)),
		ErrorBackoff:          envDuration("SYSMON_ERROR_BACKOFF", fileDuration(fc.ErrorBackoff, 0)),
		StreamMode:            StreamMode(strings.ToLower(env("SYSMON_STREAM_MODE", firstNonEmpty(fc.StreamMode, string(StreamModeStdout))))),
		BackendGRPCAddr:       env("SYSMON_BACKEND_GRPC_ADDR", firstNonEmpty(fc.BackendGRPCAddr, "127.0.0.1:3001")),
		BackendWSURL:          env("SYSMON_BACKEND_WS_URL", firstNonEmpty(fc.BackendWSURL, "ws://127.0.0.1:3001/ws/metrics")),
		BackendToken:          env("SYSMON_BACKEND_TOKEN", fc.BackendToken),
		GRPCMetricsMethod:     env("SYSMON_GRPC_METRICS_METHOD", "/sysmon.metrics.v1.MetricsService/StreamHostMetrics"),
		SendTimeout:           envDuration("SYSMON_SEND_TIMEOUT", 5*time.Second),
		WebSocketWriteTimeout: envDuration("SYSMON_WS_WRITE_TIMEOUT", 5*time.Second),
		WebSocketPingInterval: envDuration("SYSMON_WS_PING_INTERVAL", 10*time.Second),
		TLSEnabled:            envBool("SYSMON_TLS_ENABLED", false),
		TLSSkipVerify:         envBool("SYSMON_TLS_SKIP_VERIFY", false),
		TLSCAPath:             env("SYSMON_TLS_CA_PATH", ""),
		TLSCertPath:           env("SYSMON_TLS_CERT_PATH", ""),
		TLSKeyPath:            env("SYSMON_TLS_KEY_PATH", ""),
		ProbeListenAddr:       env("SYSMON_PROBE_ADDR", firstNonEmpty(fc.ProbeListenAddr, "0.0.0.0:7443")),
		HealthInterval:        envDuration("SYSMON_HEALTH_INTERVAL", 10*time.Second),
		ShutdownTimeout:       envDuration("SYSMON_SHUTDOWN_TIMEOUT", 20*time.Second),
		LogJSON:               envBool("SYSMON_LOG_JSON", false),
		LogLevel:              strings.ToLower(env("SYSMON_LOG_LEVEL", firstNonEmpty(fc.LogLevel, "info"))),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("SYSMON_NODE_ID is required")
	}
	if c.SampleInterval <= 0 {
		return errors.New("SYSMON_SAMPLE_INTERVAL must be > 0")
	}
	if c.SnapshotTimeout <= 0 {
		return errors.New("SYSMON_SNAPSHOT_TIMEOUT must be > 0")
	}
	if c.ErrorBackoff < 0 {
		return errors.New("SYSMON_ERROR_BACKOFF must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SYSMON_SHUTDOWN_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(c.ProbeListenAddr) == "" {
		return errors.New("SYSMON_PROBE_ADDR is required")
	}
	switch c.StreamMode {
	case StreamModeGRPC:
		if c.BackendGRPCAddr == "" {
			return errors.New("SYSMON_BACKEND_GRPC_ADDR is required for grpc mode")
		}
		if strings.TrimSpace(c.GRPCMetricsMethod) == "" {
			return errors.New("SYSMON_GRPC_METRICS_METHOD is required for grpc mode")
		}
	case StreamModeWebSocket:
		if c.BackendWSURL == "" {
			return errors.New("SYSMON_BACKEND_WS_URL is required for websocket mode")
		}
	case StreamModeStdout:
	default:
		return fmt.Errorf("unsupported stream mode %q", c.StreamMode)
	}
	return nil
}

func (c Config) TLSConfig() (*tls.Config, error) {
	if !c.TLSEnabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: c.TLSSkipVerify}
	if c.TLSCAPath != "" {
		caBytes, err := os.ReadFile(c.TLSCAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, errors.New("append CA cert failed")
		}
		tlsCfg.RootCAs = pool
	}
	if c.TLSCertPath != "" || c.TLSKeyPath != "" {
		if c.TLSCertPath == "" || c.TLSKeyPath == "" {
			return nil, errors.New("both TLS cert and key are required")
		}
		crt, err := tls.LoadX509KeyPair(c.TLSCertPath, c.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("load TLS cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{crt}
	}
	return tlsCfg, nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func fileDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
