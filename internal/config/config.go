package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flow source strategies.
const (
	FlowSourceAuto          = "auto"
	FlowSourcePrecomputed   = "precomputed"
	FlowSourceReconstructed = "reconstructed"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Fixture   string // YAML fixture served from memory instead of SQLite
	Auth      AuthConfig
	RateLimit int // requests per minute per client IP, 0 disables
	Log       LogConfig
	Analysis  AnalysisConfig
	Flow      FlowConfig
	Stream    StreamConfig
}

type ServerConfig struct {
	Port string
	Mode string // gin mode: debug, release, test
}

type DatabaseConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

type AuthConfig struct {
	JWTSecret string // empty disables bearer auth
}

type LogConfig struct {
	Level  string
	Format string // text or json
}

type AnalysisConfig struct {
	OutlierThreshold int64
	Shards           int
}

type FlowConfig struct {
	Source string
}

type StreamConfig struct {
	FrameInterval time.Duration
}

var options = []struct {
	key, flag, usage string
	defaultVal       interface{}
}{
	{"config", "config", "path to a YAML configuration file", ""},
	{"server.port", "port", "listen address", ":8080"},
	{"server.mode", "mode", "gin mode (debug, release, test)", "release"},
	{"database.path", "db", "SQLite database path", "./data/cityflow.db"},
	{"database.max_open_conns", "db-max-open", "maximum open database connections", 10},
	{"database.max_idle_conns", "db-max-idle", "maximum idle database connections", 5},
	{"fixture.path", "fixture", "serve from a YAML fixture instead of SQLite", ""},
	{"auth.jwt_secret", "jwt-secret", "HS256 secret; bearer auth is disabled when empty", ""},
	{"ratelimit.requests_per_minute", "rate-limit", "requests per minute per client IP, 0 disables", 120},
	{"log.level", "log-level", "log level", "info"},
	{"log.format", "log-format", "log format (text or json)", "text"},
	{"analysis.outlier_threshold", "outlier-threshold", "participants with fewer check-ins are outliers", 2000},
	{"analysis.shards", "shards", "parallel accumulation shards", runtime.NumCPU()},
	{"flow.source", "flow-source", "flow source (auto, precomputed, reconstructed)", FlowSourceAuto},
	{"stream.frame_interval", "frame-interval", "delay between flow stream frames", 500 * time.Millisecond},
}

// New returns a viper instance with defaults set and CITYFLOW_* environment
// variables bound.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CITYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, o := range options {
		v.SetDefault(o.key, o.defaultVal)
	}
	return v
}

// BindFlags registers one flag per option on fs and binds it to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, o := range options {
		switch d := o.defaultVal.(type) {
		case string:
			fs.String(o.flag, d, o.usage)
		case int:
			fs.Int(o.flag, d, o.usage)
		case time.Duration:
			fs.Duration(o.flag, d, o.usage)
		default:
			panic(fmt.Sprintf("config: unsupported default for %s", o.key))
		}
		if err := v.BindPFlag(o.key, fs.Lookup(o.flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", o.flag, err)
		}
	}
	return nil
}

// Load 加载配置
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("server.port"),
			Mode: v.GetString("server.mode"),
		},
		Database: DatabaseConfig{
			Path:         v.GetString("database.path"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
		},
		Fixture:   v.GetString("fixture.path"),
		Auth:      AuthConfig{JWTSecret: v.GetString("auth.jwt_secret")},
		RateLimit: v.GetInt("ratelimit.requests_per_minute"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Analysis: AnalysisConfig{
			OutlierThreshold: v.GetInt64("analysis.outlier_threshold"),
			Shards:           v.GetInt("analysis.shards"),
		},
		Flow:   FlowConfig{Source: strings.ToLower(v.GetString("flow.source"))},
		Stream: StreamConfig{FrameInterval: v.GetDuration("stream.frame_interval")},
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Analysis.OutlierThreshold <= 0 {
		return fmt.Errorf("analysis.outlier_threshold must be positive, got %d", c.Analysis.OutlierThreshold)
	}
	if c.Analysis.Shards < 1 {
		c.Analysis.Shards = 1
	}
	switch c.Flow.Source {
	case FlowSourceAuto, FlowSourcePrecomputed, FlowSourceReconstructed:
	default:
		return fmt.Errorf("unknown flow.source %q", c.Flow.Source)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("ratelimit.requests_per_minute must not be negative, got %d", c.RateLimit)
	}
	if c.Stream.FrameInterval < 0 {
		return fmt.Errorf("stream.frame_interval must not be negative, got %s", c.Stream.FrameInterval)
	}
	return nil
}
