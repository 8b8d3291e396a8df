package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/toolgate/cache"
	"github.com/jonwraymond/toolgate/kv"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/quota"
	"github.com/jonwraymond/toolgate/secret"
)

// ErrInvalidConfig wraps every load and validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Environment keys.
const (
	EnvListenAddr      = "TOOLGATE_LISTEN_ADDR"
	EnvBackendURL      = "TOOLGATE_BACKEND_URL"
	EnvStore           = "TOOLGATE_STORE"
	EnvRedisAddr       = "TOOLGATE_REDIS_ADDR"
	EnvRedisPassword   = "TOOLGATE_REDIS_PASSWORD"
	EnvRedisDB         = "TOOLGATE_REDIS_DB"
	EnvDefaultLimit    = "TOOLGATE_DEFAULT_RATE_LIMIT"
	EnvKeyScope        = "TOOLGATE_RATE_KEY_SCOPE"
	EnvAtomicQuota     = "TOOLGATE_ATOMIC_QUOTA"
	EnvPolicyCacheTTL  = "TOOLGATE_POLICY_CACHE_TTL"
	EnvPolicyDir       = "TOOLGATE_POLICY_DIR"
	EnvStoreTimeout    = "TOOLGATE_STORE_TIMEOUT"
	EnvOpaqueDenials   = "TOOLGATE_OPAQUE_DENIALS"
	EnvMaxInFlight     = "TOOLGATE_MAX_INFLIGHT"
	EnvMaxRate         = "TOOLGATE_MAX_RATE"
	EnvMaxBurst        = "TOOLGATE_MAX_BURST"
	EnvLogLevel        = "TOOLGATE_LOG_LEVEL"
	EnvTracingExporter = "TOOLGATE_TRACING_EXPORTER"
	EnvTraceSamplePct  = "TOOLGATE_TRACE_SAMPLE_PCT"
	EnvMetricsExporter = "TOOLGATE_METRICS_EXPORTER"
	EnvShutdownTimeout = "TOOLGATE_SHUTDOWN_TIMEOUT"
)

// ServiceName is reported to telemetry backends.
const ServiceName = "toolgate"

// Config is the process configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	// Default: ":8080"
	ListenAddr string

	// BackendURL receives admitted requests. Required.
	BackendURL string

	Store StoreConfig
	Quota quota.Config

	// PolicyCacheTTL bounds how stale a cached policy may be. Zero disables
	// the cache.
	// Default: 5s
	PolicyCacheTTL time.Duration

	// PolicyDir, when set, holds policy files written to the store at
	// startup. Seeded documents replace stored ones with the same key.
	PolicyDir string

	// OpaqueDenials hides denial reasons from callers.
	OpaqueDenials bool

	// MaxInFlight caps concurrent requests.
	// Default: 256
	MaxInFlight int

	// MaxRate caps requests per second across the process. Zero disables it.
	MaxRate float64

	// MaxBurst is the burst allowed above MaxRate. Zero means MaxInFlight.
	MaxBurst int

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration

	Telemetry TelemetryConfig
}

// StoreConfig selects and configures the key-value store.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	// Default: "memory"
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Timeout bounds each store call.
	// Default: 250ms
	Timeout time.Duration
}

// TelemetryConfig selects log level and exporters.
type TelemetryConfig struct {
	LogLevel        string
	TracingExporter string
	TraceSamplePct  float64
	MetricsExporter string
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Store: StoreConfig{
			Backend:   StoreMemory,
			RedisAddr: "localhost:6379",
			Timeout:   250 * time.Millisecond,
		},
		Quota:           quota.DefaultConfig(),
		PolicyCacheTTL:  cache.DefaultPolicy().DefaultTTL,
		MaxInFlight:     256,
		ShutdownTimeout: 10 * time.Second,
		Telemetry: TelemetryConfig{
			LogLevel:        "info",
			TracingExporter: "none",
			TraceSamplePct:  1.0,
			MetricsExporter: "prometheus",
		},
	}
}

// FromEnv applies TOOLGATE_* overrides from environ (os.Environ format) to
// Default and validates the result.
func FromEnv(environ []string) (Config, error) {
	c, err := parse(environ)
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// StoreFromEnv loads and validates only the store settings, for tools that
// talk to the store without serving.
func StoreFromEnv(environ []string) (StoreConfig, error) {
	c, err := parse(environ)
	if err != nil {
		return StoreConfig{}, err
	}
	if err := c.Store.Validate(); err != nil {
		return StoreConfig{}, err
	}
	return c.Store, nil
}

func parse(environ []string) (Config, error) {
	lookup := secret.MapLookup(environ)
	p := parser{lookup: lookup}
	c := Default()

	p.str(EnvListenAddr, &c.ListenAddr)
	p.str(EnvBackendURL, &c.BackendURL)
	p.str(EnvStore, &c.Store.Backend)
	p.str(EnvRedisAddr, &c.Store.RedisAddr)
	p.integer(EnvRedisDB, &c.Store.RedisDB)
	p.duration(EnvStoreTimeout, &c.Store.Timeout)
	p.integer(EnvDefaultLimit, &c.Quota.DefaultLimit)
	p.boolean(EnvAtomicQuota, &c.Quota.Atomic)
	p.duration(EnvPolicyCacheTTL, &c.PolicyCacheTTL)
	p.str(EnvPolicyDir, &c.PolicyDir)
	p.boolean(EnvOpaqueDenials, &c.OpaqueDenials)
	p.integer(EnvMaxInFlight, &c.MaxInFlight)
	p.float(EnvMaxRate, &c.MaxRate)
	p.integer(EnvMaxBurst, &c.MaxBurst)
	p.duration(EnvShutdownTimeout, &c.ShutdownTimeout)
	p.str(EnvLogLevel, &c.Telemetry.LogLevel)
	p.str(EnvTracingExporter, &c.Telemetry.TracingExporter)
	p.float(EnvTraceSamplePct, &c.Telemetry.TraceSamplePct)
	p.str(EnvMetricsExporter, &c.Telemetry.MetricsExporter)

	if v, ok := p.value(EnvKeyScope); ok {
		scope, err := quota.ParseKeyScope(v)
		if err != nil {
			p.fail(EnvKeyScope, err)
		}
		c.Quota.KeyScope = scope
	}

	if v, ok := p.value(EnvRedisPassword); ok {
		resolver := secret.NewResolver(secret.WithLookup(lookup), secret.WithStrict())
		password, err := resolver.ResolveValue(context.Background(), v)
		if err != nil {
			p.fail(EnvRedisPassword, err)
		}
		c.Store.RedisPassword = password
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidConfig, EnvListenAddr)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, EnvBackendURL)
	}
	if u, err := url.Parse(c.BackendURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an http(s) URL", ErrInvalidConfig, EnvBackendURL)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Quota.Window != 0 && c.Quota.Window != quota.DefaultWindow {
		return fmt.Errorf("%w: the quota window is fixed at %s", ErrInvalidConfig, quota.DefaultWindow)
	}
	if err := c.Quota.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.PolicyCacheTTL < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, EnvPolicyCacheTTL)
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, EnvMaxInFlight)
	}
	if c.MaxRate < 0 || c.MaxBurst < 0 {
		return fmt.Errorf("%w: %s and %s must not be negative", ErrInvalidConfig, EnvMaxRate, EnvMaxBurst)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, EnvShutdownTimeout)
	}
	obs := c.ObserveConfig("")
	if err := obs.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Validate reports the first unusable store setting.
func (s StoreConfig) Validate() error {
	switch s.Backend {
	case StoreMemory:
	case StoreRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("%w: %s is required for the redis store", ErrInvalidConfig, EnvRedisAddr)
		}
		if s.RedisDB < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, EnvRedisDB)
		}
	default:
		return fmt.Errorf("%w: %s must be %q or %q, got %q", ErrInvalidConfig, EnvStore, StoreMemory, StoreRedis, s.Backend)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, EnvStoreTimeout)
	}
	return nil
}

// ObserveConfig derives the telemetry configuration.
func (c Config) ObserveConfig(version string) observe.Config {
	t := c.Telemetry
	return observe.Config{
		ServiceName: ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   t.TracingExporter != "" && t.TracingExporter != "none",
			Exporter:  t.TracingExporter,
			SamplePct: t.TraceSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.MetricsExporter != "" && t.MetricsExporter != "none",
			Exporter: t.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   t.LogLevel,
		},
	}
}

// GuardConfig derives the store guard configuration.
func (c Config) GuardConfig() kv.GuardConfig {
	return kv.GuardConfig{Timeout: c.Store.Timeout}
}

// CachePolicy derives the policy cache TTLs.
func (c Config) CachePolicy() cache.Policy {
	return cache.Policy{DefaultTTL: c.PolicyCacheTTL, MaxTTL: c.PolicyCacheTTL}
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	lookup secret.LookupFunc
	errs   []error
}

func (p *parser) value(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err))
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.value(key); ok {
		*dst = v
	}
}

func (p *parser) integer(key string, dst *int) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *parser) float(key string, dst *float64) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = f
}

func (p *parser) boolean(key string, dst *bool) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = b
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = d
}
