package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process-wide configuration, loaded entirely from the
// environment. There is no config file; the only file-backed input is the
// static catalog (see catalog.go), which seeds reference data, not runtime
// behavior.
type Config struct {
	DatabaseURL string
	APIPort     int

	RPCURLs   []string // round-robin JSON-RPC endpoints
	ChainID   int64
	ScannerURL string
	OracleURL string

	AdminToken string

	CatalogPath string // YAML file with contracts/platforms/metrics/cards

	PollIntervalMs int

	DiscoveryConcurrency int
	DiscoveryMinWindow   uint64
	DiscoveryMaxWindow   uint64
	ReorgMargin          uint64

	EnrichmentBatchSize  int
	EnrichmentPollPeriod time.Duration
	EnrichmentLookback   time.Duration

	GapFillPollPeriod time.Duration
	GapFillHighWater  int

	JanitorSweepPeriod time.Duration
	JobLeaseMaxAge     time.Duration

	RPCTimeout     time.Duration
	ScannerTimeout time.Duration
	OracleTimeout  time.Duration

	DashboardRefreshCooldown time.Duration
}

// Load builds a Config from the environment, applying the same defaulting
// convention used throughout this codebase: explicit env var, else a
// reasonable default.
func Load() *Config {
	getInt := func(key string, def int) int {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	getInt64 := func(key string, def int64) int64 {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
		return def
	}
	getUint := func(key string, def uint64) uint64 {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil {
				return n
			}
		}
		return def
	}
	getDurMs := func(key string, defMs int) time.Duration {
		return time.Duration(getInt(key, defMs)) * time.Millisecond
	}

	rpcURLs := splitNonEmpty(os.Getenv("RPC_URLS"))
	if len(rpcURLs) == 0 {
		if single := strings.TrimSpace(os.Getenv("RPC_URL")); single != "" {
			rpcURLs = []string{single}
		}
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIPort:     getInt("API_PORT", 8080),

		RPCURLs:    rpcURLs,
		ChainID:    getInt64("CHAIN_ID", 1),
		ScannerURL: os.Getenv("SCANNER_URL"),
		OracleURL:  os.Getenv("ORACLE_URL"),

		AdminToken: os.Getenv("ADMIN_TOKEN"),

		CatalogPath: envOr("CATALOG_PATH", "catalog.yaml"),

		PollIntervalMs: getInt("POLL_INTERVAL_MS", 30000),

		DiscoveryConcurrency: getInt("DISCOVERY_CONCURRENCY", 4),
		DiscoveryMinWindow:   getUint("DISCOVERY_MIN_WINDOW", 10_000),
		DiscoveryMaxWindow:   getUint("DISCOVERY_MAX_WINDOW", 50_000),
		ReorgMargin:          getUint("REORG_MARGIN_BLOCKS", 16),

		EnrichmentBatchSize:  getInt("ENRICHMENT_BATCH_SIZE", 100),
		EnrichmentPollPeriod: getDurMs("ENRICHMENT_POLL_MS", 30_000),
		EnrichmentLookback:   time.Duration(getInt("ENRICHMENT_LOOKBACK_MIN", 5)) * time.Minute,

		GapFillPollPeriod: getDurMs("GAPFILL_POLL_MS", 60_000),
		GapFillHighWater:  getInt("GAPFILL_ENRICH_HIGH_WATER", 500),

		JanitorSweepPeriod: getDurMs("JANITOR_SWEEP_MS", 15_000),
		JobLeaseMaxAge:     time.Duration(getInt("JOB_LEASE_MAX_AGE_MIN", 10)) * time.Minute,

		RPCTimeout:     time.Duration(getInt("RPC_TIMEOUT_MS", 15_000)) * time.Millisecond,
		ScannerTimeout: time.Duration(getInt("SCANNER_TIMEOUT_MS", 20_000)) * time.Millisecond,
		OracleTimeout:  time.Duration(getInt("ORACLE_TIMEOUT_MS", 10_000)) * time.Millisecond,

		DashboardRefreshCooldown: time.Duration(getInt("DASHBOARD_REFRESH_COOLDOWN_SEC", 30)) * time.Second,
	}
	return cfg
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitNonEmpty(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
