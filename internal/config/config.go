// Package config loads the versioned sniper configuration.
// A Config is built once at startup and passed into component constructors.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Version is the only configuration schema version understood by this build.
const Version = 1

type LogCfg struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

type RPCCfg struct {
	Endpoints   []string      `yaml:"endpoints"` // index 0 is the primary endpoint
	WSEndpoint  string        `yaml:"ws_endpoint"`
	MaxAttempts int           `yaml:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout"`
}

type WalletCfg struct {
	PublicKey     string  `yaml:"public_key"`
	MinBalanceSOL float64 `yaml:"min_balance_sol"`
}

type TradingCfg struct {
	CapitalSOL     float64 `yaml:"capital_sol"`
	SlippageBps    int     `yaml:"slippage_bps"`
	PriorityFeeSOL float64 `yaml:"priority_fee_sol"`
	MaxConcurrent  int     `yaml:"max_concurrent"`
	Pool           string  `yaml:"pool"`
	PumpPortalURL  string  `yaml:"pumpportal_url"`
	PumpPortalKey  string  `yaml:"pumpportal_api_key"`
}

type ExitCfg struct {
	MaxHold         time.Duration `yaml:"max_hold"`
	PricePoll       time.Duration `yaml:"price_poll"`
	TakeProfitPct   float64       `yaml:"take_profit_pct"`   // 0 disables
	StopLossPct     float64       `yaml:"stop_loss_pct"`     // 0 disables
	TrailingStopPct float64       `yaml:"trailing_stop_pct"` // fall from the hold's peak; 0 disables
	PriceSource     string        `yaml:"price_source"`      // dexscreener | simulated
}

type ConfirmationCfg struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type SourceCfg struct {
	URL     string        `yaml:"url"`
	Spacing time.Duration `yaml:"spacing"` // minimum gap between calls
	Timeout time.Duration `yaml:"timeout"`
}

type BreakerCfg struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

type WeightsCfg struct {
	RiskReport      float64 `yaml:"risk_report"`
	Liquidity       float64 `yaml:"liquidity"`
	SecurityBonus   float64 `yaml:"security_bonus"`
	IdentityBonus   float64 `yaml:"identity_bonus"`
	LiquidityNormUS float64 `yaml:"liquidity_norm_usd"`
}

type CacheCfg struct {
	Backend   string        `yaml:"backend"` // memory | redis
	TTL       time.Duration `yaml:"ttl"`
	Size      int           `yaml:"size"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
}

type RiskCfg struct {
	AcceptanceThreshold int        `yaml:"acceptance_threshold"`
	MinRiskReportScore  float64    `yaml:"min_risk_report_score"`
	MinLiquidityUSD     float64    `yaml:"min_liquidity_usd"`
	RequireSocials      bool       `yaml:"require_socials"`
	SecurityCheck       bool       `yaml:"security_check"`
	TokenProgram        string     `yaml:"token_program"`
	Weights             WeightsCfg `yaml:"weights"`
	Cache               CacheCfg   `yaml:"cache"`
	Breaker             BreakerCfg `yaml:"breaker"`

	RugCheck    SourceCfg `yaml:"rugcheck"`
	DexScreener SourceCfg `yaml:"dexscreener"`
	GoPlus      SourceCfg `yaml:"goplus"`
}

type StorageCfg struct {
	Backend       string `yaml:"backend"` // memory | file | postgres
	Dir           string `yaml:"dir"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"` // optional verdict analytics log
}

type SniperCfg struct {
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	HTTPAddr         string        `yaml:"http_addr"` // empty disables the status server
	RunFor           time.Duration `yaml:"run_for"`   // auto-stop after this long; 0 runs until interrupted
}

// Config is the complete, immutable runtime configuration.
type Config struct {
	Version      int             `yaml:"version"`
	DryRun       bool            `yaml:"dry_run"`
	Log          LogCfg          `yaml:"log"`
	RPC          RPCCfg          `yaml:"rpc"`
	Wallet       WalletCfg       `yaml:"wallet"`
	Trading      TradingCfg      `yaml:"trading"`
	Exits        ExitCfg         `yaml:"exits"`
	Confirmation ConfirmationCfg `yaml:"confirmation"`
	Risk         RiskCfg         `yaml:"risk"`
	Storage      StorageCfg      `yaml:"storage"`
	Sniper       SniperCfg       `yaml:"sniper"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version: Version,
		Log:     LogCfg{Level: "info", Format: "console"},
		RPC: RPCCfg{
			Endpoints:   []string{"https://api.mainnet-beta.solana.com"},
			MaxAttempts: 3,
			Timeout:     10 * time.Second,
		},
		Wallet: WalletCfg{MinBalanceSOL: 0.1},
		Trading: TradingCfg{
			CapitalSOL:     0.01,
			SlippageBps:    1000,
			PriorityFeeSOL: 0.001,
			MaxConcurrent:  1,
			Pool:           "pump",
			PumpPortalURL:  "https://pumpportal.fun/api/trade",
		},
		Exits: ExitCfg{
			MaxHold:       10 * time.Second,
			PricePoll:     time.Second,
			TakeProfitPct: 10,
			PriceSource:   "dexscreener",
		},
		Confirmation: ConfirmationCfg{Interval: time.Second, MaxAttempts: 30},
		Risk: RiskCfg{
			AcceptanceThreshold: 10,
			MinLiquidityUSD:     5000,
			SecurityCheck:       true,
			TokenProgram:        "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb",
			Weights: WeightsCfg{
				RiskReport:      0.5,
				Liquidity:       0.4,
				SecurityBonus:   5,
				IdentityBonus:   5,
				LiquidityNormUS: 10000,
			},
			Cache:   CacheCfg{Backend: "memory", TTL: 5 * time.Minute, Size: 4096},
			Breaker: BreakerCfg{MaxFailures: 5, OpenTimeout: 30 * time.Second},
			RugCheck: SourceCfg{
				URL:     "https://api.rugcheck.xyz/v1/tokens",
				Spacing: 200 * time.Millisecond,
				Timeout: 5 * time.Second,
			},
			DexScreener: SourceCfg{
				URL:     "https://api.dexscreener.com/latest/dex/tokens",
				Spacing: 200 * time.Millisecond,
				Timeout: 5 * time.Second,
			},
			GoPlus: SourceCfg{
				URL:     "https://api.gopluslabs.io/api/v1/token_security/solana",
				Spacing: 300 * time.Millisecond,
				Timeout: 5 * time.Second,
			},
		},
		Storage: StorageCfg{Backend: "file", Dir: "./data"},
		Sniper:  SniperCfg{SnapshotInterval: 5 * time.Second, HTTPAddr: ":9090"},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides (a .env file is loaded first when present) and validates.
// An empty path yields defaults plus environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if urls := getenv("SOLANA_RPC_URLS"); urls != "" {
		c.RPC.Endpoints = splitList(urls)
	}
	primary := getenv("HELIUS_RPC_URL")
	if primary == "" {
		primary = getenv("SOLANA_RPC")
	}
	if primary != "" {
		rest := make([]string, 0, len(c.RPC.Endpoints))
		for _, e := range c.RPC.Endpoints {
			if e != primary {
				rest = append(rest, e)
			}
		}
		c.RPC.Endpoints = append([]string{primary}, rest...)
	}
	if ws := getenv("SOLANA_WS_URL"); ws != "" {
		c.RPC.WSEndpoint = ws
	}
	if c.RPC.WSEndpoint == "" && len(c.RPC.Endpoints) > 0 {
		c.RPC.WSEndpoint = wsFromHTTP(c.RPC.Endpoints[0])
	}

	if v := getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DRY_RUN %q: %w", v, err)
		}
		c.DryRun = b
	}
	if v := getenv("DRY_RUN_MINUTES"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 {
			return fmt.Errorf("invalid DRY_RUN_MINUTES %q", v)
		}
		c.Sniper.RunFor = time.Duration(m) * time.Minute
	}
	if v := getenv("PUMPPORTAL_API_KEY"); v != "" {
		c.Trading.PumpPortalKey = v
	}
	if v := getenv("WALLET_PUBLIC_KEY"); v != "" {
		c.Wallet.PublicKey = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickHouseDSN = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Risk.Cache.RedisAddr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Version != Version {
		errs = append(errs, fmt.Sprintf("unsupported config version %d (want %d)", c.Version, Version))
	}
	if len(c.RPC.Endpoints) == 0 {
		errs = append(errs, "rpc.endpoints must not be empty")
	}
	if c.RPC.MaxAttempts <= 0 {
		errs = append(errs, "rpc.max_attempts must be positive")
	}
	if c.Trading.CapitalSOL <= 0 {
		errs = append(errs, "trading.capital_sol must be positive")
	}
	if c.Trading.SlippageBps < 0 || c.Trading.SlippageBps > 10000 {
		errs = append(errs, "trading.slippage_bps must be within [0,10000]")
	}
	if c.Trading.MaxConcurrent <= 0 {
		errs = append(errs, "trading.max_concurrent must be positive")
	}
	if c.Exits.MaxHold <= 0 {
		errs = append(errs, "exits.max_hold must be positive")
	}
	if c.Exits.PricePoll <= 0 {
		errs = append(errs, "exits.price_poll must be positive")
	}
	if c.Exits.TakeProfitPct < 0 || c.Exits.StopLossPct < 0 || c.Exits.TrailingStopPct < 0 {
		errs = append(errs, "exit percentages must not be negative")
	}
	switch c.Exits.PriceSource {
	case "dexscreener", "simulated":
	default:
		errs = append(errs, fmt.Sprintf("unknown exits.price_source %q", c.Exits.PriceSource))
	}
	if c.Confirmation.Interval <= 0 || c.Confirmation.MaxAttempts <= 0 {
		errs = append(errs, "confirmation interval and max_attempts must be positive")
	}
	if c.Risk.AcceptanceThreshold < 0 || c.Risk.AcceptanceThreshold > 100 {
		errs = append(errs, "risk.acceptance_threshold must be within [0,100]")
	}
	if c.Risk.Weights.LiquidityNormUS <= 0 {
		errs = append(errs, "risk.weights.liquidity_norm_usd must be positive")
	}
	if c.Risk.Cache.TTL <= 0 || c.Risk.Cache.Size <= 0 {
		errs = append(errs, "risk.cache ttl and size must be positive")
	}
	switch c.Risk.Cache.Backend {
	case "memory":
	case "redis":
		if c.Risk.Cache.RedisAddr == "" {
			errs = append(errs, "risk.cache.redis_addr required for redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown risk.cache.backend %q", c.Risk.Cache.Backend))
	}
	switch c.Storage.Backend {
	case "memory":
	case "file":
		if c.Storage.Dir == "" {
			errs = append(errs, "storage.dir required for file backend")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, "storage.postgres_dsn required for postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown storage.backend %q", c.Storage.Backend))
	}
	if c.Sniper.SnapshotInterval <= 0 {
		errs = append(errs, "sniper.snapshot_interval must be positive")
	}
	if c.Sniper.RunFor < 0 {
		errs = append(errs, "sniper.run_for must not be negative")
	}
	if !c.DryRun && c.Wallet.PublicKey == "" {
		errs = append(errs, "wallet.public_key required for live trading")
	}

	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

// Capital returns the per-position commitment in SOL.
func (c *Config) Capital() decimal.Decimal {
	return decimal.NewFromFloat(c.Trading.CapitalSOL)
}

// MinBalance returns the wallet floor in SOL below which the sniper refuses to start.
func (c *Config) MinBalance() decimal.Decimal {
	return decimal.NewFromFloat(c.Wallet.MinBalanceSOL)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wsFromHTTP(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return ""
	}
}
