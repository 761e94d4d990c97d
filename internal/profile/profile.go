package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where execfi stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// JWTSecret verifies the bearer tokens issued by the auth gateway.
	JWTSecret string

	// AI Configuration
	AIProvider         string // EXECFI_AI_PROVIDER (legacy: AI_PROVIDER), default: openai
	AIAPIKey           string // EXECFI_AI_API_KEY (legacy: provider specific key, e.g. OPENAI_API_KEY)
	AIBaseURL          string // EXECFI_AI_BASE_URL (default: provider endpoint)
	AIModel            string // EXECFI_AI_MODEL (default: provider model)
	ClassifierStrategy string // EXECFI_CLASSIFIER_STRATEGY: keyword or ai (default: keyword)
	ExtractionMode     string // EXECFI_EXTRACTION_MODE: none, grammar or llm (default: grammar)

	// Capability endpoints
	GMGNURL          string // EXECFI_GMGN_API_URL (legacy: GMGN_API_URL)
	GMGNAPIKey       string // EXECFI_GMGN_API_KEY (legacy: GMGN_API_KEY)
	X402URL          string // EXECFI_X402_API_URL (legacy: X402_API_URL)
	X402APIKey       string // EXECFI_X402_API_KEY (legacy: X402_API_KEY)
	PolymarketURL    string // EXECFI_POLYMARKET_API_URL (legacy: POLYMARKET_API_URL)
	PolymarketAPIKey string // EXECFI_POLYMARKET_API_KEY (legacy: POLYMARKET_API_KEY)
	JupiterURL       string // EXECFI_JUPITER_API_URL (legacy: JUPITER_API_URL)
	// RPCURLs maps chain name to its JSON-RPC endpoint.
	RPCURLs map[string]string

	// RedisAddr enables the L2 cache when set.
	RedisAddr string // EXECFI_REDIS_ADDR (legacy: REDIS_URL)

	// Safety policy
	MaxTransactionAmount float64  // EXECFI_MAX_TRANSACTION_AMOUNT (default: 1000000)
	Blocklist            []string // EXECFI_BLOCKLIST, comma separated addresses

	// Rate limiting per wallet
	RateLimitPerSecond float64 // EXECFI_RATE_LIMIT_RPS (default: 10)
	RateLimitBurst     int     // EXECFI_RATE_LIMIT_BURST (default: 20)
}

// Chains lists the chains the server accepts, in display order.
var Chains = []string{"solana", "ethereum", "base", "polygon"}

var aiProviders = map[string]bool{"openai": true, "deepseek": true, "gemini": true, "claude": true, "grok": true}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an API key is configured for the LLM provider.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads integration configuration from environment variables.
// Supports both EXECFI_* (new) and the unprefixed legacy names.
func (p *Profile) FromEnv() {
	getEnvWithDefault := func(newKey, legacyKey, defaultValue string) string {
		if val := os.Getenv(newKey); val != "" {
			return val
		}
		if legacyKey != "" {
			if val := os.Getenv(legacyKey); val != "" {
				return val
			}
		}
		return defaultValue
	}

	p.AIProvider = strings.ToLower(getEnvWithDefault("EXECFI_AI_PROVIDER", "AI_PROVIDER", "openai"))
	p.AIAPIKey = getEnvWithDefault("EXECFI_AI_API_KEY", legacyAIKeyName(p.AIProvider), "")
	p.AIBaseURL = os.Getenv("EXECFI_AI_BASE_URL")
	p.AIModel = os.Getenv("EXECFI_AI_MODEL")
	p.ClassifierStrategy = getEnvOrDefault("EXECFI_CLASSIFIER_STRATEGY", "keyword")
	p.ExtractionMode = getEnvOrDefault("EXECFI_EXTRACTION_MODE", "grammar")

	p.GMGNURL = getEnvWithDefault("EXECFI_GMGN_API_URL", "GMGN_API_URL", "https://api.gmgn.ai")
	p.GMGNAPIKey = getEnvWithDefault("EXECFI_GMGN_API_KEY", "GMGN_API_KEY", "")
	p.X402URL = getEnvWithDefault("EXECFI_X402_API_URL", "X402_API_URL", "https://api.x402.io")
	p.X402APIKey = getEnvWithDefault("EXECFI_X402_API_KEY", "X402_API_KEY", "")
	p.PolymarketURL = getEnvWithDefault("EXECFI_POLYMARKET_API_URL", "POLYMARKET_API_URL", "https://clob.polymarket.com")
	p.PolymarketAPIKey = getEnvWithDefault("EXECFI_POLYMARKET_API_KEY", "POLYMARKET_API_KEY", "")
	p.JupiterURL = getEnvWithDefault("EXECFI_JUPITER_API_URL", "JUPITER_API_URL", "https://quote-api.jup.ag")

	p.RPCURLs = map[string]string{
		"solana":   getEnvWithDefault("EXECFI_SOLANA_RPC_URL", "SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		"ethereum": getEnvWithDefault("EXECFI_ETHEREUM_RPC_URL", "ETHEREUM_RPC_URL", "https://eth.llamarpc.com"),
		"base":     getEnvWithDefault("EXECFI_BASE_RPC_URL", "BASE_RPC_URL", "https://mainnet.base.org"),
		"polygon":  getEnvWithDefault("EXECFI_POLYGON_RPC_URL", "POLYGON_RPC_URL", "https://polygon-rpc.com"),
	}

	p.RedisAddr = getEnvWithDefault("EXECFI_REDIS_ADDR", "REDIS_URL", "")

	p.MaxTransactionAmount = 1_000_000
	if raw := os.Getenv("EXECFI_MAX_TRANSACTION_AMOUNT"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			p.MaxTransactionAmount = v
		} else {
			slog.Warn("ignoring invalid max transaction amount", slog.String("value", raw))
		}
	}
	p.Blocklist = splitList(os.Getenv("EXECFI_BLOCKLIST"))

	p.RateLimitPerSecond = 10
	p.RateLimitBurst = 20
	if raw := os.Getenv("EXECFI_RATE_LIMIT_RPS"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			p.RateLimitPerSecond = v
		}
	}
	if raw := os.Getenv("EXECFI_RATE_LIMIT_BURST"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			p.RateLimitBurst = v
		}
	}
}

func legacyAIKeyName(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "deepseek":
		return "DEEPSEEK_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	case "claude":
		return "ANTHROPIC_API_KEY"
	case "grok":
		return "XAI_API_KEY"
	default:
		return ""
	}
}

func splitList(raw string) []string {
	var list []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'postgres' and 'sqlite' are supported", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/execfi"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("execfi_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.AIProvider == "" {
		p.AIProvider = "openai"
	}
	if !aiProviders[p.AIProvider] {
		return errors.Errorf("unsupported AI provider %q", p.AIProvider)
	}
	switch p.ClassifierStrategy {
	case "":
		p.ClassifierStrategy = "keyword"
	case "keyword", "ai":
	default:
		return errors.Errorf("unsupported classifier strategy %q", p.ClassifierStrategy)
	}
	switch p.ExtractionMode {
	case "":
		p.ExtractionMode = "grammar"
	case "none", "grammar", "llm":
	default:
		return errors.Errorf("unsupported extraction mode %q", p.ExtractionMode)
	}

	if p.Mode == "prod" && p.JWTSecret == "" {
		return errors.New("jwt secret is required in prod mode")
	}
	return nil
}
