package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Ledger backends.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRPC    = "rpc"
)

// Config holds environment-driven configuration.
type Config struct {
	Port              string
	LedgerBackend     string
	SolanaRPCURL      string
	SolCommitment     string
	ProgramID         string
	PayerKeypair      string
	MongoURI          string
	MongoDB           string
	RateLimitRPM      int
	InitializeRPM     int
	CacheTTL          time.Duration
	KeyCacheTTL       time.Duration
	RPCTimeout        time.Duration
	MaxConcurrency    int
	AdminToken        string
	LogLevel          string
	SendRetryAttempts int
	SendRetryDelay    time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load loads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:              getenv("PORT", "8080"),
		LedgerBackend:     strings.ToLower(getenv("LEDGER_BACKEND", BackendMemory)),
		SolanaRPCURL:      getenv("SOLANA_RPC_URL", "http://127.0.0.1:8899"),
		SolCommitment:     getenv("SOL_COMMITMENT", "confirmed"),
		ProgramID:         getenv("PROGRAM_ID", ""),
		PayerKeypair:      getenv("PAYER_KEYPAIR", ""),
		MongoURI:          getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getenv("MONGO_DB", "solyield"),
		RateLimitRPM:      getint("RATE_LIMIT_RPM", 60),
		InitializeRPM:     getint("INITIALIZE_RPM", 6),
		CacheTTL:          getdur("CACHE_TTL", 10*time.Second),
		KeyCacheTTL:       getdur("KEY_CACHE_TTL", 60*time.Second),
		RPCTimeout:        getdur("RPC_TIMEOUT", 30*time.Second),
		MaxConcurrency:    getint("MAX_CONCURRENCY", 16),
		AdminToken:        getenv("ADMIN_TOKEN", ""),
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		SendRetryAttempts: getint("SEND_RETRY_ATTEMPTS", 3),
		SendRetryDelay:    getdur("SEND_RETRY_DELAY", 500*time.Millisecond),
	}
}
