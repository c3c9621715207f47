package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig         `yaml:"server"`
	Redis   RedisConfig          `yaml:"redis"`
	Chains  map[int64]ChainConfig `yaml:"chains"`
	Routing RoutingConfig        `yaml:"routing"`
}

type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ChainConfig is the per-chain endpoint set needed to stand up a Router
// for that chain (spec.md §4.1).
type ChainConfig struct {
	RPCURL      string `yaml:"rpc_url"`
	SubgraphURL string `yaml:"subgraph_url"`
}

// RoutingConfig layers on top of router.DefaultConfig/selector.NewConfig/
// splitter.DefaultConfig - it only carries the handful of knobs worth
// exposing as config, the rest stay at their package defaults.
type RoutingConfig struct {
	MaxSwapsPerPath     int           `yaml:"max_swaps_per_path"`
	DistributionPercent int           `yaml:"distribution_percent"`
	MaxSplits           int           `yaml:"max_splits"`
	RequestTimeout      time.Duration `yaml:"-"`
}

var AppConfig *Config

// loadConfigFromFile loads default configuration from a YAML file.
func loadConfigFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: YAML config file not found at %s. Using env vars and defaults only.", path)
			return nil
		}
		return err
	}
	if err = yaml.Unmarshal(data, config); err != nil {
		return err
	}
	log.Printf("Loaded configuration defaults from %s", path)
	return nil
}

func Init() error {
	AppConfig = &Config{}

	if err := loadConfigFromFile("config/config.yaml", AppConfig); err != nil {
		log.Printf("Warning: Failed to load config.yaml: %v. Using defaults.", err)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	AppConfig.Server.Port = getEnv("SERVER_PORT", AppConfig.Server.Port, "8080")
	AppConfig.Server.ReadTimeout = getEnvAsInt("SERVER_READ_TIMEOUT", AppConfig.Server.ReadTimeout, 15)
	AppConfig.Server.WriteTimeout = getEnvAsInt("SERVER_WRITE_TIMEOUT", AppConfig.Server.WriteTimeout, 15)

	AppConfig.Redis.Addr = getEnv("REDIS_ADDR", AppConfig.Redis.Addr, "localhost:6379")
	AppConfig.Redis.Password = getEnv("REDIS_PASSWORD", AppConfig.Redis.Password, "")
	AppConfig.Redis.DB = getEnvAsInt("REDIS_DB", AppConfig.Redis.DB, 0)

	if AppConfig.Chains == nil {
		AppConfig.Chains = map[int64]ChainConfig{}
	}
	ensureChain(AppConfig.Chains, 1, "ETH_MAINNET_RPC_URL", "wss://mainnet.infura.io/ws/v3/YOUR-PROJECT-ID", "SUBGRAPH_MAINNET_URL", "")
	ensureChain(AppConfig.Chains, 11155111, "ETH_SEPOLIA_RPC_URL", "wss://sepolia.infura.io/ws/v3/YOUR-PROJECT-ID", "SUBGRAPH_SEPOLIA_URL", "")
	ensureChain(AppConfig.Chains, 10, "OPTIMISM_RPC_URL", "https://mainnet.optimism.io", "SUBGRAPH_OPTIMISM_URL", "")
	ensureChain(AppConfig.Chains, 42161, "ARBITRUM_RPC_URL", "https://arb1.arbitrum.io/rpc", "SUBGRAPH_ARBITRUM_URL", "")

	AppConfig.Routing.MaxSwapsPerPath = getEnvAsInt("MAX_SWAPS_PER_PATH", AppConfig.Routing.MaxSwapsPerPath, 3)
	AppConfig.Routing.DistributionPercent = getEnvAsInt("DISTRIBUTION_PERCENT", AppConfig.Routing.DistributionPercent, 10)
	AppConfig.Routing.MaxSplits = getEnvAsInt("MAX_SPLITS", AppConfig.Routing.MaxSplits, 7)
	AppConfig.Routing.RequestTimeout = time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 0, 30)) * time.Second

	return nil
}

func ensureChain(chains map[int64]ChainConfig, chainID int64, rpcEnv, rpcFallback, subgraphEnv, subgraphFallback string) {
	c := chains[chainID]
	c.RPCURL = getEnv(rpcEnv, c.RPCURL, rpcFallback)
	c.SubgraphURL = getEnv(subgraphEnv, c.SubgraphURL, subgraphFallback)
	chains[chainID] = c
}

// getEnv returns env value if set, otherwise yamlValue if not empty, otherwise fallback.
func getEnv(key string, yamlValue string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if yamlValue != "" {
		return yamlValue
	}
	return fallback
}

// getEnvAsInt returns env int if set, otherwise yamlValue if non-zero, otherwise fallback.
func getEnvAsInt(key string, yamlValue int, fallback int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	if yamlValue != 0 {
		return yamlValue
	}
	return fallback
}

