package config

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIBaseURL    = "http://localhost:8000/api"
	DefaultMarketDataURL = "https://api.coingecko.com/api/v3"
	DefaultCurrency      = "USD"
	DefaultMinDeposit    = 50.0
	DefaultCookieMaxAge  = 24 * time.Hour
	DefaultHTTPTimeout   = 30 * time.Second

	DefaultBalanceInterval     = 10 * time.Second
	DefaultPricesInterval      = 60 * time.Second
	DefaultTrendsInterval      = 60 * time.Second
	DefaultInvestmentsInterval = 300 * time.Second
)

//go:embed networks.yaml
var defaultNetworksYAML []byte

// Config holds everything the client needs to reach the backend and persist its session.
type Config struct {
	APIBaseURL    string        `yaml:"api_base_url"`
	MarketDataURL string        `yaml:"market_data_url"`
	DataDir       string        `yaml:"data_dir"`
	LogFile       string        `yaml:"log_file"`
	CookieSecret  string        `yaml:"cookie_secret,omitempty"`
	CookieMaxAge  time.Duration `yaml:"cookie_max_age"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	Currency      string        `yaml:"currency"`
	MinDeposit    float64       `yaml:"min_deposit"`
	WatchList     []string      `yaml:"watch_list"`
	Polling       Polling       `yaml:"polling"`
	Networks      []Network     `yaml:"networks"`
}

// Polling intervals for the dashboard refresh loops.
type Polling struct {
	Balance     time.Duration `yaml:"balance"`
	Prices      time.Duration `yaml:"prices"`
	Trends      time.Duration `yaml:"trends"`
	Investments time.Duration `yaml:"investments"`
}

// Network is a deposit/withdrawal network and the address shown for deposits.
type Network struct {
	Name    string `yaml:"name"`
	Symbol  string `yaml:"symbol"`
	Address string `yaml:"address"`
}

// Default returns the built-in configuration rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		APIBaseURL:    DefaultAPIBaseURL,
		MarketDataURL: DefaultMarketDataURL,
		DataDir:       dataDir,
		LogFile:       filepath.Join(dataDir, "coinvest.log"),
		CookieMaxAge:  DefaultCookieMaxAge,
		HTTPTimeout:   DefaultHTTPTimeout,
		Currency:      DefaultCurrency,
		MinDeposit:    DefaultMinDeposit,
		WatchList:     []string{"BTC", "ETH", "USDT", "BNB", "SOL", "XRP"},
		Polling: Polling{
			Balance:     DefaultBalanceInterval,
			Prices:      DefaultPricesInterval,
			Trends:      DefaultTrendsInterval,
			Investments: DefaultInvestmentsInterval,
		},
		Networks: DefaultNetworks(),
	}
}

// DefaultNetworks returns the embedded deposit networks.
func DefaultNetworks() []Network {
	var networks []Network
	if err := yaml.Unmarshal(defaultNetworksYAML, &networks); err != nil {
		panic(fmt.Sprintf("config: embedded networks.yaml is invalid: %v", err))
	}
	return networks
}

// DefaultDataDir returns ~/.config/coinvest.
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "coinvest"), nil
}

// Load builds the configuration from defaults, a .env file, the YAML config file and
// environment overrides, in that order.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: ignoring .env: %v", err)
	}

	dataDir := os.Getenv("COINVEST_DATA_DIR")
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	cfg := Default(dataDir)

	path := getEnv("COINVEST_CONFIG", cfg.Path())
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Path is the default location of the YAML config file.
func (c *Config) Path() string {
	return filepath.Join(c.DataDir, "config.yaml")
}

// SessionDBPath is the SQLite file holding the local session record.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// CookiePath is the file holding the durable session cookie.
func (c *Config) CookiePath() string {
	return filepath.Join(c.DataDir, "session.cookie")
}

// CookieKeyPath is where a generated cookie signing key is kept when no secret is configured.
func (c *Config) CookieKeyPath() string {
	return filepath.Join(c.DataDir, "cookie.key")
}

// Network looks up a configured network by name or symbol.
func (c *Config) Network(nameOrSymbol string) (Network, bool) {
	for _, n := range c.Networks {
		if strings.EqualFold(n.Name, nameOrSymbol) || strings.EqualFold(n.Symbol, nameOrSymbol) {
			return n, true
		}
	}
	return Network{}, false
}

// NetworkNames lists network names in configured order.
func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for _, n := range c.Networks {
		names = append(names, n.Name)
	}
	return names
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("%w: api_base_url", ErrMissingValue)
	}
	if c.MinDeposit <= 0 {
		return fmt.Errorf("%w: min_deposit must be positive", ErrInvalidValue)
	}
	if len(c.Networks) == 0 {
		return fmt.Errorf("%w: at least one network is required", ErrInvalidValue)
	}
	for _, n := range c.Networks {
		if n.Name == "" || n.Address == "" {
			return fmt.Errorf("%w: network %q needs a name and an address", ErrInvalidValue, n.Symbol)
		}
	}
	for name, d := range map[string]time.Duration{
		"balance":     c.Polling.Balance,
		"prices":      c.Polling.Prices,
		"trends":      c.Polling.Trends,
		"investments": c.Polling.Investments,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: polling.%s must be positive", ErrInvalidValue, name)
		}
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIBaseURL = strings.TrimRight(getEnv("COINVEST_API_URL", c.APIBaseURL), "/")
	c.MarketDataURL = strings.TrimRight(getEnv("COINVEST_MARKET_URL", c.MarketDataURL), "/")
	c.LogFile = getEnv("COINVEST_LOG_FILE", c.LogFile)
	c.CookieSecret = getEnv("COINVEST_COOKIE_SECRET", c.CookieSecret)
	c.Currency = getEnv("COINVEST_CURRENCY", c.Currency)
	c.CookieMaxAge = getEnvAsDuration("COINVEST_COOKIE_MAX_AGE", c.CookieMaxAge)
	c.HTTPTimeout = getEnvAsDuration("COINVEST_HTTP_TIMEOUT", c.HTTPTimeout)
	c.MinDeposit = getEnvAsFloat("COINVEST_MIN_DEPOSIT", c.MinDeposit)
	c.Polling.Balance = getEnvAsDuration("COINVEST_BALANCE_INTERVAL", c.Polling.Balance)
	c.Polling.Prices = getEnvAsDuration("COINVEST_PRICES_INTERVAL", c.Polling.Prices)
	c.Polling.Trends = getEnvAsDuration("COINVEST_TRENDS_INTERVAL", c.Polling.Trends)
	c.Polling.Investments = getEnvAsDuration("COINVEST_INVESTMENTS_INTERVAL", c.Polling.Investments)

	if list := os.Getenv("COINVEST_WATCH_LIST"); list != "" {
		var symbols []string
		for _, s := range strings.Split(list, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
		c.WatchList = symbols
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := time.ParseDuration(valStr)
	if err != nil || val <= 0 {
		log.Printf("Invalid value for %s, using default %s", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("Invalid value for %s, using default %g", key, defaultVal)
		return defaultVal
	}
	return val
}
