package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"coinvest/config"

	"gopkg.in/yaml.v3"
)

func main() {
	var (
		show     = flag.Bool("show", false, "Show the effective configuration")
		initFile = flag.Bool("init", false, "Write a config file with the current settings")
		force    = flag.Bool("force", false, "Overwrite an existing config file with -init")
		api      = flag.String("api", "", "Backend base URL to store with -init")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || (!*show && !*initFile) {
		fmt.Println("Coinvest Configuration Tool")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  ./configure -show")
		fmt.Println("  ./configure -init -api=https://invest.example.com/api")
		fmt.Println()
		fmt.Println("Environment overrides (COINVEST_API_URL, COINVEST_DATA_DIR, ...) and a .env file")
		fmt.Println("are applied on top of the file.")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	if *initFile {
		writeConfig(cfg, *api, *force)
		return
	}

	showConfig(cfg)
}

func showConfig(cfg *config.Config) {
	fmt.Println("⚙️  Current Coinvest Configuration")
	fmt.Println("══════════════════════════════════")

	fmt.Printf("🌐 Backend:        %s\n", cfg.APIBaseURL)
	fmt.Printf("📈 Market data:    %s\n", cfg.MarketDataURL)
	fmt.Printf("⏱  HTTP timeout:   %v\n", cfg.HTTPTimeout)
	fmt.Printf("💵 Currency:       %s (minimum deposit $%.2f)\n", cfg.Currency, cfg.MinDeposit)
	fmt.Printf("🍪 Cookie max age: %v\n", cfg.CookieMaxAge)
	if cfg.CookieSecret != "" {
		fmt.Printf("🔑 Cookie key:     from COINVEST_COOKIE_SECRET\n")
	} else {
		fmt.Printf("🔑 Cookie key:     %s\n", cfg.CookieKeyPath())
	}

	fmt.Printf("\n🔄 Polling:\n")
	fmt.Printf("   Balance:     %v\n", cfg.Polling.Balance)
	fmt.Printf("   Prices:      %v\n", cfg.Polling.Prices)
	fmt.Printf("   Trends:      %v\n", cfg.Polling.Trends)
	fmt.Printf("   Investments: %v\n", cfg.Polling.Investments)

	fmt.Printf("\n🪙 Deposit networks:\n")
	for i, n := range cfg.Networks {
		fmt.Printf("%d. %s (%s)\n   %s\n", i+1, n.Name, n.Symbol, n.Address)
	}

	fmt.Printf("\n👀 Watch list: %v\n", cfg.WatchList)
	fmt.Printf("\n📁 Config file: %s\n", cfg.Path())
	fmt.Printf("📁 Session DB:  %s\n", cfg.SessionDBPath())
	fmt.Printf("📁 Log file:    %s\n", cfg.LogFile)
}

func writeConfig(cfg *config.Config, apiURL string, force bool) {
	path := cfg.Path()
	if _, err := os.Stat(path); err == nil && !force {
		log.Fatalf("❌ %s already exists, use -force to overwrite", path)
	}

	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	// Secrets stay in the environment.
	cfg.CookieSecret = ""

	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := cfg.Save(path); err != nil {
		log.Fatalf("❌ Failed to write config: %v", err)
	}

	fmt.Println("✅ Configuration written successfully!")
	fmt.Println()

	out, err := yaml.Marshal(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to render config: %v", err)
	}
	fmt.Printf("📋 %s:\n%s", path, out)
}
