package main

import (
	"fmt"
	"log/slog"
	"os"

	"coinvest/api"
	"coinvest/auth"
	"coinvest/config"
	"coinvest/models"
	"coinvest/store"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The terminal belongs to the TUI, so logs go to a file.
	logFile, err := tea.LogToFile(cfg.LogFile, "coinvest")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	level := slog.LevelInfo
	if os.Getenv("COINVEST_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SessionDBPath())
	if err != nil {
		return err
	}
	defer db.Close()

	hashKey := []byte(cfg.CookieSecret)
	if len(hashKey) == 0 {
		if hashKey, err = auth.LoadOrCreateKey(cfg.CookieKeyPath()); err != nil {
			return err
		}
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	client.Logger = logger
	market := api.NewMarketClient(cfg.MarketDataURL, cfg.HTTPTimeout)

	session := auth.NewStore(client, auth.NewCookieFile(cfg.CookiePath(), hashKey, cfg.CookieMaxAge), db, logger)
	if session.Bootstrap() {
		logger.Info("restored session", "user", session.User().Email)
	}

	model := models.NewAppModel(models.Deps{
		Config:  cfg,
		Client:  client,
		Market:  market,
		Session: session,
		DB:      db,
		Logger:  logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
