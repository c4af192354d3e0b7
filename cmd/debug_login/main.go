package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"coinvest/api"
	"coinvest/auth"
	"coinvest/config"

	"golang.org/x/term"
)

func main() {
	fmt.Println("=== COINVEST API DEBUG MODE ===")
	fmt.Println("This will show all API requests/responses without TUI interference")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("CONFIG ERROR: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
	client.Logger = logger

	fmt.Printf("Backend: %s\n\n", cfg.APIBaseURL)

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Enter email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Enter password: ")
	passwordBytes, _ := term.ReadPassword(int(syscall.Stdin))
	password := string(passwordBytes)
	fmt.Println() // New line after password input

	fmt.Println()
	fmt.Println("=== ATTEMPTING LOGIN ===")
	fmt.Println()

	ctx := context.Background()
	resp, err := client.Login(ctx, email, password)
	if err != nil {
		describe(err)
		os.Exit(1)
	}

	fmt.Printf("LOGIN SUCCESS!\n")
	fmt.Printf("User:          %s <%s> (id %d)\n", resp.User.FullName, resp.User.Email, resp.User.ID)
	fmt.Printf("Balance:       $%s\n", resp.User.Balance.StringFixed(2))
	fmt.Printf("Access Token:  %s...\n", prefix(resp.Access, 24))
	if exp, ok := auth.TokenExpiry(resp.Access); ok {
		fmt.Printf("Expires:       %s (in %s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Second))
	}
	fmt.Printf("Refresh Token: %v\n", resp.Refresh != "")

	client.SetToken(resp.Access)

	fmt.Println()
	fmt.Println("=== CHECKING AUTHENTICATED CALLS ===")
	fmt.Println()

	if balance, err := client.GetBalance(ctx); err != nil {
		describe(err)
	} else {
		fmt.Printf("GET /balance/ -> $%s\n", balance.Balance.StringFixed(2))
	}

	if plans, err := client.GetInvestmentPlans(ctx); err != nil {
		describe(err)
	} else {
		fmt.Printf("GET /transactions/investment-plans/ -> %d plans\n", len(plans))
		for _, p := range plans {
			fmt.Printf("   %-18s %s%%/day  %3d days  $%s-$%s\n", p.Title(), p.DailyROI, p.DurationDays,
				p.MinDeposit.StringFixed(2), p.MaxDeposit.StringFixed(2))
		}
	}
}

func describe(err error) {
	var verr *api.ValidationError
	var terr *api.TransportError
	var uerr *api.UnknownError

	switch {
	case errors.As(err, &verr):
		fmt.Printf("VALIDATION ERROR (HTTP %d): %s\n", verr.Status, verr.Message)
		for field, msgs := range verr.Fields {
			fmt.Printf("   %s: %s\n", field, strings.Join(msgs, "; "))
		}
	case errors.As(err, &terr):
		fmt.Printf("TRANSPORT ERROR: %v\n", terr.Err)
	case errors.As(err, &uerr):
		fmt.Printf("UNKNOWN RESPONSE (HTTP %d): %v\n", uerr.Status, uerr.Err)
		if uerr.Body != "" {
			fmt.Printf("   body: %s\n", uerr.Body)
		}
	default:
		fmt.Printf("FAILED: %v\n", err)
	}
	fmt.Printf("User would see: %q\n", api.UserMessage(err))
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
