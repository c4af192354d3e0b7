package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"coinvest/fakebackend"

	"github.com/shopspring/decimal"
)

func main() {
	var (
		addr    = flag.String("addr", ":8000", "Listen address")
		secret  = flag.String("secret", "dev-secret", "Token signing secret")
		access  = flag.Duration("access-ttl", 30*time.Minute, "Access token lifetime")
		refresh = flag.Duration("refresh-ttl", 24*time.Hour, "Refresh token lifetime")
		seed    = flag.Bool("seed", true, "Create the demo account demo@coinvest.local / password1 (PIN 1234)")
	)
	flag.Parse()

	srv := fakebackend.New(*secret, fakebackend.WithTokenTTL(*access, *refresh))
	if *seed {
		srv.AddUser("Demo Investor", "demo@coinvest.local", "password1", "1234", decimal.NewFromInt(2500))
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("fake backend listening on %s (API under /api)", *addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
