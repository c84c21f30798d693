// Command supastack starts a local Supabase stack and keeps it running until
// interrupted. Useful for poking at the services manually with the same
// wiring the test helpers use.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/supabase-containers/stack"
)

func main() {
	configPath := flag.String("config", "", "path to stack config (default: built-in defaults)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := stack.DefaultConfig()
	if *configPath != "" {
		loaded, err := stack.Load(*configPath)
		if err != nil {
			log.Printf("error: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	s, err := stack.Up(ctx, cfg)
	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}

	if dsn, err := s.Postgres.ConnectionString(ctx, "sslmode=disable"); err == nil {
		log.Printf("postgres: %s", dsn)
	}
	if s.Auth != nil {
		if url, err := s.Auth.APIEndpoint(ctx); err == nil {
			log.Printf("auth: %s", url)
		}
	}
	if s.PostgREST != nil {
		if url, err := s.PostgREST.APIEndpoint(ctx); err == nil {
			log.Printf("postgrest: %s", url)
		}
	}
	if s.Realtime != nil {
		if url, err := s.Realtime.WebsocketEndpoint(ctx); err == nil {
			log.Printf("realtime: %s", url)
		}
	}
	if s.Storage != nil {
		if url, err := s.Storage.APIEndpoint(ctx); err == nil {
			log.Printf("storage: %s", url)
		}
	}
	log.Printf("anon key: %s", s.AnonKey)
	log.Printf("service role key: %s", s.ServiceRoleKey)

	<-ctx.Done()

	if err := s.Down(context.Background()); err != nil {
		log.Printf("stack shutdown: %v", err)
		os.Exit(1)
	}
}
