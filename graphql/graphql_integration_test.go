//go:build integration

package graphql_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/example/supabase-containers/graphql"
)

func TestGraphQLDatabaseBoots(t *testing.T) {
	ctx := context.Background()

	ctr, err := graphql.Default().WithPassword("postgres").Run(ctx)
	if err != nil {
		t.Fatalf("graphql up: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close(ctx)

	var available bool
	err = conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_available_extensions WHERE name = 'pg_graphql')`,
	).Scan(&available)
	if err != nil {
		t.Fatalf("query extensions: %v", err)
	}
	if !available {
		t.Fatalf("pg_graphql extension not available in image")
	}

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pg_graphql`); err != nil {
		t.Fatalf("create extension: %v", err)
	}
	var result string
	err = conn.QueryRow(ctx,
		`SELECT graphql.resolve($$ { __typename } $$)::text`,
	).Scan(&result)
	if err != nil {
		t.Fatalf("graphql resolve: %v", err)
	}
	if result == "" {
		t.Fatalf("empty graphql response")
	}
}
