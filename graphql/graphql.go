// Package graphql runs the supabase/postgres image — Postgres with the
// pg_graphql extension preinstalled — in a container for integration tests.
//
// Unlike the other services this one IS the database, so the useful handle
// after start is a connection string:
//
//	g := graphql.Default().WithPassword("secret")
//	ctr, err := g.Run(ctx)
//	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
package graphql

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// ImageName is the Docker image the module starts.
	ImageName = "supabase/postgres"
	// DefaultTag pins the supabase/postgres version used unless WithTag
	// overrides it.
	DefaultTag = "15.8.1.085"
	// Port is the Postgres port inside the container.
	Port nat.Port = "5432/tcp"

	// readyLog is emitted when Postgres accepts connections. The image's
	// init scripts run in the foreground, so the database is fully
	// initialized by the time this appears.
	readyLog = "database system is ready to accept connections"
)

// GraphQL accumulates the environment a supabase/postgres container starts
// with.
type GraphQL struct {
	env map[string]string
	tag string
}

// Default returns a builder with the postgres/postgres/postgres trio.
// POSTGRES_HOST is deliberately not set; it interferes with the image's init
// scripts.
func Default() *GraphQL {
	return &GraphQL{
		env: map[string]string{
			"POSTGRES_DB":       "postgres",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		tag: DefaultTag,
	}
}

// New returns a builder with default configuration.
func New() *GraphQL { return Default() }

// NewWithEnv returns a builder with the given variables merged over the
// defaults. Values in env win.
func NewWithEnv(env map[string]string) *GraphQL {
	g := Default()
	for k, v := range env {
		g.env[k] = v
	}
	return g
}

// WithDatabase sets the database created on startup (default postgres).
func (g *GraphQL) WithDatabase(database string) *GraphQL {
	g.env["POSTGRES_DB"] = database
	return g
}

// WithUser sets the superuser created on startup (default postgres).
func (g *GraphQL) WithUser(user string) *GraphQL {
	g.env["POSTGRES_USER"] = user
	return g
}

// WithPassword sets the superuser password (default postgres).
func (g *GraphQL) WithPassword(password string) *GraphQL {
	g.env["POSTGRES_PASSWORD"] = password
	return g
}

// WithHost sets the bind address inside the container.
func (g *GraphQL) WithHost(host string) *GraphQL {
	g.env["POSTGRES_HOST"] = host
	return g
}

// WithPort sets the Postgres port inside the container (default 5432).
func (g *GraphQL) WithPort(port int) *GraphQL {
	g.env["POSTGRES_PORT"] = strconv.Itoa(port)
	return g
}

// WithHostAuthMethod sets pg_hba's auth method for host connections.
func (g *GraphQL) WithHostAuthMethod(method string) *GraphQL {
	g.env["POSTGRES_HOST_AUTH_METHOD"] = method
	return g
}

// WithPostgresArgs sets extra initdb arguments, e.g. "max_connections=200".
func (g *GraphQL) WithPostgresArgs(args string) *GraphQL {
	g.env["POSTGRES_INITDB_ARGS"] = args
	return g
}

// WithJWTSecret sets the secret pg_graphql validates JWTs against.
func (g *GraphQL) WithJWTSecret(secret string) *GraphQL {
	g.env["JWT_SECRET"] = secret
	return g
}

// WithTag overrides the image tag.
func (g *GraphQL) WithTag(tag string) *GraphQL {
	g.tag = tag
	return g
}

// WithEnv sets an arbitrary environment variable.
func (g *GraphQL) WithEnv(key, value string) *GraphQL {
	g.env[key] = value
	return g
}

// Name returns the image name without tag.
func (g *GraphQL) Name() string { return ImageName }

// Tag returns the image tag.
func (g *GraphQL) Tag() string { return g.tag }

// Image returns the full image reference.
func (g *GraphQL) Image() string { return ImageName + ":" + g.tag }

// Port returns the exposed container port.
func (g *GraphQL) Port() nat.Port { return Port }

// EnvVars returns a copy of the accumulated environment.
func (g *GraphQL) EnvVars() map[string]string {
	env := make(map[string]string, len(g.env))
	for k, v := range g.env {
		env[k] = v
	}
	return env
}

func (g *GraphQL) credential(key string) string {
	if v := g.env[key]; v != "" {
		return v
	}
	return "postgres"
}

// ConnectionStringTemplate returns a connection string with {host} and
// {port} placeholders to fill in after the container starts.
func (g *GraphQL) ConnectionStringTemplate() string {
	return fmt.Sprintf("postgres://%s:%s@{host}:{port}/%s",
		g.credential("POSTGRES_USER"),
		g.credential("POSTGRES_PASSWORD"),
		g.credential("POSTGRES_DB"))
}

// WaitStrategy returns the readiness condition for the container.
func (g *GraphQL) WaitStrategy() wait.Strategy {
	return wait.ForLog(readyLog)
}

// Request assembles the container request handed to testcontainers-go.
func (g *GraphQL) Request() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        g.Image(),
		ExposedPorts: []string{string(Port)},
		Env:          g.EnvVars(),
		WaitingFor:   g.WaitStrategy(),
	}
}

// Container is a started supabase/postgres container.
type Container struct {
	testcontainers.Container
	user     string
	password string
	database string
}

// Run starts the container and blocks until Postgres accepts connections.
func (g *GraphQL) Run(ctx context.Context, opts ...testcontainers.ContainerCustomizer) (*Container, error) {
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: g.Request(),
		Started:          true,
	}
	for _, opt := range opts {
		if err := opt.Customize(&req); err != nil {
			return nil, fmt.Errorf("graphql: customize request: %w", err)
		}
	}
	ctr, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("graphql: start %s: %w", g.Image(), err)
	}
	return &Container{
		Container: ctr,
		user:      g.credential("POSTGRES_USER"),
		password:  g.credential("POSTGRES_PASSWORD"),
		database:  g.credential("POSTGRES_DB"),
	}, nil
}

// ConnectionString returns a host-reachable Postgres DSN for the container.
// Extra args are appended as query parameters, e.g. "sslmode=disable".
func (c *Container) ConnectionString(ctx context.Context, args ...string) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("graphql: container host: %w", err)
	}
	port, err := c.MappedPort(ctx, Port)
	if err != nil {
		return "", fmt.Errorf("graphql: mapped port: %w", err)
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.user, c.password, host, port.Port(), c.database)
	if len(args) > 0 {
		dsn += "?" + strings.Join(args, "&")
	}
	return dsn, nil
}
