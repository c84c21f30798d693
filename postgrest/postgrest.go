// Package postgrest runs PostgREST in a container for integration tests.
//
// PostgREST needs a database role to connect as and an anonymous role to
// assume for unauthenticated requests:
//
//	p := postgrest.Default().
//		WithPostgresConnection("postgres://authenticator:pass@db:5432/postgres").
//		WithDBSchemas("api").
//		WithDBAnonRole("anon")
//	ctr, err := p.Run(ctx, network.WithNetwork([]string{"rest"}, nw))
package postgrest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// ImageName is the Docker image the module starts.
	ImageName = "postgrest/postgrest"
	// DefaultTag pins the PostgREST version used unless WithTag overrides it.
	DefaultTag = "v12.2.3"
	// Port is the container port the REST API listens on.
	Port nat.Port = "3000/tcp"

	// readyLog is printed (to stderr) once PostgREST is serving.
	readyLog = "Listening on port"
)

// PostgREST accumulates the environment a PostgREST container starts with.
type PostgREST struct {
	env map[string]string
	tag string
}

// Default returns a builder exposing the public schema through the anon role.
func Default() *PostgREST {
	return &PostgREST{
		env: map[string]string{
			"PGRST_DB_SCHEMAS":   "public",
			"PGRST_DB_ANON_ROLE": "anon",

			"PGRST_SERVER_PORT": "3000",
			"PGRST_SERVER_HOST": "0.0.0.0",
		},
		tag: DefaultTag,
	}
}

// New returns a builder with default configuration.
func New() *PostgREST { return Default() }

// NewWithEnv returns a builder with the given variables merged over the
// defaults. Values in env win.
func NewWithEnv(env map[string]string) *PostgREST {
	p := Default()
	for k, v := range env {
		p.env[k] = v
	}
	return p
}

// WithPostgresConnection sets the Postgres connection string PostgREST
// connects with.
func (p *PostgREST) WithPostgresConnection(connectionString string) *PostgREST {
	p.env["PGRST_DB_URI"] = connectionString
	return p
}

// WithDBSchemas sets the exposed schemas (comma-separated for multiple).
func (p *PostgREST) WithDBSchemas(schemas string) *PostgREST {
	p.env["PGRST_DB_SCHEMAS"] = schemas
	return p
}

// WithDBAnonRole sets the role assumed for unauthenticated requests.
func (p *PostgREST) WithDBAnonRole(role string) *PostgREST {
	p.env["PGRST_DB_ANON_ROLE"] = role
	return p
}

// WithJWTSecret sets the secret used to validate Authorization headers and
// extract role claims.
func (p *PostgREST) WithJWTSecret(secret string) *PostgREST {
	p.env["PGRST_JWT_SECRET"] = secret
	return p
}

// WithJWTRoleClaimKey sets the JSONPath to the role claim (default .role).
func (p *PostgREST) WithJWTRoleClaimKey(key string) *PostgREST {
	p.env["PGRST_JWT_ROLE_CLAIM_KEY"] = key
	return p
}

// WithOpenAPIMode sets OpenAPI introspection behavior: follow-privileges,
// ignore-privileges or disabled.
func (p *PostgREST) WithOpenAPIMode(mode string) *PostgREST {
	p.env["PGRST_OPENAPI_MODE"] = mode
	return p
}

// WithMaxRows caps the number of rows returned per request.
func (p *PostgREST) WithMaxRows(maxRows int) *PostgREST {
	p.env["PGRST_DB_MAX_ROWS"] = strconv.Itoa(maxRows)
	return p
}

// WithPreRequest names a stored procedure called before every request.
func (p *PostgREST) WithPreRequest(functionName string) *PostgREST {
	p.env["PGRST_DB_PRE_REQUEST"] = functionName
	return p
}

// WithLogLevel sets the log level (crit, error, warn, info).
func (p *PostgREST) WithLogLevel(level string) *PostgREST {
	p.env["PGRST_LOG_LEVEL"] = level
	return p
}

// WithTag overrides the image tag.
func (p *PostgREST) WithTag(tag string) *PostgREST {
	p.tag = tag
	return p
}

// WithEnv sets an arbitrary environment variable.
func (p *PostgREST) WithEnv(key, value string) *PostgREST {
	p.env[key] = value
	return p
}

// Name returns the image name without tag.
func (p *PostgREST) Name() string { return ImageName }

// Tag returns the image tag.
func (p *PostgREST) Tag() string { return p.tag }

// Image returns the full image reference.
func (p *PostgREST) Image() string { return ImageName + ":" + p.tag }

// Port returns the exposed container port.
func (p *PostgREST) Port() nat.Port { return Port }

// EnvVars returns a copy of the accumulated environment.
func (p *PostgREST) EnvVars() map[string]string {
	env := make(map[string]string, len(p.env))
	for k, v := range p.env {
		env[k] = v
	}
	return env
}

// WaitStrategy returns the readiness condition for the container.
func (p *PostgREST) WaitStrategy() wait.Strategy {
	return wait.ForLog(readyLog)
}

// Request assembles the container request handed to testcontainers-go.
func (p *PostgREST) Request() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        p.Image(),
		ExposedPorts: []string{string(Port)},
		Env:          p.EnvVars(),
		WaitingFor:   p.WaitStrategy(),
	}
}

// Container is a started PostgREST container.
type Container struct {
	testcontainers.Container
}

// Run starts the container and blocks until PostgREST is serving.
func (p *PostgREST) Run(ctx context.Context, opts ...testcontainers.ContainerCustomizer) (*Container, error) {
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: p.Request(),
		Started:          true,
	}
	for _, opt := range opts {
		if err := opt.Customize(&req); err != nil {
			return nil, fmt.Errorf("postgrest: customize request: %w", err)
		}
	}
	ctr, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("postgrest: start %s: %w", p.Image(), err)
	}
	return &Container{Container: ctr}, nil
}

// APIEndpoint returns the base URL of the REST API as reachable from the
// host.
func (c *Container) APIEndpoint(ctx context.Context) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("postgrest: container host: %w", err)
	}
	port, err := c.MappedPort(ctx, Port)
	if err != nil {
		return "", fmt.Errorf("postgrest: mapped port: %w", err)
	}
	return fmt.Sprintf("http://%s:%s", host, port.Port()), nil
}
