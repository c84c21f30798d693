// Package realtime runs the Supabase Realtime server in a container.
//
// Realtime streams database changes over websockets via logical replication,
// so the backing Postgres must run with wal_level=logical and the builder
// needs connection details plus a JWT secret:
//
//	r := realtime.Default().
//		WithDBHost("realtime-db").
//		WithDBUser("supabase_admin").
//		WithDBPassword("postgres").
//		WithDBName("postgres").
//		WithJWTSecret(secret).
//		WithSecretKeyBase(keyBase)
//	ctr, err := r.Run(ctx, network.WithNetwork([]string{"realtime"}, nw))
package realtime

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
	ImageName = "supabase/realtime"
	// DefaultTag pins the Realtime version used unless WithTag overrides it.
	DefaultTag = "v2.33.58"
	// Port is the container port the websocket endpoint listens on.
	Port nat.Port = "4000/tcp"

	readyLog = "Realtime has started"
)

// Realtime accumulates the environment a Realtime container starts with.
type Realtime struct {
	env map[string]string
	tag string
}

// Default returns a builder configured for a single local tenant with a
// temporary replication slot.
func Default() *Realtime {
	return &Realtime{
		env: map[string]string{
			"PORT":     "4000",
			"APP_NAME": "realtime",

			"SLOT_NAME":      "realtime_rls",
			"TEMPORARY_SLOT": "true",

			"SECURE_CHANNELS": "true",
			"REGION":          "local",
			"TENANT_ID":       "realtime-dev",

			"ERL_AFLAGS":       "-proto_dist inet_tcp",
			"ENABLE_TAILSCALE": "false",

			"DB_PORT": "5432",
			"DB_SSL":  "false",

			"RLIMIT_NOFILE": "10000",
		},
		tag: DefaultTag,
	}
}

// New returns a builder with default configuration.
func New() *Realtime { return Default() }

// NewWithEnv returns a builder with the given variables merged over the
// defaults. Values in env win.
func NewWithEnv(env map[string]string) *Realtime {
	r := Default()
	for k, v := range env {
		r.env[k] = v
	}
	return r
}

// WithPostgresConnection sets a full database URL, taking precedence over the
// individual DB_* variables.
func (r *Realtime) WithPostgresConnection(connectionString string) *Realtime {
	r.env["DB_URL"] = connectionString
	return r
}

// WithDBHost sets the database host.
func (r *Realtime) WithDBHost(host string) *Realtime {
	r.env["DB_HOST"] = host
	return r
}

// WithDBPort sets the database port.
func (r *Realtime) WithDBPort(port int) *Realtime {
	r.env["DB_PORT"] = strconv.Itoa(port)
	return r
}

// WithDBName sets the database name.
func (r *Realtime) WithDBName(name string) *Realtime {
	r.env["DB_NAME"] = name
	return r
}

// WithDBUser sets the database user. Realtime needs replication privileges.
func (r *Realtime) WithDBUser(user string) *Realtime {
	r.env["DB_USER"] = user
	return r
}

// WithDBPassword sets the database password.
func (r *Realtime) WithDBPassword(password string) *Realtime {
	r.env["DB_PASSWORD"] = password
	return r
}

// WithDBSSL toggles TLS on the database connection.
func (r *Realtime) WithDBSSL(ssl bool) *Realtime {
	r.env["DB_SSL"] = strconv.FormatBool(ssl)
	return r
}

// WithDBAfterConnectQuery sets a query run after each database connect.
func (r *Realtime) WithDBAfterConnectQuery(query string) *Realtime {
	r.env["DB_AFTER_CONNECT_QUERY"] = query
	return r
}

// WithJWTSecret sets the secret used to verify channel tokens.
func (r *Realtime) WithJWTSecret(secret string) *Realtime {
	r.env["JWT_SECRET"] = secret
	return r
}

// WithAPIJWTSecret sets the secret for the management API.
func (r *Realtime) WithAPIJWTSecret(secret string) *Realtime {
	r.env["API_JWT_SECRET"] = secret
	return r
}

// WithSecretKeyBase sets the Phoenix secret key base (64+ characters).
func (r *Realtime) WithSecretKeyBase(keyBase string) *Realtime {
	r.env["SECRET_KEY_BASE"] = keyBase
	return r
}

// WithSlotName sets the logical replication slot name.
func (r *Realtime) WithSlotName(name string) *Realtime {
	r.env["SLOT_NAME"] = name
	return r
}

// WithTemporarySlot toggles dropping the replication slot on disconnect.
func (r *Realtime) WithTemporarySlot(temporary bool) *Realtime {
	r.env["TEMPORARY_SLOT"] = strconv.FormatBool(temporary)
	return r
}

// WithMaxRecordBytes caps the size of change records sent to clients.
func (r *Realtime) WithMaxRecordBytes(maxBytes int) *Realtime {
	r.env["MAX_RECORD_BYTES"] = strconv.Itoa(maxBytes)
	return r
}

// WithSecureChannels toggles JWT verification on channel joins.
func (r *Realtime) WithSecureChannels(secure bool) *Realtime {
	r.env["SECURE_CHANNELS"] = strconv.FormatBool(secure)
	return r
}

// WithRegion sets the fly.io style region label.
func (r *Realtime) WithRegion(region string) *Realtime {
	r.env["REGION"] = region
	return r
}

// WithTenantID sets the tenant identifier.
func (r *Realtime) WithTenantID(tenantID string) *Realtime {
	r.env["TENANT_ID"] = tenantID
	return r
}

// WithErlAflags overrides the Erlang VM flags.
func (r *Realtime) WithErlAflags(flags string) *Realtime {
	r.env["ERL_AFLAGS"] = flags
	return r
}

// WithDNSNodes sets the DNS name used for node discovery in a cluster.
func (r *Realtime) WithDNSNodes(nodes string) *Realtime {
	r.env["DNS_NODES"] = nodes
	return r
}

// WithEnableTailscale toggles the embedded Tailscale client.
func (r *Realtime) WithEnableTailscale(enable bool) *Realtime {
	r.env["ENABLE_TAILSCALE"] = strconv.FormatBool(enable)
	return r
}

// WithPort sets the port the server listens on inside the container.
func (r *Realtime) WithPort(port int) *Realtime {
	r.env["PORT"] = strconv.Itoa(port)
	return r
}

// WithTag overrides the image tag.
func (r *Realtime) WithTag(tag string) *Realtime {
	r.tag = tag
	return r
}

// WithEnv sets an arbitrary environment variable.
func (r *Realtime) WithEnv(key, value string) *Realtime {
	r.env[key] = value
	return r
}

// Name returns the image name without tag.
func (r *Realtime) Name() string { return ImageName }

// Tag returns the image tag.
func (r *Realtime) Tag() string { return r.tag }

// Image returns the full image reference.
func (r *Realtime) Image() string { return ImageName + ":" + r.tag }

// Port returns the exposed container port.
func (r *Realtime) Port() nat.Port { return Port }

// EnvVars returns a copy of the accumulated environment.
func (r *Realtime) EnvVars() map[string]string {
	env := make(map[string]string, len(r.env))
	for k, v := range r.env {
		env[k] = v
	}
	return env
}

// WaitStrategy returns the readiness condition for the container.
func (r *Realtime) WaitStrategy() wait.Strategy {
	return wait.ForLog(readyLog)
}

// Request assembles the container request handed to testcontainers-go.
func (r *Realtime) Request() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        r.Image(),
		ExposedPorts: []string{string(Port)},
		Env:          r.EnvVars(),
		WaitingFor:   r.WaitStrategy(),
	}
}

// Container is a started Realtime container.
type Container struct {
	testcontainers.Container
}

// Run starts the container and blocks until the server reports it is up.
func (r *Realtime) Run(ctx context.Context, opts ...testcontainers.ContainerCustomizer) (*Container, error) {
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: r.Request(),
		Started:          true,
	}
	for _, opt := range opts {
		if err := opt.Customize(&req); err != nil {
			return nil, fmt.Errorf("realtime: customize request: %w", err)
		}
	}
	ctr, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("realtime: start %s: %w", r.Image(), err)
	}
	return &Container{Container: ctr}, nil
}

// WebsocketEndpoint returns the ws:// base URL as reachable from the host.
func (c *Container) WebsocketEndpoint(ctx context.Context) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("realtime: container host: %w", err)
	}
	port, err := c.MappedPort(ctx, Port)
	if err != nil {
		return "", fmt.Errorf("realtime: mapped port: %w", err)
	}
	return fmt.Sprintf("ws://%s:%s", host, port.Port()), nil
}
