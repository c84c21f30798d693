// Package functions runs Supabase Edge Functions (edge-runtime) in a
// container for integration tests.
//
// The runtime loads functions from a directory inside the container; mount
// your functions there and point the command at it:
//
//	f := functions.Default().
//		WithJWTSecret(secret).
//		WithVerifyJWT(false)
//	ctr, err := f.Run(ctx, testcontainers.CustomizeRequestOption(func(req *testcontainers.GenericContainerRequest) error {
//		req.Files = append(req.Files, testcontainers.ContainerFile{
//			HostFilePath:      "./testdata/functions",
//			ContainerFilePath: "/home/deno/functions",
//		})
//		return nil
//	}))
package functions

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
	ImageName = "supabase/edge-runtime"
	// DefaultTag pins the edge-runtime version used unless WithTag overrides it.
	DefaultTag = "v1.67.4"
	// Port is the container port the runtime listens on.
	Port nat.Port = "9000/tcp"

	// DefaultMainServicePath is where the runtime looks for functions.
	DefaultMainServicePath = "/home/deno/functions"

	// readyLog appears once the runtime accepts connections.
	readyLog = "Listening on"
)

// Functions accumulates the environment and startup command an edge-runtime
// container starts with.
type Functions struct {
	env             map[string]string
	tag             string
	mainServicePath string
}

// Default returns a builder with JWT verification on and the standard
// functions directory.
func Default() *Functions {
	return &Functions{
		env: map[string]string{
			"PORT":       "9000",
			"VERIFY_JWT": "true",
		},
		tag:             DefaultTag,
		mainServicePath: DefaultMainServicePath,
	}
}

// New returns a builder with default configuration.
func New() *Functions { return Default() }

// NewWithEnv returns a builder with the given variables merged over the
// defaults. Values in env win.
func NewWithEnv(env map[string]string) *Functions {
	f := Default()
	for k, v := range env {
		f.env[k] = v
	}
	return f
}

// WithJWTSecret sets the secret used to verify caller JWTs.
func (f *Functions) WithJWTSecret(secret string) *Functions {
	f.env["JWT_SECRET"] = secret
	return f
}

// WithSupabaseURL sets the Supabase API URL (usually the Kong gateway)
// functions call other services through.
func (f *Functions) WithSupabaseURL(url string) *Functions {
	f.env["SUPABASE_URL"] = url
	return f
}

// WithAnonKey sets the anonymous JWT key available inside functions.
func (f *Functions) WithAnonKey(key string) *Functions {
	f.env["SUPABASE_ANON_KEY"] = key
	return f
}

// WithServiceRoleKey sets the service-role JWT key available inside
// functions. It bypasses Row Level Security.
func (f *Functions) WithServiceRoleKey(key string) *Functions {
	f.env["SUPABASE_SERVICE_ROLE_KEY"] = key
	return f
}

// WithDatabaseURL sets the Postgres URL functions can connect to directly.
func (f *Functions) WithDatabaseURL(url string) *Functions {
	f.env["SUPABASE_DB_URL"] = url
	return f
}

// WithVerifyJWT toggles JWT verification on invocations (default on).
func (f *Functions) WithVerifyJWT(verify bool) *Functions {
	f.env["VERIFY_JWT"] = strconv.FormatBool(verify)
	return f
}

// WithMainServicePath sets the directory inside the container functions are
// loaded from.
func (f *Functions) WithMainServicePath(path string) *Functions {
	f.mainServicePath = path
	return f
}

// WithPort sets the server port (default 9000).
func (f *Functions) WithPort(port int) *Functions {
	f.env["PORT"] = strconv.Itoa(port)
	return f
}

// WithWorkerTimeoutMS caps function run time in milliseconds.
func (f *Functions) WithWorkerTimeoutMS(timeout int64) *Functions {
	f.env["WORKER_TIMEOUT_MS"] = strconv.FormatInt(timeout, 10)
	return f
}

// WithMaxParallelism caps the number of concurrent workers.
func (f *Functions) WithMaxParallelism(max int) *Functions {
	f.env["MAX_PARALLELISM"] = strconv.Itoa(max)
	return f
}

// WithTag overrides the image tag.
func (f *Functions) WithTag(tag string) *Functions {
	f.tag = tag
	return f
}

// WithEnv sets an arbitrary environment variable. Variables set here are
// readable inside functions via Deno.env.get().
func (f *Functions) WithEnv(key, value string) *Functions {
	f.env[key] = value
	return f
}

// Name returns the image name without tag.
func (f *Functions) Name() string { return ImageName }

// Tag returns the image tag.
func (f *Functions) Tag() string { return f.tag }

// Image returns the full image reference.
func (f *Functions) Image() string { return ImageName + ":" + f.tag }

// Port returns the exposed container port.
func (f *Functions) Port() nat.Port { return Port }

// MainServicePath returns the configured functions directory.
func (f *Functions) MainServicePath() string { return f.mainServicePath }

// Cmd returns the container startup command.
func (f *Functions) Cmd() []string {
	return []string{"start", "--main-service", f.mainServicePath}
}

// EnvVars returns a copy of the accumulated environment.
func (f *Functions) EnvVars() map[string]string {
	env := make(map[string]string, len(f.env))
	for k, v := range f.env {
		env[k] = v
	}
	return env
}

// WaitStrategy returns the readiness condition for the container.
func (f *Functions) WaitStrategy() wait.Strategy {
	return wait.ForLog(readyLog)
}

// Request assembles the container request handed to testcontainers-go.
func (f *Functions) Request() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Image:        f.Image(),
		ExposedPorts: []string{string(Port)},
		Env:          f.EnvVars(),
		Cmd:          f.Cmd(),
		WaitingFor:   f.WaitStrategy(),
	}
}

// Container is a started Edge Functions container.
type Container struct {
	testcontainers.Container
}

// Run starts the container and blocks until the runtime reports ready.
func (f *Functions) Run(ctx context.Context, opts ...testcontainers.ContainerCustomizer) (*Container, error) {
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: f.Request(),
		Started:          true,
	}
	for _, opt := range opts {
		if err := opt.Customize(&req); err != nil {
			return nil, fmt.Errorf("functions: customize request: %w", err)
		}
	}
	ctr, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("functions: start %s: %w", f.Image(), err)
	}
	return &Container{Container: ctr}, nil
}

// APIEndpoint returns the base URL of the runtime as reachable from the host.
func (c *Container) APIEndpoint(ctx context.Context) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("functions: container host: %w", err)
	}
	port, err := c.MappedPort(ctx, Port)
	if err != nil {
		return "", fmt.Errorf("functions: mapped port: %w", err)
	}
	return fmt.Sprintf("http://%s:%s", host, port.Port()), nil
}
