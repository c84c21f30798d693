// Package stack starts a multi-service Supabase stack on one Docker network.
//
// A stack always carries Postgres; Auth, PostgREST, Realtime and Storage are
// switched per service in the Config. Containers reach each other through
// network aliases derived from the configured prefix, the host reaches them
// through mapped ports on the individual containers.
package stack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/testcontainers/testcontainers-go"
	psqlmod "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/example/supabase-containers/auth"
	"github.com/example/supabase-containers/postgrest"
	"github.com/example/supabase-containers/realtime"
	"github.com/example/supabase-containers/storage"
	"github.com/example/supabase-containers/token"
)

// roleBootstrap creates the roles the API services connect and switch to.
// The authenticator password is substituted in by Up.
const roleBootstrap = `
CREATE ROLE anon NOLOGIN NOINHERIT;
CREATE ROLE authenticated NOLOGIN NOINHERIT;
CREATE ROLE service_role NOLOGIN NOINHERIT BYPASSRLS;
CREATE ROLE authenticator LOGIN PASSWORD '%s' NOINHERIT;
GRANT anon TO authenticator;
GRANT authenticated TO authenticator;
GRANT service_role TO authenticator;
GRANT USAGE ON SCHEMA public TO anon, authenticated, service_role;
`

// Stack holds the started containers and the API keys minted for them.
type Stack struct {
	ID      string
	Network *testcontainers.DockerNetwork

	Postgres  *psqlmod.PostgresContainer
	Auth      *auth.Container
	PostgREST *postgrest.Container
	Realtime  *realtime.Container
	Storage   *storage.Container

	AnonKey        string
	ServiceRoleKey string

	cfg *Config
}

func (s *Stack) alias(service string) string {
	return s.cfg.NetworkPrefix + "-" + service
}

// serviceDSN is the connection string other containers use, via the network
// alias rather than the mapped host port.
func (s *Stack) serviceDSN(user string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:5432/%s",
		user, s.cfg.Postgres.Password, s.alias("db"), s.cfg.Postgres.Database)
}

// Up starts every enabled service and returns once all of them are ready.
// On failure everything already started is torn down.
func Up(ctx context.Context, cfg *Config) (*Stack, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Stack{
		ID:  strings.ToLower(ulid.Make().String()),
		cfg: cfg,
	}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("stack: create network: %w", err)
	}
	s.Network = nw

	if err := s.up(ctx); err != nil {
		_ = s.Down(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Stack) up(ctx context.Context) error {
	cfg := s.cfg

	anonKey, err := token.AnonKey(cfg.JWTSecret)
	if err != nil {
		return err
	}
	serviceKey, err := token.ServiceRoleKey(cfg.JWTSecret)
	if err != nil {
		return err
	}
	s.AnonKey, s.ServiceRoleKey = anonKey, serviceKey

	pgOpts := []testcontainers.ContainerCustomizer{
		testcontainers.WithImage(cfg.Postgres.Image),
		psqlmod.WithDatabase(cfg.Postgres.Database),
		psqlmod.WithUsername(cfg.Postgres.Username),
		psqlmod.WithPassword(cfg.Postgres.Password),
		network.WithNetwork([]string{s.alias("db")}, s.Network),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second)),
	}
	if cfg.Realtime.Enabled {
		// Realtime consumes logical replication, which the stock image
		// does not enable.
		pgOpts = append(pgOpts, testcontainers.CustomizeRequest(
			testcontainers.GenericContainerRequest{
				ContainerRequest: testcontainers.ContainerRequest{
					Cmd: []string{"postgres", "-c", "wal_level=logical"},
				},
			}))
	}
	pg, err := psqlmod.RunContainer(ctx, pgOpts...)
	if err != nil {
		return fmt.Errorf("stack: start postgres: %w", err)
	}
	s.Postgres = pg

	hostDSN, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("stack: postgres connection string: %w", err)
	}
	if err := s.bootstrapRoles(ctx, hostDSN); err != nil {
		return err
	}

	if cfg.Auth.Enabled {
		a := auth.New(s.serviceDSN("supabase_auth_admin")).
			WithJWTSecret(cfg.JWTSecret)
		if cfg.Auth.Tag != "" {
			a = a.WithTag(cfg.Auth.Tag)
		}
		if err := a.InitDBSchema(ctx, hostDSN, cfg.Postgres.Password); err != nil {
			return fmt.Errorf("stack: init auth schema: %w", err)
		}
		ctr, err := a.Run(ctx, network.WithNetwork([]string{s.alias("auth")}, s.Network))
		if err != nil {
			return fmt.Errorf("stack: start auth: %w", err)
		}
		s.Auth = ctr
	}

	if cfg.PostgREST.Enabled {
		p := postgrest.Default().
			WithPostgresConnection(s.serviceDSN("authenticator")).
			WithDBAnonRole(token.RoleAnon).
			WithJWTSecret(cfg.JWTSecret)
		if cfg.PostgREST.Tag != "" {
			p = p.WithTag(cfg.PostgREST.Tag)
		}
		ctr, err := p.Run(ctx, network.WithNetwork([]string{s.alias("rest")}, s.Network))
		if err != nil {
			return fmt.Errorf("stack: start postgrest: %w", err)
		}
		s.PostgREST = ctr
	}

	if cfg.Realtime.Enabled {
		r := realtime.Default().
			WithDBHost(s.alias("db")).
			WithDBName(cfg.Postgres.Database).
			WithDBUser(cfg.Postgres.Username).
			WithDBPassword(cfg.Postgres.Password).
			WithJWTSecret(cfg.JWTSecret).
			WithSecretKeyBase(cfg.JWTSecret + cfg.JWTSecret).
			WithSlotName("realtime_" + s.ID).
			WithTenantID(s.alias("realtime"))
		if cfg.Realtime.Tag != "" {
			r = r.WithTag(cfg.Realtime.Tag)
		}
		ctr, err := r.Run(ctx, network.WithNetwork([]string{s.alias("realtime")}, s.Network))
		if err != nil {
			return fmt.Errorf("stack: start realtime: %w", err)
		}
		s.Realtime = ctr
	}

	if cfg.Storage.Enabled {
		st := storage.Default().
			WithDatabaseURL(s.serviceDSN(cfg.Postgres.Username)).
			WithAnonKey(s.AnonKey).
			WithServiceKey(s.ServiceRoleKey).
			WithJWTSecret(cfg.JWTSecret).
			WithTenantID(s.alias("storage"))
		if cfg.Storage.Tag != "" {
			st = st.WithTag(cfg.Storage.Tag)
		}
		if cfg.PostgREST.Enabled {
			st = st.WithPostgrestURL("http://" + s.alias("rest") + ":3000")
		}
		ctr, err := st.Run(ctx, network.WithNetwork([]string{s.alias("storage")}, s.Network))
		if err != nil {
			return fmt.Errorf("stack: start storage: %w", err)
		}
		s.Storage = ctr
	}

	return nil
}

func (s *Stack) bootstrapRoles(ctx context.Context, dsn string) error {
	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, err := pgx.Connect(cctx, dsn)
	if err != nil {
		return fmt.Errorf("stack: connect postgres: %w", err)
	}
	defer conn.Close(cctx)

	script := fmt.Sprintf(roleBootstrap, s.cfg.Postgres.Password)
	if _, err := conn.Exec(cctx, script); err != nil {
		return fmt.Errorf("stack: bootstrap roles: %w", err)
	}
	return nil
}

// Down terminates every started container in reverse start order and removes
// the network. It keeps going past individual failures and reports them all.
func (s *Stack) Down(ctx context.Context) error {
	var errs []error
	terminate := func(name string, ctr testcontainers.Container) {
		if ctr == nil {
			return
		}
		if err := ctr.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stack: terminate %s: %w", name, err))
		}
	}
	if s.Storage != nil {
		terminate("storage", s.Storage.Container)
	}
	if s.Realtime != nil {
		terminate("realtime", s.Realtime.Container)
	}
	if s.PostgREST != nil {
		terminate("postgrest", s.PostgREST.Container)
	}
	if s.Auth != nil {
		terminate("auth", s.Auth.Container)
	}
	if s.Postgres != nil {
		terminate("postgres", s.Postgres)
	}
	if s.Network != nil {
		if err := s.Network.Remove(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stack: remove network: %w", err))
		}
	}
	return errors.Join(errs...)
}
