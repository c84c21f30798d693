package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// InitDBSchema creates the roles and schema GoTrue expects before its first
// migration run. dbURL must reach the database as a superuser (the plain
// postgres/postgres connection in tests); authAdminPassword becomes the
// password of the supabase_auth_admin role referenced by the container's
// DATABASE_URL. The statements run as one batch and the first failure is
// returned as-is.
func (a *Auth) InitDBSchema(ctx context.Context, dbURL, authAdminPassword string) error {
	if dbURL == "" {
		return ErrEmptyDatabaseURL
	}
	schema := a.env["DB_NAMESPACE"]
	if schema == "" {
		schema = defaultNamespace
	}

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("auth: connect to %s: %w", dbURL, err)
	}
	defer conn.Close(ctx)

	script := fmt.Sprintf(
		`CREATE USER supabase_admin LOGIN CREATEROLE CREATEDB REPLICATION BYPASSRLS;
CREATE USER supabase_auth_admin NOINHERIT CREATEROLE LOGIN NOREPLICATION PASSWORD '%s';
CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION supabase_auth_admin;
GRANT CREATE ON DATABASE postgres TO supabase_auth_admin;
ALTER USER supabase_auth_admin SET search_path = '%s';`,
		authAdminPassword, schema, schema,
	)

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if _, err := conn.Exec(cctx, script); err != nil {
		return fmt.Errorf("auth: init database schema: %w", err)
	}
	return nil
}

// SeedUser inserts a confirmed email/password user directly into auth.users,
// bypassing the signup endpoint. The password is stored as a bcrypt hash the
// way GoTrue writes encrypted_password itself. The Auth container must have
// run its migrations (i.e. be started) before this is called.
func SeedUser(ctx context.Context, dbURL, email, password string) error {
	if dbURL == "" {
		return ErrEmptyDatabaseURL
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("auth: connect to %s: %w", dbURL, err)
	}
	defer conn.Close(ctx)

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = conn.Exec(cctx,
		`INSERT INTO auth.users
		   (instance_id, id, aud, role, email, encrypted_password,
		    email_confirmed_at, created_at, updated_at)
		 VALUES
		   ('00000000-0000-0000-0000-000000000000', gen_random_uuid(),
		    'authenticated', 'authenticated', $1, $2, now(), now(), now())`,
		email, string(hash),
	)
	if err != nil {
		return fmt.Errorf("auth: seed user %s: %w", email, err)
	}
	return nil
}
