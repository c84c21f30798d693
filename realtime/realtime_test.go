package realtime

import "testing"

func TestDefaultConfiguration(t *testing.T) {
	env := Default().EnvVars()
	want := map[string]string{
		"PORT":             "4000",
		"APP_NAME":         "realtime",
		"SLOT_NAME":        "realtime_rls",
		"TEMPORARY_SLOT":   "true",
		"SECURE_CHANNELS":  "true",
		"REGION":           "local",
		"TENANT_ID":        "realtime-dev",
		"ERL_AFLAGS":       "-proto_dist inet_tcp",
		"ENABLE_TAILSCALE": "false",
		"DB_PORT":          "5432",
		"DB_SSL":           "false",
		"RLIMIT_NOFILE":    "10000",
	}
	if len(env) != len(want) {
		t.Fatalf("default env has %d entries, want %d: %v", len(env), len(want), env)
	}
	for k, v := range want {
		if env[k] != v {
			t.Fatalf("default env %s = %q, want %q", k, env[k], v)
		}
	}
}

func TestImageMetadata(t *testing.T) {
	r := Default()
	if r.Name() != "supabase/realtime" {
		t.Fatalf("name = %q", r.Name())
	}
	if r.Tag() != "v2.33.58" {
		t.Fatalf("tag = %q", r.Tag())
	}
	if r.Image() != "supabase/realtime:v2.33.58" {
		t.Fatalf("image = %q", r.Image())
	}
	if r.Port() != "4000/tcp" {
		t.Fatalf("port = %q", r.Port())
	}
}

func TestBuilderMethodChaining(t *testing.T) {
	env := Default().
		WithPostgresConnection("postgres://supabase_admin:pass@db:5432/postgres").
		WithDBHost("db").
		WithDBPort(5433).
		WithDBName("realtime").
		WithDBUser("supabase_admin").
		WithDBPassword("pass").
		WithDBSSL(true).
		WithDBAfterConnectQuery("SET search_path TO realtime").
		WithJWTSecret("a-secret-of-at-least-32-characters!!").
		WithAPIJWTSecret("another-secret").
		WithSecretKeyBase("UpNVntn3cDxHJpq99YMc1T1AQgQpc8kfYTuRgBiYa15BLrx8etQoXz3gZv1/u2oq").
		WithSlotName("my_slot").
		WithTemporarySlot(false).
		WithMaxRecordBytes(1048576).
		WithSecureChannels(false).
		WithRegion("us-east-1").
		WithTenantID("tenant-1").
		WithErlAflags("-proto_dist inet6_tcp").
		WithDNSNodes("realtime.internal").
		WithEnableTailscale(true).
		WithPort(4001).
		EnvVars()

	checks := map[string]string{
		"DB_URL":                 "postgres://supabase_admin:pass@db:5432/postgres",
		"DB_HOST":                "db",
		"DB_PORT":                "5433",
		"DB_NAME":                "realtime",
		"DB_USER":                "supabase_admin",
		"DB_PASSWORD":            "pass",
		"DB_SSL":                 "true",
		"DB_AFTER_CONNECT_QUERY": "SET search_path TO realtime",
		"JWT_SECRET":             "a-secret-of-at-least-32-characters!!",
		"API_JWT_SECRET":         "another-secret",
		"SECRET_KEY_BASE":        "UpNVntn3cDxHJpq99YMc1T1AQgQpc8kfYTuRgBiYa15BLrx8etQoXz3gZv1/u2oq",
		"SLOT_NAME":              "my_slot",
		"TEMPORARY_SLOT":         "false",
		"MAX_RECORD_BYTES":       "1048576",
		"SECURE_CHANNELS":        "false",
		"REGION":                 "us-east-1",
		"TENANT_ID":              "tenant-1",
		"ERL_AFLAGS":             "-proto_dist inet6_tcp",
		"DNS_NODES":              "realtime.internal",
		"ENABLE_TAILSCALE":       "true",
		"PORT":                   "4001",
	}
	for k, v := range checks {
		if env[k] != v {
			t.Fatalf("env %s = %q, want %q", k, env[k], v)
		}
	}
}

func TestWithTagOverridesDefault(t *testing.T) {
	r := Default().WithTag("v2.30.0")
	if r.Image() != "supabase/realtime:v2.30.0" {
		t.Fatalf("image = %q", r.Image())
	}
}

func TestNewWithEnvOverridesDefaults(t *testing.T) {
	env := NewWithEnv(map[string]string{"TENANT_ID": "custom"}).EnvVars()
	if env["TENANT_ID"] != "custom" {
		t.Fatalf("override lost")
	}
	if env["SLOT_NAME"] != "realtime_rls" {
		t.Fatalf("defaults lost: %v", env)
	}
}

func TestEnvVarsReturnsCopy(t *testing.T) {
	r := Default()
	env := r.EnvVars()
	env["PORT"] = "9999"
	if r.EnvVars()["PORT"] != "4000" {
		t.Fatalf("EnvVars leaked internal map")
	}
}

func TestRequestMetadata(t *testing.T) {
	req := Default().Request()
	if req.Image != "supabase/realtime:v2.33.58" {
		t.Fatalf("request image = %q", req.Image)
	}
	if len(req.ExposedPorts) != 1 || req.ExposedPorts[0] != "4000/tcp" {
		t.Fatalf("exposed ports = %v", req.ExposedPorts)
	}
	if req.WaitingFor == nil {
		t.Fatalf("request has no wait strategy")
	}
}
