package functions

import (
	"reflect"
	"testing"
)

func TestDefaultConfiguration(t *testing.T) {
	f := Default()
	env := f.EnvVars()
	if env["PORT"] != "9000" {
		t.Fatalf("PORT = %q", env["PORT"])
	}
	if env["VERIFY_JWT"] != "true" {
		t.Fatalf("VERIFY_JWT = %q", env["VERIFY_JWT"])
	}
	if f.MainServicePath() != "/home/deno/functions" {
		t.Fatalf("main service path = %q", f.MainServicePath())
	}
}

func TestImageMetadata(t *testing.T) {
	f := Default()
	if f.Name() != "supabase/edge-runtime" {
		t.Fatalf("name = %q", f.Name())
	}
	if f.Tag() != "v1.67.4" {
		t.Fatalf("tag = %q", f.Tag())
	}
	if f.Image() != "supabase/edge-runtime:v1.67.4" {
		t.Fatalf("image = %q", f.Image())
	}
	if f.Port() != "9000/tcp" {
		t.Fatalf("port = %q", f.Port())
	}
}

func TestCmdReturnsStartupCommand(t *testing.T) {
	got := Default().Cmd()
	want := []string{"start", "--main-service", "/home/deno/functions"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cmd = %v, want %v", got, want)
	}
}

func TestCmdWithCustomPath(t *testing.T) {
	got := Default().WithMainServicePath("/custom/functions").Cmd()
	if got[2] != "/custom/functions" {
		t.Fatalf("cmd path = %q", got[2])
	}
}

func TestBuilderMethodChaining(t *testing.T) {
	env := Default().
		WithJWTSecret("a-secret-of-at-least-32-characters!!").
		WithSupabaseURL("http://kong:8000").
		WithAnonKey("anon-key").
		WithServiceRoleKey("service-key").
		WithDatabaseURL("postgres://u:p@h:5432/db").
		WithVerifyJWT(false).
		WithPort(9001).
		WithWorkerTimeoutMS(30000).
		WithMaxParallelism(4).
		EnvVars()

	checks := map[string]string{
		"JWT_SECRET":                "a-secret-of-at-least-32-characters!!",
		"SUPABASE_URL":              "http://kong:8000",
		"SUPABASE_ANON_KEY":         "anon-key",
		"SUPABASE_SERVICE_ROLE_KEY": "service-key",
		"SUPABASE_DB_URL":           "postgres://u:p@h:5432/db",
		"VERIFY_JWT":                "false",
		"PORT":                      "9001",
		"WORKER_TIMEOUT_MS":         "30000",
		"MAX_PARALLELISM":           "4",
	}
	for k, v := range checks {
		if env[k] != v {
			t.Fatalf("env %s = %q, want %q", k, env[k], v)
		}
	}
}

func TestRequestCarriesCmd(t *testing.T) {
	req := Default().WithMainServicePath("/srv/fns").Request()
	want := []string{"start", "--main-service", "/srv/fns"}
	if !reflect.DeepEqual(req.Cmd, want) {
		t.Fatalf("request cmd = %v, want %v", req.Cmd, want)
	}
	if req.Image != "supabase/edge-runtime:v1.67.4" {
		t.Fatalf("request image = %q", req.Image)
	}
	if len(req.ExposedPorts) != 1 || req.ExposedPorts[0] != "9000/tcp" {
		t.Fatalf("exposed ports = %v", req.ExposedPorts)
	}
}

func TestNewWithEnvOverridesDefaults(t *testing.T) {
	env := NewWithEnv(map[string]string{"VERIFY_JWT": "false"}).EnvVars()
	if env["VERIFY_JWT"] != "false" {
		t.Fatalf("override lost")
	}
	if env["PORT"] != "9000" {
		t.Fatalf("defaults lost: %v", env)
	}
}
