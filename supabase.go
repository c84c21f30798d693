// Package supabase holds constants shared by the service container packages.
//
// Each Supabase service lives in its own package (auth, analytics, functions,
// graphql, postgrest, realtime, storage). They all follow the same shape: a
// builder seeded by Default(), fluent setters that write environment
// variables, and a Run method that hands the assembled request to
// testcontainers-go.
package supabase

const (
	// DockerInternalHost is the hostname containers use to reach the host
	// machine. Connection strings handed to one container that point at a
	// port published by another usually go through this host.
	DockerInternalHost = "host.docker.internal"

	// LocalHost is the address test code on the host uses to reach
	// published container ports.
	LocalHost = "localhost"
)
