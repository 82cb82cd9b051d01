// Package timeouts defines shared timeout constants for the service boundaries.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP and gRPC servers wait for in-flight
// requests during graceful shutdown.
const Shutdown = 5 * time.Second

// Upload caps the time a single assignment upload may take end to end.
const Upload = 30 * time.Second

// HealthCheck bounds a single gRPC health probe.
const HealthCheck = time.Second

// HealthWait limits how long a client waits for a server to report SERVING.
const HealthWait = 10 * time.Second
