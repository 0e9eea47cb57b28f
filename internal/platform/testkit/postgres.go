//go:build integration_pg

package testkit

import (
	"context"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartPostgres boots a throwaway postgres:16-alpine container and returns the
// keyword/value parameters a dbconfig section would carry. The container is
// terminated on test cleanup
func StartPostgres(t *testing.T) map[string]string {
	t.Helper()

	// generous timeouts for the first image pull
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "quake",
			"POSTGRES_PASSWORD": "quake",
			"POSTGRES_DB":       "quakes",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	return map[string]string{
		"host":     host,
		"port":     mapped.Port(),
		"user":     "quake",
		"password": "quake",
		"dbname":   "quakes",
		"sslmode":  "disable",
	}
}
