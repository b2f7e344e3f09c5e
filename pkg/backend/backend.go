// Package backend drives services through the lifecycle mechanism available
// on the host: plain OS processes or systemd units.
package backend

import (
	"context"

	"github.com/core-tools/hsu-deploy/pkg/registry"
)

const (
	NameProcess = "process"
	NameSystemd = "systemd"
)

// LifecycleBackend is the capability set every host mechanism provides.
// Each call blocks until the step is complete on the host.
type LifecycleBackend interface {
	Name() string

	// Stop ends every running instance of the service; nothing running is a no-op
	Stop(ctx context.Context, service registry.ServiceName) error

	// Start launches the service from its build output without waiting for it
	Start(ctx context.Context, service registry.ServiceName) error

	// Build replaces the service's output directory with a fresh publish
	Build(ctx context.Context, service registry.ServiceName) error

	// Verify runs a test project and fails unless it passes
	Verify(ctx context.Context, project string) error
}
