package server

import (
	"context"

	"github.com/dragonpay/backend/internal/archive"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// ArchiveHealthService verifies archive connectivity as part of
// health checks.
type ArchiveHealthService struct {
	Client archive.Client
}

// Probe implements the HealthService interface.
func (s ArchiveHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}
