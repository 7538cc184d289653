package app

import (
	"context"
	"log/slog"

	"github.com/cimillas/client-ledger/internal/clock"
	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/cimillas/client-ledger/internal/logging"
)

// LifecycleService deactivates and recovers clients. Transitions advance the
// client's StateVersion only; orders already past admission are unaffected.
type LifecycleService struct {
	repo   ClientRepository
	clock  clock.Clock
	logger *slog.Logger
}

func NewLifecycleService(repo ClientRepository, clk clock.Clock, logger *slog.Logger) *LifecycleService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &LifecycleService{repo: repo, clock: clk, logger: logger}
}

// Deactivate marks an active client inactive. It does not wait for orders
// that are in their processing window.
func (s *LifecycleService) Deactivate(ctx context.Context, id string) error {
	client, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !client.Active {
		return domain.ErrClientNotFound
	}

	now := s.clock.Now()
	expected := client.StateVersion
	client.Active = false
	client.InactiveAt = &now
	if err := s.repo.UpdateClient(ctx, client, expected); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "client deactivated", "client_id", id, "inactive_at", now)
	return nil
}

// Recover reactivates an inactive client.
func (s *LifecycleService) Recover(ctx context.Context, id string) error {
	client, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if client.Active {
		return domain.ErrClientAlreadyActive
	}

	expected := client.StateVersion
	client.Active = true
	client.InactiveAt = nil
	if err := s.repo.UpdateClient(ctx, client, expected); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "client recovered", "client_id", id)
	return nil
}

func (s *LifecycleService) load(ctx context.Context, id string) (domain.Client, error) {
	id, ok := canonicalID(id)
	if !ok {
		return domain.Client{}, domain.ErrInvalidID
	}
	return s.repo.FindClient(ctx, id)
}
