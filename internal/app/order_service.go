package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cimillas/client-ledger/internal/clock"
	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/cimillas/client-ledger/internal/ledger"
	"github.com/cimillas/client-ledger/internal/logging"
	"github.com/cimillas/client-ledger/internal/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

const (
	minTitleLen = 3
	maxTitleLen = 200
)

// OrderService admits, processes and commits orders and manages them afterwards.
type OrderService struct {
	orders  OrderRepository
	clients ClientReader
	clock   clock.Clock
	window  clock.Window
	guard   ledger.Guard
	unique  ledger.UniquenessGuard
	logger  *slog.Logger
	metrics *metrics.Recorder
	cache   OrderCache
	slots   *semaphore.Weighted
}

type OrderServiceOption func(*OrderService)

func WithLogger(l *slog.Logger) OrderServiceOption {
	return func(s *OrderService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(r *metrics.Recorder) OrderServiceOption {
	return func(s *OrderService) {
		s.metrics = r
	}
}

// WithMaxInFlight bounds how many admissions may be between admission and
// commit at once. Further callers wait for a slot; n <= 0 leaves it unbounded.
func WithMaxInFlight(n int) OrderServiceOption {
	return func(s *OrderService) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithOrderCache(c OrderCache) OrderServiceOption {
	return func(s *OrderService) {
		s.cache = c
	}
}

func NewOrderService(orders OrderRepository, clients ClientReader, clk clock.Clock, window clock.Window, opts ...OrderServiceOption) *OrderService {
	svc := &OrderService{
		orders:  orders,
		clients: clients,
		clock:   clk,
		window:  window,
		guard:   ledger.NewGuard(),
		unique:  ledger.NewUniquenessGuard(orders),
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateOrderInput struct {
	Title      string
	SupplierID string
	ConsumerID string
	Price      decimal.Decimal
}

// Validate performs the checks that need no I/O.
func (in CreateOrderInput) Validate() error {
	ve := &domain.ValidationError{}
	title := strings.TrimSpace(in.Title)
	if n := len([]rune(title)); n < minTitleLen || n > maxTitleLen {
		ve.Add("title", fmt.Sprintf("must be %d to %d characters", minTitleLen, maxTitleLen))
	}
	checkID(ve, "supplier_id", in.SupplierID)
	checkID(ve, "consumer_id", in.ConsumerID)
	if !domain.ValidPrice(in.Price) {
		ve.Add("price", domain.ErrInvalidPrice.Error())
	}
	return ve.Err()
}

func checkID(ve *domain.ValidationError, field, id string) {
	if id == "" {
		ve.Add(field, "is required")
		return
	}
	if _, ok := canonicalID(id); !ok {
		ve.Add(field, "must be a UUID")
	}
}

// normalize trims the title and rewrites well-formed party ids to their
// canonical spelling. Malformed ids are left for Validate to report.
func (in *CreateOrderInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if id, ok := canonicalID(in.SupplierID); ok {
		in.SupplierID = id
	}
	if id, ok := canonicalID(in.ConsumerID); ok {
		in.ConsumerID = id
	}
}

// Create runs admission, waits out the processing window, then commits the
// order together with both balance changes.
//
// Whether the parties are active is decided once, at admission. A party
// deactivated while the order sits in the processing window does not stop the
// commit; an order admitted after the deactivation is rejected.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	in.normalize()
	order, err := s.create(ctx, in)
	s.metrics.Admission(Outcome(err))
	return order, err
}

func (s *OrderService) create(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := in.Validate(); err != nil {
		return domain.Order{}, err
	}

	if s.slots != nil {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return domain.Order{}, fmt.Errorf("wait for admission slot: %w", err)
		}
		defer s.slots.Release(1)
	}
	defer s.metrics.Enter()()

	log := s.logger.With("supplier_id", in.SupplierID, "consumer_id", in.ConsumerID, "title", in.Title, "price", in.Price.String())

	supplier, err := s.snapshot(ctx, in.SupplierID)
	if err != nil {
		return domain.Order{}, err
	}
	consumer, err := s.snapshot(ctx, in.ConsumerID)
	if err != nil {
		return domain.Order{}, err
	}

	projected, err := s.guard.Check(ledger.Admission{
		SupplierID: in.SupplierID,
		ConsumerID: in.ConsumerID,
		Supplier:   supplier,
		Consumer:   consumer,
		Price:      in.Price,
	})
	if err != nil {
		log.WarnContext(ctx, "order admission denied", "reason", err)
		return domain.Order{}, err
	}

	key := domain.BusinessKey{Title: in.Title, SupplierID: in.SupplierID, ConsumerID: in.ConsumerID}
	if err := s.unique.Check(ctx, key); err != nil {
		log.WarnContext(ctx, "order admission denied", "reason", err)
		return domain.Order{}, err
	}

	admittedAt := s.clock.Now()
	log.InfoContext(ctx, "order admitted, processing", "consumer_projected_profit", projected.String())

	waited, err := s.window.Wait(ctx)
	if err != nil {
		log.ErrorContext(ctx, "order processing interrupted", "error", err)
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrInterrupted, err)
	}
	s.metrics.ObserveWindow(waited)

	order := domain.Order{
		ID:          newID(),
		Title:       in.Title,
		SupplierID:  in.SupplierID,
		ConsumerID:  in.ConsumerID,
		Price:       in.Price,
		Active:      true,
		Version:     1,
		AdmittedAt:  admittedAt,
		ProcessedAt: s.clock.Now(),
	}
	// Stamped before the commit so the persisted row and the returned order
	// carry the same value. A failed commit discards it.
	order.CommittedAt = s.clock.Now()

	start := time.Now()
	err = s.orders.CommitOrder(ctx, order,
		domain.BalanceChange{ClientID: supplier.ID, ExpectedVersion: supplier.Version, Profit: supplier.Profit.Add(in.Price)},
		domain.BalanceChange{ClientID: consumer.ID, ExpectedVersion: consumer.Version, Profit: projected},
	)
	s.metrics.ObserveCommit(time.Since(start))
	if err != nil {
		log.WarnContext(ctx, "order commit rejected", "error", err, "waited", waited)
		return domain.Order{}, err
	}

	log.InfoContext(ctx, "order committed",
		"order_id", order.ID,
		"waited", waited,
		"supplier_profit", supplier.Profit.Add(in.Price).String(),
		"consumer_profit", projected.String(),
	)
	return order, nil
}

// snapshot returns nil for a missing client so the guard can reject it.
func (s *OrderService) snapshot(ctx context.Context, id string) (*domain.Client, error) {
	c, err := s.clients.FindClient(ctx, id)
	if errors.Is(err, domain.ErrClientNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", id, err)
	}
	return &c, nil
}

// Get returns an active order.
func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	id, ok := canonicalID(id)
	if !ok {
		return domain.Order{}, domain.ErrInvalidID
	}

	if s.cache != nil {
		cached, err := s.cache.GetOrder(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "order cache read failed", "order_id", id, "error", err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	order, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Active {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	if s.cache != nil {
		s.fill(ctx, order)
	}
	return order, nil
}

// fill caches order, then re-reads the row. A write that landed between the
// first read and the cache write has already run its invalidation, so the
// entry is dropped here instead of being served until it expires.
func (s *OrderService) fill(ctx context.Context, order domain.Order) {
	if err := s.cache.SetOrder(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "order cache write failed", "order_id", order.ID, "error", err)
		return
	}
	current, err := s.orders.FindOrder(ctx, order.ID)
	if err == nil && current.Active && current.Version == order.Version {
		return
	}
	s.invalidate(ctx, order.ID)
}

// ListByClient returns active orders where the client is either party.
func (s *OrderService) ListByClient(ctx context.Context, clientID string) ([]domain.Order, error) {
	return s.list(ctx, clientID, func(id string) domain.OrderFilter { return domain.OrderFilter{ClientID: id} })
}

func (s *OrderService) ListBySupplier(ctx context.Context, supplierID string) ([]domain.Order, error) {
	return s.list(ctx, supplierID, func(id string) domain.OrderFilter { return domain.OrderFilter{SupplierID: id} })
}

func (s *OrderService) ListByConsumer(ctx context.Context, consumerID string) ([]domain.Order, error) {
	return s.list(ctx, consumerID, func(id string) domain.OrderFilter { return domain.OrderFilter{ConsumerID: id} })
}

func (s *OrderService) list(ctx context.Context, id string, filter func(string) domain.OrderFilter) ([]domain.Order, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, domain.ErrInvalidID
	}
	return s.orders.ListOrders(ctx, filter(id))
}

// UpdatePrice changes an active order's price and moves the difference
// between the two balances in the same version-checked commit.
func (s *OrderService) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) (domain.Order, error) {
	if !domain.ValidPrice(price) {
		return domain.Order{}, domain.NewValidationError("price", domain.ErrInvalidPrice)
	}
	id, ok := canonicalID(id)
	if !ok {
		return domain.Order{}, domain.ErrInvalidID
	}
	// Reprice against the stored row, never the cached copy.
	order, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Active {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	supplier, err := s.clients.FindClient(ctx, order.SupplierID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load supplier: %w", err)
	}
	consumer, err := s.clients.FindClient(ctx, order.ConsumerID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load consumer: %w", err)
	}

	supplierProfit, consumerProfit, err := s.guard.Reprice(supplier.Profit, consumer.Profit, order.Price, price)
	if err != nil {
		return domain.Order{}, err
	}

	err = s.orders.RepriceOrder(ctx, order.ID, price, order.Version,
		domain.BalanceChange{ClientID: supplier.ID, ExpectedVersion: supplier.Version, Profit: supplierProfit},
		domain.BalanceChange{ClientID: consumer.ID, ExpectedVersion: consumer.Version, Profit: consumerProfit},
	)
	s.invalidate(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.InfoContext(ctx, "order repriced", "order_id", id, "old_price", order.Price.String(), "new_price", price.String())
	order.Price = price
	order.Version++
	return order, nil
}

// Deactivate soft-deletes an order. Balances are not reverted and the
// business key stays taken.
func (s *OrderService) Deactivate(ctx context.Context, id string) error {
	id, ok := canonicalID(id)
	if !ok {
		return domain.ErrInvalidID
	}
	order, err := s.orders.FindOrder(ctx, id)
	if err != nil {
		return err
	}
	err = s.orders.DeactivateOrder(ctx, id, order.Version)
	s.invalidate(ctx, id)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "order deactivated", "order_id", id)
	return nil
}

// Delete removes an order for good. Balances are not reverted.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	id, ok := canonicalID(id)
	if !ok {
		return domain.ErrInvalidID
	}
	err := s.orders.DeleteOrder(ctx, id)
	s.invalidate(ctx, id)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "order deleted", "order_id", id)
	return nil
}

func (s *OrderService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrder(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "order cache invalidation failed", "order_id", id, "error", err)
	}
}

// Outcome classifies the result of Create for metrics and reports.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCommitted
	case errors.Is(err, domain.ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, domain.ErrPartyInactiveOrMissing):
		return metrics.OutcomeInactive
	case errors.Is(err, domain.ErrProfitFloorBreached):
		return metrics.OutcomeFloor
	case errors.Is(err, domain.ErrDuplicateBusinessKey):
		return metrics.OutcomeDuplicate
	case errors.Is(err, domain.ErrVersionConflict):
		return metrics.OutcomeVersion
	case errors.Is(err, domain.ErrInterrupted):
		return metrics.OutcomeInterrupted
	default:
		return metrics.OutcomeInternalError
	}
}
