// Package scenario runs the demonstration workloads that exercise order
// admission races: concurrent duplicates, sequential floor exhaustion and a
// consumer deactivated while orders are in flight. Every run creates its own
// supplier and consumer.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cimillas/client-ledger/internal/app"
	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/cimillas/client-ledger/internal/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	NameDuplicate    = "duplicate"
	NameFloor        = "floor"
	NameDeactivation = "deactivation"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// Names lists the runnable scenarios.
func Names() []string {
	return []string{NameDuplicate, NameFloor, NameDeactivation}
}

type ClientCreator interface {
	Create(ctx context.Context, in app.CreateClientInput) (domain.Client, error)
}

type OrderCreator interface {
	Create(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
}

type Deactivator interface {
	Deactivate(ctx context.Context, id string) error
}

// Attempt is one order creation made by a scenario.
type Attempt struct {
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	StartedAt time.Time       `json:"started_at"`
	OrderID   string          `json:"order_id,omitempty"`
	Outcome   string          `json:"outcome"`
	Error     string          `json:"error,omitempty"`
}

type Report struct {
	Scenario       string          `json:"scenario"`
	SupplierID     string          `json:"supplier_id"`
	ConsumerID     string          `json:"consumer_id"`
	Attempts       []Attempt       `json:"attempts"`
	Committed      int             `json:"committed"`
	Outcomes       map[string]int  `json:"outcomes"`
	SupplierProfit decimal.Decimal `json:"supplier_profit"`
	ConsumerProfit decimal.Decimal `json:"consumer_profit"`
	DeactivatedAt  *time.Time      `json:"deactivated_at,omitempty"`
	Elapsed        time.Duration   `json:"elapsed_ns"`
}

type Options struct {
	// DuplicateAttempts is the number of identical concurrent orders.
	DuplicateAttempts int
	// DeactivationOrders is the number of sequential orders in the
	// deactivation scenario, and DeactivationDelay how long after the first
	// one the consumer is deactivated.
	DeactivationOrders int
	DeactivationDelay  time.Duration
}

func DefaultOptions() Options {
	return Options{
		DuplicateAttempts:  5,
		DeactivationOrders: 5,
		DeactivationDelay:  12 * time.Second,
	}
}

type Runner struct {
	clients   ClientCreator
	reader    app.ClientReader
	orders    OrderCreator
	lifecycle Deactivator
	opts      Options
	logger    *slog.Logger
}

func NewRunner(clients ClientCreator, reader app.ClientReader, orders OrderCreator, lifecycle Deactivator, opts Options, logger *slog.Logger) *Runner {
	def := DefaultOptions()
	if opts.DuplicateAttempts <= 0 {
		opts.DuplicateAttempts = def.DuplicateAttempts
	}
	if opts.DeactivationOrders <= 0 {
		opts.DeactivationOrders = def.DeactivationOrders
	}
	if opts.DeactivationDelay <= 0 {
		opts.DeactivationDelay = def.DeactivationDelay
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{
		clients:   clients,
		reader:    reader,
		orders:    orders,
		lifecycle: lifecycle,
		opts:      opts,
		logger:    logger,
	}
}

// Run dispatches to the scenario with the given name.
func (r *Runner) Run(ctx context.Context, name string) (Report, error) {
	switch strings.ToLower(name) {
	case NameDuplicate:
		return r.Duplicate(ctx)
	case NameFloor:
		return r.FloorExhaustion(ctx)
	case NameDeactivation:
		return r.DeactivationRace(ctx)
	}
	return Report{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}

// Duplicate submits identical orders concurrently. Exactly one commits.
func (r *Runner) Duplicate(ctx context.Context) (Report, error) {
	start := time.Now()
	rep, err := r.setup(ctx, NameDuplicate, decimal.Zero)
	if err != nil {
		return Report{}, err
	}

	attempts := make([]Attempt, r.opts.DuplicateAttempts)
	var g errgroup.Group
	for i := range attempts {
		g.Go(func() error {
			attempts[i] = r.attempt(ctx, rep, "Book", decimal.NewFromInt(10))
			return nil
		})
	}
	_ = g.Wait()

	rep.Attempts = attempts
	return r.finish(ctx, rep, start)
}

// FloorExhaustion debits a consumer that starts at -970 with prices 10, 20,
// ..., 100 in sequence. Only the first order keeps the consumer above the floor.
func (r *Runner) FloorExhaustion(ctx context.Context) (Report, error) {
	start := time.Now()
	rep, err := r.setup(ctx, NameFloor, decimal.NewFromInt(-970))
	if err != nil {
		return Report{}, err
	}

	for price := 10; price <= 100; price += 10 {
		if ctx.Err() != nil {
			break
		}
		title := fmt.Sprintf("Phone %d", price)
		rep.Attempts = append(rep.Attempts, r.attempt(ctx, rep, title, decimal.NewFromInt(int64(price))))
	}
	return r.finish(ctx, rep, start)
}

// DeactivationRace creates orders one after another while the consumer is
// deactivated after a delay. Orders admitted before the deactivation commit,
// later ones are rejected.
func (r *Runner) DeactivationRace(ctx context.Context) (Report, error) {
	start := time.Now()
	rep, err := r.setup(ctx, NameDeactivation, decimal.Zero)
	if err != nil {
		return Report{}, err
	}

	var (
		mu            sync.Mutex
		deactivatedAt *time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		timer := time.NewTimer(r.opts.DeactivationDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-done:
			return nil
		case <-gctx.Done():
			return nil
		}
		if err := r.lifecycle.Deactivate(gctx, rep.ConsumerID); err != nil {
			return fmt.Errorf("deactivate consumer: %w", err)
		}
		now := time.Now().UTC()
		mu.Lock()
		deactivatedAt = &now
		mu.Unlock()
		r.logger.InfoContext(gctx, "scenario consumer deactivated", "scenario", NameDeactivation, "consumer_id", rep.ConsumerID)
		return nil
	})

	g.Go(func() error {
		defer close(done)
		for i := 0; i < r.opts.DeactivationOrders; i++ {
			if gctx.Err() != nil {
				return nil
			}
			a := r.attempt(gctx, rep, fmt.Sprintf("Laptop %d", i), decimal.NewFromInt(int64(100+i)))
			mu.Lock()
			rep.Attempts = append(rep.Attempts, a)
			mu.Unlock()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	rep.DeactivatedAt = deactivatedAt
	return r.finish(ctx, rep, start)
}

func (r *Runner) setup(ctx context.Context, name string, consumerOpening decimal.Decimal) (Report, error) {
	run := uuid.NewString()[:8]
	supplier, err := r.clients.Create(ctx, app.CreateClientInput{
		Name:     "Supplier",
		LastName: name,
		Email:    fmt.Sprintf("supplier-%s-%s@scenario.local", name, run),
	})
	if err != nil {
		return Report{}, fmt.Errorf("create supplier: %w", err)
	}
	consumer, err := r.clients.Create(ctx, app.CreateClientInput{
		Name:          "Consumer",
		LastName:      name,
		Email:         fmt.Sprintf("consumer-%s-%s@scenario.local", name, run),
		OpeningProfit: consumerOpening,
	})
	if err != nil {
		return Report{}, fmt.Errorf("create consumer: %w", err)
	}
	r.logger.InfoContext(ctx, "scenario started", "scenario", name, "supplier_id", supplier.ID, "consumer_id", consumer.ID)
	return Report{
		Scenario:   name,
		SupplierID: supplier.ID,
		ConsumerID: consumer.ID,
		Outcomes:   map[string]int{},
	}, nil
}

func (r *Runner) attempt(ctx context.Context, rep Report, title string, price decimal.Decimal) Attempt {
	a := Attempt{Title: title, Price: price, StartedAt: time.Now().UTC()}
	order, err := r.orders.Create(ctx, app.CreateOrderInput{
		Title:      title,
		SupplierID: rep.SupplierID,
		ConsumerID: rep.ConsumerID,
		Price:      price,
	})
	a.Outcome = app.Outcome(err)
	if err != nil {
		a.Error = err.Error()
		return a
	}
	a.OrderID = order.ID
	return a
}

func (r *Runner) finish(ctx context.Context, rep Report, start time.Time) (Report, error) {
	sort.SliceStable(rep.Attempts, func(i, j int) bool {
		return rep.Attempts[i].StartedAt.Before(rep.Attempts[j].StartedAt)
	})
	for _, a := range rep.Attempts {
		rep.Outcomes[a.Outcome]++
		if a.OrderID != "" {
			rep.Committed++
		}
	}

	supplier, err := r.reader.FindClient(ctx, rep.SupplierID)
	if err != nil {
		return Report{}, fmt.Errorf("read supplier balance: %w", err)
	}
	consumer, err := r.reader.FindClient(ctx, rep.ConsumerID)
	if err != nil {
		return Report{}, fmt.Errorf("read consumer balance: %w", err)
	}
	rep.SupplierProfit = supplier.Profit
	rep.ConsumerProfit = consumer.Profit
	rep.Elapsed = time.Since(start)

	r.logger.InfoContext(ctx, "scenario finished",
		"scenario", rep.Scenario,
		"committed", rep.Committed,
		"attempts", len(rep.Attempts),
		"consumer_profit", rep.ConsumerProfit.String(),
		"elapsed", rep.Elapsed,
	)
	return rep, nil
}
