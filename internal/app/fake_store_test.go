package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory client and order store with the same conditional
// write semantics as the SQL stores.
type memStore struct {
	mu      sync.Mutex
	clients map[string]domain.Client
	orders  map[string]domain.Order

	// beforeCommit, when set, runs before CommitOrder takes the lock.
	beforeCommit func()
	commits      int
}

func newMemStore() *memStore {
	return &memStore{
		clients: make(map[string]domain.Client),
		orders:  make(map[string]domain.Order),
	}
}

// seed inserts an active client with the given balance and returns its id.
func (m *memStore) seed(t *testing.T, profit string) string {
	t.Helper()
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[id] = domain.Client{
		ID:           id,
		Name:         "Test",
		LastName:     "Client",
		Email:        id + "@example.com",
		Active:       true,
		Profit:       decimal.RequireFromString(profit),
		Version:      1,
		StateVersion: 1,
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	return id
}

func (m *memStore) client(t *testing.T, id string) domain.Client {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	require.True(t, ok, "client %s missing", id)
	return c
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memStore) FindClient(_ context.Context, id string) (domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound
	}
	return c, nil
}

func (m *memStore) ExistsByEmail(_ context.Context, email, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.ID != excludeID && strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ExistsByPhone(_ context.Context, phone, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.ID != excludeID && c.Phone != "" && c.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateClient(_ context.Context, client domain.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.Email == client.Email {
			return domain.ErrEmailTaken
		}
	}
	m.clients[client.ID] = client
	return nil
}

func (m *memStore) UpdateClient(_ context.Context, client domain.Client, expectedStateVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.clients[client.ID]
	if !ok {
		return domain.ErrClientNotFound
	}
	if cur.StateVersion != expectedStateVersion {
		return domain.ErrVersionConflict
	}
	cur.Name = client.Name
	cur.LastName = client.LastName
	cur.Email = client.Email
	cur.Address = client.Address
	cur.Phone = client.Phone
	cur.Active = client.Active
	cur.InactiveAt = client.InactiveAt
	cur.StateVersion++
	m.clients[client.ID] = cur
	return nil
}

func (m *memStore) SearchActiveClients(_ context.Context, keyword string, page domain.Page) ([]domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kw := strings.ToLower(keyword)
	var out []domain.Client
	for _, c := range m.clients {
		if !c.Active {
			continue
		}
		hay := strings.ToLower(strings.Join([]string{c.Name, c.LastName, c.Email, c.Address}, " "))
		if strings.Contains(hay, kw) {
			out = append(out, c)
		}
	}
	return paginate(out, page), nil
}

func (m *memStore) ListClientsByProfit(_ context.Context, min, max decimal.Decimal, page domain.Page) ([]domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Client
	for _, c := range m.clients {
		if c.Profit.GreaterThanOrEqual(min) && c.Profit.LessThanOrEqual(max) {
			out = append(out, c)
		}
	}
	return paginate(out, page), nil
}

func paginate(in []domain.Client, page domain.Page) []domain.Client {
	sort.Slice(in, func(i, j int) bool { return in[i].ID < in[j].ID })
	start := page.Offset()
	if start >= len(in) {
		return nil
	}
	end := start + page.Size
	if end > len(in) {
		end = len(in)
	}
	return in[start:end]
}

func (m *memStore) ResetAllProfit(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.clients {
		c.Profit = decimal.Zero
		c.Version++
		m.clients[id] = c
	}
	return int64(len(m.clients)), nil
}

func (m *memStore) ExistsByBusinessKey(_ context.Context, key domain.BusinessKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

// applyLocked checks every change before writing any of them.
func (m *memStore) applyLocked(changes []domain.BalanceChange) error {
	for _, ch := range changes {
		c, ok := m.clients[ch.ClientID]
		if !ok || c.Version != ch.ExpectedVersion {
			return domain.ErrVersionConflict
		}
	}
	for _, ch := range changes {
		c := m.clients[ch.ClientID]
		c.Profit = ch.Profit
		c.Version++
		m.clients[ch.ClientID] = c
	}
	return nil
}

func (m *memStore) CommitOrder(_ context.Context, order domain.Order, changes ...domain.BalanceChange) error {
	if m.beforeCommit != nil {
		m.beforeCommit()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.Key() == order.Key() {
			return domain.ErrDuplicateBusinessKey
		}
	}
	if err := m.applyLocked(changes); err != nil {
		return err
	}
	m.orders[order.ID] = order
	m.commits++
	return nil
}

func (m *memStore) FindOrder(_ context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (m *memStore) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if !o.Active {
			continue
		}
		switch {
		case f.ClientID != "" && o.SupplierID != f.ClientID && o.ConsumerID != f.ClientID:
			continue
		case f.SupplierID != "" && o.SupplierID != f.SupplierID:
			continue
		case f.ConsumerID != "" && o.ConsumerID != f.ConsumerID:
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommittedAt.Before(out[j].CommittedAt) })
	return out, nil
}

func (m *memStore) RepriceOrder(_ context.Context, id string, price decimal.Decimal, expectedVersion int64, changes ...domain.BalanceChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !o.Active {
		return domain.ErrOrderNotFound
	}
	if o.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	if err := m.applyLocked(changes); err != nil {
		return err
	}
	o.Price = price
	o.Version++
	m.orders[id] = o
	return nil
}

func (m *memStore) DeactivateOrder(_ context.Context, id string, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !o.Active {
		return domain.ErrOrderNotFound
	}
	if o.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	o.Active = false
	o.Version++
	m.orders[id] = o
	return nil
}

func (m *memStore) DeleteOrder(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

// gateWindow blocks every caller until release is closed. entered receives
// one value per caller that reached the window.
type gateWindow struct {
	entered chan struct{}
	release chan struct{}
}

func newGateWindow(buffer int) *gateWindow {
	return &gateWindow{
		entered: make(chan struct{}, buffer),
		release: make(chan struct{}),
	}
}

func (g *gateWindow) Wait(ctx context.Context) (time.Duration, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return time.Millisecond, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (g *gateWindow) awaitEntered(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-g.entered:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d callers reached the window", i, n)
		}
	}
}

type noWindow struct{}

func (noWindow) Wait(context.Context) (time.Duration, error) { return 0, nil }
