package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopie/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	nextOrderID  int64
	productsByID map[int64]domain.Product
	ordersByID   map[int64]domain.Order
	cartsByUser  map[string][]domain.CartItem
	usersByID    map[string]domain.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:   1,
		nextOrderID:  1,
		productsByID: make(map[int64]domain.Product),
		ordersByID:   make(map[int64]domain.Order),
		cartsByUser:  make(map[string][]domain.CartItem),
		usersByID:    make(map[string]domain.User),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.nextProdID
	m.nextProdID++
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if !containsIgnoreCase(p.Name, f.Search) && !containsIgnoreCase(p.ShortDescription, f.Search) {
			continue
		}
		if f.MaxStock != nil && p.QuantityInStock >= *f.MaxStock {
			continue
		}
		out = append(out, p)
	}
	if f.MaxStock != nil {
		// low-stock report wants the emptiest shelves first
		sort.Slice(out, func(i, j int) bool { return out[i].QuantityInStock < out[j].QuantityInStock })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	return out, nil
}

func (m *MemoryStore) FindDuplicate(ctx context.Context, name, shortDescription string) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	for _, p := range m.productsByID {
		if p.Name == name && p.ShortDescription == shortDescription {
			cp := p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return 0, ErrNotFound
	}
	next := p.QuantityInStock + delta
	if next < 0 {
		return p.QuantityInStock, ErrInsufficientStock
	}
	p.QuantityInStock = next
	m.productsByID[id] = p
	return next, nil
}

// PutUser наполняет справочник пользователей (сидинг и тесты)
func (m *MemoryStore) PutUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usersByID[u.ID] = u
}

// UserRepository implementation on wrapper type
type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserRepository = (*MemoryUsers)(nil)

func (mu *MemoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	u, ok := mu.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

// CartRepository implementation on wrapper type
type MemoryCarts struct{ store *MemoryStore }

func NewMemoryCarts(store *MemoryStore) *MemoryCarts { return &MemoryCarts{store: store} }

var _ CartRepository = (*MemoryCarts)(nil)

func (mc *MemoryCarts) Items(ctx context.Context, userID string) ([]domain.CartItem, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	items := mc.store.cartsByUser[userID]
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out, nil
}

func (mc *MemoryCarts) AddOne(ctx context.Context, userID string, productID int64) (*domain.CartItem, error) {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	items := mc.store.cartsByUser[userID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity++
			cp := items[i]
			return &cp, nil
		}
	}
	it := domain.CartItem{UserID: userID, ProductID: productID, Quantity: 1}
	mc.store.cartsByUser[userID] = append(items, it)
	return &it, nil
}

func (mc *MemoryCarts) Remove(ctx context.Context, userID string, productID int64) (*domain.CartItem, error) {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	items := mc.store.cartsByUser[userID]
	for i := range items {
		if items[i].ProductID == productID {
			removed := items[i]
			mc.store.cartsByUser[userID] = append(items[:i], items[i+1:]...)
			return &removed, nil
		}
	}
	return nil, ErrNotFound
}

func (mc *MemoryCarts) Clear(ctx context.Context, userID string) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	delete(mc.store.cartsByUser, userID)
	return nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	mo.store.ordersByID[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

func (mo *MemoryOrders) GetByIDForUser(ctx context.Context, id int64, userID string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	return copyOrder(o), nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	mo.store.ordersByID[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id int64) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[id]; !ok {
		return ErrNotFound
	}
	delete(mo.store.ordersByID, id)
	return nil
}

func (mo *MemoryOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.UserID == userID {
			out = append(out, *copyOrder(o))
		}
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		if f.Search != "" {
			u, ok := mo.store.usersByID[o.UserID]
			if !ok {
				continue
			}
			if !containsIgnoreCase(u.Name, f.Search) && !containsIgnoreCase(u.Email, f.Search) {
				continue
			}
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, *copyOrder(o))
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func (mo *MemoryOrders) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	stats := &domain.DashboardStats{StatusCounts: make(map[domain.OrderStatus]int64)}
	for _, o := range mo.store.ordersByID {
		stats.TotalOrders++
		stats.StatusCounts[o.Status]++
		if o.Status == domain.OrderStatusDelivered {
			stats.TotalRevenue += o.TotalPrice
		}
	}
	return stats, nil
}

func copyOrder(o domain.Order) *domain.Order {
	cp := o
	cp.Items = make([]domain.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

func sortOrdersNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
