package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shopie/internal/domain"
)

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "A", ShortDescription: "a", Price: 10, QuantityInStock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("no id")
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("get: %v", err)
	}

	p.Price = 12
	if err := store.Update(ctx, &p); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestMemoryStore_FindDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", ShortDescription: "a", Price: 10, QuantityInStock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}
	if _, err := store.FindDuplicate(ctx, "A", "a"); err != nil {
		t.Fatalf("expected duplicate found: %v", err)
	}
	if _, err := store.FindDuplicate(ctx, "A", "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_AdjustStock_Floor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", Price: 10, QuantityInStock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	left, err := store.AdjustStock(ctx, p.ID, -3)
	if err != nil || left != 2 {
		t.Fatalf("adjust: left=%v err=%v", left, err)
	}

	// would go negative: rejected, stock unchanged
	if _, err := store.AdjustStock(ctx, p.ID, -3); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.QuantityInStock != 2 {
		t.Fatalf("stock expected 2, got %v", got.QuantityInStock)
	}

	if _, err := store.AdjustStock(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_AdjustStock_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", Price: 10, QuantityInStock: 50}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	// 100 goroutines each take one; only 50 can win
	var wg sync.WaitGroup
	var failures int64
	var mu sync.Mutex
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AdjustStock(ctx, p.ID, -1); err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := store.GetByID(ctx, p.ID)
	if got.QuantityInStock != 0 {
		t.Fatalf("stock expected 0, got %v", got.QuantityInStock)
	}
	if failures != 50 {
		t.Fatalf("expected 50 rejected, got %v", failures)
	}
}

func TestMemoryCarts_AddRemoveClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	carts := NewMemoryCarts(store)

	it, err := carts.AddOne(ctx, "u1", 1)
	if err != nil || it.Quantity != 1 {
		t.Fatalf("add: %v %v", it, err)
	}
	it, _ = carts.AddOne(ctx, "u1", 1)
	if it.Quantity != 2 {
		t.Fatalf("increment expected, got %v", it.Quantity)
	}
	if _, err := carts.AddOne(ctx, "u1", 2); err != nil {
		t.Fatal(err)
	}

	items, _ := carts.Items(ctx, "u1")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", len(items))
	}
	// insertion order is preserved
	if items[0].ProductID != 1 || items[1].ProductID != 2 {
		t.Fatalf("order broken: %+v", items)
	}

	removed, err := carts.Remove(ctx, "u1", 1)
	if err != nil || removed.Quantity != 2 {
		t.Fatalf("remove: %v %v", removed, err)
	}
	if _, err := carts.Remove(ctx, "u1", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := carts.Clear(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	items, _ = carts.Items(ctx, "u1")
	if len(items) != 0 {
		t.Fatalf("expected empty cart")
	}
}

func TestMemoryOrders_OwnerScopedGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	o := domain.Order{UserID: "u1", TotalPrice: 10, Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{{ProductID: 1, Quantity: 1, Price: 10}}}
	if err := orders.Create(ctx, &o); err != nil {
		t.Fatal(err)
	}

	if _, err := orders.GetByIDForUser(ctx, o.ID, "u1"); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if _, err := orders.GetByIDForUser(ctx, o.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign user must see not found, got %v", err)
	}
}

func TestMemoryOrders_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.PutUser(domain.User{ID: "u1", Name: "John Smith", Email: "john@example.com"})
	store.PutUser(domain.User{ID: "u2", Name: "Jane Doe", Email: "jane@example.com"})
	orders := NewMemoryOrders(store)

	mk := func(user string, status domain.OrderStatus, total float64) {
		o := domain.Order{UserID: user, TotalPrice: total, Status: status}
		if err := orders.Create(ctx, &o); err != nil {
			t.Fatal(err)
		}
	}
	mk("u1", domain.OrderStatusPending, 10)
	mk("u1", domain.OrderStatusDelivered, 20)
	mk("u2", domain.OrderStatusDelivered, 30)

	// by status
	st := domain.OrderStatusDelivered
	list, err := orders.List(ctx, OrderFilter{Status: &st})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 delivered, got %v", len(list))
	}

	// by user substring
	list, _ = orders.List(ctx, OrderFilter{Search: "jane"})
	if len(list) != 1 || list[0].UserID != "u2" {
		t.Fatalf("search filter: %+v", list)
	}

	// by date window excluding everything
	past := time.Now().Add(-2 * time.Hour)
	list, _ = orders.List(ctx, OrderFilter{To: &past})
	if len(list) != 0 {
		t.Fatalf("date filter: %+v", list)
	}

	// per-user listing
	list, _ = orders.ListByUser(ctx, "u1")
	if len(list) != 2 {
		t.Fatalf("expected 2 orders for u1, got %v", len(list))
	}
}

func TestMemoryOrders_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	mk := func(status domain.OrderStatus, total float64) {
		o := domain.Order{UserID: "u1", TotalPrice: total, Status: status}
		if err := orders.Create(ctx, &o); err != nil {
			t.Fatal(err)
		}
	}
	mk(domain.OrderStatusDelivered, 100)
	mk(domain.OrderStatusDelivered, 50)
	mk(domain.OrderStatusPending, 999)
	mk(domain.OrderStatusCancelled, 999)

	stats, err := orders.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalOrders != 4 {
		t.Fatalf("total orders: %v", stats.TotalOrders)
	}
	if stats.TotalRevenue != 150 {
		t.Fatalf("revenue must count delivered only: %v", stats.TotalRevenue)
	}
	if stats.StatusCounts[domain.OrderStatusDelivered] != 2 {
		t.Fatalf("status counts: %v", stats.StatusCounts)
	}
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// seed product
	p := domain.Product{Name: "A", Price: 10, QuantityInStock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	// emulate atomic checkout: reserve then create order under one lock
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := store.AdjustStock(ctx, p.ID, -3); err != nil {
			return err
		}
		o := domain.Order{UserID: "u1", TotalPrice: 30, Status: domain.OrderStatusPending,
			Items: []domain.OrderItem{{ProductID: p.ID, Quantity: 3, Price: 10}}}
		return orders.Create(ctx, &o)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	// check stock after
	pp, _ := store.GetByID(context.Background(), p.ID)
	if pp.QuantityInStock != 2 {
		t.Fatalf("stock expected 2, got %v", pp.QuantityInStock)
	}
}
