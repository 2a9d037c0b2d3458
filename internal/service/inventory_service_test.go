package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"shopie/internal/domain"
)

func TestInventory_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	p, _ := env.products.Create(ctx, domain.Product{Name: "SSD", Price: 60, QuantityInStock: 10})

	left, err := env.inventory.Reserve(ctx, p.ID, 4)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if left != 6 {
		t.Fatalf("expected 6 left, got %v", left)
	}

	// over-reserve fails and leaves stock unchanged
	if _, err := env.inventory.Reserve(ctx, p.ID, 7); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
	pp, _ := env.products.GetByID(ctx, p.ID)
	if pp.QuantityInStock != 6 {
		t.Fatalf("stock changed on failed reserve: %v", pp.QuantityInStock)
	}

	// release has no upper bound
	if err := env.inventory.Release(ctx, p.ID, 100); err != nil {
		t.Fatalf("release: %v", err)
	}
	pp, _ = env.products.GetByID(ctx, p.ID)
	if pp.QuantityInStock != 106 {
		t.Fatalf("expected 106, got %v", pp.QuantityInStock)
	}
}

func TestInventory_ReserveValidation(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	if _, err := env.inventory.Reserve(ctx, 0, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := env.inventory.Reserve(ctx, 1, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := env.inventory.Release(ctx, 1, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestInventory_LowStockAlert(t *testing.T) {
	ctx := context.Background()
	env := setup(t) // threshold is 5
	p, _ := env.products.Create(ctx, domain.Product{Name: "Webcam", Price: 40, QuantityInStock: 6})

	if _, err := env.inventory.Reserve(ctx, p.ID, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	m := waitMail(t, env.mail, "low-stock-alert")
	if m.To != "admin@example.com" {
		t.Fatalf("alert to %v", m.To)
	}
	if m.Context["productName"] != "Webcam" {
		t.Fatalf("alert context: %v", m.Context)
	}
}

func TestInventory_ConcurrentReserveRace(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	p, _ := env.products.Create(ctx, domain.Product{Name: "CPU", Price: 300, QuantityInStock: 1})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.inventory.Reserve(ctx, p.ID, 1)
		}(i)
	}
	wg.Wait()

	var ok, oos int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrOutOfStock):
			oos++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || oos != 1 {
		t.Fatalf("expected one success and one out-of-stock, got ok=%d oos=%d", ok, oos)
	}
	pp, _ := env.products.GetByID(ctx, p.ID)
	if pp.QuantityInStock != 0 {
		t.Fatalf("stock must be 0, never negative: %v", pp.QuantityInStock)
	}
}
