package service

import (
	"context"
	"errors"
	"testing"

	"shopie/internal/domain"
	"shopie/internal/repository"
)

func TestCart_AddAndIncrement(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	p, _ := env.products.Create(ctx, domain.Product{Name: "Pen", Price: 2, QuantityInStock: 3})

	it, err := env.carts.AddToCart(ctx, "u1", p.ID)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if it.Quantity != 1 {
		t.Fatalf("expected qty 1, got %v", it.Quantity)
	}
	it, err = env.carts.AddToCart(ctx, "u1", p.ID)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if it.Quantity != 2 {
		t.Fatalf("expected qty 2, got %v", it.Quantity)
	}

	lines, _ := env.carts.GetCart(ctx, "u1")
	if len(lines) != 1 || lines[0].Quantity != 2 || lines[0].UnitPrice != 2 {
		t.Fatalf("unexpected cart: %+v", lines)
	}
}

func TestCart_AddBeyondStock(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	p, _ := env.products.Create(ctx, domain.Product{Name: "Stamp", Price: 1, QuantityInStock: 1})

	if _, err := env.carts.AddToCart(ctx, "u1", p.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := env.carts.AddToCart(ctx, "u1", p.ID); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
}

func TestCart_AddMissingProduct(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	if _, err := env.carts.AddToCart(ctx, "u1", 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCart_Remove(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	p, _ := env.products.Create(ctx, domain.Product{Name: "Mug", Price: 7, QuantityInStock: 5})
	if _, err := env.carts.AddToCart(ctx, "u1", p.ID); err != nil {
		t.Fatal(err)
	}

	removed, err := env.carts.RemoveFromCart(ctx, "u1", p.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Quantity != 1 {
		t.Fatalf("removed qty %v", removed.Quantity)
	}
	lines, _ := env.carts.GetCart(ctx, "u1")
	if len(lines) != 0 {
		t.Fatalf("cart not empty: %v", lines)
	}

	if _, err := env.carts.RemoveFromCart(ctx, "u1", p.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCart_SnapshotSkipsDeletedProduct(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	p1, _ := env.products.Create(ctx, domain.Product{Name: "A", Price: 1, QuantityInStock: 5})
	p2, _ := env.products.Create(ctx, domain.Product{Name: "B", ShortDescription: "b", Price: 2, QuantityInStock: 5})
	if _, err := env.carts.AddToCart(ctx, "u1", p1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.carts.AddToCart(ctx, "u1", p2.ID); err != nil {
		t.Fatal(err)
	}
	if err := env.products.Delete(ctx, p1.ID); err != nil {
		t.Fatal(err)
	}

	lines, err := env.carts.Snapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(lines) != 1 || lines[0].ProductID != p2.ID {
		t.Fatalf("expected only the surviving product: %+v", lines)
	}
}
