package service

import (
	"context"
	"errors"
	"testing"

	"shopie/internal/domain"
	"shopie/internal/repository"
)

func setupPS(t *testing.T) *ProductService {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewProductService(store)
}

func TestProduct_Create_Valid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, err := ps.Create(ctx, domain.Product{Name: "Keyboard", ShortDescription: "mechanical, brown switches", Price: 100, QuantityInStock: 10})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("expected id assigned")
	}
}

func TestProduct_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	if _, err := ps.Create(ctx, domain.Product{Name: "", Price: 1, QuantityInStock: 1}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := ps.Create(ctx, domain.Product{Name: "N", Price: -1, QuantityInStock: 1}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := ps.Create(ctx, domain.Product{Name: "N", Price: 1, QuantityInStock: -1}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestProduct_Create_Duplicate(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	if _, err := ps.Create(ctx, domain.Product{Name: "Keyboard", ShortDescription: "mechanical", Price: 100, QuantityInStock: 10}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := ps.Create(ctx, domain.Product{Name: "Keyboard", ShortDescription: "mechanical", Price: 90, QuantityInStock: 5}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// same name with different description is a different product
	if _, err := ps.Create(ctx, domain.Product{Name: "Keyboard", ShortDescription: "membrane", Price: 30, QuantityInStock: 5}); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestProduct_Update_Get_Delete(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, _ := ps.Create(ctx, domain.Product{Name: "A", Price: 10, QuantityInStock: 5})

	// get
	got, err := ps.GetByID(ctx, p.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("get failed: %v", err)
	}

	// update
	p.Name = "A+"
	p.Price = 12
	p.QuantityInStock = 7
	up, err := ps.Update(ctx, *p)
	if err != nil {
		t.Fatalf("update err: %v", err)
	}
	if up.Name != "A+" || up.Price != 12 || up.QuantityInStock != 7 {
		t.Fatalf("not updated")
	}

	// delete
	if err := ps.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete err: %v", err)
	}
	if _, err := ps.GetByID(ctx, p.ID); err == nil {
		t.Fatalf("expected not found after delete")
	}
}

func TestProduct_Search(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	must := func(p *domain.Product, err error) *domain.Product {
		if err != nil {
			t.Fatal(err)
		}
		return p
	}
	_ = must(ps.Create(ctx, domain.Product{Name: "Gaming Keyboard", ShortDescription: "RGB", Price: 100, QuantityInStock: 5}))
	_ = must(ps.Create(ctx, domain.Product{Name: "Office Mouse", ShortDescription: "quiet keyboard companion", Price: 50, QuantityInStock: 5}))
	_ = must(ps.Create(ctx, domain.Product{Name: "Monitor", ShortDescription: "27 inch", Price: 150, QuantityInStock: 5}))

	// matches name or description, case-insensitive
	list, err := ps.Search(ctx, "KEYBOARD")
	if err != nil {
		t.Fatalf("search err: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 matches, got %v", len(list))
	}
}

func TestProduct_LowStock(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	mk := func(name string, stock int64) {
		if _, err := ps.Create(ctx, domain.Product{Name: name, Price: 1, QuantityInStock: stock}); err != nil {
			t.Fatal(err)
		}
	}
	mk("empty", 0)
	mk("low", 3)
	mk("fine", 50)

	list, err := ps.LowStock(ctx, 5)
	if err != nil {
		t.Fatalf("low stock err: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 low-stock products, got %v", len(list))
	}
	// emptiest first
	if list[0].Name != "empty" || list[1].Name != "low" {
		t.Fatalf("wrong order: %v %v", list[0].Name, list[1].Name)
	}

	if _, err := ps.LowStock(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
