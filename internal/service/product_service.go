package service

import (
	"context"
	"errors"

	"shopie/internal/domain"
	"shopie/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг товаров каталога
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
)

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.Name == "" || p.Price < 0 || p.QuantityInStock < 0 {
		return nil, ErrInvalidInput
	}
	// duplicate by name + short description
	if _, err := s.repo.FindDuplicate(ctx, p.Name, p.ShortDescription); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 || p.Name == "" || p.Price < 0 || p.QuantityInStock < 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx, repository.ProductFilter{})
}

// Search ищет по подстроке имени или короткого описания без учёта регистра
func (s *ProductService) Search(ctx context.Context, term string) ([]domain.Product, error) {
	return s.repo.List(ctx, repository.ProductFilter{Search: term})
}

// LowStock товары с остатком ниже порога, самые пустые полки первыми
func (s *ProductService) LowStock(ctx context.Context, threshold int64) ([]domain.Product, error) {
	if threshold <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.List(ctx, repository.ProductFilter{MaxStock: &threshold})
}
