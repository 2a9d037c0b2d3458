package service

import (
	"context"

	"go.uber.org/zap"

	"shopie/internal/domain"
	"shopie/internal/repository"
)

// CartService операции с корзиной. Остаток резервируется на оформлении,
// а не при добавлении: добавление лишь проверяет, что товар вообще доступен.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, products: products, logger: logger}
}

// AddToCart кладёт одну единицу товара; повторное добавление увеличивает количество
func (s *CartService) AddToCart(ctx context.Context, userID string, productID int64) (*domain.CartItem, error) {
	if userID == "" || productID <= 0 {
		return nil, ErrInvalidInput
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	var inCart int64
	for _, it := range items {
		if it.ProductID == productID {
			inCart = it.Quantity
		}
	}
	if p.QuantityInStock < inCart+1 {
		return nil, ErrOutOfStock
	}
	return s.carts.AddOne(ctx, userID, productID)
}

// GetCart снимок корзины с именами и текущими ценами товаров
func (s *CartService) GetCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Snapshot(ctx, userID)
}

// RemoveFromCart убирает позицию целиком
func (s *CartService) RemoveFromCart(ctx context.Context, userID string, productID int64) (*domain.CartItem, error) {
	if userID == "" || productID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.carts.Remove(ctx, userID, productID)
}

// Snapshot упорядоченный снимок позиций с ценой на момент чтения;
// пустая корзина — валидный результат
func (s *CartService) Snapshot(ctx context.Context, userID string) ([]domain.CartLine, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(items))
	for _, it := range items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			// product removed from the catalog after it landed in the cart
			s.logger.Warn("cart references missing product",
				zap.String("user_id", userID),
				zap.Int64("product_id", it.ProductID),
				zap.Error(err))
			continue
		}
		lines = append(lines, domain.CartLine{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
		})
	}
	return lines, nil
}

// Clear удаляет все позиции пользователя
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}
