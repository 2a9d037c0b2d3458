package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shopie/internal/notify"
	"shopie/internal/repository"
)

var ErrOutOfStock = errors.New("out of stock")

// InventoryService атомарные списание и возврат остатков.
// Списание с проверкой пола живёт в репозитории, так что два конкурентных
// резерва на один товар никогда не уводят остаток в минус.
type InventoryService struct {
	products   repository.ProductRepository
	dispatcher *notify.Dispatcher
	logger     *zap.Logger

	lowStockThreshold int64
	adminEmail        string
	mailFrom          string
}

func NewInventoryService(products repository.ProductRepository, dispatcher *notify.Dispatcher, logger *zap.Logger, lowStockThreshold int64, adminEmail, mailFrom string) *InventoryService {
	return &InventoryService{
		products:          products,
		dispatcher:        dispatcher,
		logger:            logger,
		lowStockThreshold: lowStockThreshold,
		adminEmail:        adminEmail,
		mailFrom:          mailFrom,
	}
}

// Reserve списывает qty единиц; ErrOutOfStock если не хватает, остаток не меняется.
// Ниже порога — асинхронный low-stock алерт, он не блокирует и не валит резерв.
func (s *InventoryService) Reserve(ctx context.Context, productID, qty int64) (int64, error) {
	if productID <= 0 || qty <= 0 {
		return 0, ErrInvalidInput
	}
	newStock, err := s.products.AdjustStock(ctx, productID, -qty)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return newStock, ErrOutOfStock
		}
		return 0, err
	}
	if newStock < s.lowStockThreshold {
		name := fmt.Sprintf("product #%d", productID)
		if p, err := s.products.GetByID(ctx, productID); err == nil {
			name = p.Name
		}
		s.dispatcher.Dispatch(notify.Message{
			To:       s.adminEmail,
			From:     s.mailFrom,
			Subject:  fmt.Sprintf("Low Stock Alert: %s", name),
			Template: "low-stock-alert",
			Context: map[string]any{
				"productName":  name,
				"quantityLeft": newStock,
			},
		})
	}
	return newStock, nil
}

// Release возвращает qty единиц на склад; верхней границы нет
func (s *InventoryService) Release(ctx context.Context, productID, qty int64) error {
	if productID <= 0 || qty <= 0 {
		return ErrInvalidInput
	}
	_, err := s.products.AdjustStock(ctx, productID, qty)
	return err
}
