package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"shopie/internal/domain"
	"shopie/internal/notify"
	"shopie/internal/repository"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrInvalidState = errors.New("invalid state")
)

// OrderService реализует жизненный цикл заказа: оформление, отмена,
// смена статуса, удаление и отчётность
type OrderService struct {
	carts      *CartService
	inventory  *InventoryService
	orders     repository.OrderRepository
	users      repository.UserRepository
	tx         repository.TxManager
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
	mailFrom   string
}

func NewOrderService(carts *CartService, inventory *InventoryService, orders repository.OrderRepository, users repository.UserRepository, tx repository.TxManager, dispatcher *notify.Dispatcher, logger *zap.Logger, mailFrom string) *OrderService {
	return &OrderService{
		carts:      carts,
		inventory:  inventory,
		orders:     orders,
		users:      users,
		tx:         tx,
		dispatcher: dispatcher,
		logger:     logger,
		mailFrom:   mailFrom,
	}
}

// Checkout превращает корзину в заказ. Резервы всех позиций и создание заказа
// идут в одной транзакции: либо заказ с полностью списанным остатком, либо ничего.
// Письмо и очистка корзины — вне транзакции, они идемпотентны/best-effort.
func (s *OrderService) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	lines, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var total float64
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		total += l.UnitPrice * float64(l.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice, // price snapshot, never recomputed
		})
	}

	var created *domain.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// reserve every line; on failure give back what was already taken
		// so the in-memory backend stays consistent too (sql backend rolls back anyway)
		for i, l := range lines {
			if _, err := s.inventory.Reserve(ctx, l.ProductID, l.Quantity); err != nil {
				for j := i - 1; j >= 0; j-- {
					if rerr := s.inventory.Release(ctx, lines[j].ProductID, lines[j].Quantity); rerr != nil {
						s.logger.Error("failed to release after aborted checkout",
							zap.Int64("product_id", lines[j].ProductID), zap.Error(rerr))
					}
				}
				return err
			}
		}
		o := domain.Order{
			UserID:     userID,
			TotalPrice: total,
			Status:     domain.OrderStatusPending,
			Items:      items,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, userID, created, lines)

	if err := s.carts.Clear(ctx, userID); err != nil {
		// the order is already placed; a stale cart is the lesser evil
		s.logger.Error("failed to clear cart after checkout",
			zap.String("user_id", userID), zap.Int64("order_id", created.ID), zap.Error(err))
	}
	return created, nil
}

func (s *OrderService) sendConfirmation(ctx context.Context, userID string, o *domain.Order, lines []domain.CartLine) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("cannot send order confirmation: user lookup failed",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	products := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		products = append(products, map[string]any{"name": l.ProductName, "quantity": l.Quantity})
	}
	s.dispatcher.Dispatch(notify.Message{
		To:       u.Email,
		From:     s.mailFrom,
		Subject:  fmt.Sprintf("Order Confirmation - Order #%d", o.ID),
		Template: "order-confirmation",
		Context: map[string]any{
			"orderId":  o.ID,
			"total":    o.TotalPrice,
			"products": products,
		},
	})
}

// MyOrders заказы пользователя, новые первыми
func (s *OrderService) MyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.orders.ListByUser(ctx, userID)
}

// GetOrder возвращает заказ только его владельцу
func (s *OrderService) GetOrder(ctx context.Context, orderID int64, userID string) (*domain.Order, error) {
	if orderID <= 0 || userID == "" {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByIDForUser(ctx, orderID, userID)
}

// ListOrders админская выборка с фильтрами по статусу, пользователю и датам
func (s *OrderService) ListOrders(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	if f.Status != nil && !domain.ValidStatus(*f.Status) {
		return nil, ErrInvalidInput
	}
	return s.orders.List(ctx, f)
}

// UpdateStatus перезаписывает статус без графа переходов — так ведёт себя
// исходная система, админ может выставить любой из четырёх статусов.
// Владельцу уходит уведомление о смене статуса.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if orderID <= 0 || !domain.ValidStatus(status) {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.Status = status
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}

	if u, err := s.users.GetByID(ctx, o.UserID); err == nil {
		s.dispatcher.Dispatch(notify.Message{
			To:       u.Email,
			From:     s.mailFrom,
			Subject:  fmt.Sprintf("Your Order #%d Status Updated", o.ID),
			Template: "order-status-update",
			Context: map[string]any{
				"name":    u.Name,
				"orderId": o.ID,
				"status":  string(o.Status),
			},
		})
	} else {
		s.logger.Warn("cannot send status update: user lookup failed",
			zap.String("user_id", o.UserID), zap.Error(err))
	}
	return o, nil
}

// Cancel отменить может только владелец и только PENDING-заказ.
// Остаток каждой позиции возвращается на склад ровно один раз.
func (s *OrderService) Cancel(ctx context.Context, orderID int64, userID string) (*domain.Order, error) {
	if orderID <= 0 || userID == "" {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderStatusPending {
		return nil, ErrInvalidState
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// re-read inside the transaction so a concurrent cancel cannot restock twice
		cur, err := s.orders.GetByIDForUser(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if cur.Status != domain.OrderStatusPending {
			return ErrInvalidState
		}
		for _, it := range cur.Items {
			if err := s.inventory.Release(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
		cur.Status = domain.OrderStatusCancelled
		if err := s.orders.Update(ctx, cur); err != nil {
			return err
		}
		o = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Delete удаляет заказ с позициями; PENDING-заказ перед удалением возвращает
// остаток на склад, остальные считаются уже исполненными
func (s *OrderService) Delete(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return ErrInvalidInput
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusPending {
			for _, it := range o.Items {
				if err := s.inventory.Release(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
		}
		return s.orders.Delete(ctx, orderID)
	})
}

// DashboardStats сводка для панели: всего заказов, выручка по DELIVERED, счётчики статусов
func (s *OrderService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	return s.orders.Stats(ctx)
}
