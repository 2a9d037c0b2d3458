package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopie/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrInsufficientStock возвращается при попытке списать больше, чем есть на складе
var ErrInsufficientStock = errors.New("insufficient stock")

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	Search   string // substring over name/short description, case-insensitive
	MaxStock *int64 // exclusive upper bound, used by the low-stock report
}

// OrderFilter параметры админской выборки заказов
type OrderFilter struct {
	Status *domain.OrderStatus
	Search string // substring over user name/email, case-insensitive
	From   *time.Time
	To     *time.Time
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	FindDuplicate(ctx context.Context, name, shortDescription string) (*domain.Product, error)

	// AdjustStock атомарно меняет остаток на delta. При отрицательной delta
	// списание с проверкой пола: остаток никогда не уходит ниже нуля,
	// вместо этого возвращается ErrInsufficientStock и остаток не меняется.
	AdjustStock(ctx context.Context, id int64, delta int64) (newStock int64, err error)
}

// CartRepository интерфейс репозитория корзины
type CartRepository interface {
	Items(ctx context.Context, userID string) ([]domain.CartItem, error)
	AddOne(ctx context.Context, userID string, productID int64) (*domain.CartItem, error)
	Remove(ctx context.Context, userID string, productID int64) (*domain.CartItem, error)
	Clear(ctx context.Context, userID string) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForUser(ctx context.Context, id int64, userID string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

// UserRepository read-only доступ к пользователям (identity живёт снаружи)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
