package domain

import "time"

// Role роль пользователя, решение о доступе принимает внешний шлюз
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// User пользователь магазина (read-only проекция для ядра)
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Product представляет товар каталога
type Product struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ShortDescription string  `json:"short_description"`
	Price            float64 `json:"price"`
	QuantityInStock  int64   `json:"quantity_in_stock"`
}

// CartItem позиция в корзине, уникальна по (userId, productId)
type CartItem struct {
	UserID    string `json:"user_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// CartLine строка снимка корзины с ценой на момент чтения
type CartLine struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ValidStatus проверяет, входит ли значение в перечисление статусов
func ValidStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem позиция заказа; цена снята в момент оформления и далее не меняется
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order сущность заказа
type Order struct {
	ID         int64       `json:"id"`
	UserID     string      `json:"user_id"`
	TotalPrice float64     `json:"total_price"`
	Status     OrderStatus `json:"status"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// DashboardStats агрегаты по заказам для админской панели
type DashboardStats struct {
	TotalOrders  int64                 `json:"total_orders"`
	TotalRevenue float64               `json:"total_revenue"`
	StatusCounts map[OrderStatus]int64 `json:"status_counts"`
}
