package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"shopie/internal/domain"
)

// MySQLStore реализация репозиториев поверх MySQL
type MySQLStore struct {
	db *sql.DB
}

// OpenMySQL открывает пул соединений и проверяет доступность базы
func OpenMySQL(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// ping with retry: the database container may still be warming up
	var pingErr error
	for i := 0; i < 5; i++ {
		if pingErr = db.Ping(); pingErr == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", pingErr)
	}
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Close() error { return s.db.Close() }

// InitSchema создаёт таблицы, если их ещё нет
func (s *MySQLStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL DEFAULT 'CUSTOMER'
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			short_description VARCHAR(512) NOT NULL DEFAULT '',
			price DOUBLE NOT NULL,
			quantity_in_stock BIGINT NOT NULL DEFAULT 0,
			CONSTRAINT chk_stock_non_negative CHECK (quantity_in_stock >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			user_id VARCHAR(64) NOT NULL,
			product_id BIGINT NOT NULL,
			quantity BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			total_price DOUBLE NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			INDEX idx_orders_user (user_id),
			INDEX idx_orders_status (status)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity BIGINT NOT NULL,
			price DOUBLE NOT NULL,
			INDEX idx_order_items_order (order_id)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// sqlTxKey несёт открытую транзакцию через контекст
type sqlTxKey struct{}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *MySQLStore) q(ctx context.Context) queryer {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// MySQLTx реализует TxManager поверх sql.Tx
type MySQLTx struct{ store *MySQLStore }

func NewMySQLTx(store *MySQLStore) *MySQLTx { return &MySQLTx{store: store} }

var _ TxManager = (*MySQLTx)(nil)

func (t *MySQLTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---- ProductRepository ----

type MySQLProducts struct{ store *MySQLStore }

func NewMySQLProducts(store *MySQLStore) *MySQLProducts { return &MySQLProducts{store: store} }

var _ ProductRepository = (*MySQLProducts)(nil)

func (r *MySQLProducts) Create(ctx context.Context, p *domain.Product) error {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`INSERT INTO products (name, short_description, price, quantity_in_stock) VALUES (?, ?, ?, ?)`,
		p.Name, p.ShortDescription, p.Price, p.QuantityInStock)
	if err != nil {
		return err
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (r *MySQLProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT id, name, short_description, price, quantity_in_stock FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.ShortDescription, &p.Price, &p.QuantityInStock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MySQLProducts) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE products SET name = ?, short_description = ?, price = ?, quantity_in_stock = ? WHERE id = ?`,
		p.Name, p.ShortDescription, p.Price, p.QuantityInStock, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *MySQLProducts) Delete(ctx context.Context, id int64) error {
	res, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *MySQLProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	query := `SELECT id, name, short_description, price, quantity_in_stock FROM products WHERE 1=1`
	args := []any{}
	if f.Search != "" {
		query += ` AND (LOWER(name) LIKE ? OR LOWER(short_description) LIKE ?)`
		pat := "%" + strings.ToLower(f.Search) + "%"
		args = append(args, pat, pat)
	}
	if f.MaxStock != nil {
		query += ` AND quantity_in_stock < ? ORDER BY quantity_in_stock ASC`
		args = append(args, *f.MaxStock)
	} else {
		query += ` ORDER BY id ASC`
	}
	rows, err := r.store.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.ShortDescription, &p.Price, &p.QuantityInStock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *MySQLProducts) FindDuplicate(ctx context.Context, name, shortDescription string) (*domain.Product, error) {
	var p domain.Product
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT id, name, short_description, price, quantity_in_stock FROM products WHERE name = ? AND short_description = ? LIMIT 1`,
		name, shortDescription).
		Scan(&p.ID, &p.Name, &p.ShortDescription, &p.Price, &p.QuantityInStock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MySQLProducts) AdjustStock(ctx context.Context, id int64, delta int64) (int64, error) {
	// floor-checked in one statement so concurrent reservations never go negative
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE products SET quantity_in_stock = quantity_in_stock + ? WHERE id = ? AND quantity_in_stock + ? >= 0`,
		delta, id, delta)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		var stock int64
		err := r.store.q(ctx).QueryRowContext(ctx,
			`SELECT quantity_in_stock FROM products WHERE id = ?`, id).Scan(&stock)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		return stock, ErrInsufficientStock
	}
	var stock int64
	if err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT quantity_in_stock FROM products WHERE id = ?`, id).Scan(&stock); err != nil {
		return 0, err
	}
	return stock, nil
}

// ---- CartRepository ----

type MySQLCarts struct{ store *MySQLStore }

func NewMySQLCarts(store *MySQLStore) *MySQLCarts { return &MySQLCarts{store: store} }

var _ CartRepository = (*MySQLCarts)(nil)

func (r *MySQLCarts) Items(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx,
		`SELECT user_id, product_id, quantity FROM cart_items WHERE user_id = ? ORDER BY created_at, product_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.CartItem, 0)
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *MySQLCarts) AddOne(ctx context.Context, userID string, productID int64) (*domain.CartItem, error) {
	_, err := r.store.q(ctx).ExecContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, 1)
		 ON DUPLICATE KEY UPDATE quantity = quantity + 1`, userID, productID)
	if err != nil {
		return nil, err
	}
	it := domain.CartItem{UserID: userID, ProductID: productID}
	err = r.store.q(ctx).QueryRowContext(ctx,
		`SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID).
		Scan(&it.Quantity)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *MySQLCarts) Remove(ctx context.Context, userID string, productID int64) (*domain.CartItem, error) {
	it := domain.CartItem{UserID: userID, ProductID: productID}
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID).
		Scan(&it.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := r.store.q(ctx).ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *MySQLCarts) Clear(ctx context.Context, userID string) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	return err
}

// ---- OrderRepository ----

type MySQLOrders struct{ store *MySQLStore }

func NewMySQLOrders(store *MySQLStore) *MySQLOrders { return &MySQLOrders{store: store} }

var _ OrderRepository = (*MySQLOrders)(nil)

func (r *MySQLOrders) Create(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	res, err := r.store.q(ctx).ExecContext(ctx,
		`INSERT INTO orders (user_id, total_price, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		o.UserID, o.TotalPrice, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return err
	}
	if o.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	for _, it := range o.Items {
		if _, err := r.store.q(ctx).ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)`,
			o.ID, it.ProductID, it.Quantity, it.Price); err != nil {
			return err
		}
	}
	return nil
}

func (r *MySQLOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT id, user_id, total_price, status, created_at, updated_at FROM orders WHERE id = ?`, id)
}

func (r *MySQLOrders) GetByIDForUser(ctx context.Context, id int64, userID string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT id, user_id, total_price, status, created_at, updated_at FROM orders WHERE id = ? AND user_id = ?`, id, userID)
}

func (r *MySQLOrders) getOne(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	var o domain.Order
	var status string
	err := r.store.q(ctx).QueryRowContext(ctx, query, args...).
		Scan(&o.ID, &o.UserID, &o.TotalPrice, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	if o.Items, err = r.itemsFor(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *MySQLOrders) itemsFor(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx,
		`SELECT product_id, quantity, price FROM order_items WHERE order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *MySQLOrders) Update(ctx context.Context, o *domain.Order) error {
	o.UpdatedAt = time.Now().UTC()
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(o.Status), o.UpdatedAt, o.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *MySQLOrders) Delete(ctx context.Context, id int64) error {
	if _, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return err
	}
	res, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *MySQLOrders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx,
		`SELECT id, user_id, total_price, status, created_at, updated_at FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
}

func (r *MySQLOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	query := `SELECT o.id, o.user_id, o.total_price, o.status, o.created_at, o.updated_at FROM orders o`
	args := []any{}
	where := ` WHERE 1=1`
	if f.Search != "" {
		query += ` JOIN users u ON u.id = o.user_id`
		pat := "%" + strings.ToLower(f.Search) + "%"
		where += ` AND (LOWER(u.name) LIKE ? OR LOWER(u.email) LIKE ?)`
		args = append(args, pat, pat)
	}
	if f.Status != nil {
		where += ` AND o.status = ?`
		args = append(args, string(*f.Status))
	}
	if f.From != nil {
		where += ` AND o.created_at >= ?`
		args = append(args, *f.From)
	}
	if f.To != nil {
		where += ` AND o.created_at <= ?`
		args = append(args, *f.To)
	}
	return r.list(ctx, query+where+` ORDER BY o.created_at DESC, o.id DESC`, args...)
}

func (r *MySQLOrders) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalPrice, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.itemsFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *MySQLOrders) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{StatusCounts: make(map[domain.OrderStatus]int64)}
	if err := r.store.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&stats.TotalOrders); err != nil {
		return nil, err
	}
	if err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE status = ?`,
		string(domain.OrderStatusDelivered)).Scan(&stats.TotalRevenue); err != nil {
		return nil, err
	}
	rows, err := r.store.q(ctx).QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.StatusCounts[domain.OrderStatus(status)] = n
	}
	return stats, rows.Err()
}

// ---- UserRepository ----

type MySQLUsers struct{ store *MySQLStore }

func NewMySQLUsers(store *MySQLStore) *MySQLUsers { return &MySQLUsers{store: store} }

var _ UserRepository = (*MySQLUsers)(nil)

func (r *MySQLUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	var role string
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT id, name, email, role FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
