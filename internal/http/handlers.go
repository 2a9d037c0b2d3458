package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"shopie/internal/domain"
	"shopie/internal/repository"
	"shopie/internal/service"
)

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	carts    *service.CartService
	orders   *service.OrderService
	logger   *zap.Logger
}

func NewServer(products *service.ProductService, carts *service.CartService, orders *service.OrderService, logger *zap.Logger) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), RequestID())
	s := &Server{engine: r, products: products, carts: carts, orders: orders, logger: logger}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	v1.Use(Identity())
	{
		products := v1.Group("/products")
		products.POST("", RequireRole(domain.RoleAdmin), s.createProduct)
		products.GET("", s.listProducts)
		products.GET("search", s.searchProducts)
		products.GET("low-stock", RequireRole(domain.RoleAdmin), s.lowStockProducts)
		products.GET(":id", s.getProduct)
		products.PUT(":id", RequireRole(domain.RoleAdmin), s.updateProduct)
		products.DELETE(":id", RequireRole(domain.RoleAdmin), s.deleteProduct)

		cart := v1.Group("/cart")
		cart.GET("", s.getCart)
		cart.POST("items/:productId", s.addToCart)
		cart.DELETE("items/:productId", s.removeFromCart)

		orders := v1.Group("/orders")
		orders.POST("checkout", s.checkout)
		orders.GET("my-orders", s.myOrders)
		orders.GET("stats", RequireRole(domain.RoleAdmin), s.dashboardStats)
		orders.GET("", RequireRole(domain.RoleAdmin), s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.PATCH(":id/status", RequireRole(domain.RoleAdmin), s.updateOrderStatus)
		orders.PATCH(":id/cancel", s.cancelOrder)
		orders.DELETE(":id", RequireRole(domain.RoleAdmin), s.deleteOrder)
	}
}

// Product handlers
type createProductReq struct {
	Name             string  `json:"name"`
	ShortDescription string  `json:"short_description"`
	Price            float64 `json:"price"`
	QuantityInStock  int64   `json:"quantity_in_stock"`
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body createProductReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req createProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Create(c, domain.Product{
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		Price:            req.Price,
		QuantityInStock:  req.QuantityInStock,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary List products
// @Tags products
// @Produce json
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.products.List(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Search products by name or description
// @Tags products
// @Produce json
// @Param q query string true "Search term"
// @Success 200 {array} domain.Product
// @Router /products/search [get]
func (s *Server) searchProducts(c *gin.Context) {
	list, err := s.products.Search(c, c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Products below the stock threshold
// @Tags products
// @Produce json
// @Param threshold query int false "Stock threshold (default 5)"
// @Success 200 {array} domain.Product
// @Router /products/low-stock [get]
func (s *Server) lowStockProducts(c *gin.Context) {
	threshold := int64(5)
	if v := c.Query("threshold"); v != "" {
		if x, err := strconv.ParseInt(v, 10, 64); err == nil {
			threshold = x
		}
	}
	list, err := s.products.LowStock(c, threshold)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.products.GetByID(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

type updateProductReq struct {
	Name             string  `json:"name"`
	ShortDescription string  `json:"short_description"`
	Price            float64 `json:"price"`
	QuantityInStock  int64   `json:"quantity_in_stock"`
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body updateProductReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Update(c, domain.Product{
		ID:               id,
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		Price:            req.Price,
		QuantityInStock:  req.QuantityInStock,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path int true "Product ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.products.Delete(c, id); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Cart handlers

// @Summary Get current user's cart
// @Tags cart
// @Produce json
// @Success 200 {array} domain.CartLine
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	lines, err := s.carts.GetCart(c, currentUserID(c))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lines)
}

// @Summary Add one unit of a product to the cart
// @Tags cart
// @Produce json
// @Param productId path int true "Product ID"
// @Success 200 {object} domain.CartItem
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items/{productId} [post]
func (s *Server) addToCart(c *gin.Context) {
	productID, err := parseID(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	it, err := s.carts.AddToCart(c, currentUserID(c), productID)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, it)
}

// @Summary Remove a product from the cart
// @Tags cart
// @Produce json
// @Param productId path int true "Product ID"
// @Success 200 {object} domain.CartItem
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items/{productId} [delete]
func (s *Server) removeFromCart(c *gin.Context) {
	productID, err := parseID(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	it, err := s.carts.RemoveFromCart(c, currentUserID(c), productID)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, it)
}

// Order handlers

// @Summary Checkout the cart into an order
// @Tags orders
// @Produce json
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Router /orders/checkout [post]
func (s *Server) checkout(c *gin.Context) {
	o, err := s.orders.Checkout(c, currentUserID(c))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Current user's orders
// @Tags orders
// @Produce json
// @Success 200 {array} domain.Order
// @Router /orders/my-orders [get]
func (s *Server) myOrders(c *gin.Context) {
	list, err := s.orders.MyOrders(c, currentUserID(c))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Dashboard statistics (admin)
// @Tags orders
// @Produce json
// @Success 200 {object} domain.DashboardStats
// @Router /orders/stats [get]
func (s *Server) dashboardStats(c *gin.Context) {
	stats, err := s.orders.DashboardStats(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary List all orders with filters (admin)
// @Tags orders
// @Produce json
// @Param status query string false "Order status"
// @Param search query string false "User name or email contains"
// @Param from query string false "Created from (RFC3339)"
// @Param to query string false "Created to (RFC3339)"
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	var f repository.OrderFilter
	if v := c.Query("status"); v != "" {
		st := domain.OrderStatus(v)
		f.Status = &st
	}
	f.Search = c.Query("search")
	if v := c.Query("from"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = &ts
		}
	}
	if v := c.Query("to"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = &ts
		}
	}
	list, err := s.orders.ListOrders(c, f)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get order by id (owner only)
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := s.orders.GetOrder(c, id, currentUserID(c))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

type updateStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// @Summary Update order status (admin)
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body updateStatusReq true "New status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/status [patch]
func (s *Server) updateOrderStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.UpdateStatus(c, id, req.Status)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Cancel a pending order (owner only)
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/cancel [patch]
func (s *Server) cancelOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := s.orders.Cancel(c, id, currentUserID(c))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Delete order (admin)
// @Tags orders
// @Param id path int true "Order ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.orders.Delete(c, id); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrOutOfStock):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
