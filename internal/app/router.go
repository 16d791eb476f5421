package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/grocery-shop/internal/app/handlers"
	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/grocery-shop/internal/lib/logger/handlers/urllog"
	"github.com/linemk/grocery-shop/internal/service"
)

// Services набор сервисов, за которыми стоят HTTP-эндпоинты
type Services struct {
	Auth       service.AuthServiceInterface
	Checkout   service.CheckoutService
	Cart       service.CartService
	Catalog    service.CatalogService
	Categories service.CategoryService
	Wishlist   service.WishlistService
	Orders     service.OrderService
}

// NewRouter настраивает middleware и маршруты API
func NewRouter(log *slog.Logger, jwtSecret string, svc Services) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// эндпоинт для аутентификации
	router.Post("/api/auth", handlers.AuthHandler(log, svc.Auth))

	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.NewJWTMiddleware(jwtSecret))

		r.Get("/api/products", handlers.ListProductsHandler(log, svc.Catalog))
		r.Get("/api/products/{id}", handlers.GetProductHandler(log, svc.Catalog))
		r.Get("/api/categories", handlers.ListCategoriesHandler(log, svc.Categories))
		r.Get("/api/categories/{id}", handlers.GetCategoryHandler(log, svc.Categories))

		r.Get("/api/cart", handlers.GetCartHandler(log, svc.Cart))
		r.Post("/api/cart/add", handlers.AddToCartHandler(log, svc.Cart))
		r.Post("/api/cart/remove", handlers.RemoveFromCartHandler(log, svc.Cart))

		r.Post("/api/checkout", handlers.CheckoutHandler(log, svc.Checkout))

		r.Get("/api/wishlist", handlers.GetWishlistHandler(log, svc.Wishlist))
		r.Post("/api/wishlist/toggle", handlers.ToggleWishlistHandler(log, svc.Wishlist))

		r.Get("/api/orders", handlers.ListOrdersHandler(log, svc.Orders))
		r.Get("/api/orders/{id}", handlers.GetOrderHandler(log, svc.Orders))

		// управление каталогом и отчёты доступны только менеджеру
		r.Group(func(r chi.Router) {
			r.Use(jwtmiddleware.RequireRole(models.RoleManager))

			r.Post("/api/products", handlers.CreateProductHandler(log, svc.Catalog))
			r.Patch("/api/products/{id}", handlers.UpdateProductHandler(log, svc.Catalog))
			r.Delete("/api/products/{id}", handlers.DeleteProductHandler(log, svc.Catalog))
			r.Post("/api/products/{id}/restock", handlers.RestockHandler(log, svc.Catalog))
			r.Post("/api/categories", handlers.CreateCategoryHandler(log, svc.Categories))
			r.Patch("/api/categories/{id}", handlers.UpdateCategoryHandler(log, svc.Categories))
			r.Delete("/api/categories/{id}", handlers.DeleteCategoryHandler(log, svc.Categories))
			r.Get("/api/reports/sales", handlers.SalesReportHandler(log, svc.Catalog))
			r.Get("/api/reports/low-stock", handlers.LowStockHandler(log, svc.Catalog))
		})
	})

	return router
}
