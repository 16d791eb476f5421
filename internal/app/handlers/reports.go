package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/grocery-shop/internal/domain/models"
	"github.com/linemk/grocery-shop/internal/service"
	"github.com/linemk/grocery-shop/internal/storage"
)

// SalesReportHandler обрабатывает запрос GET /api/reports/sales?sort=most_sold|least_sold&category=<slug>
func SalesReportHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SalesReportHandler"
		logger := log.With(slog.String("op", op))

		sort := r.URL.Query().Get("sort")
		if sort != "" && sort != storage.SortMostSold && sort != storage.SortLeastSold {
			http.Error(w, "sort must be 'most_sold' or 'least_sold'", http.StatusBadRequest)
			return
		}

		report, err := catalogService.SalesReport(r.Context(), sort, r.URL.Query().Get("category"))
		if err != nil {
			logger.Error("failed to build sales report", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if report == nil {
			report = []*models.SalesReportRow{}
		}

		writeJSON(w, logger, http.StatusOK, report)
	}
}

// LowStockHandler обрабатывает запрос GET /api/reports/low-stock
func LowStockHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LowStockHandler"
		logger := log.With(slog.String("op", op))

		products, err := catalogService.LowStock(r.Context())
		if err != nil {
			logger.Error("failed to get low stock products", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, toProductResponse(p))
		}
		writeJSON(w, logger, http.StatusOK, resp)
	}
}
