package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/araliya/storefront/pkg/httputil"
	"github.com/araliya/storefront/pkg/middleware"
	"github.com/araliya/storefront/pkg/validator"

	"github.com/araliya/storefront/internal/gateway"
	"github.com/araliya/storefront/internal/service"
)

// OrderHandler handles HTTP requests for order resolution and receipts.
type OrderHandler struct {
	reconcile *service.ReconcileService
	orders    *gateway.OrderGateway
	logger    *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(reconcile *service.ReconcileService, orders *gateway.OrderGateway, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		reconcile: reconcile,
		orders:    orders,
		logger:    logger,
	}
}

// SendReceiptRequest is the JSON request body for emailing a receipt.
type SendReceiptRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Resolve handles GET /api/v1/orders/{orderId}/resolve. It fetches the
// order's current status and reconciles the cart against it.
func (h *OrderHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	token := middleware.TokenFromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	result, err := h.reconcile.Resolve(r.Context(), userID, token, orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// SendReceipt handles POST /api/v1/orders/{orderId}/send-email.
func (h *OrderHandler) SendReceipt(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	var req SendReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.orders.SendReceiptEmail(r.Context(), token, orderID, req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "sent"}})
}

// DownloadReceipt handles GET /api/v1/orders/{orderId}/receipt, streaming
// the PDF produced by the order service.
func (h *OrderHandler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	orderID := chi.URLParam(r, "orderId")

	pdf, contentType, err := h.orders.DownloadReceiptPDF(r.Context(), token, orderID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="receipt-`+orderID+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write receipt response",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}
