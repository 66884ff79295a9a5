package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/driftndash/storefront/internal/core/domain"
	"github.com/driftndash/storefront/internal/core/service"
)

type HTTPHandler struct {
	orders *service.OrderService
	logger *zap.Logger
}

func NewHTTPHandler(orders *service.OrderService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{orders: orders, logger: logger}
}

func (h *HTTPHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Route("/api", func(r chi.Router) {
		r.Get("/shipping", h.ListShippingOptions)
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrder)
			r.Get("/", h.ListAll)
			r.Get("/archived", h.ListArchived)
			r.Get("/customer/{customerID}", h.ListByCustomer)
			r.Get("/{orderID}", h.GetDetail)
			r.Patch("/{orderID}/status", h.SetStatus)
			r.Delete("/{orderID}", h.SoftDelete)
			r.Post("/{orderID}/restore", h.Restore)
		})
	})
	return r
}

type placeOrderRequest struct {
	RequestID  string             `json:"request_id"`
	CustomerID string             `json:"customer_id"`
	ShippingID string             `json:"shipping_id"`
	Status     string             `json:"status"`
	Items      []orderLineRequest `json:"items"`
}

type orderLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
}

type lineDetailResponse struct {
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type orderSummaryResponse struct {
	OrderID       string               `json:"order_id"`
	CustomerName  string               `json:"customer_name,omitempty"`
	Status        string               `json:"status"`
	DatePlaced    time.Time            `json:"date_placed"`
	DateShipped   *time.Time           `json:"date_shipped,omitempty"`
	DateDelivered *time.Time           `json:"date_delivered,omitempty"`
	DeletedAt     *time.Time           `json:"deleted_at,omitempty"`
	Region        string               `json:"region"`
	Rate          decimal.Decimal      `json:"rate"`
	Items         []lineDetailResponse `json:"items,omitempty"`
}

type orderDetailResponse struct {
	OrderID       string               `json:"order_id"`
	CustomerName  string               `json:"customer_name"`
	Status        string               `json:"status"`
	DatePlaced    time.Time            `json:"date_placed"`
	DateShipped   *time.Time           `json:"date_shipped,omitempty"`
	DateDelivered *time.Time           `json:"date_delivered,omitempty"`
	Region        string               `json:"shipping_region"`
	Rate          decimal.Decimal      `json:"shipping_rate"`
	Items         []lineDetailResponse `json:"items"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "invalid request body"})
		return
	}

	svcReq := service.PlaceOrderRequest{
		RequestID:  req.RequestID,
		CustomerID: req.CustomerID,
		ShippingID: req.ShippingID,
		Status:     req.Status,
	}
	for _, it := range req.Items {
		svcReq.Lines = append(svcReq.Lines, service.LineRequest{ItemID: it.ItemID, Quantity: it.Quantity})
	}

	result, err := h.orders.PlaceOrder(r.Context(), svcReq)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: "order placed successfully",
		Data:    map[string]string{"order_id": result.OrderID},
		Warning: result.Warning,
	})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *HTTPHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "invalid request body"})
		return
	}

	warning, err := h.orders.SetStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "order status updated",
		Warning: warning,
	})
}

func (h *HTTPHandler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.SoftDelete(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "order deleted (soft)"})
}

func (h *HTTPHandler) Restore(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Restore(r.Context(), chi.URLParam(r, "orderID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "order restored"})
}

func (h *HTTPHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByCustomer(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: toSummaryResponses(orders)})
}

func (h *HTTPHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: toSummaryResponses(orders)})
}

func (h *HTTPHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListArchived(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: toSummaryResponses(orders)})
}

func (h *HTTPHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	det, err := h.orders.GetDetail(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := orderDetailResponse{
		OrderID:       det.OrderID,
		CustomerName:  det.CustomerName,
		Status:        string(det.Status),
		DatePlaced:    det.DatePlaced,
		DateShipped:   det.DateShipped,
		DateDelivered: det.DateDelivered,
		Region:        det.Region,
		Rate:          det.Rate,
		Items:         toLineResponses(det.Lines),
		Subtotal:      det.Subtotal(),
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: resp})
}

func (h *HTTPHandler) ListShippingOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.orders.ListShippingOptions(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	type shippingResponse struct {
		ShippingID string          `json:"shipping_id"`
		Region     string          `json:"region"`
		Rate       decimal.Decimal `json:"rate"`
	}
	resp := make([]shippingResponse, 0, len(opts))
	for _, opt := range opts {
		resp = append(resp, shippingResponse{ShippingID: opt.ID, Region: opt.Region, Rate: opt.Rate})
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: resp})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the error taxonomy onto HTTP statuses so admin clients can
// tell "nothing to update" from "try again".
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var short *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiResponse{Message: "order not found"})
	case errors.Is(err, service.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, apiResponse{Message: "duplicate request"})
	case errors.As(err, &short):
		writeJSON(w, http.StatusConflict, apiResponse{Message: short.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "internal error"})
	}
}

func toLineResponses(lines []domain.LineDetail) []lineDetailResponse {
	resp := make([]lineDetailResponse, 0, len(lines))
	for _, ln := range lines {
		resp = append(resp, lineDetailResponse{
			ItemID:    ln.ItemID,
			ItemName:  ln.ItemName,
			Quantity:  ln.Quantity,
			Price:     ln.UnitPrice,
			LineTotal: ln.Total(),
		})
	}
	return resp
}

func toSummaryResponses(orders []domain.OrderSummary) []orderSummaryResponse {
	resp := make([]orderSummaryResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, orderSummaryResponse{
			OrderID:       o.OrderID,
			CustomerName:  o.CustomerName,
			Status:        string(o.Status),
			DatePlaced:    o.DatePlaced,
			DateShipped:   o.DateShipped,
			DateDelivered: o.DateDelivered,
			DeletedAt:     o.DeletedAt,
			Region:        o.Region,
			Rate:          o.Rate,
			Items:         toLineResponses(o.Lines),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
