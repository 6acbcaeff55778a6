package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register wires every order route onto the mux. authed wraps each
// handler; order routes are never public.
func (h *Handler) Register(mux *http.ServeMux, authed func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/v1/orders", authed(h.HandleCreate))
	mux.HandleFunc("GET /api/v1/orders", authed(h.HandleList))
	mux.HandleFunc("GET /api/v1/orders/pending", authed(h.HandlePending))
	mux.HandleFunc("GET /api/v1/orders/active", authed(h.HandleActive))
	mux.HandleFunc("GET /api/v1/orders/recent", authed(h.HandleRecent))
	mux.HandleFunc("GET /api/v1/orders/completed", authed(h.HandleCompleted))
	mux.HandleFunc("GET /api/v1/orders/search", authed(h.HandleSearch))
	mux.HandleFunc("GET /api/v1/orders/statistics", authed(h.HandleStatistics))
	mux.HandleFunc("GET /api/v1/orders/revenue", authed(h.HandleRevenue))
	mux.HandleFunc("GET /api/v1/orders/status/{status}", authed(h.HandleByStatus))
	mux.HandleFunc("GET /api/v1/orders/customer/{email}", authed(h.HandleByCustomer))
	mux.HandleFunc("GET /api/v1/orders/{id}", authed(h.HandleGet))
	mux.HandleFunc("PUT /api/v1/orders/{id}", authed(h.HandleUpdate))
	mux.HandleFunc("PUT /api/v1/orders/{id}/status", authed(h.HandleUpdateStatus))
	mux.HandleFunc("PUT /api/v1/orders/{id}/cancel", authed(h.HandleCancel))
	mux.HandleFunc("DELETE /api/v1/orders/{id}", authed(h.HandleDelete))
	mux.HandleFunc("POST /api/v1/orders/{id}/items", authed(h.HandleAddItem))
	mux.HandleFunc("PUT /api/v1/orders/{orderId}/items/{itemId}", authed(h.HandleUpdateItem))
	mux.HandleFunc("DELETE /api/v1/orders/{orderId}/items/{itemId}", authed(h.HandleRemoveItem))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update OrderUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateOrder(r.Context(), r.PathValue("id"), update)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
	Notes  *string            `json:"notes"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), r.PathValue("id"), req.Status, req.Notes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.CancelOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrder(r.Context(), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var input AddItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.AddItemToOrder(r.Context(), r.PathValue("id"), input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var input UpdateItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateOrderItem(r.Context(), r.PathValue("orderId"), r.PathValue("itemId"), input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.RemoveItemFromOrder(r.Context(), r.PathValue("orderId"), r.PathValue("itemId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListPendingOrders(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListActiveOrders(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	orders, err := h.service.ListRecentOrders(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleCompleted(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListCompletedOrders(r.Context(), start, end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.SearchOrdersByCustomerName(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleByStatus(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrdersByStatus(r.Context(), domain.OrderStatus(r.PathValue("status")))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleByCustomer(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrdersByCustomerEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.OrderStatistics(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

type revenueResponse struct {
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Revenue json.RawMessage `json:"revenue"`
}

func (h *Handler) HandleRevenue(w http.ResponseWriter, r *http.Request) {
	start, end, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	revenue, err := h.service.Revenue(r.Context(), start, end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	amount, err := revenue.MarshalJSON()
	if err != nil {
		h.logger.Error("failed to encode revenue", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, revenueResponse{Start: start, End: end, Revenue: amount})
}

// parseWindow reads start/end query params as RFC 3339 timestamps, with a
// plain date accepted as midnight UTC.
func (h *Handler) parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	start, err := parseTimeParam(r.URL.Query().Get("start"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid start date")
		return time.Time{}, time.Time{}, false
	}
	end, err := parseTimeParam(r.URL.Query().Get("end"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid end date")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.IsConflict(err):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("order operation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
