package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

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

// Register wires the sweet routes onto the mux. public wraps the read
// routes anyone may call; admin wraps handlers that additionally require
// the ADMIN role.
func (h *Handler) Register(mux *http.ServeMux, public, admin func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/v1/sweets", admin(h.HandleCreate))
	mux.HandleFunc("GET /api/v1/sweets", public(h.HandleList))
	mux.HandleFunc("GET /api/v1/sweets/available", public(h.HandleListAvailable))
	mux.HandleFunc("GET /api/v1/sweets/in-stock", public(h.HandleListInStock))
	mux.HandleFunc("GET /api/v1/sweets/out-of-stock", public(h.HandleListOutOfStock))
	mux.HandleFunc("GET /api/v1/sweets/low-stock", admin(h.HandleListLowStock))
	mux.HandleFunc("GET /api/v1/sweets/search", public(h.HandleSearch))
	mux.HandleFunc("GET /api/v1/sweets/price-range", public(h.HandleListByPriceRange))
	mux.HandleFunc("GET /api/v1/sweets/name/{name}", public(h.HandleGetByName))
	mux.HandleFunc("GET /api/v1/sweets/category/{category}", public(h.HandleListByCategory))
	mux.HandleFunc("GET /api/v1/sweets/brand/{brand}", public(h.HandleListByBrand))
	mux.HandleFunc("GET /api/v1/sweets/{id}", public(h.HandleGet))
	mux.HandleFunc("PUT /api/v1/sweets/{id}", admin(h.HandleUpdate))
	mux.HandleFunc("DELETE /api/v1/sweets/{id}", admin(h.HandleDelete))
	mux.HandleFunc("PUT /api/v1/sweets/{id}/stock", admin(h.HandleSetStock))
	mux.HandleFunc("PUT /api/v1/sweets/{id}/stock/reduce/{amount}", admin(h.HandleReduceStock))
	mux.HandleFunc("PUT /api/v1/sweets/{id}/stock/increase/{amount}", admin(h.HandleIncreaseStock))
	mux.HandleFunc("PUT /api/v1/sweets/{id}/availability", admin(h.HandleToggleAvailability))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input SweetCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.CreateSweet(r.Context(), input)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sweet, err := h.service.GetSweet(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweet)
}

func (h *Handler) HandleGetByName(w http.ResponseWriter, r *http.Request) {
	sweet, err := h.service.GetSweetByName(r.Context(), r.PathValue("name"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweet)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	sweets, err := h.service.ListSweets(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleListAvailable(w http.ResponseWriter, r *http.Request) {
	sweets, err := h.service.ListAvailableSweets(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleListInStock(w http.ResponseWriter, r *http.Request) {
	sweets, err := h.service.ListInStockSweets(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleListOutOfStock(w http.ResponseWriter, r *http.Request) {
	sweets, err := h.service.ListOutOfStockSweets(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleListLowStock(w http.ResponseWriter, r *http.Request) {
	sweets, err := h.service.ListLowStockSweets(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	sweets, err := h.service.SearchSweets(r.Context(), r.URL.Query().Get("term"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleListByCategory(w http.ResponseWriter, r *http.Request) {
	category := domain.SweetCategory(r.PathValue("category"))
	sweets, err := h.service.ListSweetsByCategory(r.Context(), category)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleListByBrand(w http.ResponseWriter, r *http.Request) {
	sweets, err := h.service.ListSweetsByBrand(r.Context(), r.PathValue("brand"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleListByPriceRange(w http.ResponseWriter, r *http.Request) {
	minPrice, err := decimal.NewFromString(r.URL.Query().Get("min"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid min price")
		return
	}
	maxPrice, err := decimal.NewFromString(r.URL.Query().Get("max"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid max price")
		return
	}

	sweets, err := h.service.ListSweetsByPriceRange(r.Context(), minPrice, maxPrice)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweets)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var update SweetUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sweet, err := h.service.UpdateSweet(r.Context(), r.PathValue("id"), update)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweet)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSweet(r.Context(), r.PathValue("id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setStockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleSetStock(w http.ResponseWriter, r *http.Request) {
	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sweet, err := h.service.SetStock(r.Context(), r.PathValue("id"), req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweet)
}

func (h *Handler) HandleReduceStock(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.Atoi(r.PathValue("amount"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	sweet, err := h.service.ReduceStock(r.Context(), r.PathValue("id"), amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweet)
}

func (h *Handler) HandleIncreaseStock(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.Atoi(r.PathValue("amount"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	sweet, err := h.service.IncreaseStock(r.Context(), r.PathValue("id"), amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweet)
}

func (h *Handler) HandleToggleAvailability(w http.ResponseWriter, r *http.Request) {
	sweet, err := h.service.ToggleAvailability(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sweet)
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
		h.logger.Error("sweet operation failed", "error", err)
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
