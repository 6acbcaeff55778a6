package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/storage"
)

type Handler struct {
	repo   *UserRepository
	tokens *TokenManager
	logger *slog.Logger
}

func NewHandler(db storage.DBTX, tokens *TokenManager, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   NewUserRepository(db),
		tokens: tokens,
		logger: logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux, public func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/v1/auth/register", public(h.HandleRegister))
	mux.HandleFunc("POST /api/v1/auth/login", public(h.HandleLogin))
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Username == "":
		h.writeError(w, http.StatusBadRequest, "username is required")
		return
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		h.writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	case len(req.Password) < 8:
		h.writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	taken, err := h.repo.ExistsByUsername(r.Context(), req.Username)
	if err != nil {
		h.writeInternalError(w, err)
		return
	}
	if taken {
		h.writeError(w, http.StatusConflict, "username is already taken")
		return
	}
	taken, err = h.repo.ExistsByEmail(r.Context(), req.Email)
	if err != nil {
		h.writeInternalError(w, err)
		return
	}
	if taken {
		h.writeError(w, http.StatusConflict, "email is already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.writeInternalError(w, err)
		return
	}

	user := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         RoleUser,
	}
	if err := h.repo.Create(r.Context(), user); err != nil {
		h.writeInternalError(w, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	h.writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.repo.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		h.writeInternalError(w, err)
		return
	}
	// Same error for unknown user and bad password.
	if user == nil {
		h.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(user.Username, user.Role)
	if err != nil {
		h.writeInternalError(w, err)
		return
	}

	h.logger.Info("user logged in", "username", user.Username)
	h.writeJSON(w, http.StatusOK, tokenResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
	})
}

func (h *Handler) writeInternalError(w http.ResponseWriter, err error) {
	h.logger.Error("auth operation failed", "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
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
