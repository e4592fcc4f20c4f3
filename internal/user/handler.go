package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/internal/auth"
	"github.com/chiremba/chiremba-api/internal/user/entity"
	"github.com/chiremba/chiremba-api/pkg/utilities"
)

const maxBodyBytes = 1 << 20

// Handler exposes HTTP endpoints for authentication and account administration.
type Handler struct {
	svc    *UserService
	seed   SeedConfig
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, seed SeedConfig, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, seed: seed, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, sess)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginInput
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		h.writeError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		utilities.WriteMessage(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}
	v, err := h.svc.Me(r.Context(), claims.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"user": v})
}

func (h *Handler) SetupPassword(w http.ResponseWriter, r *http.Request) {
	var req SetupPasswordInput
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.SetupPassword(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	utilities.WriteMessage(w, http.StatusOK, "Password set successfully. You can now log in.")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "")
}

func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, entity.RoleStaff)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, role entity.Role) {
	users, err := h.svc.List(r.Context(), role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, entity.RoleStaff, "Staff user created successfully")
}

func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, entity.RoleAdmin, "Admin user created successfully")
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, role entity.Role, msg string) {
	var req CreateAccountInput
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.svc.CreateAccount(r.Context(), role, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]any{"message": msg, "user": v})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	utilities.WriteMessage(w, http.StatusOK, "User deleted successfully")
}

type changeRoleRequest struct {
	Role entity.Role `json:"role"`
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	v, err := h.svc.ChangeRole(r.Context(), r.PathValue("id"), req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"user": v})
}

func (h *Handler) ResetAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResetAccount(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User account reset and setup email sent.",
	})
}

func (h *Handler) InitAdmin(w http.ResponseWriter, r *http.Request) {
	created, err := h.svc.SeedDefaults(r.Context(), h.seed)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !created {
		utilities.WriteMessage(w, http.StatusOK, "Admin user already exists")
		return
	}
	utilities.WriteMessage(w, http.StatusCreated, "Admin and staff users initialized successfully")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debugw("invalid payload", "path", r.URL.Path, "err", err)
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid payload")
		return false
	}
	return true
}

// writeError maps service errors to status codes and client messages.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		utilities.WriteJSON(w, http.StatusBadRequest, map[string]any{"errors": verr.Fields})
	case errors.Is(err, ErrDuplicateEmail):
		utilities.WriteMessage(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, ErrInvalidCredentials):
		utilities.WriteMessage(w, http.StatusBadRequest, "Invalid email or password")
	case errors.Is(err, ErrAccountNotActive):
		utilities.WriteMessage(w, http.StatusForbidden, "Account not active. Please set up your password from the email link.")
	case errors.Is(err, ErrInvalidOrExpiredToken):
		utilities.WriteMessage(w, http.StatusBadRequest, "Invalid or expired token")
	case errors.Is(err, ErrLastAdmin):
		utilities.WriteMessage(w, http.StatusBadRequest, "Cannot remove the last admin")
	case errors.Is(err, ErrInvalidRole):
		utilities.WriteMessage(w, http.StatusBadRequest, "Invalid role")
	case errors.Is(err, ErrNotFound):
		utilities.WriteMessage(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		utilities.WriteMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
