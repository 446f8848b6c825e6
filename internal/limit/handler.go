package limit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal/auth"
	"github.com/piae/company-expenses/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, actor *auth.User, dto CreateLimitDTO) (*WorkplaceLimit, error)
	Update(ctx context.Context, limitID uuid.UUID, actor *auth.User, dto UpdateLimitDTO) (*WorkplaceLimit, error)
	Deactivate(ctx context.Context, limitID uuid.UUID, actor *auth.User) error
	GetLimit(ctx context.Context, id uuid.UUID) (*WorkplaceLimit, error)
	ListForWorkplace(ctx context.Context, workplaceID uuid.UUID) ([]*WorkplaceLimit, error)
	Utilization(ctx context.Context, limitID uuid.UUID, asOf time.Time) (*Utilization, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

func (h *Handler) ListByWorkplace(w http.ResponseWriter, r *http.Request) {
	workplaceID, err := uuid.Parse(chi.URLParam(r, "workplaceId"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid workplace ID")
		return
	}

	limits, err := h.Service.ListForWorkplace(r.Context(), workplaceID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, limits)
}

func (h *Handler) GetLimit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid limit ID")
		return
	}

	lim, err := h.Service.GetLimit(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, lim)
}

func (h *Handler) CreateLimit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateLimitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lim, err := h.Service.Create(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, lim)
}

func (h *Handler) UpdateLimit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid limit ID")
		return
	}

	var dto UpdateLimitDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lim, err := h.Service.Update(r.Context(), id, user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, lim)
}

func (h *Handler) DeactivateLimit(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid limit ID")
		return
	}

	if err := h.Service.Deactivate(r.Context(), id, user); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}

// GetUtilization accepts an optional as_of=YYYY-MM-DD query parameter and
// defaults to today.
func (h *Handler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid limit ID")
		return
	}

	var asOf time.Time
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, err = time.Parse("2006-01-02", v)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid as_of date, expected YYYY-MM-DD")
			return
		}
	}

	util, err := h.Service.Utilization(r.Context(), id, asOf)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, util)
}
