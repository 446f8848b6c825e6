package expense

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/piae/company-expenses/internal/auth"
	"github.com/piae/company-expenses/internal/transport"
)

type ServiceAPI interface {
	Submit(ctx context.Context, actor *auth.User, dto CreateExpenseDTO) (*Expense, error)
	GetExpense(ctx context.Context, id uuid.UUID, actor *auth.User) (*Expense, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Expense, error)
	Approve(ctx context.Context, expenseID uuid.UUID, actor *auth.User, note *string) error
	Reject(ctx context.Context, expenseID uuid.UUID, actor *auth.User, note string) error
	SoftDelete(ctx context.Context, expenseID uuid.UUID, actor *auth.User) error
	AddAttachment(ctx context.Context, expenseID uuid.UUID, actor *auth.User, dto AddAttachmentDTO) (*ExpenseAttachment, error)
	ListAttachments(ctx context.Context, expenseID uuid.UUID, actor *auth.User) ([]*ExpenseAttachment, error)
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

func (h *Handler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exp, err := h.Service.Submit(r.Context(), user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, exp)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	exp, err := h.Service.GetExpense(r.Context(), id, user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, exp)
}

// ListExpenses filters by workplace_id, employee_user_id and status query
// parameters; limit/offset paginate, defaulting to the first 50 rows.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	var filter ListFilter
	if v := r.URL.Query().Get("workplace_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid workplace_id filter")
			return
		}
		filter.WorkplaceID = id
	}
	filter.EmployeeUserID = r.URL.Query().Get("employee_user_id")
	filter.Status = r.URL.Query().Get("status")

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	expenses, err := h.Service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, expenses)
}

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	// The body is optional on approval.
	var dto ApproveExpenseDTO
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&dto)
	}

	if err := h.Service.Approve(r.Context(), id, user, dto.Note); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto RejectExpenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.Reject(r.Context(), id, user, dto.Note); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	if err := h.Service.SoftDelete(r.Context(), id, user); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto AddAttachmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	att, err := h.Service.AddAttachment(r.Context(), id, user, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, att)
}

func (h *Handler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	user, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	atts, err := h.Service.ListAttachments(r.Context(), id, user)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, atts)
}
