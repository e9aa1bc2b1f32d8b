package api

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/lending"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// ExtensionsHandler handles due date extension requests.
type ExtensionsHandler struct {
	DB      *sql.DB
	Lending *lending.Service
}

type extensionRequest struct {
	Days   int    `json:"days"`
	Reason string `json:"reason"`
}

// Request handles POST /api/loans/{id}/extensions. Only the borrower may ask.
func (h *ExtensionsHandler) Request(w http.ResponseWriter, r *http.Request) {
	loan, ok := visibleLoan(w, r, h.Lending)
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if loan.BorrowerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "only the borrower can request an extension")
		return
	}

	var req extensionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ext, err := h.Lending.RequestExtension(r.Context(), loan.ID, req.Days, req.Reason)
	if err != nil {
		domainError(w, err, "request extension")
		return
	}
	jsonResponse(w, http.StatusCreated, ext)
}

// List handles GET /api/loans/{id}/extensions.
func (h *ExtensionsHandler) List(w http.ResponseWriter, r *http.Request) {
	loan, ok := visibleLoan(w, r, h.Lending)
	if !ok {
		return
	}

	h.list(w, r, loan.ID)
}

// Queue handles GET /api/extensions, the requests of every loan. Defaults to
// the pending ones.
func (h *ExtensionsHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("status") == "" {
		q := r.URL.Query()
		q.Set("status", string(model.ExtensionPending))
		r.URL.RawQuery = q.Encode()
	}
	h.list(w, r, 0)
}

func (h *ExtensionsHandler) list(w http.ResponseWriter, r *http.Request, loanID int64) {
	status := model.ExtensionStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status != "" && status != model.ExtensionPending && status != model.ExtensionApproved && status != model.ExtensionRejected {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	exts, err := store.ListExtensions(r.Context(), h.DB, loanID, status)
	if err != nil {
		domainError(w, err, "list extensions")
		return
	}
	if exts == nil {
		exts = []model.ExtensionRequest{}
	}
	jsonResponse(w, http.StatusOK, exts)
}

// Approve handles POST /api/extensions/{id}/approve.
func (h *ExtensionsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve extension", h.Lending.ApproveExtension)
}

// Reject handles POST /api/extensions/{id}/reject.
func (h *ExtensionsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject extension", h.Lending.RejectExtension)
}

func (h *ExtensionsHandler) decide(w http.ResponseWriter, r *http.Request, what string,
	fn func(ctx context.Context, id int64, notes string) (*model.ExtensionRequest, error)) {
	id, ok := pathID(w, r, "extension")
	if !ok {
		return
	}

	var req notesRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ext, err := fn(r.Context(), id, req.Notes)
	if err != nil {
		domainError(w, err, what)
		return
	}
	jsonResponse(w, http.StatusOK, ext)
}
