package api

import (
	"database/sql"
	"net/http"
	"strings"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/lending"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// FinesHandler handles fines. Readers see their own; staff settle them.
type FinesHandler struct {
	DB      *sql.DB
	Lending *lending.Service
}

type waiveRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/fines.
func (h *FinesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var f store.FineFilter
	if isStaff(claims) {
		id, ok := queryID(w, r, "user_id")
		if !ok {
			return
		}
		f.UserID = id
	} else {
		f.UserID = claims.UserID
	}

	loanID, ok := queryID(w, r, "loan_id")
	if !ok {
		return
	}
	f.LoanID = loanID

	if v := r.URL.Query().Get("status"); v != "" {
		f.Status = model.FineStatus(strings.ToUpper(v))
		if f.Status != model.FinePending && f.Status != model.FinePaid && f.Status != model.FineWaived {
			jsonError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	fines, err := store.ListFines(r.Context(), h.DB, f)
	if err != nil {
		domainError(w, err, "list fines")
		return
	}
	if fines == nil {
		fines = []model.Fine{}
	}
	jsonResponse(w, http.StatusOK, fines)
}

// Get handles GET /api/fines/{id}.
func (h *FinesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fine")
	if !ok {
		return
	}

	fine, err := store.GetFine(r.Context(), h.DB, id)
	if err != nil {
		domainError(w, err, "get fine")
		return
	}

	claims := GetClaims(r.Context())
	if !isStaff(claims) && fine.UserID != claims.UserID {
		domainError(w, model.NewNotFound(model.EntityFine, id), "get fine")
		return
	}
	jsonResponse(w, http.StatusOK, fine)
}

// Pay handles POST /api/fines/{id}/pay.
func (h *FinesHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fine")
	if !ok {
		return
	}

	fine, err := h.Lending.PayFine(r.Context(), id)
	if err != nil {
		domainError(w, err, "pay fine")
		return
	}
	jsonResponse(w, http.StatusOK, fine)
}

// Waive handles POST /api/fines/{id}/waive.
func (h *FinesHandler) Waive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fine")
	if !ok {
		return
	}

	var req waiveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fine, err := h.Lending.WaiveFine(r.Context(), id, req.Reason)
	if err != nil {
		domainError(w, err, "waive fine")
		return
	}
	jsonResponse(w, http.StatusOK, fine)
}
