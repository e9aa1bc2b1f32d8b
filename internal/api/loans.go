package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/lending"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// LoansHandler handles loan requests and the desk operations on them.
type LoansHandler struct {
	Lending *lending.Service
}

type createLoanRequest struct {
	BorrowerID int64               `json:"borrower_id"`
	Items      []model.ItemRequest `json:"items"`
	DueDate    *time.Time          `json:"due_date"`
	Notes      string              `json:"notes"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type returnRequest struct {
	Lines []model.ReturnLine `json:"lines"`
	Notes string             `json:"notes"`
}

// Create handles POST /api/loans. Readers borrow for themselves; staff name
// the borrower.
func (h *LoansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	borrower := claims.UserID
	if isStaff(claims) {
		if req.BorrowerID <= 0 {
			jsonError(w, http.StatusBadRequest, "borrower_id required")
			return
		}
		borrower = req.BorrowerID
	} else if req.BorrowerID != 0 && req.BorrowerID != claims.UserID {
		jsonError(w, http.StatusForbidden, "readers can only borrow for themselves")
		return
	}

	in := lending.CreateLoanInput{
		BorrowerID:    borrower,
		Items:         req.Items,
		Notes:         req.Notes,
		CreatedByRole: claims.Role,
	}
	if req.DueDate != nil {
		in.DueDate = *req.DueDate
	}

	loan, err := h.Lending.CreateLoan(r.Context(), in)
	if err != nil {
		domainError(w, err, "create loan")
		return
	}
	jsonResponse(w, http.StatusCreated, loan)
}

// List handles GET /api/loans. Readers only see their own loans.
// ?status= takes a comma-separated list of statuses.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var f store.LoanFilter
	if isStaff(claims) {
		id, ok := queryID(w, r, "borrower_id")
		if !ok {
			return
		}
		f.BorrowerID = id
	} else {
		f.BorrowerID = claims.UserID
	}

	if v := r.URL.Query().Get("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			status := model.LoanStatus(strings.ToUpper(strings.TrimSpace(s)))
			if !status.Valid() {
				jsonError(w, http.StatusBadRequest, "invalid status")
				return
			}
			f.Statuses = append(f.Statuses, status)
		}
	}

	loans, err := h.Lending.ListLoans(r.Context(), f)
	if err != nil {
		domainError(w, err, "list loans")
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Get handles GET /api/loans/{id}.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, ok := visibleLoan(w, r, h.Lending)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Approve handles POST /api/loans/{id}/approve.
func (h *LoansHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve loan", h.Lending.ApproveLoan)
}

// Reject handles POST /api/loans/{id}/reject.
func (h *LoansHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject loan", h.Lending.RejectLoan)
}

func (h *LoansHandler) decide(w http.ResponseWriter, r *http.Request, what string,
	fn func(ctx context.Context, id int64, notes string) (*model.Loan, error)) {
	id, ok := pathID(w, r, "loan")
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

	loan, err := fn(r.Context(), id, req.Notes)
	if err != nil {
		domainError(w, err, what)
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Return handles POST /api/loans/{id}/return.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "loan")
	if !ok {
		return
	}

	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Lending.ReturnLoan(r.Context(), id, req.Lines, req.Notes)
	if err != nil {
		domainError(w, err, "return loan")
		return
	}
	if result.Fines == nil {
		result.Fines = []model.Fine{}
	}
	jsonResponse(w, http.StatusOK, result)
}

// visibleLoan loads the {id} loan and checks the caller may see it. Readers
// get a 404 for loans of other borrowers.
func visibleLoan(w http.ResponseWriter, r *http.Request, svc *lending.Service) (*model.Loan, bool) {
	id, ok := pathID(w, r, "loan")
	if !ok {
		return nil, false
	}

	loan, err := svc.GetLoan(r.Context(), id)
	if err != nil {
		domainError(w, err, "get loan")
		return nil, false
	}

	claims := GetClaims(r.Context())
	if !isStaff(claims) && loan.BorrowerID != claims.UserID {
		domainError(w, model.NewNotFound(model.EntityLoan, id), "get loan")
		return nil, false
	}
	return loan, true
}
