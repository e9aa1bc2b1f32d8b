package api

import (
	"database/sql"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/lending"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// NotificationsHandler serves the caller's notification inbox and the
// event log of a loan.
type NotificationsHandler struct {
	DB      *sql.DB
	Lending *lending.Service
}

type eventView struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	UserID     int64               `json:"user_id,omitempty"`
	LoanID     int64               `json:"loan_id,omitempty"`
	Payload    jsoniter.RawMessage `json:"payload"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// List handles GET /api/notifications. ?unread=true hides read ones.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	unread := r.URL.Query().Get("unread") == "true"

	notes, err := store.ListNotifications(r.Context(), h.DB, claims.UserID, unread)
	if err != nil {
		domainError(w, err, "list notifications")
		return
	}
	if notes == nil {
		notes = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, notes)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "notification")
	if !ok {
		return
	}

	claims := GetClaims(r.Context())
	if err := store.MarkNotificationRead(r.Context(), h.DB, id, claims.UserID); err != nil {
		domainError(w, err, "mark notification read")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification read"})
}

// LoanEvents handles GET /api/loans/{id}/events.
func (h *NotificationsHandler) LoanEvents(w http.ResponseWriter, r *http.Request) {
	loan, ok := visibleLoan(w, r, h.Lending)
	if !ok {
		return
	}

	evs, err := store.ListEvents(r.Context(), h.DB, loan.ID)
	if err != nil {
		domainError(w, err, "list events")
		return
	}
	views := make([]eventView, 0, len(evs))
	for _, e := range evs {
		views = append(views, eventView{
			ID: e.ID, Type: e.Type, UserID: e.UserID, LoanID: e.LoanID,
			Payload: jsoniter.RawMessage(e.Payload), OccurredAt: e.OccurredAt,
		})
	}
	jsonResponse(w, http.StatusOK, views)
}
