package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errorBody is the JSON shape of every error response. The context fields
// are set when the error carries them.
type errorBody struct {
	Error     string `json:"error"`
	Entity    string `json:"entity,omitempty"`
	ID        int64  `json:"id,omitempty"`
	From      string `json:"from,omitempty"`
	Action    string `json:"action,omitempty"`
	BookID    int64  `json:"book_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// domainError maps a lending error to its HTTP status and writes it. Errors
// outside the lending taxonomy are logged and reported as 500.
func domainError(w http.ResponseWriter, err error, what string) {
	body := errorBody{Error: err.Error()}

	var te *model.TransitionError
	if errors.As(err, &te) {
		body.Entity, body.ID, body.From, body.Action = te.Entity, te.ID, te.From, te.Action
	}
	var se *model.StockError
	if errors.As(err, &se) {
		available := se.Available
		body.BookID, body.Requested, body.Available = se.BookID, se.Requested, &available
	}
	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		body.Entity, body.ID = nf.Entity, nf.ID
	}

	var status int
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidExtensionLength),
		errors.Is(err, model.ErrInvalidDamageLevel):
		status = http.StatusBadRequest
	default:
		slog.Error("failed to "+what, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to "+what)
		return
	}
	jsonResponse(w, status, body)
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathID parses the {id} path value. It writes a 400 and returns false when
// the value is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter.
func queryID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return id, true
}
