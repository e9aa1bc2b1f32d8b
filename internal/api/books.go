package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

// BooksHandler handles the catalogue and its copy counts.
type BooksHandler struct {
	DB *sql.DB
}

type createBookRequest struct {
	ISBN   string          `json:"isbn"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	Price  decimal.Decimal `json:"price"`
	Copies int             `json:"copies"`
}

type addCopiesRequest struct {
	Quantity int `json:"quantity"`
}

type adjustCopiesRequest struct {
	Delta int    `json:"delta"`
	Notes string `json:"notes"`
}

// List handles GET /api/books.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := store.ListBooks(r.Context(), h.DB, r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("failed to list books", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	jsonResponse(w, http.StatusOK, books)
}

// Get handles GET /api/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "book")
	if !ok {
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		domainError(w, err, "get book")
		return
	}
	jsonResponse(w, http.StatusOK, book)
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	book, err := store.CreateBook(r.Context(), h.DB, req.ISBN, req.Title, req.Author, req.Price, req.Copies)
	if err != nil {
		domainError(w, err, "create book")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("book created", "user", claims.Username, "book", book.Title, "copies", book.TotalCopies)
	jsonResponse(w, http.StatusCreated, book)
}

// AddCopies handles POST /api/books/{id}/copies.
func (h *BooksHandler) AddCopies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "book")
	if !ok {
		return
	}

	var req addCopiesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.AddCopies(r.Context(), h.DB, id, req.Quantity); err != nil {
		domainError(w, err, "add copies")
		return
	}
	h.respondBook(w, r, id, "copies added", "quantity", req.Quantity)
}

// Adjust handles POST /api/books/{id}/adjust.
func (h *BooksHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "book")
	if !ok {
		return
	}

	var req adjustCopiesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.AdjustCopies(r.Context(), h.DB, id, req.Delta); err != nil {
		domainError(w, err, "adjust copies")
		return
	}
	h.respondBook(w, r, id, "copies adjusted", "delta", req.Delta, "notes", req.Notes)
}

func (h *BooksHandler) respondBook(w http.ResponseWriter, r *http.Request, id int64, msg string, attrs ...any) {
	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		domainError(w, err, "get book")
		return
	}
	claims := GetClaims(r.Context())
	slog.Info(msg, append([]any{"user", claims.Username, "book", book.Title}, attrs...)...)
	jsonResponse(w, http.StatusOK, book)
}
