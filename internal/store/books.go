package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

const bookColumns = `id, isbn, title, author, price, total_copies, available_copies, created_at, updated_at, deleted_at`

// CreateBook registers a title with the given number of copies, all on the shelf.
func CreateBook(ctx context.Context, q Querier, isbn, title, author string, price decimal.Decimal, copies int) (*model.Book, error) {
	if title == "" {
		return nil, model.InvalidInput("title required")
	}
	if copies < 0 {
		return nil, model.InvalidInput("copies must not be negative")
	}
	if price.IsNegative() {
		return nil, model.InvalidInput("price must not be negative")
	}

	now := time.Now().UTC()
	result, err := q.ExecContext(ctx,
		`INSERT INTO books (isbn, title, author, price, total_copies, available_copies, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(isbn), title, nullString(author), price.String(), copies, copies, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting book id: %w", err)
	}

	return GetBook(ctx, q, id)
}

// GetBook returns a book by ID, including soft-deleted ones.
func GetBook(ctx context.Context, q Querier, id int64) (*model.Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, model.NewNotFound(model.EntityBook, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return b, nil
}

// GetBookByISBN returns the non-deleted book with the given ISBN, or nil if
// there is none.
func GetBookByISBN(ctx context.Context, q Querier, isbn string) (*model.Book, error) {
	b, err := scanBook(q.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ? AND deleted_at IS NULL`, isbn,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting book by isbn: %w", err)
	}
	return b, nil
}

// ListBooks returns all non-deleted books, optionally filtered by a title or
// author substring.
func ListBooks(ctx context.Context, q Querier, search string) ([]model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE deleted_at IS NULL`
	var args []any
	if search != "" {
		query += ` AND (title LIKE ? OR author LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY title`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*model.Book, error) {
	b := &model.Book{}
	var isbn, author sql.NullString
	var price string
	if err := row.Scan(&b.ID, &isbn, &b.Title, &author, &price, &b.TotalCopies, &b.AvailableCopies,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parsing price of book %d: %w", b.ID, err)
	}
	b.Price = p
	b.ISBN = isbn.String
	b.Author = author.String
	return b, nil
}
