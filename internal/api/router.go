package api

import (
	"database/sql"
	"net/http"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/lending"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/metrics"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, svc *lending.Service) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	booksHandler := &BooksHandler{DB: db}
	loansHandler := &LoansHandler{Lending: svc}
	extensionsHandler := &ExtensionsHandler{DB: db, Lending: svc}
	finesHandler := &FinesHandler{DB: db, Lending: svc}
	notificationsHandler := &NotificationsHandler{DB: db, Lending: svc}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireLibrarian := RequireRole(model.RoleLibrarian)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	librarian := func(h http.HandlerFunc) http.Handler { return authMW(requireLibrarian(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Books: read (all roles), write (librarian+).
	mux.Handle("GET /api/books", authed(booksHandler.List))
	mux.Handle("GET /api/books/{id}", authed(booksHandler.Get))
	mux.Handle("POST /api/books", librarian(booksHandler.Create))
	mux.Handle("POST /api/books/{id}/copies", librarian(booksHandler.AddCopies))
	mux.Handle("POST /api/books/{id}/adjust", librarian(booksHandler.Adjust))

	// Loans.
	mux.Handle("POST /api/loans", authed(loansHandler.Create))
	mux.Handle("GET /api/loans", authed(loansHandler.List))
	mux.Handle("GET /api/loans/{id}", authed(loansHandler.Get))
	mux.Handle("POST /api/loans/{id}/approve", librarian(loansHandler.Approve))
	mux.Handle("POST /api/loans/{id}/reject", librarian(loansHandler.Reject))
	mux.Handle("POST /api/loans/{id}/return", librarian(loansHandler.Return))
	mux.Handle("GET /api/loans/{id}/events", authed(notificationsHandler.LoanEvents))

	// Extensions.
	mux.Handle("POST /api/loans/{id}/extensions", authed(extensionsHandler.Request))
	mux.Handle("GET /api/loans/{id}/extensions", authed(extensionsHandler.List))
	mux.Handle("GET /api/extensions", librarian(extensionsHandler.Queue))
	mux.Handle("POST /api/extensions/{id}/approve", librarian(extensionsHandler.Approve))
	mux.Handle("POST /api/extensions/{id}/reject", librarian(extensionsHandler.Reject))

	// Fines.
	mux.Handle("GET /api/fines", authed(finesHandler.List))
	mux.Handle("GET /api/fines/{id}", authed(finesHandler.Get))
	mux.Handle("POST /api/fines/{id}/pay", librarian(finesHandler.Pay))
	mux.Handle("POST /api/fines/{id}/waive", librarian(finesHandler.Waive))

	// Notifications.
	mux.Handle("GET /api/notifications", authed(notificationsHandler.List))
	mux.Handle("POST /api/notifications/{id}/read", authed(notificationsHandler.MarkRead))

	return mux
}
