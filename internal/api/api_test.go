package api

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/db"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/events"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/finepolicy"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/lending"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/notify"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

const (
	testJWTSecret = "test-secret"
	testPassword  = "password"
)

type testServer struct {
	*httptest.Server
	db *sql.DB
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	database := db.NewTestDB(t)

	bus := events.NewBus(64)
	bus.Subscribe((&notify.Notifier{DB: database}).Handle)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bus.Run(ctx)

	svc := &lending.Service{
		DB:     database,
		Policy: lending.DefaultPolicy(),
		Fines:  finepolicy.DefaultPolicy(),
		Bus:    bus,
	}
	server := httptest.NewServer(LoggingMiddleware(NewRouter(database, testJWTSecret, svc)))
	t.Cleanup(server.Close)

	ts := &testServer{Server: server, db: database}
	ts.createUser(t, "admin", model.RoleAdmin)
	return ts
}

func (ts *testServer) createUser(t *testing.T, username, role string) *model.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	user, err := store.CreateUser(context.Background(), ts.db, username, string(hash), role)
	if err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return user
}

func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": testPassword})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

// do sends an authenticated request, checks the status and decodes the
// response into out when it is non-nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body any, want int, out any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var e errorBody
		json.NewDecoder(resp.Body).Decode(&e)
		t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, want, resp.StatusCode, e.Error)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if token := ts.login(t, "admin"); token == "" {
		t.Error("expected a token")
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	ts := setupTestServer(t)

	resp, _ := http.Get(ts.URL + "/api/books")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.login(t, "admin")

	ts.do(t, "GET", "/api/books", token, nil, http.StatusOK, nil)
	ts.do(t, "POST", "/api/auth/logout", token, nil, http.StatusOK, nil)
	ts.do(t, "GET", "/api/books", token, nil, http.StatusUnauthorized, nil)
}

func TestDeletedUserTokenRejected(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.login(t, "admin")
	reader := ts.createUser(t, "reader", model.RoleReader)
	readerToken := ts.login(t, "reader")

	ts.do(t, "DELETE", "/api/users/"+itoa(reader.ID), admin, nil, http.StatusOK, nil)
	ts.do(t, "GET", "/api/books", readerToken, nil, http.StatusUnauthorized, nil)
}

func TestChangePassword(t *testing.T) {
	ts := setupTestServer(t)
	token := ts.login(t, "admin")

	ts.do(t, "PUT", "/api/auth/password", token, map[string]string{
		"current_password": testPassword, "new_password": "short",
	}, http.StatusBadRequest, nil)
	ts.do(t, "PUT", "/api/auth/password", token, map[string]string{
		"current_password": "nope", "new_password": "long enough",
	}, http.StatusUnauthorized, nil)
	ts.do(t, "PUT", "/api/auth/password", token, map[string]string{
		"current_password": testPassword, "new_password": "long enough",
	}, http.StatusOK, nil)
}

func TestRoleBasedAccess(t *testing.T) {
	ts := setupTestServer(t)
	ts.createUser(t, "reader", model.RoleReader)
	ts.createUser(t, "desk", model.RoleLibrarian)
	reader := ts.login(t, "reader")
	desk := ts.login(t, "desk")

	book := map[string]any{"title": "Dune", "price": "100000", "copies": 1}
	ts.do(t, "POST", "/api/books", reader, book, http.StatusForbidden, nil)
	ts.do(t, "GET", "/api/users", reader, nil, http.StatusForbidden, nil)
	ts.do(t, "GET", "/api/users", desk, nil, http.StatusForbidden, nil)
	ts.do(t, "POST", "/api/books", desk, book, http.StatusCreated, nil)
	ts.do(t, "GET", "/api/extensions", reader, nil, http.StatusForbidden, nil)
}

func TestUsersAPI(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.login(t, "admin")

	var created model.User
	ts.do(t, "POST", "/api/users", admin, map[string]string{
		"username": "ana", "password": "secret-pass", "role": model.RoleReader,
	}, http.StatusCreated, &created)
	ts.do(t, "POST", "/api/users", admin, map[string]string{
		"username": "ana", "password": "secret-pass", "role": model.RoleReader,
	}, http.StatusConflict, nil)
	ts.do(t, "POST", "/api/users", admin, map[string]string{
		"username": "bob", "password": "secret-pass", "role": "owner",
	}, http.StatusBadRequest, nil)

	var updated model.User
	ts.do(t, "PUT", "/api/users/"+itoa(created.ID), admin, map[string]string{
		"role": model.RoleLibrarian,
	}, http.StatusOK, &updated)
	if updated.Role != model.RoleLibrarian {
		t.Errorf("expected librarian, got %s", updated.Role)
	}

	var users []model.User
	ts.do(t, "GET", "/api/users?role=librarian", admin, nil, http.StatusOK, &users)
	if len(users) != 1 {
		t.Errorf("expected 1 librarian, got %d", len(users))
	}

	ts.do(t, "GET", "/api/users/999", admin, nil, http.StatusNotFound, nil)
}

func TestLoanLifecycleAPI(t *testing.T) {
	ts := setupTestServer(t)
	reader := ts.createUser(t, "reader", model.RoleReader)
	ts.createUser(t, "desk", model.RoleLibrarian)
	readerToken := ts.login(t, "reader")
	desk := ts.login(t, "desk")

	var book model.Book
	ts.do(t, "POST", "/api/books", desk, map[string]any{
		"title": "Dune", "price": "100000", "copies": 2,
	}, http.StatusCreated, &book)

	var loan model.Loan
	ts.do(t, "POST", "/api/loans", readerToken, map[string]any{
		"items": []model.ItemRequest{{BookID: book.ID, Quantity: 2}},
	}, http.StatusCreated, &loan)
	if loan.BorrowerID != reader.ID || loan.Status != model.LoanPending {
		t.Fatalf("unexpected loan: %+v", loan)
	}

	loanPath := "/api/loans/" + itoa(loan.ID)
	ts.do(t, "POST", loanPath+"/approve", readerToken, nil, http.StatusForbidden, nil)
	ts.do(t, "POST", loanPath+"/approve", desk, nil, http.StatusOK, &loan)
	if loan.Status != model.LoanBorrowed {
		t.Fatalf("expected BORROWED, got %s", loan.Status)
	}

	ts.do(t, "GET", "/api/books/"+itoa(book.ID), readerToken, nil, http.StatusOK, &book)
	if book.AvailableCopies != 0 {
		t.Errorf("expected 0 available, got %d", book.AvailableCopies)
	}

	// Extension: only the borrower may ask, staff decide.
	var ext model.ExtensionRequest
	ts.do(t, "POST", loanPath+"/extensions", desk, map[string]any{"days": 7}, http.StatusForbidden, nil)
	ts.do(t, "POST", loanPath+"/extensions", readerToken, map[string]any{"days": 5}, http.StatusBadRequest, nil)
	ts.do(t, "POST", loanPath+"/extensions", readerToken, map[string]any{"days": 7, "reason": "exams"}, http.StatusCreated, &ext)

	var queue []model.ExtensionRequest
	ts.do(t, "GET", "/api/extensions", desk, nil, http.StatusOK, &queue)
	if len(queue) != 1 {
		t.Fatalf("expected 1 pending extension, got %d", len(queue))
	}
	ts.do(t, "POST", "/api/extensions/"+itoa(ext.ID)+"/approve", desk, nil, http.StatusOK, &ext)
	if ext.Status != model.ExtensionApproved {
		t.Errorf("expected APPROVED, got %s", ext.Status)
	}

	var result struct {
		Loan  model.Loan   `json:"loan"`
		Fines []model.Fine `json:"fines"`
	}
	ts.do(t, "POST", loanPath+"/return", desk, map[string]any{
		"lines": []model.ReturnLine{
			{BookID: book.ID, Quantity: 1, Condition: model.ConditionGood},
			{BookID: book.ID, Quantity: 1, Condition: model.ConditionLost},
		},
	}, http.StatusOK, &result)
	if result.Loan.Status != model.LoanReturned {
		t.Errorf("expected RETURNED, got %s", result.Loan.Status)
	}
	if len(result.Fines) != 1 || result.Fines[0].Type != model.FineLoss {
		t.Fatalf("expected one LOSS fine, got %+v", result.Fines)
	}

	ts.do(t, "GET", "/api/books/"+itoa(book.ID), desk, nil, http.StatusOK, &book)
	if book.TotalCopies != 1 || book.AvailableCopies != 1 {
		t.Errorf("expected 1/1 copies, got %d/%d", book.AvailableCopies, book.TotalCopies)
	}

	var fines []model.Fine
	ts.do(t, "GET", "/api/fines", readerToken, nil, http.StatusOK, &fines)
	if len(fines) != 1 {
		t.Fatalf("expected reader to see 1 fine, got %d", len(fines))
	}
	finePath := "/api/fines/" + itoa(fines[0].ID)
	ts.do(t, "POST", finePath+"/pay", readerToken, nil, http.StatusForbidden, nil)
	ts.do(t, "POST", finePath+"/pay", desk, nil, http.StatusOK, nil)

	var conflict errorBody
	req := waiveRequest{Reason: "goodwill"}
	ts.do(t, "POST", finePath+"/waive", desk, req, http.StatusConflict, &conflict)
	if conflict.Entity != model.EntityFine || conflict.From != string(model.FinePaid) || conflict.Action != "waive" {
		t.Errorf("unexpected conflict body: %+v", conflict)
	}

	var evs []eventView
	ts.do(t, "GET", loanPath+"/events", readerToken, nil, http.StatusOK, &evs)
	if len(evs) == 0 || evs[0].Type != string(events.LoanRequested) {
		t.Errorf("expected the event log to start with the request, got %+v", evs)
	}

	// Notifications arrive asynchronously through the bus.
	var notes []model.Notification
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ts.do(t, "GET", "/api/notifications", readerToken, nil, http.StatusOK, &notes)
		if len(notes) >= len(evs) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(notes) == 0 {
		t.Fatal("expected notifications for the reader")
	}
	ts.do(t, "POST", "/api/notifications/"+itoa(notes[0].ID)+"/read", readerToken, nil, http.StatusOK, nil)
	ts.do(t, "GET", "/api/notifications?unread=true", readerToken, nil, http.StatusOK, &notes)
	for _, n := range notes {
		if n.Read {
			t.Errorf("unread filter returned read notification %d", n.ID)
		}
	}
}

func TestLoanErrorsAPI(t *testing.T) {
	ts := setupTestServer(t)
	ts.createUser(t, "reader", model.RoleReader)
	other := ts.createUser(t, "other", model.RoleReader)
	ts.createUser(t, "desk", model.RoleLibrarian)
	readerToken := ts.login(t, "reader")
	otherToken := ts.login(t, "other")
	desk := ts.login(t, "desk")

	var book model.Book
	ts.do(t, "POST", "/api/books", desk, map[string]any{
		"title": "Dune", "price": 100000, "copies": 1,
	}, http.StatusCreated, &book)

	var stock errorBody
	ts.do(t, "POST", "/api/loans", readerToken, map[string]any{
		"items": []model.ItemRequest{{BookID: book.ID, Quantity: 5}},
	}, http.StatusConflict, &stock)
	if stock.BookID != book.ID || stock.Requested != 5 || stock.Available == nil || *stock.Available != 1 {
		t.Errorf("unexpected stock error body: %+v", stock)
	}

	ts.do(t, "POST", "/api/loans", readerToken, map[string]any{
		"borrower_id": other.ID,
		"items":       []model.ItemRequest{{BookID: book.ID, Quantity: 1}},
	}, http.StatusForbidden, nil)
	ts.do(t, "POST", "/api/loans", desk, map[string]any{
		"items": []model.ItemRequest{{BookID: book.ID, Quantity: 1}},
	}, http.StatusBadRequest, nil)

	var loan model.Loan
	ts.do(t, "POST", "/api/loans", desk, map[string]any{
		"borrower_id": other.ID,
		"items":       []model.ItemRequest{{BookID: book.ID, Quantity: 1}},
	}, http.StatusCreated, &loan)
	if loan.CreatedByRole != model.RoleLibrarian {
		t.Errorf("expected created_by_role librarian, got %s", loan.CreatedByRole)
	}

	loanPath := "/api/loans/" + itoa(loan.ID)
	ts.do(t, "GET", loanPath, readerToken, nil, http.StatusNotFound, nil)
	ts.do(t, "GET", loanPath, otherToken, nil, http.StatusOK, nil)

	var mine []model.Loan
	ts.do(t, "GET", "/api/loans", readerToken, nil, http.StatusOK, &mine)
	if len(mine) != 0 {
		t.Errorf("expected reader to see no loans, got %d", len(mine))
	}
	ts.do(t, "GET", "/api/loans?status=bogus", desk, nil, http.StatusBadRequest, nil)

	var transition errorBody
	ts.do(t, "POST", loanPath+"/reject", desk, notesRequest{Notes: "not today"}, http.StatusOK, nil)
	ts.do(t, "POST", loanPath+"/approve", desk, nil, http.StatusConflict, &transition)
	if transition.From != string(model.LoanCancelled) || transition.Action != "approve" {
		t.Errorf("unexpected transition body: %+v", transition)
	}

	ts.do(t, "POST", "/api/loans/999/approve", desk, nil, http.StatusNotFound, nil)
	ts.do(t, "POST", "/api/loans/abc/approve", desk, nil, http.StatusBadRequest, nil)
}

func TestBooksAPI(t *testing.T) {
	ts := setupTestServer(t)
	admin := ts.login(t, "admin")

	var book model.Book
	ts.do(t, "POST", "/api/books", admin, map[string]any{"title": "", "copies": 1}, http.StatusBadRequest, nil)
	ts.do(t, "POST", "/api/books", admin, map[string]any{
		"title": "Solaris", "author": "Lem", "price": "80000", "copies": 2,
	}, http.StatusCreated, &book)

	path := "/api/books/" + itoa(book.ID)
	ts.do(t, "POST", path+"/copies", admin, addCopiesRequest{Quantity: 3}, http.StatusOK, &book)
	if book.TotalCopies != 5 || book.AvailableCopies != 5 {
		t.Errorf("expected 5/5, got %d/%d", book.AvailableCopies, book.TotalCopies)
	}
	ts.do(t, "POST", path+"/adjust", admin, adjustCopiesRequest{Delta: -6}, http.StatusConflict, nil)
	ts.do(t, "POST", path+"/adjust", admin, adjustCopiesRequest{Delta: -1, Notes: "water damage"}, http.StatusOK, &book)
	if book.TotalCopies != 4 {
		t.Errorf("expected 4 copies, got %d", book.TotalCopies)
	}

	var books []model.Book
	ts.do(t, "GET", "/api/books?q=lem", admin, nil, http.StatusOK, &books)
	if len(books) != 1 {
		t.Errorf("expected 1 book, got %d", len(books))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
