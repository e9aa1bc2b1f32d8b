package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'reader' CHECK (role IN ('admin', 'librarian', 'reader')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
    id               INTEGER PRIMARY KEY,
    isbn             TEXT,
    title            TEXT NOT NULL,
    author           TEXT,
    price            TEXT NOT NULL DEFAULT '0',
    total_copies     INTEGER NOT NULL DEFAULT 0,
    available_copies INTEGER NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       DATETIME,
    CHECK (available_copies >= 0 AND available_copies <= total_copies)
);

CREATE TABLE IF NOT EXISTS loans (
    id              INTEGER PRIMARY KEY,
    borrower_id     INTEGER NOT NULL REFERENCES users(id),
    status          TEXT NOT NULL DEFAULT 'PENDING'
                    CHECK (status IN ('PENDING', 'BORROWED', 'PARTIAL_RETURN', 'RETURNED', 'CANCELLED')),
    due_date        DATETIME NOT NULL,
    return_date     DATETIME,
    notes           TEXT,
    admin_notes     TEXT,
    created_by_role TEXT NOT NULL,
    late_fee_issued INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME NOT NULL,
    approved_at     DATETIME,
    updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans(borrower_id);
CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status);

CREATE TABLE IF NOT EXISTS loan_items (
    id                INTEGER PRIMARY KEY,
    loan_id           INTEGER NOT NULL REFERENCES loans(id),
    book_id           INTEGER NOT NULL REFERENCES books(id),
    quantity          INTEGER NOT NULL CHECK (quantity > 0),
    returned_quantity INTEGER NOT NULL DEFAULT 0,
    condition         TEXT CHECK (condition IN ('GOOD', 'DAMAGED', 'LOST')),
    CHECK (returned_quantity >= 0 AND returned_quantity <= quantity),
    UNIQUE (loan_id, book_id)
);

CREATE TABLE IF NOT EXISTS loan_returns (
    id             INTEGER PRIMARY KEY,
    loan_item_id   INTEGER NOT NULL REFERENCES loan_items(id),
    quantity       INTEGER NOT NULL CHECK (quantity > 0),
    condition      TEXT NOT NULL CHECK (condition IN ('GOOD', 'DAMAGED', 'LOST')),
    damage_percent INTEGER,
    notes          TEXT,
    processed_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS extension_requests (
    id               INTEGER PRIMARY KEY,
    loan_id          INTEGER NOT NULL REFERENCES loans(id),
    days             INTEGER NOT NULL CHECK (days > 0),
    reason           TEXT,
    current_due_date DATETIME NOT NULL,
    new_due_date     DATETIME NOT NULL,
    status           TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
    notes            TEXT,
    created_at       DATETIME NOT NULL,
    resolved_at      DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_extension_requests_pending
    ON extension_requests(loan_id) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS fines (
    id            INTEGER PRIMARY KEY,
    user_id       INTEGER NOT NULL REFERENCES users(id),
    loan_id       INTEGER NOT NULL REFERENCES loans(id),
    loan_item_id  INTEGER REFERENCES loan_items(id),
    type          TEXT NOT NULL CHECK (type IN ('LATE_RETURN', 'DAMAGE', 'LOSS')),
    amount        TEXT NOT NULL,
    currency      TEXT NOT NULL,
    description   TEXT,
    status        TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'PAID', 'WAIVED')),
    waiver_reason TEXT,
    created_at    DATETIME NOT NULL,
    paid_at       DATETIME,
    waived_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_fines_user ON fines(user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_fines_late_once
    ON fines(loan_id) WHERE type = 'LATE_RETURN';

CREATE TABLE IF NOT EXISTS events (
    id          TEXT PRIMARY KEY,
    type        TEXT NOT NULL,
    user_id     INTEGER,
    loan_id     INTEGER,
    payload     TEXT NOT NULL,
    occurred_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id         INTEGER PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    event_id   TEXT,
    message    TEXT NOT NULL,
    is_read    INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_event
    ON notifications(user_id, event_id) WHERE event_id IS NOT NULL;
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
