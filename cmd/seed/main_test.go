package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/db"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

const sample = `
books:
  - isbn: "978-0441013593"
    title: Dune
    author: Frank Herbert
    price: "120000"
    copies: 3
  - title: Solaris
    price: "80000"
    copies: 1
users:
  - username: ana
    password: reading-is-fun
  - username: desk
    password: circulation
    role: librarian
`

func writeCatalogue(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalogue(t *testing.T) {
	ctx := context.Background()
	database := db.NewTestDB(t)

	cat, err := readCatalogue(writeCatalogue(t, sample))
	require.NoError(t, err)

	res, err := load(ctx, database, cat)
	require.NoError(t, err)
	assert.Equal(t, result{Books: 2, Users: 2}, res)

	dune, err := store.GetBookByISBN(ctx, database, "978-0441013593")
	require.NoError(t, err)
	require.NotNil(t, dune)
	assert.Equal(t, 3, dune.AvailableCopies)
	assert.Equal(t, "120000", dune.Price.String())

	ana, err := store.GetUserByUsername(ctx, database, "ana")
	require.NoError(t, err)
	require.NotNil(t, ana)
	assert.Equal(t, model.RoleReader, ana.Role)

	// Applying it again only adds the book without an ISBN.
	res, err = load(ctx, database, cat)
	require.NoError(t, err)
	assert.Equal(t, result{Books: 1, Skipped: 3}, res)
}

func TestLoadCatalogueIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	database := db.NewTestDB(t)

	cat, err := readCatalogue(writeCatalogue(t, `
books:
  - title: Dune
    copies: 1
users:
  - username: ana
    password: short
`))
	require.NoError(t, err)

	_, err = load(ctx, database, cat)
	require.ErrorIs(t, err, model.ErrInvalidInput)

	books, err := store.ListBooks(ctx, database, "")
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestReadCatalogueErrors(t *testing.T) {
	_, err := readCatalogue(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = readCatalogue(writeCatalogue(t, "books: [unclosed"))
	assert.Error(t, err)
}
