// Command seed loads a YAML catalogue of books and accounts into a library
// database. Entries that already exist (same ISBN or username) are skipped,
// so a catalogue can be applied more than once.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/auth"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/db"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/model"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/store"
)

type catalogue struct {
	Books []bookEntry `yaml:"books"`
	Users []userEntry `yaml:"users"`
}

type bookEntry struct {
	ISBN   string `yaml:"isbn"`
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Price  string `yaml:"price"`
	Copies int    `yaml:"copies"`
}

type userEntry struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type result struct {
	Books, Users, Skipped int
}

func main() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	dbPath := fs.String("db", "library.sqlite3", "path to SQLite database file")
	file := fs.String("f", "catalogue.yaml", "catalogue file to load")
	fs.Parse(os.Args[1:])

	cat, err := readCatalogue(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	res, err := load(context.Background(), database, cat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d books and %d users into %s (%d skipped).\n", res.Books, res.Users, *dbPath, res.Skipped)
}

func readCatalogue(path string) (*catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}
	var cat catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalogue %s: %w", path, err)
	}
	return &cat, nil
}

// load applies the catalogue in one transaction: a bad entry leaves the
// database untouched.
func load(ctx context.Context, database *sql.DB, cat *catalogue) (result, error) {
	var res result

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i, b := range cat.Books {
		if b.ISBN != "" {
			existing, err := store.GetBookByISBN(ctx, tx, b.ISBN)
			if err != nil {
				return res, err
			}
			if existing != nil {
				res.Skipped++
				continue
			}
		}

		price := decimal.Zero
		if b.Price != "" {
			if price, err = decimal.NewFromString(b.Price); err != nil {
				return res, fmt.Errorf("book %d (%s): invalid price %q", i+1, b.Title, b.Price)
			}
		}
		if _, err := store.CreateBook(ctx, tx, b.ISBN, b.Title, b.Author, price, b.Copies); err != nil {
			return res, fmt.Errorf("book %d (%s): %w", i+1, b.Title, err)
		}
		res.Books++
	}

	for _, u := range cat.Users {
		existing, err := store.GetUserByUsername(ctx, tx, u.Username)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Skipped++
			continue
		}

		role := u.Role
		if role == "" {
			role = model.RoleReader
		}
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return res, fmt.Errorf("user %s: %w", u.Username, err)
		}
		if _, err := store.CreateUser(ctx, tx, u.Username, hash, role); err != nil {
			return res, fmt.Errorf("user %s: %w", u.Username, err)
		}
		res.Users++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("committing catalogue: %w", err)
	}
	slog.Info("catalogue loaded", "books", res.Books, "users", res.Users, "skipped", res.Skipped)
	return res, nil
}
