// Package config loads server settings from flags, the environment (.env) and
// an optional YAML policy file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/finepolicy"
	"github.com/Tann03519/Online-Library-Management-System-sub000/internal/lending"
)

// Config is the resolved server configuration.
type Config struct {
	DBPath     string
	Addr       string
	AdminUser  string
	LogPath    string
	PolicyPath string
	Policy     Policy
}

// Policy is the YAML policy file.
type Policy struct {
	LoanPeriodDays   int     `yaml:"loan_period_days"`
	MaxCopiesPerLoan int     `yaml:"max_copies_per_loan"`
	ExtensionDays    []int   `yaml:"extension_days"`
	LateFeePerDay    float64 `yaml:"late_fee_per_day"`
	DamageFeeRate    float64 `yaml:"damage_fee_rate"`
	LostBookFeeRate  float64 `yaml:"lost_book_fee_rate"`
	Currency         string  `yaml:"currency"`
	CurrencyExponent int32   `yaml:"currency_exponent"`
	ReminderSchedule string  `yaml:"reminder_schedule"`
}

// DefaultPolicy returns the policy used when no file is given. Keys missing
// from a file keep these values.
func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:   14,
		MaxCopiesPerLoan: 5,
		ExtensionDays:    []int{7, 14, 21, 30},
		LateFeePerDay:    5000,
		DamageFeeRate:    0.3,
		LostBookFeeRate:  1.0,
		Currency:         "VND",
		CurrencyExponent: 0,
		ReminderSchedule: "@daily",
	}
}

// Lending returns the loan rules of the policy.
func (p Policy) Lending() lending.Policy {
	return lending.Policy{
		LoanPeriod:       time.Duration(p.LoanPeriodDays) * 24 * time.Hour,
		MaxCopiesPerLoan: p.MaxCopiesPerLoan,
		ExtensionDays:    p.ExtensionDays,
	}
}

// Fines returns the fine rules of the policy.
func (p Policy) Fines() finepolicy.Policy {
	return finepolicy.Policy{
		LateFeePerDay:    decimal.NewFromFloat(p.LateFeePerDay),
		DamageFeeRate:    decimal.NewFromFloat(p.DamageFeeRate),
		LostBookFeeRate:  decimal.NewFromFloat(p.LostBookFeeRate),
		Currency:         p.Currency,
		CurrencyExponent: p.CurrencyExponent,
	}
}

// Validate checks both halves of the policy.
func (p Policy) Validate() error {
	if err := p.Lending().Validate(); err != nil {
		return err
	}
	if err := p.Fines().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(p.ReminderSchedule) == "" {
		return errors.New("reminder schedule required")
	}
	return nil
}

// LoadPolicy reads a YAML policy file over the defaults.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing policy file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

const usage = `Usage: library [flags]

Flags:
  -d, -db <path>          SQLite database path (default: library.sqlite3, env LIBRARY_DB)
  -a, -addr <host:port>   listen address (default: :8080, env LIBRARY_ADDR)
  -u, -user <name>        admin username on first run (default: admin, env LIBRARY_ADMIN)
  -l, -log <path>         log file path (default: none, env LIBRARY_LOG)
  -c, -config <path>      YAML lending policy file (default: built-in, env LIBRARY_CONFIG)
  -h, -help               show this help and exit
`

// Load resolves the configuration from args. A .env file in the working
// directory, if present, supplies defaults through the environment; flags
// override it. flag.ErrHelp is returned for -h.
func Load(args []string, out io.Writer) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{}
	fs := flag.NewFlagSet("library", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }

	stringFlag(fs, &cfg.DBPath, "db", "d", env("LIBRARY_DB", "library.sqlite3"))
	stringFlag(fs, &cfg.Addr, "addr", "a", env("LIBRARY_ADDR", ":8080"))
	stringFlag(fs, &cfg.AdminUser, "user", "u", env("LIBRARY_ADMIN", "admin"))
	stringFlag(fs, &cfg.LogPath, "log", "l", env("LIBRARY_LOG", ""))
	stringFlag(fs, &cfg.PolicyPath, "config", "c", env("LIBRARY_CONFIG", ""))

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg.Policy = DefaultPolicy()
	if cfg.PolicyPath != "" {
		p, err := LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return nil, err
		}
		cfg.Policy = p
	}
	return cfg, nil
}

func stringFlag(fs *flag.FlagSet, p *string, long, short, def string) {
	fs.StringVar(p, long, def, "")
	fs.StringVar(p, short, def, "")
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
