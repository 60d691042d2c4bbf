package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written and where cmd/migrate reads
// from when -dir is set explicitly.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source resolves a migrations directory. An empty dir selects the embedded set.
func Source(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// Migrator applies the booking schema to postgres. The caller keeps
// ownership of the *sql.DB.
type Migrator struct {
	provider *goose.Provider
}

func New(db *sql.DB, migrations fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

// Run executes up, down or status and returns one line per migration touched.
func (m *Migrator) Run(ctx context.Context, command string) ([]string, error) {
	switch command {
	case "up":
		results, err := m.provider.Up(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose up: %w", err)
		}
		return describeResults(results...), nil
	case "down":
		result, err := m.provider.Down(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose down: %w", err)
		}
		return describeResults(result), nil
	case "status":
		statuses, err := m.provider.Status(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose status: %w", err)
		}
		lines := make([]string, 0, len(statuses))
		for _, s := range statuses {
			line := fmt.Sprintf("%-8s %s", s.State, s.Source.Path)
			if !s.AppliedAt.IsZero() {
				line += " " + s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			lines = append(lines, line)
		}
		return lines, nil
	default:
		return nil, fmt.Errorf("unsupported goose command %q", command)
	}
}

// MigrateTo moves the schema up or down to the YYYYMMDDHHMMSS target.
func (m *Migrator) MigrateTo(ctx context.Context, target string) ([]string, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err = m.provider.UpTo(ctx, version)
	default:
		results, err = m.provider.DownTo(ctx, version)
	}
	if err != nil {
		return nil, fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return describeResults(results...), nil
}

func describeResults(results ...*goose.MigrationResult) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-4s %s (%s)", r.Direction, r.Source.Path, r.Duration.Round(time.Millisecond)))
	}
	return lines
}
