// Package migrate owns the ledger schema: goose SQL migrations for postgres
// (embedded in the binary) and a model-driven path for sqlite dev databases.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where `-cmd=create` writes new files.
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

// Source resolves dir to a filesystem. An empty dir means the embedded set.
func Source(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// Step is one applied or pending migration, flattened for logging.
type Step struct {
	Version  int64
	Path     string
	State    string
	Duration string
}

// Migrator runs goose against postgres.
type Migrator struct {
	provider *goose.Provider
}

func New(db *sql.DB, migrations fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if migrations == nil {
		migrations = Embedded()
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

func (m *Migrator) Up(ctx context.Context) ([]Step, error) {
	results, err := m.provider.Up(ctx)
	return resultSteps(results), wrap("up", err)
}

// Down rolls back the most recent migration only.
func (m *Migrator) Down(ctx context.Context) ([]Step, error) {
	result, err := m.provider.Down(ctx)
	if result == nil {
		return nil, wrap("down", err)
	}
	return resultSteps([]*goose.MigrationResult{result}), wrap("down", err)
}

func (m *Migrator) Status(ctx context.Context) ([]Step, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, wrap("status", err)
	}
	steps := make([]Step, 0, len(statuses))
	for _, st := range statuses {
		step := Step{State: string(st.State)}
		if st.Source != nil {
			step.Version = st.Source.Version
			step.Path = st.Source.Path
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// To migrates up or down until the database sits at target.
func (m *Migrator) To(ctx context.Context, target string) ([]Step, error) {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, wrap("version", err)
	}
	switch {
	case current == version:
		return nil, nil
	case current < version:
		results, err := m.provider.UpTo(ctx, version)
		return resultSteps(results), wrap("up-to", err)
	default:
		results, err := m.provider.DownTo(ctx, version)
		return resultSteps(results), wrap("down-to", err)
	}
}

func resultSteps(results []*goose.MigrationResult) []Step {
	steps := make([]Step, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		step := Step{State: r.Direction, Duration: r.Duration.String()}
		if r.Source != nil {
			step.Version = r.Source.Version
			step.Path = r.Source.Path
		}
		steps = append(steps, step)
	}
	return steps
}

func wrap(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
