package migrate

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Validate checks the naming and goose annotations of every .sql file in
// migrations. Every file needs both an Up and a Down section, and any
// dollar-quoted body must sit inside a StatementBegin block.
func Validate(migrations fs.FS) error {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	seen := map[string]string{}
	var problems []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			problems = append(problems, fmt.Sprintf("%s: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			problems = append(problems, fmt.Sprintf("%s: version %s already used by %s", name, m[1], prev))
			continue
		}
		seen[m[1]] = name

		body, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		problems = append(problems, checkAnnotations(name, string(body))...)
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid migrations:\n  %s", strings.Join(problems, "\n  "))
}

func checkAnnotations(name, body string) []string {
	var problems []string
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		problems = append(problems, name+": missing -- +goose Up")
	case down < 0:
		problems = append(problems, name+": missing -- +goose Down")
	case down < up:
		problems = append(problems, name+": Down section precedes Up")
	}
	if strings.Contains(body, "$$") && !strings.Contains(body, "-- +goose StatementBegin") {
		problems = append(problems, name+": dollar-quoted body outside StatementBegin")
	}
	return problems
}
