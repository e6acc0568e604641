package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres SQLSTATE values the ledger reacts to.
const (
	pgUniqueViolation     = "23505"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
	pgLockNotAvailable    = "55P03"
	pgQueryCanceled       = "57014"
	pgForeignKeyViolation = "23503"
)

// ErrorDump is the log view of an error chain, including the postgres
// diagnostics from either pgx or lib/pq.
type ErrorDump struct {
	TopMessage   string
	Code         Code
	Chain        []string
	PGCode       string
	PGConstraint string
	PGTable      string
	PGDetail     string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	if pg := pgDiagnostics(err); pg != nil {
		d.PGCode = pg.code
		d.PGConstraint = pg.constraint
		d.PGTable = pg.table
		d.PGDetail = pg.detail
	}
	return d
}

// Fields flattens the dump for logger.WithFields. Empty postgres fields are
// left out.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_chain": d.Chain,
	}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	for key, value := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_detail":     d.PGDetail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}

// Classify maps an untyped error to a ledger code. Typed errors keep their
// code; postgres constraint and concurrency failures get a specific one and
// everything else is internal.
func Classify(err error) Code {
	if err == nil {
		return ""
	}
	if te := As(err); te != nil {
		return te.Code()
	}
	pg := pgDiagnostics(err)
	if pg == nil {
		return CodeInternal
	}
	switch pg.code {
	case pgUniqueViolation:
		return CodeConflict
	case pgCheckViolation, pgNotNullViolation, pgForeignKeyViolation:
		return CodeValidation
	case pgSerializationFail, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
		return CodeDependency
	default:
		return CodeInternal
	}
}

type pgInfo struct {
	code       string
	constraint string
	table      string
	detail     string
}

func pgDiagnostics(err error) *pgInfo {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &pgInfo{code: pgxErr.Code, constraint: pgxErr.ConstraintName, table: pgxErr.TableName, detail: pgxErr.Detail}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &pgInfo{code: string(pqErr.Code), constraint: pqErr.Constraint, table: pqErr.Table, detail: pqErr.Detail}
	}
	return nil
}
