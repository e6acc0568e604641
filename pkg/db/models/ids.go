package models

import "github.com/google/uuid"

// ensureID assigns a fresh id when the row was built without one. Postgres
// also defaults ids, but sqlite (tests, local dev) does not.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// LedgerModels lists every table owned by the ledger, in dependency order.
func LedgerModels() []any {
	return []any{
		&FundingRound{},
		&Approval{},
		&Investment{},
		&Share{},
		&EscrowRecord{},
		&LedgerEvent{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
