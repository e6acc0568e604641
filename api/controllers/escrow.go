package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/api/responses"
	"github.com/angelmondragon/franchisefund-backend/api/validators"
	"github.com/angelmondragon/franchisefund-backend/internal/escrow"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/types"
)

type escrowDTO struct {
	ID                    uuid.UUID          `json:"id"`
	FranchiseID           uuid.UUID          `json:"franchise_id"`
	UserID                uuid.UUID          `json:"user_id"`
	InvestmentID          *uuid.UUID         `json:"investment_id,omitempty"`
	AmountUSD             decimal.Decimal    `json:"amount_usd"`
	Shares                int64              `json:"shares"`
	Status                enums.EscrowStatus `json:"status"`
	Stage                 enums.RoundStage   `json:"stage"`
	ExpiresAt             time.Time          `json:"expires_at"`
	AutoRefundEnabled     bool               `json:"auto_refund_enabled"`
	ManualReleaseRequired bool               `json:"manual_release_required"`
	ReleaseSignature      *string            `json:"release_signature,omitempty"`
	RefundSignature       *string            `json:"refund_signature,omitempty"`
	RefundReason          *string            `json:"refund_reason,omitempty"`
	AttentionFlaggedAt    *time.Time         `json:"attention_flagged_at,omitempty"`
	ResolvedAt            *time.Time         `json:"resolved_at,omitempty"`
	Metadata              types.Metadata     `json:"metadata"`
	CreatedAt             time.Time          `json:"created_at"`
}

func toEscrowDTO(m models.EscrowRecord) escrowDTO {
	return escrowDTO{
		ID:                    m.ID,
		FranchiseID:           m.FranchiseID,
		UserID:                m.UserID,
		InvestmentID:          m.InvestmentID,
		AmountUSD:             m.AmountUSD,
		Shares:                m.Shares,
		Status:                m.Status,
		Stage:                 m.Stage,
		ExpiresAt:             m.ExpiresAt,
		AutoRefundEnabled:     m.AutoRefundEnabled,
		ManualReleaseRequired: m.ManualReleaseRequired,
		ReleaseSignature:      m.ReleaseSignature,
		RefundSignature:       m.RefundSignature,
		RefundReason:          m.RefundReason,
		AttentionFlaggedAt:    m.AttentionFlaggedAt,
		ResolvedAt:            m.ResolvedAt,
		Metadata:              m.Metadata,
		CreatedAt:             m.CreatedAt,
	}
}

func toEscrowDTOs(records []models.EscrowRecord) []escrowDTO {
	out := make([]escrowDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toEscrowDTO(record))
	}
	return out
}

type holdEscrowRequest struct {
	UserID                *string        `json:"user_id,omitempty" validate:"omitempty,uuid"`
	InvestmentID          *string        `json:"investment_id,omitempty" validate:"omitempty,uuid"`
	AmountUSD             string         `json:"amount_usd" validate:"required,money"`
	Shares                int64          `json:"shares" validate:"min=0"`
	ExpiresAt             *time.Time     `json:"expires_at,omitempty"`
	AutoRefundEnabled     *bool          `json:"auto_refund_enabled,omitempty"`
	ManualReleaseRequired bool           `json:"manual_release_required"`
	Metadata              types.Metadata `json:"metadata"`
}

// HoldEscrow places funds in escrow against a round.
func HoldEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		roundID, err := parseUUIDParam(r, "roundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload holdEscrowRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := parseMoney("amount_usd", payload.AmountUSD)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := parseOptionalUUID("user_id", payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		investmentID, err := parseOptionalUUID("investment_id", payload.InvestmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := escrow.HoldInput{
			FranchiseID:           roundID,
			InvestmentID:          investmentID,
			AmountUSD:             amount,
			Shares:                payload.Shares,
			ExpiresAt:             payload.ExpiresAt,
			AutoRefundEnabled:     payload.AutoRefundEnabled,
			ManualReleaseRequired: payload.ManualReleaseRequired,
			Metadata:              payload.Metadata,
		}
		if userID != nil {
			input.UserID = *userID
		}

		record, err := svc.Hold(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toEscrowDTO(*record))
	}
}

type releaseEscrowRequest struct {
	Signature string `json:"signature" validate:"required,max=512"`
}

// ReleaseEscrow releases held funds to the brand.
func ReleaseEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "escrowId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload releaseEscrowRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Release(r.Context(), actor, id, payload.Signature)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toEscrowDTO(*record))
	}
}

type refundEscrowRequest struct {
	Reason    string `json:"reason" validate:"required,min=1,max=500"`
	Signature string `json:"signature" validate:"required,max=512"`
}

// RefundEscrow returns held funds to the investor.
func RefundEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "escrowId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundEscrowRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Refund(r.Context(), actor, id, validators.SanitizeString(payload.Reason, 500), payload.Signature)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toEscrowDTO(*record))
	}
}

// SweepEscrow runs the expiry sweep on demand.
func SweepEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}
		expired, err := svc.SweepExpirations(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"expired": toEscrowDTOs(expired),
			"count":   len(expired),
		})
	}
}

// EscrowAttention lists held records that need a manual decision soon.
func EscrowAttention(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}
		roundID, err := parseUUIDParam(r, "roundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.ListAttention(r.Context(), roundID, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toEscrowDTOs(records))
	}
}

// GetEscrow returns one escrow record to its owner or an admin.
func GetEscrow(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "escrow service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "escrowId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.GetEscrow(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !actor.CanActFor(record.UserID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "escrow record not found"))
			return
		}
		responses.WriteSuccess(w, toEscrowDTO(*record))
	}
}
