package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/api/responses"
	"github.com/angelmondragon/franchisefund-backend/api/validators"
	"github.com/angelmondragon/franchisefund-backend/internal/approvals"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

type approvalDTO struct {
	ID                 uuid.UUID            `json:"id"`
	FranchiseID        uuid.UUID            `json:"franchise_id"`
	TotalInvestmentUSD decimal.Decimal      `json:"total_investment_usd"`
	CostPerAreaUSD     decimal.Decimal      `json:"cost_per_area_usd"`
	TotalShares        int64                `json:"total_shares"`
	SelectedShares     int64                `json:"selected_shares"`
	SharePriceUSD      decimal.Decimal      `json:"share_price_usd"`
	Status             enums.ApprovalStatus `json:"status"`
	SubmittedBy        uuid.UUID            `json:"submitted_by"`
	SubmittedAt        time.Time            `json:"submitted_at"`
	ReviewStartedAt    *time.Time           `json:"review_started_at,omitempty"`
	DecidedAt          *time.Time           `json:"decided_at,omitempty"`
	DecidedBy          *uuid.UUID           `json:"decided_by,omitempty"`
	Notes              *string              `json:"notes,omitempty"`
	RejectionReason    *string              `json:"rejection_reason,omitempty"`
}

func toApprovalDTO(m models.Approval) approvalDTO {
	return approvalDTO{
		ID:                 m.ID,
		FranchiseID:        m.FranchiseID,
		TotalInvestmentUSD: m.TotalInvestmentUSD,
		CostPerAreaUSD:     m.CostPerAreaUSD,
		TotalShares:        m.TotalShares,
		SelectedShares:     m.SelectedShares,
		SharePriceUSD:      m.SharePriceUSD,
		Status:             m.Status,
		SubmittedBy:        m.SubmittedBy,
		SubmittedAt:        m.SubmittedAt,
		ReviewStartedAt:    m.ReviewStartedAt,
		DecidedAt:          m.DecidedAt,
		DecidedBy:          m.DecidedBy,
		Notes:              m.Notes,
		RejectionReason:    m.RejectionReason,
	}
}

type submitApprovalRequest struct {
	CostPerAreaUSD *string `json:"cost_per_area_usd,omitempty" validate:"omitempty,money"`
	SelectedShares int64   `json:"selected_shares" validate:"min=0"`
	Notes          string  `json:"notes,omitempty" validate:"max=2000"`
}

// SubmitApproval snapshots a round for review.
func SubmitApproval(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
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

		var payload submitApprovalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cost, err := parseOptionalMoney("cost_per_area_usd", payload.CostPerAreaUSD)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := approvals.SubmitInput{
			SelectedShares: payload.SelectedShares,
			Notes:          validators.SanitizeString(payload.Notes, 2000),
		}
		if cost != nil {
			input.CostPerAreaUSD = *cost
		}

		approval, err := svc.Submit(r.Context(), actor, roundID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toApprovalDTO(*approval))
	}
}

// ListRoundApprovals returns every submission made for a round.
func ListRoundApprovals(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}
		roundID, err := parseUUIDParam(r, "roundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListForRound(r.Context(), roundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]approvalDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, toApprovalDTO(row))
		}
		responses.WriteSuccess(w, out)
	}
}

// StartApprovalReview moves a pending approval to under_review.
func StartApprovalReview(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		approval, err := svc.StartReview(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toApprovalDTO(*approval))
	}
}

type approveRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=2000"`
}

// ApproveApproval accepts a submission and opens the round for funding.
func ApproveApproval(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload approveRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		approval, err := svc.Approve(r.Context(), actor, id, validators.SanitizeString(payload.Notes, 2000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toApprovalDTO(*approval))
	}
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=2000"`
}

// RejectApproval declines a submission and refunds held escrow.
func RejectApproval(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "approvalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload rejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		approval, err := svc.Reject(r.Context(), actor, id, validators.SanitizeString(payload.Reason, 2000))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toApprovalDTO(*approval))
	}
}
