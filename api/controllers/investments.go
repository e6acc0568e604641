package controllers

import (
	"net/http"

	"github.com/angelmondragon/franchisefund-backend/api/responses"
	"github.com/angelmondragon/franchisefund-backend/api/validators"
	"github.com/angelmondragon/franchisefund-backend/internal/investments"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/types"
)

type recordInvestmentRequest struct {
	InvestorID        *string        `json:"investor_id,omitempty" validate:"omitempty,uuid"`
	AmountUSD         string         `json:"amount_usd" validate:"required,money"`
	PricePerShare     *string        `json:"price_per_share,omitempty" validate:"omitempty,money"`
	ShareType         string         `json:"share_type,omitempty" validate:"omitempty,oneof=common preferred"`
	VestingPeriodDays *int           `json:"vesting_period_days,omitempty" validate:"omitempty,min=0,max=3650"`
	OriginalAmount    *string        `json:"original_amount,omitempty"`
	OriginalCurrency  *string        `json:"original_currency,omitempty" validate:"omitempty,len=3"`
	ExchangeRate      *string        `json:"exchange_rate,omitempty"`
	Metadata          types.Metadata `json:"metadata"`
}

func (req recordInvestmentRequest) toInput(r *http.Request) (investments.RecordInput, error) {
	roundID, err := parseUUIDParam(r, "roundId")
	if err != nil {
		return investments.RecordInput{}, err
	}
	amount, err := parseMoney("amount_usd", req.AmountUSD)
	if err != nil {
		return investments.RecordInput{}, err
	}
	price, err := parseOptionalMoney("price_per_share", req.PricePerShare)
	if err != nil {
		return investments.RecordInput{}, err
	}
	investorID, err := parseOptionalUUID("investor_id", req.InvestorID)
	if err != nil {
		return investments.RecordInput{}, err
	}
	originalAmount, err := parseOptionalMoney("original_amount", req.OriginalAmount)
	if err != nil {
		return investments.RecordInput{}, err
	}
	exchangeRate, err := parseOptionalMoney("exchange_rate", req.ExchangeRate)
	if err != nil {
		return investments.RecordInput{}, err
	}

	input := investments.RecordInput{
		FranchiseID:       roundID,
		AmountUSD:         amount,
		ShareType:         enums.ShareTypeCommon,
		VestingPeriodDays: req.VestingPeriodDays,
		OriginalAmount:    originalAmount,
		ExchangeRate:      exchangeRate,
		Metadata:          req.Metadata,
	}
	if investorID != nil {
		input.InvestorID = *investorID
	}
	if price != nil {
		input.PricePerShare = *price
	}
	if req.ShareType != "" {
		shareType, err := enums.ParseShareType(req.ShareType)
		if err != nil {
			return investments.RecordInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid share_type")
		}
		input.ShareType = shareType
	}
	if req.OriginalCurrency != nil {
		currency, err := enums.ParseCurrency(*req.OriginalCurrency)
		if err != nil {
			return investments.RecordInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid original_currency")
		}
		input.OriginalCurrency = &currency
	}
	return input, nil
}

// RecordInvestment records an investment against a round in the fund stage.
// A round without enough shares yields 409 with the failed investment id.
func RecordInvestment(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investment service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordInvestmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inv, err := svc.RecordInvestment(r.Context(), actor, input)
		if err != nil {
			if inv != nil && pkgerrors.IsCode(err, pkgerrors.CodeInsufficientShares) {
				err = pkgerrors.Wrap(pkgerrors.CodeInsufficientShares, err, pkgerrors.As(err).Message()).WithDetails(map[string]any{
					"investment_id": inv.ID,
					"status":        inv.Status,
				})
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, investments.ToDTO(*inv))
	}
}

// ListRoundInvestments pages investments recorded against a round.
func ListRoundInvestments(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investment service unavailable"))
			return
		}
		roundID, err := parseUUIDParam(r, "roundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		investorID, err := validators.ParseQueryUUID(r, "investor_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListInvestments(r.Context(), investments.ListParams{
			FranchiseID: roundID,
			InvestorID:  investorID,
			Params:      page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetInvestment returns one investment.
func GetInvestment(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investment service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "investmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		inv, err := svc.GetInvestment(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !actor.CanActFor(inv.InvestorID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "investment not found"))
			return
		}
		responses.WriteSuccess(w, investments.ToDTO(*inv))
	}
}

type confirmInvestmentRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required,min=1,max=255"`
}

// ConfirmInvestment marks payment as received.
func ConfirmInvestment(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investment service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "investmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmInvestmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inv, err := svc.ConfirmInvestment(r.Context(), actor, id, payload.PaymentReference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, investments.ToDTO(*inv))
	}
}

// CompleteInvestment finalizes a confirmed investment.
func CompleteInvestment(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investment service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := parseUUIDParam(r, "investmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inv, err := svc.CompleteInvestment(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, investments.ToDTO(*inv))
	}
}
