package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/franchisefund-backend/api/responses"
	"github.com/angelmondragon/franchisefund-backend/api/validators"
	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

type createRoundRequest struct {
	BrandID            *string `json:"brand_id,omitempty" validate:"omitempty,uuid"`
	Name               string  `json:"name" validate:"required,min=1,max=200"`
	TotalInvestmentUSD string  `json:"total_investment_usd" validate:"required,money"`
	SharePriceUSD      string  `json:"share_price_usd" validate:"required,money"`
	FundingGoalUSD     *string `json:"funding_goal_usd,omitempty" validate:"omitempty,money"`
	FundingWindowDays  int     `json:"funding_window_days,omitempty" validate:"omitempty,min=1,max=365"`
}

func (req createRoundRequest) toInput(callerID uuid.UUID) (rounds.CreateRoundInput, error) {
	total, err := parseMoney("total_investment_usd", req.TotalInvestmentUSD)
	if err != nil {
		return rounds.CreateRoundInput{}, err
	}
	price, err := parseMoney("share_price_usd", req.SharePriceUSD)
	if err != nil {
		return rounds.CreateRoundInput{}, err
	}
	goal, err := parseOptionalMoney("funding_goal_usd", req.FundingGoalUSD)
	if err != nil {
		return rounds.CreateRoundInput{}, err
	}
	brandID, err := parseOptionalUUID("brand_id", req.BrandID)
	if err != nil {
		return rounds.CreateRoundInput{}, err
	}

	input := rounds.CreateRoundInput{
		BrandID:            callerID,
		Name:               validators.SanitizeString(req.Name, 200),
		TotalInvestmentUSD: total,
		SharePriceUSD:      price,
		FundingWindowDays:  req.FundingWindowDays,
	}
	if brandID != nil {
		input.BrandID = *brandID
	}
	if goal != nil {
		input.FundingGoalUSD = *goal
	}
	return input, nil
}

// CreateRound opens a new round in the approval stage.
func CreateRound(svc rounds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "round service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRoundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		round, err := svc.CreateRound(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, rounds.ToDTO(*round))
	}
}

// GetRound returns one round.
func GetRound(svc rounds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "round service unavailable"))
			return
		}
		roundID, err := parseUUIDParam(r, "roundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		round, err := svc.GetRound(r.Context(), roundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rounds.ToDTO(*round))
	}
}

// ListRounds pages rounds with optional brand_id and stage filters.
func ListRounds(svc rounds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "round service unavailable"))
			return
		}
		page, err := parsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		brandID, err := validators.ParseQueryUUID(r, "brand_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := rounds.ListParams{BrandID: brandID, Params: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("stage")); raw != "" {
			stage, err := enums.ParseRoundStage(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stage"))
				return
			}
			params.Stage = &stage
		}

		list, err := svc.ListRounds(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type advanceStageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=approval fund launch live closed rejected"`
}

// AdvanceRoundStage moves a round along the stage machine.
func AdvanceRoundStage(svc rounds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "round service unavailable"))
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

		var payload advanceStageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseRoundStage(payload.Stage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stage"))
			return
		}

		round, err := svc.AdvanceStage(r.Context(), actor, roundID, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rounds.ToDTO(*round))
	}
}
