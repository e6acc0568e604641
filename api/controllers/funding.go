package controllers

import (
	"net/http"

	"github.com/angelmondragon/franchisefund-backend/api/responses"
	"github.com/angelmondragon/franchisefund-backend/api/validators"
	"github.com/angelmondragon/franchisefund-backend/internal/funding"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

// RoundFundingProgress returns the clamped progress percentage of a round.
func RoundFundingProgress(svc funding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funding service unavailable"))
			return
		}
		roundID, err := parseUUIDParam(r, "roundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		progress, err := svc.FundingProgress(r.Context(), roundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"franchise_id":     roundID,
			"funding_progress": progress,
		})
	}
}

// RoundInvestmentSummary returns the aggregated funding view of a round.
// An optional currency query adds display conversions.
func RoundInvestmentSummary(svc funding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "funding service unavailable"))
			return
		}
		roundID, err := parseUUIDParam(r, "roundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		display, err := validators.ParseQueryCurrency(r, "currency")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.InvestmentSummary(r.Context(), roundID, display)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
