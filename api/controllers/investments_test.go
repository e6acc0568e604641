package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/internal/investments"
	"github.com/angelmondragon/franchisefund-backend/pkg/auth"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
)

type stubInvestmentService struct {
	investments.Service

	recorded    investments.RecordInput
	recordActor auth.Actor
	result      *models.Investment
	err         error
	confirmRef  string
}

func (s *stubInvestmentService) RecordInvestment(_ context.Context, actor auth.Actor, input investments.RecordInput) (*models.Investment, error) {
	s.recorded = input
	s.recordActor = actor
	return s.result, s.err
}

func (s *stubInvestmentService) ConfirmInvestment(_ context.Context, _ auth.Actor, id uuid.UUID, ref string) (*models.Investment, error) {
	s.confirmRef = ref
	if s.err != nil {
		return nil, s.err
	}
	return &models.Investment{ID: id, Status: enums.InvestmentStatusConfirmed, PaymentReference: &ref}, nil
}

func (s *stubInvestmentService) CompleteInvestment(_ context.Context, _ auth.Actor, id uuid.UUID) (*models.Investment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Investment{ID: id, Status: enums.InvestmentStatusCompleted}, nil
}

func (s *stubInvestmentService) GetInvestment(_ context.Context, id uuid.UUID) (*models.Investment, error) {
	return s.result, s.err
}

func TestRecordInvestmentCreated(t *testing.T) {
	actor := investorActor()
	roundID := uuid.New()
	svc := &stubInvestmentService{result: &models.Investment{
		ID:                  uuid.New(),
		FranchiseID:         roundID,
		InvestorID:          actor.ID,
		InvestmentAmountUSD: decimal.RequireFromString("1000.00"),
		SharesPurchased:     10,
		PlatformCommission:  decimal.RequireFromString("20.00"),
		NetInvestmentAmount: decimal.RequireFromString("980.00"),
		Status:              enums.InvestmentStatusPending,
	}}

	req := newRequest(t, http.MethodPost, "/api/v1/rounds/"+roundID.String()+"/investments",
		map[string]any{"amount_usd": "1000.00", "share_type": "preferred", "vesting_period_days": 30},
		&actor, map[string]string{"roundId": roundID.String()})
	rec := httptest.NewRecorder()
	RecordInvestment(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.recorded.FranchiseID != roundID {
		t.Fatalf("expected franchise %s got %s", roundID, svc.recorded.FranchiseID)
	}
	if !svc.recorded.AmountUSD.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("unexpected amount %s", svc.recorded.AmountUSD)
	}
	if svc.recorded.ShareType != enums.ShareTypePreferred {
		t.Fatalf("expected preferred share type got %s", svc.recorded.ShareType)
	}
	if svc.recorded.VestingPeriodDays == nil || *svc.recorded.VestingPeriodDays != 30 {
		t.Fatalf("expected vesting period 30")
	}
	if svc.recordActor.ID != actor.ID {
		t.Fatalf("expected actor to be forwarded")
	}

	var dto investments.InvestmentDTO
	decodeData(t, rec, &dto)
	if dto.SharesPurchased != 10 || !dto.PlatformCommission.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("unexpected dto %+v", dto)
	}
}

func TestRecordInvestmentRejectsBadAmounts(t *testing.T) {
	actor := investorActor()
	roundID := uuid.New()
	cases := map[string]string{
		"too many decimals": `{"amount_usd":"10.001"}`,
		"negative":          `{"amount_usd":"-5"}`,
		"missing":           `{}`,
		"unknown field":     `{"amount_usd":"10","foo":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubInvestmentService{}
			req := newRequest(t, http.MethodPost, "/", body, &actor, map[string]string{"roundId": roundID.String()})
			rec := httptest.NewRecorder()
			RecordInvestment(svc, nil).ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", rec.Code)
			}
			if got := decodeError(t, rec).Error.Code; got != string(pkgerrors.CodeValidation) {
				t.Fatalf("expected validation code got %s", got)
			}
		})
	}
}

func TestRecordInvestmentInsufficientSharesReportsFailedRow(t *testing.T) {
	actor := investorActor()
	roundID := uuid.New()
	failedID := uuid.New()
	svc := &stubInvestmentService{
		result: &models.Investment{ID: failedID, Status: enums.InvestmentStatusFailed},
		err:    pkgerrors.New(pkgerrors.CodeInsufficientShares, "requested 10 shares, 5 remaining"),
	}

	req := newRequest(t, http.MethodPost, "/", map[string]any{"amount_usd": "1000"}, &actor, map[string]string{"roundId": roundID.String()})
	rec := httptest.NewRecorder()
	RecordInvestment(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error.Code != string(pkgerrors.CodeInsufficientShares) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if !strings.Contains(string(body.Error.Details), failedID.String()) {
		t.Fatalf("expected failed investment id in details, got %s", body.Error.Details)
	}
}

func TestRecordInvestmentRequiresActor(t *testing.T) {
	req := newRequest(t, http.MethodPost, "/", map[string]any{"amount_usd": "10"}, nil, map[string]string{"roundId": uuid.NewString()})
	rec := httptest.NewRecorder()
	RecordInvestment(&stubInvestmentService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestConfirmInvestmentPassesReference(t *testing.T) {
	actor := adminActor()
	id := uuid.New()
	svc := &stubInvestmentService{}

	req := newRequest(t, http.MethodPost, "/", map[string]string{"payment_reference": "pi_123"}, &actor, map[string]string{"investmentId": id.String()})
	rec := httptest.NewRecorder()
	ConfirmInvestment(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.confirmRef != "pi_123" {
		t.Fatalf("expected reference to be forwarded, got %q", svc.confirmRef)
	}
}

func TestCompleteInvestmentInvalidTransition(t *testing.T) {
	actor := adminActor()
	svc := &stubInvestmentService{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move investment from pending to completed")}

	req := newRequest(t, http.MethodPost, "/", nil, &actor, map[string]string{"investmentId": uuid.NewString()})
	rec := httptest.NewRecorder()
	CompleteInvestment(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if msg := decodeError(t, rec).Error.Message; !strings.Contains(msg, "pending to completed") {
		t.Fatalf("expected transition message, got %q", msg)
	}
}

func TestGetInvestmentHidesOtherInvestors(t *testing.T) {
	actor := investorActor()
	svc := &stubInvestmentService{result: &models.Investment{ID: uuid.New(), InvestorID: uuid.New()}}

	req := newRequest(t, http.MethodGet, "/", nil, &actor, map[string]string{"investmentId": uuid.NewString()})
	rec := httptest.NewRecorder()
	GetInvestment(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
