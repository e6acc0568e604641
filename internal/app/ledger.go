// Package app wires the ledger services shared by the api, cron and
// settlement binaries.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/franchisefund-backend/internal/approvals"
	"github.com/angelmondragon/franchisefund-backend/internal/escrow"
	"github.com/angelmondragon/franchisefund-backend/internal/funding"
	"github.com/angelmondragon/franchisefund-backend/internal/investments"
	"github.com/angelmondragon/franchisefund-backend/internal/ledger"
	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/internal/shares"
	"github.com/angelmondragon/franchisefund-backend/pkg/config"
	"github.com/angelmondragon/franchisefund-backend/pkg/db"
	"github.com/angelmondragon/franchisefund-backend/pkg/fx"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/metrics"
	"github.com/angelmondragon/franchisefund-backend/pkg/outbox"
	"github.com/angelmondragon/franchisefund-backend/pkg/redis"
)

// Ledger holds every wired domain service.
type Ledger struct {
	Rounds      rounds.Service
	Shares      shares.Service
	Investments investments.Service
	Escrow      escrow.Service
	Approvals   approvals.Service
	Funding     funding.Service
	Outbox      *outbox.Repository
}

// LedgerParams are the shared dependencies of the ledger services. Redis is
// optional and only backs the display rate cache.
type LedgerParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	Registerer prometheus.Registerer
}

// NewLedger builds the services in dependency order.
func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	cfg := params.Config
	logg := params.Logger
	conn := params.DB.DB()

	var ledgerMetrics *metrics.LedgerMetrics
	if params.Registerer != nil {
		ledgerMetrics = metrics.NewLedgerMetrics(params.Registerer)
		if err := params.DB.RegisterMetrics(params.Registerer, "ledger"); err != nil {
			return nil, fmt.Errorf("db metrics: %w", err)
		}
	}

	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)
	roundRepo := rounds.NewRepository(conn)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}

	roundSvc, err := rounds.NewService(rounds.ServiceParams{
		Repo:              roundRepo,
		Tx:                params.DB,
		Outbox:            emitter,
		Logger:            logg,
		FundingWindowDays: cfg.Ledger.FundingWindowDays,
	})
	if err != nil {
		return nil, fmt.Errorf("round service: %w", err)
	}

	shareSvc, err := shares.NewService(shares.ServiceParams{
		Repo:    shares.NewRepository(conn),
		Rounds:  roundRepo,
		Tx:      params.DB,
		Outbox:  emitter,
		Metrics: ledgerMetrics,
		Logger:  logg,
	})
	if err != nil {
		return nil, fmt.Errorf("share service: %w", err)
	}

	investmentSvc, err := investments.NewService(investments.ServiceParams{
		Repo:           investments.NewRepository(conn),
		Rounds:         roundRepo,
		Shares:         shareSvc,
		Ledger:         ledgerSvc,
		Tx:             params.DB,
		Outbox:         emitter,
		Metrics:        ledgerMetrics,
		Logger:         logg,
		CommissionRate: cfg.Ledger.Commission(),
	})
	if err != nil {
		return nil, fmt.Errorf("investment service: %w", err)
	}

	escrowSvc, err := escrow.NewService(escrow.ServiceParams{
		Repo:            escrow.NewRepository(conn),
		Rounds:          roundRepo,
		Investments:     investmentSvc,
		Ledger:          ledgerSvc,
		Tx:              params.DB,
		Outbox:          emitter,
		Metrics:         ledgerMetrics,
		Logger:          logg,
		DefaultTTL:      cfg.Ledger.DefaultEscrowTTL,
		AttentionWindow: cfg.Ledger.AttentionWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("escrow service: %w", err)
	}

	approvalSvc, err := approvals.NewService(approvals.ServiceParams{
		Repo:   approvals.NewRepository(conn),
		Rounds: roundRepo,
		Stages: roundSvc,
		Escrow: escrowSvc,
		Tx:     params.DB,
		Outbox: emitter,
		Logger: logg,
	})
	if err != nil {
		return nil, fmt.Errorf("approval service: %w", err)
	}

	rates, err := newRateProvider(cfg, params.Redis, logg)
	if err != nil {
		return nil, err
	}
	fundingSvc, err := funding.NewService(funding.ServiceParams{
		Rounds:            roundRepo,
		Investments:       investmentSvc,
		Escrow:            escrowSvc,
		Rates:             rates,
		Logger:            logg,
		FundingWindowDays: cfg.Ledger.FundingWindowDays,
	})
	if err != nil {
		return nil, fmt.Errorf("funding service: %w", err)
	}

	return &Ledger{
		Rounds:      roundSvc,
		Shares:      shareSvc,
		Investments: investmentSvc,
		Escrow:      escrowSvc,
		Approvals:   approvalSvc,
		Funding:     fundingSvc,
		Outbox:      outboxRepo,
	}, nil
}

func newRateProvider(cfg *config.Config, redisClient *redis.Client, logg *logger.Logger) (fx.RateProvider, error) {
	static, err := fx.NewStaticProvider(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("display rates: %w", err)
	}
	if redisClient == nil {
		return static, nil
	}
	cached, err := fx.NewCachedProvider(static, redisClient, cfg.Ledger.RateCacheTTL, logg)
	if err != nil {
		return nil, fmt.Errorf("display rate cache: %w", err)
	}
	return cached, nil
}
