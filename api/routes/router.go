package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/franchisefund-backend/api/controllers"
	"github.com/angelmondragon/franchisefund-backend/api/middleware"
	"github.com/angelmondragon/franchisefund-backend/internal/approvals"
	"github.com/angelmondragon/franchisefund-backend/internal/escrow"
	"github.com/angelmondragon/franchisefund-backend/internal/funding"
	"github.com/angelmondragon/franchisefund-backend/internal/investments"
	"github.com/angelmondragon/franchisefund-backend/internal/rounds"
	"github.com/angelmondragon/franchisefund-backend/internal/shares"
	"github.com/angelmondragon/franchisefund-backend/pkg/config"
	"github.com/angelmondragon/franchisefund-backend/pkg/db"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/franchisefund-backend/pkg/redis"
)

// Services groups the ledger services the API exposes.
type Services struct {
	Rounds      rounds.Service
	Shares      shares.Service
	Investments investments.Service
	Escrow      escrow.Service
	Approvals   approvals.Service
	Funding     funding.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	readyDeps := map[string]controllers.Pinger{}
	if dbP != nil {
		readyDeps["db"] = dbP
	}
	if redisClient != nil {
		readyDeps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	apiPolicy := middleware.NewRateLimitPolicy(
		"api",
		cfg.HTTP.RateLimitWindow,
		cfg.HTTP.RateLimitActor,
		cfg.HTTP.RateLimitIP,
	)

	var store pkgredis.IdempotencyStore
	if redisClient != nil {
		store = redisClient
	}
	idempotency := middleware.Idempotency(store, logg, middleware.IdempotencyTTL)
	moneyIdempotency := middleware.Idempotency(store, logg, middleware.MoneyIdempotencyTTL)
	adminOnly := middleware.RequireRole(logg, enums.ActorRoleAdmin)
	brandOrAdmin := middleware.RequireRole(logg, enums.ActorRoleBrand, enums.ActorRoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(apiPolicy, redisClient, logg))
		}

		r.Route("/rounds", func(r chi.Router) {
			r.Get("/", controllers.ListRounds(svc.Rounds, logg))
			r.With(brandOrAdmin, idempotency).Post("/", controllers.CreateRound(svc.Rounds, logg))

			r.Route("/{roundId}", func(r chi.Router) {
				r.Get("/", controllers.GetRound(svc.Rounds, logg))
				r.With(brandOrAdmin, idempotency).Post("/stage", controllers.AdvanceRoundStage(svc.Rounds, logg))

				r.Get("/shares", controllers.ListRoundShares(svc.Shares, logg))
				r.Get("/shares/stats", controllers.RoundShareStats(svc.Shares, logg))

				r.Get("/investments", controllers.ListRoundInvestments(svc.Investments, logg))
				r.With(moneyIdempotency).Post("/investments", controllers.RecordInvestment(svc.Investments, logg))

				r.With(moneyIdempotency).Post("/escrow", controllers.HoldEscrow(svc.Escrow, logg))
				r.With(brandOrAdmin).Get("/escrow/attention", controllers.EscrowAttention(svc.Escrow, logg))

				r.Get("/approvals", controllers.ListRoundApprovals(svc.Approvals, logg))
				r.With(brandOrAdmin, idempotency).Post("/approvals", controllers.SubmitApproval(svc.Approvals, logg))

				r.Get("/funding", controllers.RoundFundingProgress(svc.Funding, logg))
				r.Get("/summary", controllers.RoundInvestmentSummary(svc.Funding, logg))
			})
		})

		r.Route("/shares", func(r chi.Router) {
			r.With(idempotency).Patch("/{shareId}/status", controllers.UpdateShareStatus(svc.Shares, logg))
			r.With(adminOnly).Post("/vesting", controllers.ProcessVesting(svc.Shares, logg))
		})

		r.Route("/investments/{investmentId}", func(r chi.Router) {
			r.Get("/", controllers.GetInvestment(svc.Investments, logg))
			r.With(adminOnly, moneyIdempotency).Post("/confirm", controllers.ConfirmInvestment(svc.Investments, logg))
			r.With(adminOnly, moneyIdempotency).Post("/complete", controllers.CompleteInvestment(svc.Investments, logg))
		})

		r.Route("/escrow", func(r chi.Router) {
			r.With(adminOnly).Post("/sweep", controllers.SweepEscrow(svc.Escrow, logg))
			r.Get("/{escrowId}", controllers.GetEscrow(svc.Escrow, logg))
			r.With(moneyIdempotency).Post("/{escrowId}/release", controllers.ReleaseEscrow(svc.Escrow, logg))
			r.With(moneyIdempotency).Post("/{escrowId}/refund", controllers.RefundEscrow(svc.Escrow, logg))
		})

		r.Route("/approvals/{approvalId}", func(r chi.Router) {
			r.With(adminOnly, idempotency).Post("/review", controllers.StartApprovalReview(svc.Approvals, logg))
			r.With(brandOrAdmin, idempotency).Post("/approve", controllers.ApproveApproval(svc.Approvals, logg))
			r.With(brandOrAdmin, idempotency).Post("/reject", controllers.RejectApproval(svc.Approvals, logg))
		})
	})

	return r
}
