package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/franchisefund-backend/internal/escrow"
	"github.com/angelmondragon/franchisefund-backend/pkg/auth"
	"github.com/angelmondragon/franchisefund-backend/pkg/config"
	"github.com/angelmondragon/franchisefund-backend/pkg/db/models"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
	"github.com/angelmondragon/franchisefund-backend/pkg/metrics"
	"github.com/angelmondragon/franchisefund-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubEscrow struct {
	escrow.Service
	holds int
}

func (s *stubEscrow) SweepExpirations(context.Context, time.Time) ([]models.EscrowRecord, error) {
	return nil, nil
}

func (s *stubEscrow) Hold(_ context.Context, _ auth.Actor, input escrow.HoldInput) (*models.EscrowRecord, error) {
	s.holds++
	return &models.EscrowRecord{ID: uuid.New(), FranchiseID: input.FranchiseID, AmountUSD: input.AmountUSD, Status: enums.EscrowStatusHeld}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "franchisefund-test",
			ExpirationMinutes: 30,
		},
		HTTP: config.HTTPConfig{
			RateLimitWindow: time.Minute,
			RateLimitActor:  100,
			RateLimitIP:     100,
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
}

func buildToken(t *testing.T, cfg *config.Config, roles ...enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		UserID: uuid.New(),
		Roles:  roles,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func newTestRouter(cfg *config.Config, redisClient *redis.Client, svc Services) http.Handler {
	registry := prometheus.NewRegistry()
	metrics.NewLedgerMetrics(registry)
	return NewRouter(cfg, testLogger(), stubPinger{}, redisClient, registry, metrics.NewHTTPMetrics(registry), svc)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(testConfig(), nil, Services{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil, Services{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rounds", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestSweepRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, Services{Escrow: &stubEscrow{}})

	investor := httptest.NewRequest(http.MethodPost, "/api/v1/escrow/sweep", nil)
	investor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleInvestor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, investor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for investor got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/escrow/sweep", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestCreateRoundRequiresBrandOrAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, Services{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rounds", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleInvestor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for investor got %d", resp.Code)
	}
}

func TestMoneyRoutesRequireIdempotencyKeyAndReplay(t *testing.T) {
	cfg := testConfig()
	srv := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	escrowSvc := &stubEscrow{}
	router := newTestRouter(cfg, client, Services{Escrow: escrowSvc})
	token := buildToken(t, cfg, enums.ActorRoleInvestor)
	path := "/api/v1/rounds/" + uuid.NewString() + "/escrow"
	body := `{"amount_usd":"100.00","shares":1}`

	missing := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	missing.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "hold-1")
		resp = httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
	if escrowSvc.holds != 1 {
		t.Fatalf("expected replay to skip the handler, got %d holds", escrowSvc.holds)
	}
}

func TestRateLimitAppliesPerActor(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimitActor = 1
	srv := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	router := newTestRouter(cfg, client, Services{Escrow: &stubEscrow{}})
	token := buildToken(t, cfg, enums.ActorRoleAdmin)

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/escrow/sweep", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
}
