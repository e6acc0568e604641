package fx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/pkg/config"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/redis"
)

func staticProvider(t *testing.T) *StaticProvider {
	t.Helper()
	p, err := NewStaticProvider(config.LedgerConfig{CanonicalCurrency: "USD", DisplayRates: "EUR:0.92,GBP:0.80"})
	if err != nil {
		t.Fatalf("static provider: %v", err)
	}
	return p
}

func TestStaticProviderCrossRates(t *testing.T) {
	p := staticProvider(t)
	ctx := context.Background()

	rate, err := p.ExchangeRate(ctx, enums.CurrencyUSD, enums.CurrencyEUR)
	if err != nil || rate.String() != "0.92" {
		t.Fatalf("usd->eur: %s %v", rate, err)
	}
	rate, err = p.ExchangeRate(ctx, enums.CurrencyGBP, enums.CurrencyUSD)
	if err != nil || rate.String() != "1.25" {
		t.Fatalf("gbp->usd: %s %v", rate, err)
	}
	if _, err := p.ExchangeRate(ctx, enums.CurrencyUSD, enums.CurrencyBTC); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown rate, got %v", err)
	}
}

type countingProvider struct {
	calls int
	next  RateProvider
}

func (c *countingProvider) ExchangeRate(ctx context.Context, from, to enums.Currency) (decimal.Decimal, error) {
	c.calls++
	return c.next.ExchangeRate(ctx, from, to)
}

func TestCachedProviderServesFromRedis(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: srv.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	counting := &countingProvider{next: staticProvider(t)}
	cached, err := NewCachedProvider(counting, client, time.Minute, nil)
	if err != nil {
		t.Fatalf("cached provider: %v", err)
	}

	for i := 0; i < 3; i++ {
		rate, err := cached.ExchangeRate(ctx, enums.CurrencyUSD, enums.CurrencyEUR)
		if err != nil || rate.String() != "0.92" {
			t.Fatalf("call %d: %s %v", i, rate, err)
		}
	}
	if counting.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", counting.calls)
	}

	srv.FastForward(2 * time.Minute)
	if _, err := cached.ExchangeRate(ctx, enums.CurrencyUSD, enums.CurrencyEUR); err != nil {
		t.Fatalf("after expiry: %v", err)
	}
	if counting.calls != 2 {
		t.Fatalf("expected refresh after ttl, got %d calls", counting.calls)
	}
}

func TestConvertRoundsToCents(t *testing.T) {
	amount, rate, err := Convert(context.Background(), staticProvider(t), decimal.RequireFromString("10.01"), enums.CurrencyUSD, enums.CurrencyEUR)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if amount.StringFixed(2) != "9.21" || rate.String() != "0.92" {
		t.Fatalf("unexpected conversion %s @ %s", amount, rate)
	}
}
