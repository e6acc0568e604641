package fx

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/franchisefund-backend/pkg/config"
	"github.com/angelmondragon/franchisefund-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/franchisefund-backend/pkg/errors"
	"github.com/angelmondragon/franchisefund-backend/pkg/logger"
)

// rateScale keeps converted rates stable across cache round trips.
const rateScale = 10

// RateProvider quotes how many units of `to` one unit of `from` buys.
type RateProvider interface {
	ExchangeRate(ctx context.Context, from, to enums.Currency) (decimal.Decimal, error)
}

// StaticProvider serves rates quoted against a single canonical currency.
type StaticProvider struct {
	canonical enums.Currency
	perUnit   map[enums.Currency]decimal.Decimal
}

// NewStaticProvider parses the ledger display rates.
func NewStaticProvider(cfg config.LedgerConfig) (*StaticProvider, error) {
	canonical, err := enums.ParseCurrency(cfg.CanonicalCurrency)
	if err != nil {
		return nil, err
	}
	parsed, err := cfg.ParsedDisplayRates()
	if err != nil {
		return nil, err
	}
	perUnit := map[enums.Currency]decimal.Decimal{canonical: decimal.NewFromInt(1)}
	for code, rate := range parsed {
		cur, err := enums.ParseCurrency(code)
		if err != nil {
			return nil, err
		}
		perUnit[cur] = rate
	}
	return &StaticProvider{canonical: canonical, perUnit: perUnit}, nil
}

func (p *StaticProvider) ExchangeRate(_ context.Context, from, to enums.Currency) (decimal.Decimal, error) {
	fromRate, ok := p.perUnit[from]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no rate configured for %s", from))
	}
	toRate, ok := p.perUnit[to]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no rate configured for %s", to))
	}
	return toRate.DivRound(fromRate, rateScale), nil
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(scope, id string) string
}

// CachedProvider memoizes another provider's quotes in redis.
type CachedProvider struct {
	next  RateProvider
	cache cacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCachedProvider(next RateProvider, cache cacheStore, ttl time.Duration, logg *logger.Logger) (*CachedProvider, error) {
	if next == nil {
		return nil, fmt.Errorf("rate provider required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl, logg: logg}, nil
}

func (p *CachedProvider) ExchangeRate(ctx context.Context, from, to enums.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	key := p.cache.CacheKey("fx", string(from)+":"+string(to))

	raw, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		if rate, perr := decimal.NewFromString(raw); perr == nil {
			return rate, nil
		}
	case !errors.Is(err, goredis.Nil):
		if p.logg != nil {
			p.logg.Warn(p.logg.WithField(ctx, "key", key), "fx cache read failed")
		}
	}

	rate, err := p.next.ExchangeRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	if err := p.cache.Set(ctx, key, rate.String(), p.ttl); err != nil && p.logg != nil {
		p.logg.Warn(p.logg.WithField(ctx, "key", key), "fx cache write failed")
	}
	return rate, nil
}

// Convert expresses amount (in from) in to, rounded to cents.
func Convert(ctx context.Context, provider RateProvider, amount decimal.Decimal, from, to enums.Currency) (decimal.Decimal, decimal.Decimal, error) {
	if from == to {
		return amount, decimal.NewFromInt(1), nil
	}
	rate, err := provider.ExchangeRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), rate, nil
}
