package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/exchange-rate-oracle/internal/admission"
	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/cache"
	"github.com/ndewijer/exchange-rate-oracle/internal/exchanges"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/stablecoin"
	"github.com/ndewijer/exchange-rate-oracle/internal/transport"
)

// leg is one exchange asked for a pair, possibly in the reverse direction.
type leg struct {
	ex       exchanges.Exchange
	inverted bool
}

// cryptoUSDT returns symbol/USDT at ts from the cache or, failing that,
// from every configured exchange.
func (s *RateService) cryptoUSDT(ctx context.Context, guard *admission.Guard, symbol string, ts uint64) (model.QueriedRate, error) {
	if symbol == model.USDT {
		return model.IdentityRate(model.CryptoAsset(model.USDT), ts), nil
	}
	legs := make([]leg, len(s.exchanges))
	for i, ex := range s.exchanges {
		legs[i] = leg{ex: ex}
	}
	return s.cachedOrFetch(ctx, guard, symbol, ts, legs)
}

// stablecoinUSDT returns coin/USDT at ts using only the exchanges that list
// the pair in one direction or the other.
func (s *RateService) stablecoinUSDT(ctx context.Context, guard *admission.Guard, coin string, ts uint64) (model.QueriedRate, error) {
	var legs []leg
	for _, ex := range s.exchanges {
		if ok, inverted := exchanges.SupportsPair(ex, coin, model.USDT); ok {
			legs = append(legs, leg{ex: ex, inverted: inverted})
		}
	}
	if len(legs) == 0 {
		return model.QueriedRate{}, fmt.Errorf("%s/%s: no exchange lists the pair: %w", coin, model.USDT, apperrors.ErrRateNotFound)
	}
	return s.cachedOrFetch(ctx, guard, coin, ts, legs)
}

// usdtToUSD derives USDT/USD from the stablecoin rates, fetched together.
func (s *RateService) usdtToUSD(ctx context.Context, guard *admission.Guard, ts uint64) (model.QueriedRate, error) {
	results := make([]model.QueriedRate, len(Stablecoins))
	errs := make([]error, len(Stablecoins))
	var g errgroup.Group
	for i, coin := range Stablecoins {
		g.Go(func() error {
			results[i], errs[i] = s.stablecoinUSDT(ctx, guard, coin, ts)
			return nil
		})
	}
	_ = g.Wait()

	rates := make([]model.QueriedRate, 0, len(Stablecoins))
	for i, err := range errs {
		if err != nil {
			if errors.Is(err, apperrors.ErrPending) {
				return model.QueriedRate{}, apperrors.ErrPending
			}
			s.logger.Debug("stablecoin rate unavailable", zap.String("symbol", Stablecoins[i]), zap.Error(err))
			continue
		}
		rates = append(rates, results[i])
	}
	return stablecoin.Rate(rates, model.FiatAsset(model.USD))
}

// cachedOrFetch serves symbol from the cache or starts (or joins) the
// exchange fetch, which holds one outbound request per leg from guard.
func (s *RateService) cachedOrFetch(ctx context.Context, guard *admission.Guard, symbol string, ts uint64, legs []leg) (model.QueriedRate, error) {
	var (
		hit model.QueriedRate
		ok  bool
	)
	now := s.now()
	s.state.WithCache(func(c *cache.RateCache) {
		hit, ok = c.Get(symbol, ts, now)
	})
	if ok {
		return hit, nil
	}

	return s.state.Admission.Fetch(ctx, symbol, ts, guard, len(legs), func(ctx context.Context) (model.QueriedRate, error) {
		rate, err := s.queryExchanges(ctx, legs, symbol, model.USDT, ts)
		if err != nil {
			return model.QueriedRate{}, err
		}
		return s.remember(rate), nil
	})
}

// remember caches rate unless another request cached the same minute in
// the meantime, in which case that entry wins.
func (s *RateService) remember(rate model.QueriedRate) model.QueriedRate {
	out := rate
	now := s.now()
	s.state.WithCache(func(c *cache.RateCache) {
		if existing, ok := c.Get(rate.BaseAsset.Symbol, rate.Timestamp, now); ok {
			out = existing
			return
		}
		c.Insert(rate, now)
	})
	return out
}

// queryExchanges asks every leg concurrently. Failed legs are dropped; the
// survivors are filtered around their median.
func (s *RateService) queryExchanges(ctx context.Context, legs []leg, base, quote string, ts uint64) (model.QueriedRate, error) {
	values := make([]uint64, len(legs))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range legs {
		g.Go(func() error {
			v, err := s.queryExchange(gctx, l, base, quote, ts)
			if err != nil {
				s.logger.Debug("exchange query failed",
					zap.String("exchange", l.ex.Name()),
					zap.String("pair", base+"/"+quote),
					zap.Uint64("timestamp", ts),
					zap.Error(err),
				)
				return nil
			}
			values[i] = v
			return nil
		})
	}
	_ = g.Wait()

	received := slices.DeleteFunc(values, func(v uint64) bool { return v == 0 })
	slices.Sort(received)
	rate := model.QueriedRate{
		BaseAsset:                   model.CryptoAsset(base),
		QuoteAsset:                  model.CryptoAsset(quote),
		Timestamp:                   ts,
		Rates:                       received,
		BaseAssetNumQueriedSources:  len(legs),
		BaseAssetNumReceivedRates:   len(received),
		QuoteAssetNumQueriedSources: len(legs),
		QuoteAssetNumReceivedRates:  len(received),
	}.FilterOutliers(CryptoOutlierPercent)

	if len(rate.Rates) == 0 {
		return model.QueriedRate{}, fmt.Errorf("%s/%s at %d: %w", base, quote, ts, apperrors.ErrRateNotFound)
	}
	return rate, nil
}

func (s *RateService) queryExchange(ctx context.Context, l leg, base, quote string, ts uint64) (uint64, error) {
	b, q := base, quote
	if l.inverted {
		b, q = quote, base
	}
	body, err := s.transport.Get(ctx, transport.Request{
		Source:           l.ex.Name(),
		URL:              l.ex.BuildURL(b, q, ts),
		MaxResponseBytes: l.ex.MaxResponseBytes(),
		IPv6:             l.ex.SupportsIPv6(),
	})
	if err != nil {
		return 0, err
	}
	v, err := l.ex.ExtractRate(body)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, apperrors.ErrZeroRate
	}
	if l.inverted {
		return model.InvertScaled(v)
	}
	return v, nil
}
