package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/exchange-rate-oracle/internal/admission"
	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/cache"
	"github.com/ndewijer/exchange-rate-oracle/internal/exchanges"
	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/metrics"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
	"github.com/ndewijer/exchange-rate-oracle/internal/state"
	"github.com/ndewijer/exchange-rate-oracle/internal/transport"
	"github.com/ndewijer/exchange-rate-oracle/internal/validation"
)

// CryptoOutlierPercent is the band around the median that exchange rates
// must fall in to be kept.
const CryptoOutlierPercent = 20

// Stablecoins bridge USDT to USD.
var Stablecoins = []string{"DAI", "USDC"}

// RateService answers GetExchangeRate requests.
type RateService struct {
	state     *state.State
	exchanges []exchanges.Exchange
	transport transport.Getter
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewRateService creates a new RateService over the shared state.
func NewRateService(
	st *state.State,
	exs []exchanges.Exchange,
	getter transport.Getter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *RateService {
	return &RateService{
		state:     st,
		exchanges: exs,
		transport: getter,
		metrics:   m,
		logger:    logger.Named("rates"),
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *RateService) WithClock(now func() time.Time) *RateService {
	s.now = now
	return s
}

// Exchanges returns the configured exchanges.
func (s *RateService) Exchanges() []exchanges.Exchange {
	return s.exchanges
}

// callRecord collects what a call cost, for the request log.
type callRecord struct {
	charged uint64
	needed  int
}

// GetExchangeRate computes base/quote at the requested minute. Cycles are
// taken from wallet according to the fee schedule; privileged callers pay
// nothing. Every call, successful or not, is appended to the request log.
func (s *RateService) GetExchangeRate(
	ctx context.Context,
	caller string,
	wallet admission.Wallet,
	req model.GetExchangeRateRequest,
) (model.ExchangeRate, error) {
	start := s.now()
	rec := &callRecord{}

	rate, err := s.getExchangeRate(ctx, caller, wallet, req, rec)

	elapsed := s.now().Sub(start)
	entry := model.RequestLogEntry{
		ID:             uuid.New().String(),
		Caller:         caller,
		Request:        req,
		CyclesCharged:  rec.charged,
		OutboundNeeded: rec.needed,
		ReceivedAt:     start.UTC(),
		Duration:       elapsed,
	}
	outcome := "ok"
	if err != nil {
		entry.Error = err.Error()
		outcome = "error"
		if e, ok := apperrors.AsExchangeRateError(err); ok {
			outcome = e.Kind.String()
		}
	} else {
		entry.Rate = &rate
	}
	s.state.Log.Append(entry)
	if s.metrics != nil {
		s.metrics.ObserveRequest(outcome, classPair(req), elapsed, rec.charged)
	}

	if err != nil {
		s.logger.Debug("exchange rate request failed",
			zap.String("caller", caller),
			zap.String("base", req.BaseAsset.Symbol),
			zap.String("quote", req.QuoteAsset.Symbol),
			zap.Error(err),
		)
		return model.ExchangeRate{}, err
	}
	return rate, nil
}

func classPair(req model.GetExchangeRateRequest) string {
	label := func(c model.AssetClass) string {
		switch c {
		case model.Cryptocurrency:
			return "crypto"
		case model.FiatCurrency:
			return "fiat"
		default:
			return "unknown"
		}
	}
	return label(req.BaseAsset.Class) + "/" + label(req.QuoteAsset.Class)
}

func validClass(c model.AssetClass) bool {
	return c == model.Cryptocurrency || c == model.FiatCurrency
}

func (s *RateService) getExchangeRate(
	ctx context.Context,
	caller string,
	wallet admission.Wallet,
	req model.GetExchangeRateRequest,
	rec *callRecord,
) (model.ExchangeRate, error) {
	base := model.Asset{Symbol: validation.SanitizeSymbol(req.BaseAsset.Symbol), Class: req.BaseAsset.Class}
	if base.Symbol == "" || !validClass(base.Class) {
		return model.ExchangeRate{}, apperrors.ErrBaseInvalidSymbol
	}
	quote := model.Asset{Symbol: validation.SanitizeSymbol(req.QuoteAsset.Symbol), Class: req.QuoteAsset.Class}
	if quote.Symbol == "" || !validClass(quote.Class) {
		return model.ExchangeRate{}, apperrors.ErrQuoteInvalidSymbol
	}
	if admission.IsAnonymous(caller) {
		return model.ExchangeRate{}, apperrors.ErrAnonymousPrincipalNotAllowed
	}

	now := uint64(max(s.now().Unix(), 0))
	ts := validation.NormalizeTimestamp(req.Timestamp, now)
	if ts > now {
		return model.ExchangeRate{}, apperrors.ErrTimestampInFuture
	}

	ctrl := s.state.Admission
	privileged := ctrl.IsPrivileged(caller)
	if !privileged && wallet.Available() < admission.RequestCyclesCost {
		return model.ExchangeRate{}, apperrors.ErrNotEnoughCycles
	}

	legs, fetches := s.plan(base, quote, ts)
	rec.needed = legs
	guard, err := ctrl.Reserve(fetches*len(s.exchanges), privileged)
	if err != nil {
		if !privileged {
			admission.Charge(wallet, admission.RateLimitedCyclesCost)
			rec.charged = admission.RateLimitedCyclesCost
		}
		return model.ExchangeRate{}, err
	}
	defer guard.Release()

	if !privileged {
		fee := admission.Fee(legs)
		admission.Charge(wallet, fee)
		rec.charged = fee
	}

	var rate model.QueriedRate
	switch {
	case base.Class == model.Cryptocurrency && quote.Class == model.Cryptocurrency:
		rate, err = s.cryptoCrypto(ctx, guard, base.Symbol, quote.Symbol, ts)
	case base.Class == model.Cryptocurrency:
		rate, err = s.cryptoFiat(ctx, guard, base.Symbol, quote.Symbol, ts, true)
	case quote.Class == model.Cryptocurrency:
		rate, err = s.cryptoFiat(ctx, guard, quote.Symbol, base.Symbol, ts, false)
		if err == nil {
			rate, err = rate.Inverted()
			if err != nil {
				err = apperrors.ErrInvalidRate
			}
		}
	default:
		rate, err = s.fiatFiat(base.Symbol, quote.Symbol, ts)
	}
	if err != nil {
		return model.ExchangeRate{}, err
	}

	rate.BaseAsset = base
	rate.QuoteAsset = quote
	rate.Timestamp = ts
	if err := rate.Validate(); err != nil {
		return model.ExchangeRate{}, err
	}
	return rate.ToExchangeRate(), nil
}

// plan returns how many of the request's crypto legs must be fetched from
// the exchanges, and how many symbol fetches that takes overall once the
// stablecoins of a crypto/fiat request are counted.
func (s *RateService) plan(base, quote model.Asset, ts uint64) (legs, fetches int) {
	seen := map[string]bool{}
	for _, a := range []model.Asset{base, quote} {
		if a.Class != model.Cryptocurrency || seen[a.Symbol] {
			continue
		}
		seen[a.Symbol] = true
		if s.needsFetch(a.Symbol, ts) {
			legs++
		}
	}
	fetches = legs
	if base.Class != quote.Class {
		for _, coin := range Stablecoins {
			if !seen[coin] && s.needsFetch(coin, ts) {
				fetches++
			}
		}
	}
	return legs, fetches
}

// needsFetch reports whether symbol at ts is neither cached nor already
// being fetched by another request.
func (s *RateService) needsFetch(symbol string, ts uint64) bool {
	if symbol == model.USDT {
		return false
	}
	var cached bool
	now := s.now()
	s.state.WithCache(func(c *cache.RateCache) {
		cached = c.Contains(symbol, ts, now)
	})
	return !cached && !s.state.Admission.IsInFlight(symbol, ts)
}

// cryptoCrypto fetches both legs against USDT concurrently and divides them.
func (s *RateService) cryptoCrypto(ctx context.Context, guard *admission.Guard, base, quote string, ts uint64) (model.QueriedRate, error) {
	var (
		baseRate, quoteRate model.QueriedRate
		baseErr, quoteErr   error
		g                   errgroup.Group
	)
	g.Go(func() error {
		baseRate, baseErr = s.cryptoUSDT(ctx, guard, base, ts)
		return nil
	})
	g.Go(func() error {
		quoteRate, quoteErr = s.cryptoUSDT(ctx, guard, quote, ts)
		return nil
	})
	_ = g.Wait()

	if baseErr != nil {
		return model.QueriedRate{}, cryptoErr(baseErr, apperrors.ErrCryptoBaseAssetNotFound)
	}
	if quoteErr != nil {
		return model.QueriedRate{}, cryptoErr(quoteErr, apperrors.ErrCryptoQuoteAssetNotFound)
	}
	return divide(baseRate, quoteRate)
}

// cryptoFiat computes crypto/fiat. The crypto leg and the stablecoin bridge
// are fetched concurrently. cryptoIsBase tells which side of the request the
// crypto asset is on, so errors name the right side.
func (s *RateService) cryptoFiat(ctx context.Context, guard *admission.Guard, crypto, fiat string, ts uint64, cryptoIsBase bool) (model.QueriedRate, error) {
	notFound := apperrors.ErrCryptoBaseAssetNotFound
	if !cryptoIsBase {
		notFound = apperrors.ErrCryptoQuoteAssetNotFound
	}

	var (
		cryptoRate, usdtUSD model.QueriedRate
		legErr, bridgeErr   error
		g                   errgroup.Group
	)
	g.Go(func() error {
		cryptoRate, legErr = s.cryptoUSDT(ctx, guard, crypto, ts)
		return nil
	})
	g.Go(func() error {
		usdtUSD, bridgeErr = s.usdtToUSD(ctx, guard, ts)
		return nil
	})
	_ = g.Wait()

	if legErr != nil {
		return model.QueriedRate{}, cryptoErr(legErr, notFound)
	}
	if bridgeErr != nil {
		return model.QueriedRate{}, bridgeErr
	}
	cryptoUSD := cryptoRate.Mul(usdtUSD)
	if len(cryptoUSD.Rates) == 0 {
		return model.QueriedRate{}, apperrors.ErrInconsistentRatesReceived
	}

	var (
		fiatUSD model.QueriedRate
		err     error
	)
	s.state.WithStore(func(st *forex.Store) {
		fiatUSD, err = st.Get(forex.DayStart(ts), ts, fiat, model.USD)
	})
	if err != nil {
		return model.QueriedRate{}, forexErr(err, !cryptoIsBase)
	}
	return divide(cryptoUSD, fiatUSD)
}

func (s *RateService) fiatFiat(base, quote string, ts uint64) (model.QueriedRate, error) {
	var (
		rate model.QueriedRate
		err  error
	)
	s.state.WithStore(func(st *forex.Store) {
		rate, err = st.Get(forex.DayStart(ts), ts, base, quote)
	})
	if err != nil {
		return model.QueriedRate{}, forexErr(err, true)
	}
	return rate, nil
}

func divide(a, b model.QueriedRate) (model.QueriedRate, error) {
	out, err := a.Div(b)
	switch {
	case errors.Is(err, apperrors.ErrEmptyRates):
		return model.QueriedRate{}, apperrors.ErrInconsistentRatesReceived
	case err != nil:
		return model.QueriedRate{}, apperrors.ErrInvalidRate
	}
	return out, nil
}

// cryptoErr keeps Pending and otherwise reports the leg as not found.
func cryptoErr(err error, notFound error) error {
	if errors.Is(err, apperrors.ErrPending) {
		return apperrors.ErrPending
	}
	return notFound
}

// forexErr maps a store lookup error to the taxonomy. fiatIsBase tells
// whether the store's base symbol is the request's base; for a crypto/fiat
// request the store is asked for fiat/USD, so its base is the request's quote.
func forexErr(err error, fiatIsBase bool) error {
	switch {
	case errors.Is(err, apperrors.ErrStoreInvalidTimestamp):
		return apperrors.ErrForexInvalidTimestamp
	case errors.Is(err, apperrors.ErrStoreAssetsNotFound):
		return apperrors.ErrForexAssetsNotFound
	case errors.Is(err, apperrors.ErrStoreBaseNotFound):
		if fiatIsBase {
			return apperrors.ErrForexBaseAssetNotFound
		}
		return apperrors.ErrForexQuoteAssetNotFound
	case errors.Is(err, apperrors.ErrStoreQuoteNotFound):
		if fiatIsBase {
			return apperrors.ErrForexQuoteAssetNotFound
		}
		return apperrors.ErrForexBaseAssetNotFound
	case errors.Is(err, apperrors.ErrEmptyRates):
		return apperrors.ErrInconsistentRatesReceived
	default:
		return apperrors.ErrInvalidRate
	}
}
