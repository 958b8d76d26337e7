// Package forex collects daily fiat rates from central-bank publications,
// folds them into per-day USD-normalized rate maps and keeps a rolling
// window of canonical rates per day.
package forex

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// SecondsPerDay is the length of a forex day.
const SecondsPerDay uint64 = 86_400

// Rates maps a currency symbol to the value of one unit of it, expressed in
// a reference currency and scaled by model.RateUnit.
type Rates map[string]uint64

// Source is a single central-bank publication.
//
// ExtractRate returns the value of one unit of each currency in the source's
// local currency, the local currency itself included at model.RateUnit. The
// collector divides the USD entry out afterwards.
type Source interface {
	Name() string
	// BuildURL returns the publication URL for the given query day.
	BuildURL(day uint64) string
	// FormatTimestamp renders a UTC day start in the source's date format.
	FormatTimestamp(timestamp uint64) string
	// UTCOffset is the source's local offset in whole hours.
	UTCOffset() int64
	// OffsetTimestampForQuery maps the target day to the day that must be
	// requested to obtain it.
	OffsetTimestampForQuery(day uint64) uint64
	MaxResponseBytes() int64
	// ExtractRate parses body and checks that it describes day.
	ExtractRate(body []byte, day uint64) (Rates, error)
}

// sourceInfo carries the table data every Source shares.
type sourceInfo struct {
	name       string
	layout     string
	offset     int64
	queryShift uint64
	maxBytes   int64
}

func (s sourceInfo) Name() string { return s.name }

func (s sourceInfo) FormatTimestamp(timestamp uint64) string {
	return time.Unix(int64(timestamp), 0).UTC().Format(s.layout)
}

func (s sourceInfo) UTCOffset() int64 { return s.offset }

func (s sourceInfo) OffsetTimestampForQuery(day uint64) uint64 {
	return day + s.queryShift*SecondsPerDay
}

func (s sourceInfo) MaxResponseBytes() int64 { return s.maxBytes }

func (s sourceInfo) notFound(format string, args ...any) error {
	return fmt.Errorf("%s: %s: %w", s.name, fmt.Sprintf(format, args...), apperrors.ErrRateNotFound)
}

func (s sourceInfo) checkDate(got string, day uint64, layout string) error {
	want := time.Unix(int64(day), 0).UTC().Format(layout)
	if strings.TrimSpace(got) != want {
		return s.notFound("date %q does not match %q", got, want)
	}
	return nil
}

// DayStart floors a timestamp to the start of its UTC day.
func DayStart(timestamp uint64) uint64 {
	return timestamp - timestamp%SecondsPerDay
}

// TargetDay returns the UTC day start of "yesterday" as seen by a source
// whose local time is now shifted by offset hours.
func TargetDay(now uint64, offset int64) uint64 {
	local := int64(now) + offset*3600
	if local < int64(SecondsPerDay) {
		return 0
	}
	return DayStart(uint64(local)) - SecondsPerDay
}

// parseDecimal strips whitespace and thousands separators.
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// midRate is (buy+sell)/2 per unit.
func midRate(buy, sell string, units int64) (uint64, error) {
	b, err := parseDecimal(buy)
	if err != nil {
		return 0, err
	}
	s, err := parseDecimal(sell)
	if err != nil {
		return 0, err
	}
	if units <= 0 {
		return 0, fmt.Errorf("invalid unit count %d", units)
	}
	mid := b.Add(s).Div(decimal.NewFromInt(2 * units))
	return model.ScaledRateFromDecimal(mid)
}

// inverseRate turns "units of X per reference unit" into "reference units per X".
func inverseRate(value string) (uint64, error) {
	r, err := model.ParseScaledRate(value)
	if err != nil {
		return 0, err
	}
	return model.InvertScaled(r)
}

// normalizeSymbol maps aliases onto a single symbol.
func normalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "SDR" {
		return model.XDR
	}
	return s
}

// All returns every supported forex source.
func All() []Source {
	return []Source{
		NewECB(),
		NewBankOfCanada(),
		NewMyanmar(),
		NewBosnia(),
		NewUzbekistan(),
		NewNepal(),
		NewGeorgia(),
		NewItaly(),
		NewSwitzerland(),
		NewTurkey(),
	}
}

// ByNames resolves source names, preserving order. An empty list selects
// every source.
func ByNames(names []string) ([]Source, error) {
	all := All()
	if len(names) == 0 {
		return all, nil
	}
	index := make(map[string]Source, len(all))
	for _, s := range all {
		index[s.Name()] = s
	}
	out := make([]Source, 0, len(names))
	for _, n := range names {
		s, ok := index[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown forex source %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}
