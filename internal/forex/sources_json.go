package forex

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

func (s sourceInfo) parseJSON(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: %w", s.name, apperrors.ErrJSONParse)
	}
	return gjson.ParseBytes(body), nil
}

// BankOfCanada publishes CAD per unit of each currency.
type BankOfCanada struct{ sourceInfo }

// NewBankOfCanada creates the Bank of Canada source.
func NewBankOfCanada() *BankOfCanada {
	return &BankOfCanada{sourceInfo{name: "bankofcanada", layout: "2006-01-02", offset: -5, maxBytes: 10_000}}
}

func (s *BankOfCanada) BuildURL(day uint64) string {
	d := s.FormatTimestamp(day)
	return "https://www.bankofcanada.ca/valet/observations/group/FX_RATES_DAILY/json?start_date=" + d + "&end_date=" + d
}

// ExtractRate reads observation series named FX<SYM>CAD.
func (s *BankOfCanada) ExtractRate(body []byte, day uint64) (Rates, error) {
	doc, err := s.parseJSON(body)
	if err != nil {
		return nil, err
	}
	obs := doc.Get("observations.0")
	if !obs.Exists() {
		return nil, s.notFound("no observations")
	}
	if err := s.checkDate(obs.Get("d").String(), day, s.layout); err != nil {
		return nil, err
	}
	rates := Rates{"CAD": model.RateUnit}
	obs.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if !strings.HasPrefix(k, "FX") || !strings.HasSuffix(k, "CAD") || len(k) <= 5 {
			return true
		}
		v, err := model.ParseScaledRate(value.Get("v").String())
		if err == nil {
			rates[normalizeSymbol(k[2:len(k)-3])] = v
		}
		return true
	})
	return rates, nil
}

// Myanmar is the Central Bank of Myanmar reference rate (MMK base).
type Myanmar struct{ sourceInfo }

// NewMyanmar creates the Central Bank of Myanmar source.
func NewMyanmar() *Myanmar {
	return &Myanmar{sourceInfo{name: "myanmar", layout: "02-01-2006", offset: 6, maxBytes: 3_000}}
}

func (s *Myanmar) BuildURL(day uint64) string {
	return "https://forex.cbm.gov.mm/api/history/" + s.FormatTimestamp(day)
}

// myanmarPer100 lists currencies quoted per 100 units.
var myanmarPer100 = map[string]bool{
	"JPY": true, "KHR": true, "IDR": true, "KRW": true, "LAK": true, "VND": true,
}

// ExtractRate checks the "timestamp" field, the local midnight of the
// publication day.
func (s *Myanmar) ExtractRate(body []byte, day uint64) (Rates, error) {
	doc, err := s.parseJSON(body)
	if err != nil {
		return nil, err
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(doc.Get("timestamp").String()), 10, 64)
	if err != nil {
		return nil, s.notFound("missing timestamp")
	}
	// local midnight is within half a day of the UTC day start
	published := time.Unix(ts+12*3600, 0).UTC().Format(s.layout)
	if published != s.FormatTimestamp(day) {
		return nil, s.notFound("published %s", published)
	}
	rates := Rates{"MMK": model.RateUnit}
	doc.Get("rates").ForEach(func(key, value gjson.Result) bool {
		sym := normalizeSymbol(key.String())
		var units int64 = 1
		if myanmarPer100[sym] {
			units = 100
		}
		if v, err := model.ParseScaledRatePerUnits(value.String(), units); err == nil {
			rates[sym] = v
		}
		return true
	})
	return rates, nil
}

// Bosnia is the Central Bank of Bosnia-Herzegovina list (BAM base).
type Bosnia struct{ sourceInfo }

// NewBosnia creates the Central Bank of Bosnia-Herzegovina source.
func NewBosnia() *Bosnia {
	return &Bosnia{sourceInfo{name: "bosnia", layout: "01-02-2006", offset: 1, maxBytes: 30_000}}
}

func (s *Bosnia) BuildURL(day uint64) string {
	return "https://www.cbbh.ba/CurrencyExchange/GetJson?date=" + s.FormatTimestamp(day) + "%2000%3A00%3A00"
}

func (s *Bosnia) ExtractRate(body []byte, day uint64) (Rates, error) {
	doc, err := s.parseJSON(body)
	if err != nil {
		return nil, err
	}
	date := doc.Get("Date").String()
	if len(date) >= 10 {
		date = date[:10]
	}
	if err := s.checkDate(date, day, "2006-01-02"); err != nil {
		return nil, err
	}
	rates := Rates{"BAM": model.RateUnit}
	doc.Get("CurrencyExchangeItems").ForEach(func(_, item gjson.Result) bool {
		units := item.Get("Units").Int()
		if v, err := model.ParseScaledRatePerUnits(item.Get("Middle").String(), units); err == nil {
			rates[normalizeSymbol(item.Get("AlphaCode").String())] = v
		}
		return true
	})
	return rates, nil
}

// Uzbekistan is the Central Bank of Uzbekistan list (UZS base). The rates
// effective on day d are published under d+1.
type Uzbekistan struct{ sourceInfo }

// NewUzbekistan creates the Central Bank of Uzbekistan source.
func NewUzbekistan() *Uzbekistan {
	return &Uzbekistan{sourceInfo{name: "uzbekistan", layout: "2006-01-02", offset: 5, queryShift: 1, maxBytes: 30_000}}
}

func (s *Uzbekistan) BuildURL(day uint64) string {
	return "https://cbu.uz/ru/arkhiv-kursov-valyut/json/all/" + s.FormatTimestamp(day) + "/"
}

func (s *Uzbekistan) ExtractRate(body []byte, day uint64) (Rates, error) {
	doc, err := s.parseJSON(body)
	if err != nil {
		return nil, err
	}
	items := doc.Array()
	if len(items) == 0 {
		return nil, s.notFound("empty list")
	}
	rates := Rates{"UZS": model.RateUnit}
	for _, item := range items {
		if err := s.checkDate(item.Get("Date").String(), day, "02.01.2006"); err != nil {
			return nil, err
		}
		units, err := strconv.ParseInt(strings.TrimSpace(item.Get("Nominal").String()), 10, 64)
		if err != nil {
			continue
		}
		if v, err := model.ParseScaledRatePerUnits(item.Get("Rate").String(), units); err == nil {
			rates[normalizeSymbol(item.Get("Ccy").String())] = v
		}
	}
	return rates, nil
}

// Nepal is the Nepal Rastra Bank list (NPR base).
type Nepal struct{ sourceInfo }

// NewNepal creates the Nepal Rastra Bank source.
func NewNepal() *Nepal {
	return &Nepal{sourceInfo{name: "nepal", layout: "2006-01-02", offset: 5, maxBytes: 30_000}}
}

func (s *Nepal) BuildURL(day uint64) string {
	d := s.FormatTimestamp(day)
	return "https://www.nrb.org.np/api/forex/v1/rates?page=1&per_page=100&from=" + d + "&to=" + d
}

func (s *Nepal) ExtractRate(body []byte, day uint64) (Rates, error) {
	doc, err := s.parseJSON(body)
	if err != nil {
		return nil, err
	}
	payload := doc.Get("data.payload.0")
	if !payload.Exists() {
		return nil, s.notFound("empty payload")
	}
	if err := s.checkDate(payload.Get("date").String(), day, s.layout); err != nil {
		return nil, err
	}
	rates := Rates{"NPR": model.RateUnit}
	payload.Get("rates").ForEach(func(_, item gjson.Result) bool {
		v, err := midRate(item.Get("buy").String(), item.Get("sell").String(), item.Get("currency.unit").Int())
		if err == nil {
			rates[normalizeSymbol(item.Get("currency.iso3").String())] = v
		}
		return true
	})
	return rates, nil
}

// Georgia is the National Bank of Georgia list (GEL base). The rates valid
// on day d are published under d+1.
type Georgia struct{ sourceInfo }

// NewGeorgia creates the National Bank of Georgia source.
func NewGeorgia() *Georgia {
	return &Georgia{sourceInfo{name: "georgia", layout: "2006-01-02", offset: 4, queryShift: 1, maxBytes: 15_000}}
}

func (s *Georgia) BuildURL(day uint64) string {
	return "https://nbg.gov.ge/gw/api/ct/monetarypolicy/currencies/en/json/?date=" + s.FormatTimestamp(day)
}

func (s *Georgia) ExtractRate(body []byte, day uint64) (Rates, error) {
	doc, err := s.parseJSON(body)
	if err != nil {
		return nil, err
	}
	currencies := doc.Get("0.currencies")
	if !currencies.Exists() {
		return nil, s.notFound("no currencies")
	}
	rates := Rates{"GEL": model.RateUnit}
	var dateErr error
	currencies.ForEach(func(_, item gjson.Result) bool {
		valid := item.Get("validFromDate").String()
		if len(valid) >= 10 {
			valid = valid[:10]
		}
		if err := s.checkDate(valid, day, s.layout); err != nil {
			dateErr = err
			return false
		}
		if v, err := model.ParseScaledRatePerUnits(item.Get("rate").String(), item.Get("quantity").Int()); err == nil {
			rates[normalizeSymbol(item.Get("code").String())] = v
		}
		return true
	})
	if dateErr != nil {
		return nil, dateErr
	}
	return rates, nil
}

// Italy is the Bank of Italy daily list, which quotes every currency
// against USD directly.
type Italy struct{ sourceInfo }

// NewItaly creates the Bank of Italy source.
func NewItaly() *Italy {
	return &Italy{sourceInfo{name: "italy", layout: "2006-01-02", offset: 1, maxBytes: 30_000}}
}

func (s *Italy) BuildURL(day uint64) string {
	return "https://tassidicambio.bancaditalia.it/terzevalute-wf-web/rest/v1.0/dailyRates?referenceDate=" + s.FormatTimestamp(day) + "&currencyIsoCode=USD"
}

// ExtractRate inverts usdRate, the units of currency per USD.
func (s *Italy) ExtractRate(body []byte, day uint64) (Rates, error) {
	doc, err := s.parseJSON(body)
	if err != nil {
		return nil, err
	}
	items := doc.Get("rates").Array()
	if len(items) == 0 {
		return nil, s.notFound("no rates")
	}
	rates := Rates{model.USD: model.RateUnit}
	for _, item := range items {
		if err := s.checkDate(item.Get("referenceDate").String(), day, s.layout); err != nil {
			return nil, err
		}
		if v, err := inverseRate(item.Get("usdRate").String()); err == nil {
			rates[normalizeSymbol(item.Get("isoCode").String())] = v
		}
	}
	return rates, nil
}
