package forex

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ndewijer/exchange-rate-oracle/internal/apperrors"
	"github.com/ndewijer/exchange-rate-oracle/internal/model"
)

// ECB is the European Central Bank 90-day reference rate feed (EUR base).
type ECB struct{ sourceInfo }

// NewECB creates the European Central Bank source.
func NewECB() *ECB {
	return &ECB{sourceInfo{name: "ecb", layout: "2006-01-02", offset: 1, maxBytes: 500_000}}
}

func (s *ECB) BuildURL(uint64) string {
	return "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist-90d.xml"
}

type ecbEnvelope struct {
	Cube struct {
		Days []struct {
			Time  string `xml:"time,attr"`
			Rates []struct {
				Currency string `xml:"currency,attr"`
				Rate     string `xml:"rate,attr"`
			} `xml:"Cube"`
		} `xml:"Cube"`
	} `xml:"Cube"`
}

// ExtractRate finds the cube for day. ECB quotes units of currency per EUR.
func (s *ECB) ExtractRate(body []byte, day uint64) (Rates, error) {
	var env ecbEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.name, apperrors.ErrXMLParse, err)
	}
	want := s.FormatTimestamp(day)
	for _, d := range env.Cube.Days {
		if d.Time != want {
			continue
		}
		rates := Rates{"EUR": model.RateUnit}
		for _, r := range d.Rates {
			v, err := inverseRate(r.Rate)
			if err != nil {
				continue
			}
			rates[normalizeSymbol(r.Currency)] = v
		}
		return rates, nil
	}
	return nil, s.notFound("no cube for %s", want)
}

// Switzerland is the Swiss Federal Office for Customs daily list (CHF base).
type Switzerland struct{ sourceInfo }

// NewSwitzerland creates the Swiss customs source.
func NewSwitzerland() *Switzerland {
	return &Switzerland{sourceInfo{name: "switzerland", layout: "20060102", offset: 1, maxBytes: 25_000}}
}

func (s *Switzerland) BuildURL(day uint64) string {
	return "https://www.backend-rates.bazg.admin.ch/api/xmldaily?d=" + s.FormatTimestamp(day) + "&locale=en"
}

type swissRates struct {
	Date    string `xml:"datum"`
	Devises []struct {
		Code     string `xml:"code,attr"`
		Currency string `xml:"waehrung"`
		Rate     string `xml:"kurs"`
	} `xml:"devise"`
}

// ExtractRate parses entries such as "100 JPY" at "0.8571" CHF.
func (s *Switzerland) ExtractRate(body []byte, day uint64) (Rates, error) {
	var doc swissRates
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.name, apperrors.ErrXMLParse, err)
	}
	if err := s.checkDate(doc.Date, day, "02.01.2006"); err != nil {
		return nil, err
	}
	rates := Rates{"CHF": model.RateUnit}
	for _, d := range doc.Devises {
		units, symbol, ok := splitUnits(d.Currency)
		if !ok {
			symbol, units = d.Code, 1
		}
		v, err := model.ParseScaledRatePerUnits(d.Rate, units)
		if err != nil {
			continue
		}
		rates[normalizeSymbol(symbol)] = v
	}
	return rates, nil
}

// splitUnits parses "100 JPY" into (100, "JPY").
func splitUnits(s string) (int64, string, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, "", false
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || n <= 0 {
		return 0, "", false
	}
	return n, fields[1], true
}

// Turkey is the Central Bank of the Republic of Turkey daily list (TRY base).
type Turkey struct{ sourceInfo }

// NewTurkey creates the Central Bank of Turkey source.
func NewTurkey() *Turkey {
	return &Turkey{sourceInfo{name: "turkey", layout: "01/02/2006", offset: 3, maxBytes: 30_000}}
}

func (s *Turkey) BuildURL(day uint64) string {
	t := time.Unix(int64(day), 0).UTC()
	return fmt.Sprintf("https://www.tcmb.gov.tr/kurlar/%s/%s.xml", t.Format("200601"), t.Format("02012006"))
}

type turkeyRates struct {
	Date       string `xml:"Date,attr"`
	Currencies []struct {
		Code    string `xml:"CurrencyCode,attr"`
		Unit    string `xml:"Unit"`
		Buying  string `xml:"ForexBuying"`
		Selling string `xml:"ForexSelling"`
	} `xml:"Currency"`
}

// ExtractRate uses the mid of ForexBuying and ForexSelling per Unit.
func (s *Turkey) ExtractRate(body []byte, day uint64) (Rates, error) {
	var doc turkeyRates
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.name, apperrors.ErrXMLParse, err)
	}
	if err := s.checkDate(doc.Date, day, s.layout); err != nil {
		return nil, err
	}
	rates := Rates{"TRY": model.RateUnit}
	for _, c := range doc.Currencies {
		units, err := strconv.ParseInt(strings.TrimSpace(c.Unit), 10, 64)
		if err != nil {
			continue
		}
		v, err := midRate(c.Buying, c.Selling, units)
		if err != nil {
			continue
		}
		rates[normalizeSymbol(c.Code)] = v
	}
	return rates, nil
}
