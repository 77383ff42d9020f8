package data

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/contactkeval/option-premium/internal/logger"
	"github.com/contactkeval/option-premium/internal/pricing"
)

// chainRow is one contract of an offline option chain file.
type chainRow struct {
	Underlying        string  `csv:"underlying"`
	ExpirationDate    string  `csv:"expiration_date"` // YYYY-MM-DD
	ContractType      string  `csv:"contract_type"`   // call or put
	StrikePrice       float64 `csv:"strike_price"`
	ImpliedVolatility float64 `csv:"implied_volatility"`
}

// csvDataProvider serves implied volatility from a local option chain CSV.
// The file is read once on first lookup.
type csvDataProvider struct {
	path string

	once  sync.Once
	chain *staticDataProvider
	err   error
}

// NewCSVDataProvider convenience constructor.
func NewCSVDataProvider(path string) *csvDataProvider {
	return &csvDataProvider{path: path}
}

func (csvDataProv *csvDataProvider) Name() string { return KindCSV }

func (csvDataProv *csvDataProvider) ImpliedVolatility(
	ctx context.Context,
	ticker string,
	expiryDate time.Time,
	strike float64,
	side pricing.Side,
) (float64, error) {
	csvDataProv.once.Do(func() {
		csvDataProv.chain, csvDataProv.err = loadChainFile(csvDataProv.path)
	})
	if csvDataProv.err != nil {
		return 0, csvDataProv.err
	}
	return csvDataProv.chain.ImpliedVolatility(ctx, ticker, expiryDate, strike, side)
}

func loadChainFile(path string) (*staticDataProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chain file: %w", err)
	}
	defer f.Close()

	var rows []chainRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read chain file %s: %w", path, err)
	}

	quotes := make([]Quote, 0, len(rows))
	for i, row := range rows {
		exp, err := time.Parse("2006-01-02", strings.TrimSpace(row.ExpirationDate))
		if err != nil {
			logger.Debugf("chain file %s row %d: bad expiration %q", path, i+1, row.ExpirationDate)
			continue
		}
		side, err := pricing.ParseSide(row.ContractType)
		if err != nil {
			logger.Debugf("chain file %s row %d: %v", path, i+1, err)
			continue
		}
		quotes = append(quotes, Quote{
			Underlying:        row.Underlying,
			Expiry:            exp,
			Side:              side,
			Strike:            row.StrikePrice,
			ImpliedVolatility: row.ImpliedVolatility,
		})
	}

	logger.Debugf("loaded %d contracts from %s", len(quotes), path)
	return NewStaticDataProvider(quotes...), nil
}
