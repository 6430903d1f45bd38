package gas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Oracle fetches fee-market data from one external price provider. Each
// implementation owns its provider-specific payload shape and returns the
// normalized intermediate form.
type Oracle interface {
	// Name identifies the provider in logs.
	Name() string

	// FetchPrices retrieves the provider's current tier prices in gwei.
	FetchPrices(ctx context.Context) (*ProviderPrices, error)

	// EstimateWait asks the provider for the expected confirmation time of
	// a transaction priced at the given gwei amount.
	EstimateWait(ctx context.Context, gwei decimal.Decimal) (time.Duration, error)
}

const (
	defaultRequestTimeout = 30 * time.Second

	// Oracles are public endpoints with coarse rate limits; one request
	// every two seconds stays well inside them even with polling and
	// wait-estimate lookups interleaved.
	oracleRateLimit = rate.Limit(0.5)
	oracleBurst     = 2
)

// oracleClient is the shared HTTP plumbing behind the concrete providers.
type oracleClient struct {
	name    string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func newOracleClient(name, baseURL string, logger *logrus.Logger) *oracleClient {
	return &oracleClient{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{},
		limiter: rate.NewLimiter(oracleRateLimit, oracleBurst),
		logger:  logger,
	}
}

func (c *oracleClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"oracle":      c.name,
			"status_code": resp.StatusCode,
			"body":        string(body),
		}).Warn("Gas oracle returned error response")
		return fmt.Errorf("%s error: status=%d", c.name, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", c.name, err)
	}
	return nil
}

// GasNowOracle reads a gasnow-style provider that reports plain-gwei prices
// keyed fast/average/safeLow, plus per-tier wait estimates in minutes.
type GasNowOracle struct {
	*oracleClient
}

// NewGasNowOracle creates the gasnow-style provider client.
func NewGasNowOracle(baseURL string, logger *logrus.Logger) *GasNowOracle {
	return &GasNowOracle{oracleClient: newOracleClient("gasnow", baseURL, logger)}
}

// Name implements Oracle.
func (o *GasNowOracle) Name() string { return o.name }

type gasNowPayload struct {
	Fast        float64 `json:"fast"`
	Average     float64 `json:"average"`
	SafeLow     float64 `json:"safeLow"`
	FastWait    float64 `json:"fastWait"`    // minutes
	AvgWait     float64 `json:"avgWait"`     // minutes
	SafeLowWait float64 `json:"safeLowWait"` // minutes
}

// FetchPrices implements Oracle for the gasnow-style payload.
func (o *GasNowOracle) FetchPrices(ctx context.Context) (*ProviderPrices, error) {
	var payload gasNowPayload
	if err := o.get(ctx, "/api/v3/gas/price", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Fast <= 0 {
		return nil, fmt.Errorf("%s returned malformed prices", o.name)
	}

	return &ProviderPrices{
		Fast:     decimal.NewFromFloat(payload.Fast),
		Average:  decimal.NewFromFloat(payload.Average),
		SafeLow:  decimal.NewFromFloat(payload.SafeLow),
		FastWait: minutes(payload.FastWait),
		AvgWait:  minutes(payload.AvgWait),
		SlowWait: minutes(payload.SafeLowWait),
	}, nil
}

type waitPayload struct {
	ExpectedWait float64 `json:"expectedWait"` // minutes
}

// EstimateWait implements Oracle using the provider's prediction endpoint.
func (o *GasNowOracle) EstimateWait(ctx context.Context, gwei decimal.Decimal) (time.Duration, error) {
	query := url.Values{"gasPrice": {gwei.String()}}
	var payload waitPayload
	if err := o.get(ctx, "/api/v3/gas/predict", query, &payload); err != nil {
		return 0, err
	}
	return minutes(payload.ExpectedWait), nil
}

// GasStationOracle reads a gas-station-style provider. Its prices come in
// tenths of gwei keyed fastest/fast/average, with an optional safeLow.
type GasStationOracle struct {
	*oracleClient
}

// NewGasStationOracle creates the gas-station-style provider client.
func NewGasStationOracle(baseURL string, logger *logrus.Logger) *GasStationOracle {
	return &GasStationOracle{oracleClient: newOracleClient("gasstation", baseURL, logger)}
}

// Name implements Oracle.
func (o *GasStationOracle) Name() string { return o.name }

type gasStationPayload struct {
	Fastest     float64 `json:"fastest"` // tenths of gwei
	Fast        float64 `json:"fast"`
	Average     float64 `json:"average"`
	SafeLow     float64 `json:"safeLow"`
	FastWait    float64 `json:"fastWait"` // minutes
	AvgWait     float64 `json:"avgWait"`
	SafeLowWait float64 `json:"safeLowWait"`
}

// FetchPrices implements Oracle. Prices are divided by ten to convert the
// provider's deci-gwei units into gwei.
func (o *GasStationOracle) FetchPrices(ctx context.Context) (*ProviderPrices, error) {
	var payload gasStationPayload
	if err := o.get(ctx, "/json/ethgasAPI.json", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Fast <= 0 {
		return nil, fmt.Errorf("%s returned malformed prices", o.name)
	}

	ten := decimal.NewFromInt(10)
	return &ProviderPrices{
		Fast:     decimal.NewFromFloat(payload.Fast).Div(ten),
		Average:  decimal.NewFromFloat(payload.Average).Div(ten),
		SafeLow:  decimal.NewFromFloat(payload.SafeLow).Div(ten),
		FastWait: minutes(payload.FastWait),
		AvgWait:  minutes(payload.AvgWait),
		SlowWait: minutes(payload.SafeLowWait),
	}, nil
}

// EstimateWait implements Oracle using the provider's prediction endpoint.
// The queried price is converted back into the provider's deci-gwei units.
func (o *GasStationOracle) EstimateWait(ctx context.Context, gwei decimal.Decimal) (time.Duration, error) {
	query := url.Values{"gasPrice": {gwei.Mul(decimal.NewFromInt(10)).String()}}
	var payload waitPayload
	if err := o.get(ctx, "/json/predictTable.json", query, &payload); err != nil {
		return 0, err
	}
	return minutes(payload.ExpectedWait), nil
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}
