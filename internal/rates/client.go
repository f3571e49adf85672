package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned whenever the upstream rate source cannot
// produce a usable quote. The caller decides whether to retry; this client
// never does.
var ErrUnavailable = errors.New("exchange rate unavailable")

// Lookup resolves the price of one unit of base expressed in quote.
type Lookup interface {
	Rate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

// Client fetches rates from the CoinGecko simple price API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Rate asks the API for base priced in quote, e.g. ("the-open-network", "amd").
func (c *Client) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s",
		c.baseURL, url.QueryEscape(base), url.QueryEscape(quote))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, ErrUnavailable
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, ErrUnavailable
	}

	// {"the-open-network":{"amd":2100.5}}
	var payload map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, ErrUnavailable
	}

	rate, ok := payload[base][quote]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, ErrUnavailable
	}
	return rate, nil
}

// Static always answers with a fixed rate. Used in tests and local runs
// without network access.
type Static struct {
	Value decimal.Decimal
}

func (s Static) Rate(context.Context, string, string) (decimal.Decimal, error) {
	if !s.Value.IsPositive() {
		return decimal.Zero, ErrUnavailable
	}
	return s.Value, nil
}
