package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const tracerName = "klinefetch/pkg/bybit"

// RESTClient talks to the public Bybit V5 market endpoints.
// It holds no per-request state and is safe for concurrent use.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter // nil means unlimited
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewRESTClientWithHTTP lets callers supply their own *http.Client.
func NewRESTClientWithHTTP(baseURL string, httpClient *http.Client) *RESTClient {
	return &RESTClient{baseURL: baseURL, httpClient: httpClient}
}

// WithRateLimit caps the request rate across every caller sharing c.
// A non-positive perSecond removes the cap.
func (c *RESTClient) WithRateLimit(perSecond float64, burst int) *RESTClient {
	if perSecond <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *RESTClient) BaseURL() string {
	return c.baseURL
}

// GetKlinePage performs exactly one call to the kline endpoint for the given
// window and returns its rows newest first.
func (c *RESTClient) GetKlinePage(ctx context.Context, q KlineQuery) ([]KlineRow, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultKlineLimit
	}

	params := url.Values{}
	params.Set("category", string(q.Category))
	params.Set("symbol", q.Symbol)
	params.Set("interval", q.Interval)
	params.Set("limit", strconv.Itoa(limit))
	if q.Start > 0 {
		params.Set("start", strconv.FormatInt(q.Start, 10))
	}
	params.Set("end", strconv.FormatInt(q.End, 10))

	result, err := c.get(ctx, "get klines", KlinePath, params)
	if err != nil {
		return nil, err
	}

	rows, err := ParseKlineList(result)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, &TransportError{Op: "get klines", Err: fmt.Errorf("parse result: %w", err)}
	}
	return rows, nil
}

// GetSymbols lists every instrument symbol in a category, following
// nextPageCursor until the listing is exhausted. The result is sorted.
func (c *RESTClient) GetSymbols(ctx context.Context, category Category) ([]string, error) {
	var symbols []string
	cursor := ""
	for {
		params := url.Values{}
		params.Set("category", string(category))
		params.Set("limit", strconv.Itoa(maxInstrumentsLimit))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		result, err := c.get(ctx, "get instruments", InstrumentsPath, params)
		if err != nil {
			return nil, err
		}

		page, next := ParseSymbolList(result)
		symbols = append(symbols, page...)
		if next == "" || next == cursor || len(page) == 0 {
			break
		}
		cursor = next
	}

	sort.Strings(symbols)
	return symbols, nil
}

// get issues a GET, checks HTTP status and retCode, and returns the raw result payload.
func (c *RESTClient) get(ctx context.Context, op, path string, params url.Values) (json.RawMessage, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "bybit "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("url.path", path),
			attribute.String("url.query", params.Encode()),
		),
	)
	defer span.End()

	result, err := c.do(ctx, op, path, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (c *RESTClient) do(ctx context.Context, op, path string, params url.Values) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("bybit %s: rate limit: %w", op, err)
		}
	}

	endpoint := c.baseURL + path + "?" + params.Encode()

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}

	// Execute the HTTP request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("making request: %w", err)}
	}
	defer resp.Body.Close()

	// Check HTTP status code
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{Op: op, Err: fmt.Errorf("http status %d: %s", resp.StatusCode, body)}
	}

	var rawResp BybitResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	if rawResp.RetCode != 0 {
		return nil, &APIError{Code: rawResp.RetCode, Msg: rawResp.RetMsg}
	}

	return rawResp.Result, nil
}
