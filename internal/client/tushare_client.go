package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/model"
)

const (
	DefaultTushareBaseURL = "http://api.tushare.pro"

	apiIndexDaily = "index_daily"
	apiFundNAV    = "fund_nav"
)

var (
	indexDailyFields = []string{"ts_code", "trade_date", "close"}
	fundNAVFields    = []string{"ts_code", "ann_date", "end_date", "unit_nav", "accum_nav", "net_asset", "total_net_asset", "adj_nav"}
)

// APIError is a non-zero code returned inside a Tushare response envelope
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tushare error %d: %s", e.Code, e.Msg)
}

// TushareConfig holds the connection settings of a TushareClient
type TushareConfig struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// TushareClient handles communication with the Tushare Pro HTTP API
type TushareClient struct {
	baseURL        string
	token          string
	maxRetries     uint64
	initialBackoff time.Duration
	httpClient     *http.Client
	logger         *zap.Logger
}

// NewTushareClient creates a new Tushare API client
func NewTushareClient(cfg TushareConfig, logger *zap.Logger) *TushareClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultTushareBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	initial := cfg.InitialBackoff
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}

	return &TushareClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		token:          cfg.Token,
		maxRetries:     uint64(retries),
		initialBackoff: initial,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type tushareRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

type tushareResponse struct {
	Code int          `json:"code"`
	Msg  string       `json:"msg"`
	Data *tushareData `json:"data"`
}

type tushareData struct {
	Fields []string        `json:"fields"`
	Items  [][]interface{} `json:"items"`
}

// Query calls one Tushare API and returns its items keyed by field name.
// Transport failures, 429 and 5xx responses are retried with exponential backoff.
func (c *TushareClient) Query(ctx context.Context, apiName string, params map[string]string, fields []string) ([]map[string]interface{}, error) {
	body, err := json.Marshal(tushareRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  strings.Join(fields, ","),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var result tushareResponse
	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("Tushare request failed",
				zap.String("api", apiName),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return fmt.Errorf("failed to call %s: %w", apiName, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			c.logger.Warn("Tushare API error response",
				zap.String("api", apiName),
				zap.Int("statusCode", resp.StatusCode),
				zap.Int("attempt", attempt),
				zap.String("response", string(bodyBytes)))
			err := fmt.Errorf("tushare returned status code %d: %s", resp.StatusCode, string(bodyBytes))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		result = tushareResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode %s response: %w", apiName, err))
		}
		if result.Code != 0 {
			return backoff.Permanent(&APIError{Code: result.Code, Msg: result.Msg})
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)); err != nil {
		c.logger.Error("Tushare query failed",
			zap.String("api", apiName),
			zap.Any("params", params),
			zap.Error(err))
		return nil, err
	}

	if result.Data == nil {
		return nil, nil
	}

	rows := make([]map[string]interface{}, 0, len(result.Data.Items))
	for _, item := range result.Data.Items {
		row := make(map[string]interface{}, len(result.Data.Fields))
		for i, field := range result.Data.Fields {
			if i < len(item) {
				row[field] = item[i]
			}
		}
		rows = append(rows, row)
	}

	c.logger.Debug("Tushare query succeeded",
		zap.String("api", apiName),
		zap.Int("count", len(rows)))

	return rows, nil
}

// FetchSeries retrieves the closing price series of an instrument, using the
// dataset that matches its kind
func (c *TushareClient) FetchSeries(ctx context.Context, inst model.Instrument, startDate, endDate string) (model.Series, error) {
	switch inst.Kind {
	case model.KindFund:
		navs, err := c.FetchFundNAV(ctx, inst.SourceID, startDate, endDate)
		if err != nil {
			return nil, err
		}
		return SeriesFromNAV(navs), nil
	case model.KindIndex, "":
		return c.FetchIndexDaily(ctx, inst.SourceID, startDate, endDate)
	default:
		return nil, fmt.Errorf("unsupported instrument kind %q", inst.Kind)
	}
}

// FetchIndexDaily retrieves daily index closes for [startDate, endDate]
func (c *TushareClient) FetchIndexDaily(ctx context.Context, tsCode, startDate, endDate string) (model.Series, error) {
	rows, err := c.Query(ctx, apiIndexDaily, dateParams(tsCode, startDate, endDate), indexDailyFields)
	if err != nil {
		return nil, err
	}

	raw := make(model.Series, 0, len(rows))
	for i, row := range rows {
		date, _ := row["trade_date"].(string)
		price, ok := toFloat(row["close"])
		if !ok {
			c.logger.Warn("Skipping malformed index row",
				zap.String("tsCode", tsCode),
				zap.Int("index", i),
				zap.Any("row", row))
			continue
		}
		raw = append(raw, model.Observation{TradeDate: date, Close: price})
	}

	series := CleanSeries(raw)
	if dropped := len(raw) - len(series); dropped > 0 {
		c.logger.Warn("Dropped invalid observations",
			zap.String("tsCode", tsCode),
			zap.Int("dropped", dropped))
	}
	return series, nil
}

// FetchFundNAV retrieves the NAV records of a fund ordered by announcement date
func (c *TushareClient) FetchFundNAV(ctx context.Context, tsCode, startDate, endDate string) ([]model.FundNAV, error) {
	rows, err := c.Query(ctx, apiFundNAV, dateParams(tsCode, startDate, endDate), fundNAVFields)
	if err != nil {
		return nil, err
	}

	navs := make([]model.FundNAV, 0, len(rows))
	for _, row := range rows {
		nav := model.FundNAV{
			UnitNAV:       floatPtr(row["unit_nav"]),
			AccumNAV:      floatPtr(row["accum_nav"]),
			NetAsset:      floatPtr(row["net_asset"]),
			TotalNetAsset: floatPtr(row["total_net_asset"]),
			AdjNAV:        floatPtr(row["adj_nav"]),
		}
		nav.TSCode, _ = row["ts_code"].(string)
		nav.AnnDate, _ = row["ann_date"].(string)
		nav.EndDate, _ = row["end_date"].(string)
		if d := nav.NAVDate(); d != "" {
			nav.Date = model.FormatTradeDate(d)
		}
		navs = append(navs, nav)
	}

	sort.SliceStable(navs, func(i, j int) bool {
		return navs[i].NAVDate() < navs[j].NAVDate()
	})
	return navs, nil
}

// SeriesFromNAV converts NAV records into a price series dated by the NAV's
// value date
func SeriesFromNAV(navs []model.FundNAV) model.Series {
	raw := make(model.Series, 0, len(navs))
	for _, nav := range navs {
		price, ok := nav.Price()
		if !ok {
			continue
		}
		raw = append(raw, model.Observation{TradeDate: nav.ValueDate(), Close: price})
	}
	return CleanSeries(raw)
}

// CleanSeries enforces the guarantees callers rely on: dates are 8 digits,
// closes are positive and finite, one observation per date (the last one
// wins) and ascending order
func CleanSeries(raw model.Series) model.Series {
	byDate := make(map[string]float64, len(raw))
	for _, obs := range raw {
		if !model.IsTradeDate(obs.TradeDate) {
			continue
		}
		if obs.Close <= 0 || math.IsNaN(obs.Close) || math.IsInf(obs.Close, 0) {
			continue
		}
		byDate[obs.TradeDate] = obs.Close
	}

	series := make(model.Series, 0, len(byDate))
	for date, price := range byDate {
		series = append(series, model.Observation{TradeDate: date, Close: price})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].TradeDate < series[j].TradeDate
	})
	return series
}

func dateParams(tsCode, startDate, endDate string) map[string]string {
	params := map[string]string{"ts_code": tsCode}
	if startDate != "" {
		params["start_date"] = startDate
	}
	if endDate != "" {
		params["end_date"] = endDate
	}
	return params
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func floatPtr(v interface{}) *float64 {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}
