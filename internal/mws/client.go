package mws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Compile-time interface compliance check.
var _ Gateway = (*Client)(nil)

// fieldKey makes the API address columns by their display names.
const fieldKey = "name"

// Client is a stateless HTTP client for the MWS Tables records API.
// It never retries; callers decide what to do with a failed call.
type Client struct {
	config     *Config
	logger     logrus.FieldLogger
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a new MWS Tables client.
func New(cfg *Config, logger logrus.FieldLogger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config:     cfg,
		logger:     logger.WithField("component", "mws"),
		httpClient: cfg.HTTPClient(),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}, nil
}

// ListRecords fetches all records of a datasheet view, following pages
// until the reported total has been collected.
func (c *Client) ListRecords(ctx context.Context, ds Datasheet) ([]Record, error) {
	var (
		records  = make([]Record, 0)
		pageNum  = 1
		pageSize = c.config.PageSize
	)

	for {
		query := url.Values{}
		query.Set("viewId", ds.ViewID)
		query.Set("fieldKey", fieldKey)
		query.Set("pageSize", strconv.Itoa(pageSize))
		query.Set("pageNum", strconv.Itoa(pageNum))

		status, body, err := c.do(ctx, http.MethodGet, c.recordsURL(ds, query), ds.Token, nil)
		if err != nil {
			return nil, &FetchError{Datasheet: ds.ID, Err: err}
		}

		page, remoteErr := decodePage(status, body)
		if remoteErr != nil {
			return nil, &FetchError{Datasheet: ds.ID, Status: remoteErr.status, Body: remoteErr.body}
		}

		records = append(records, page.Records...)

		c.logger.WithFields(logrus.Fields{
			"datasheet": ds.ID,
			"page":      pageNum,
			"records":   len(page.Records),
			"total":     page.Total,
		}).Debug("Fetched page of records")

		if len(page.Records) == 0 || (page.Total > 0 && len(records) >= page.Total) {
			break
		}

		// Without a total, a short page is the last one.
		if page.Total == 0 && len(page.Records) < pageSize {
			break
		}

		pageNum++
	}

	c.logger.WithFields(logrus.Fields{
		"datasheet":   ds.ID,
		"total_pages": pageNum,
		"records":     len(records),
	}).Debug("Completed fetching records")

	return records, nil
}

// CreateRecord inserts a single record into the datasheet.
func (c *Client) CreateRecord(ctx context.Context, ds Datasheet, fields map[string]any) (*Record, error) {
	query := url.Values{}
	query.Set("viewId", ds.ViewID)
	query.Set("fieldKey", fieldKey)

	return c.write(ctx, ds, "create", http.MethodPost, c.recordsURL(ds, query), writeRecord{Fields: fields})
}

// UpdateRecord patches the given fields of one record.
func (c *Client) UpdateRecord(
	ctx context.Context,
	ds Datasheet,
	recordID string,
	fields map[string]any,
) (*Record, error) {
	query := url.Values{}
	query.Set("fieldKey", fieldKey)

	return c.write(ctx, ds, "update", http.MethodPatch, c.recordsURL(ds, query), writeRecord{
		RecordID: recordID,
		Fields:   fields,
	})
}

func (c *Client) write(
	ctx context.Context,
	ds Datasheet,
	op, method, reqURL string,
	record writeRecord,
) (*Record, error) {
	payload := writeRequest{
		Records:  []writeRecord{record},
		FieldKey: fieldKey,
	}

	status, body, err := c.do(ctx, method, reqURL, ds.Token, payload)
	if err != nil {
		return nil, &WriteError{Datasheet: ds.ID, Op: op, Err: err}
	}

	page, remoteErr := decodePage(status, body)
	if remoteErr != nil {
		return nil, &WriteError{Datasheet: ds.ID, Op: op, Status: remoteErr.status, Body: remoteErr.body}
	}

	if len(page.Records) == 0 {
		return nil, &WriteError{Datasheet: ds.ID, Op: op, Status: status, Body: "response contains no records"}
	}

	c.logger.WithFields(logrus.Fields{
		"datasheet": ds.ID,
		"op":        op,
		"record_id": page.Records[0].RecordID,
	}).Debug("Wrote record")

	return &page.Records[0], nil
}

func (c *Client) recordsURL(ds Datasheet, query url.Values) string {
	return fmt.Sprintf("%s/datasheets/%s/records?%s", c.config.BaseURL, url.PathEscape(ds.ID), query.Encode())
}

// do performs one paced request and returns the status and raw body.
func (c *Client) do(ctx context.Context, method, reqURL, token string, payload any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	var reqBody io.Reader = http.NoBody

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

type remoteError struct {
	status int
	body   string
}

// decodePage unwraps the API envelope. Non-2xx statuses and success=false
// bodies are both remote failures.
func decodePage(status int, body []byte) (*recordPage, *remoteError) {
	if status < 200 || status > 299 {
		return nil, &remoteError{status: status, body: string(body)}
	}

	var env envelope
	if err := decodeJSON(body, &env); err != nil {
		return nil, &remoteError{status: status, body: fmt.Sprintf("parse JSON: %v", err)}
	}

	if !env.Success {
		code := env.Code
		if code == 0 {
			code = status
		}

		return nil, &remoteError{status: code, body: env.Message}
	}

	var page recordPage

	if len(env.Data) > 0 {
		if err := decodeJSON(env.Data, &page); err != nil {
			return nil, &remoteError{status: status, body: fmt.Sprintf("parse records: %v", err)}
		}
	}

	return &page, nil
}

// decodeJSON keeps numbers as json.Number so integer columns survive intact.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	return dec.Decode(v)
}
