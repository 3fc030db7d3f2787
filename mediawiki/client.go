// Package mediawiki is a client library for the MediaWiki web API. It
// models pages, categories, files, users, and revisions as lazily populated
// objects and funnels every network call through one request/response
// gateway that handles throttling, verb selection, maxlag retries, and
// error classification.
//
// A Client and the entities created from it are not safe for concurrent
// use; callers sharing one Client across goroutines must serialize access
// themselves.
package mediawiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Riamse/ceterach/metrics"
	"github.com/Riamse/ceterach/tracing"
)

// Client is one logical session against a wiki. It owns the throttle state,
// the action-token cache, and the namespace cache for its lifetime; the
// caches are populated lazily and never invalidated, so create a new Client
// to refresh them.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	lastRequest time.Time
	tokens      map[string]string
	namespaces  map[int]string

	// Clock and sleep are injectable so throttle and retry behavior can be
	// tested without waiting.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the wiki at config.BaseURL. Zero-valued
// ambient settings (timeout, user agent, GET allow-list, default
// parameters) are filled from DefaultConfig; Throttle, Retries, and
// RetrySleep are taken as given.
func NewClient(config Config, logger *slog.Logger) *Client {
	stock := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = stock.Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = stock.UserAgent
	}
	if config.GETActions == nil {
		config.GETActions = stock.GETActions
	}
	if config.Defaults == nil {
		config.Defaults = stock.Defaults
	}
	if logger == nil {
		logger = slog.Default()
	}

	jar, _ := cookiejar.New(nil)
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Jar:       jar,
			Transport: transport,
		},
		logger:      logger,
		lastRequest: time.Now(),
		tokens:      make(map[string]string),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config returns the configuration the client was created with.
func (c *Client) Config() Config { return c.config }

// Call sends an API request with the configured default parameters merged
// in and returns the decoded response. The action defaults to "query" and
// the response format is always JSON.
func (c *Client) Call(ctx context.Context, params Params) (map[string]any, error) {
	return c.call(ctx, params, nil, true, nil)
}

// CallWith is Call with an extra override layer; override keys win over
// both params and the configured defaults.
func (c *Client) CallWith(ctx context.Context, params, overrides Params) (map[string]any, error) {
	return c.call(ctx, params, overrides, true, nil)
}

// CallNoDefaults sends an API request without merging the configured
// default parameters.
func (c *Client) CallNoDefaults(ctx context.Context, params Params) (map[string]any, error) {
	return c.call(ctx, params, nil, false, nil)
}

// filePart is a binary form-data part carried alongside the usual
// parameters. Its presence switches the request to multipart/form-data.
type filePart struct {
	fieldName string
	fileName  string
	contents  []byte
}

// upload sends params as a multipart request with contents attached as the
// "file" part, the form MediaWiki requires for action=upload.
func (c *Client) upload(ctx context.Context, params Params, filename string, contents []byte) (map[string]any, error) {
	return c.call(ctx, params, nil, true, &filePart{
		fieldName: "file",
		fileName:  filename,
		contents:  contents,
	})
}

// call is the gateway every network operation goes through: throttle,
// build parameters, pick the verb, send, decode, classify, retry on lag.
func (c *Client) call(ctx context.Context, params, overrides Params, useDefaults bool, part *filePart) (map[string]any, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	values := buildValues(params, c.config.Defaults, overrides, useDefaults)
	action := values.Get("action")
	useGET := part == nil && c.config.allowsGET(action)

	verb := http.MethodPost
	if useGET {
		verb = http.MethodGet
	}
	ctx, span := tracing.StartSpan(ctx, "mediawiki.call")
	defer span.End()
	span.SetAttributes(
		attribute.String("wiki.api.action", action),
		attribute.String("http.request.method", verb),
	)

	requestID := uuid.NewString()
	start := c.now()
	ret, sendErr := c.send(ctx, useGET, values, part)

	result, err := c.handleResponse(ctx, useGET, values, part, ret, sendErr)

	elapsed := c.now().Sub(start).Seconds()
	if err != nil {
		tracing.RecordError(span, err)
		metrics.RecordCall(action, elapsed, false)
		c.logger.Warn("API call failed",
			"request_id", requestID,
			"action", action,
			"method", verb,
			"error", err)
		return nil, err
	}
	metrics.RecordCall(action, elapsed, true)
	c.logger.Debug("API call completed",
		"request_id", requestID,
		"action", action,
		"method", verb,
		"duration_ms", int(elapsed*1000))
	return result, nil
}

// handleResponse classifies the decoded response, driving the maxlag retry
// loop when the wiki asks for backoff.
func (c *Client) handleResponse(ctx context.Context, useGET bool, values url.Values, part *filePart, ret map[string]any, sendErr *APIError) (map[string]any, error) {
	errEnv := getMap(ret, "error")
	if errEnv == nil {
		if sendErr != nil {
			return nil, sendErr
		}
		return ret, nil
	}

	code := getString(errEnv, "code")
	if code != "maxlag" {
		return nil, c.classify(ret, errEnv, sendErr)
	}

	// The wiki asked us to back off. Resend up to the configured retry
	// budget; a negative budget retries until the lag clears.
	attempts := 1
	for {
		if c.config.Retries >= 0 && attempts > c.config.Retries {
			return nil, &APIError{
				Kind:     KindRetryExhausted,
				Code:     "maxlag",
				Message:  fmt.Sprintf("maximum number of retries reached (%d)", attempts),
				Attempts: attempts,
				Response: ret,
			}
		}
		if err := c.sleep(ctx, c.config.RetrySleep); err != nil {
			return nil, err
		}
		metrics.RetriesTotal.Inc()

		ret, sendErr = c.send(ctx, useGET, values, part)
		attempts++

		errEnv = getMap(ret, "error")
		if errEnv == nil {
			if sendErr != nil {
				return nil, sendErr
			}
			return ret, nil
		}
		if code := getString(errEnv, "code"); code != "maxlag" {
			return nil, c.classify(ret, errEnv, sendErr)
		}
	}
}

// classify turns an error envelope into a typed error. Client-synthesized
// envelopes (transport, decode) surface the original cause.
func (c *Client) classify(ret, errEnv map[string]any, sendErr *APIError) error {
	if sendErr != nil {
		sendErr.Response = ret
		return sendErr
	}
	code := getString(errEnv, "code")
	return &APIError{
		Kind:     classifyRemote(code),
		Code:     code,
		Message:  getString(errEnv, "info"),
		Response: ret,
	}
}

// throttle blocks until the configured interval since the last request has
// passed.
func (c *Client) throttle(ctx context.Context) error {
	if c.config.Throttle <= 0 {
		return nil
	}
	wait := c.config.Throttle - c.now().Sub(c.lastRequest)
	if wait <= 0 {
		return nil
	}
	metrics.ThrottleWaits.Inc()
	return c.sleep(ctx, wait)
}

// send performs one HTTP exchange and decodes the body. Failures never
// propagate raw: a transport error or an undecodable body is converted into
// a response-shaped error envelope with an internal code, so every failure
// flows through the same classification path as a remote error. The
// last-request timestamp advances after every attempt, success or not.
func (c *Client) send(ctx context.Context, useGET bool, values url.Values, part *filePart) (map[string]any, *APIError) {
	var req *http.Request
	var err error
	switch {
	case useGET:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+values.Encode(), nil)
	case part != nil:
		body, contentType, berr := multipartBody(values, part)
		if berr != nil {
			return syntheticError("could not build multipart body: " + berr.Error()),
				&APIError{Kind: KindTransport, Code: internalErrorCode, Message: berr.Error(), cause: berr}
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, body)
		if req != nil {
			req.Header.Set("Content-Type", contentType)
		}
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, strings.NewReader(values.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return syntheticError("could not build request: " + err.Error()),
			&APIError{Kind: KindTransport, Code: internalErrorCode, Message: err.Error(), cause: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	c.lastRequest = c.now()
	if err != nil {
		metrics.TransportErrors.Inc()
		return syntheticError("transport failure: " + err.Error()),
			&APIError{Kind: KindTransport, Code: internalErrorCode, Message: "transport failure: " + err.Error(), cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TransportErrors.Inc()
		return syntheticError("could not read response: " + err.Error()),
			&APIError{Kind: KindTransport, Code: internalErrorCode, Message: "could not read response: " + err.Error(), cause: err}
	}

	// The body is decoded regardless of HTTP status: MediaWiki reports
	// maxlag and application errors with non-200 statuses and a JSON body.
	var ret map[string]any
	if err := json.Unmarshal(body, &ret); err != nil {
		return syntheticError("no JSON object could be decoded"),
			&APIError{Kind: KindDecode, Code: internalErrorCode, Message: "no JSON object could be decoded", cause: err}
	}
	if ret == nil {
		ret = map[string]any{}
	}
	return ret, nil
}

// syntheticError builds the response-shaped envelope used for failures that
// happen before a decodable response exists.
// multipartBody encodes values plus the file part as multipart/form-data.
func multipartBody(values url.Values, part *filePart) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, vals := range values {
		for _, v := range vals {
			if err := mw.WriteField(key, v); err != nil {
				return nil, "", err
			}
		}
	}
	fw, err := mw.CreateFormFile(part.fieldName, part.fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(part.contents); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func syntheticError(info string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code": internalErrorCode,
			"info": info,
		},
	}
}
