// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package upstream talks to the third-party metadata services the gateway fronts.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/autobrr/autobrr/pkg/sharedhttp"
	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/rossoflix/rossoflix/internal/buildinfo"
	"github.com/rossoflix/rossoflix/internal/pkg/timeouts"
	"github.com/rossoflix/rossoflix/pkg/httphelpers"
	"github.com/rossoflix/rossoflix/pkg/redact"
)

// ErrUpstream marks every failure caused by a remote service.
var ErrUpstream = errors.New("upstream error")

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 8 << 20

// Error is an upstream failure with a message safe to show to API clients.
type Error struct {
	Upstream string
	Status   int
	Message  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrUpstream
}

// Recorder observes upstream calls.
type Recorder interface {
	UpstreamRequest(upstream string, err error)
}

// Options configures a Client.
type Options struct {
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
	HTTPClient *http.Client
	Recorder   Recorder
}

// Client performs GET requests that decode to raw JSON, retrying transient
// network failures. HTTP error statuses are not retried.
type Client struct {
	http       *http.Client
	attempts   uint
	retryDelay time.Duration
	recorder   Recorder
}

func NewClient(opts Options) *Client {
	c := &Client{
		http:       opts.HTTPClient,
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
		recorder:   opts.Recorder,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = timeouts.DefaultUpstreamTimeout
		}
		c.http = &http.Client{
			Transport: sharedhttp.Transport,
			Timeout:   timeout,
		}
	}
	if c.attempts == 0 {
		c.attempts = 3
	}
	if c.retryDelay <= 0 {
		c.retryDelay = 250 * time.Millisecond
	}
	return c
}

// getJSON fetches reqURL and returns the body if it is valid JSON.
func (c *Client) getJSON(ctx context.Context, upstream, reqURL string) (json.RawMessage, error) {
	body, err := c.get(ctx, upstream, reqURL)
	if c.recorder != nil {
		c.recorder.UpstreamRequest(upstream, err)
	}
	return body, err
}

func (c *Client) get(ctx context.Context, upstream, reqURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := c.retryDo(ctx, req)
	if err != nil {
		err = redact.URLError(err)
		return nil, &Error{Upstream: upstream, Message: fmt.Sprintf("%s request failed: %s", upstream, redact.String(rootCause(err).Error()))}
	}
	defer httphelpers.DrainAndClose(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Upstream: upstream, Status: resp.StatusCode, Message: fmt.Sprintf("status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Upstream: upstream, Status: resp.StatusCode, Message: fmt.Sprintf("%s read failed: %v", upstream, err)}
	}
	if !json.Valid(body) {
		return nil, &Error{Upstream: upstream, Status: resp.StatusCode, Message: fmt.Sprintf("%s returned invalid JSON", upstream)}
	}
	return body, nil
}

func (c *Client) retryDo(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response

	err := retry.Do(func() error {
		var err error
		resp, err = c.http.Do(req)
		if err != nil {
			// Redact sensitive params from URL errors to prevent secret leakage in logs
			return redact.URLError(err)
		}
		return nil
	},
		retry.Context(ctx),
		retry.RetryIf(isRetryableError),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().
				Uint("attempt", n+1).
				Str("url", redact.URLString(req.URL.String())).
				Err(err).
				Msg("Retrying upstream request")
		}),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxJitter(c.retryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error making request")
	}

	return resp, nil
}

func rootCause(err error) error {
	if cause := errors.Cause(err); cause != nil {
		return cause
	}
	return err
}
