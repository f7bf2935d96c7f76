// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package upstream

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultOMDBBaseURL = "https://www.omdbapi.com/"
	upstreamOMDB       = "omdb"
)

// SearchItem is one OMDB search hit. Field names match OMDB's JSON so
// responses pass through unchanged.
type SearchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// SearchResult is the normalized search payload served to API clients.
type SearchResult struct {
	Query   string       `json:"query"`
	Page    int          `json:"page"`
	Type    string       `json:"type"`
	Total   *string      `json:"total"`
	Results []SearchItem `json:"results"`
}

type omdbSearchResponse struct {
	Search   []SearchItem `json:"Search"`
	Total    *string      `json:"totalResults"`
	Response string       `json:"Response"`
	Error    string       `json:"Error"`
}

// OMDB is a client for the OMDb API.
type OMDB struct {
	client  *Client
	baseURL string
	apiKey  string
}

func NewOMDB(client *Client, baseURL, apiKey string) *OMDB {
	if baseURL == "" {
		baseURL = DefaultOMDBBaseURL
	}
	return &OMDB{client: client, baseURL: baseURL, apiKey: apiKey}
}

// Configured reports whether an API key is set.
func (o *OMDB) Configured() bool {
	return o != nil && strings.TrimSpace(o.apiKey) != ""
}

// Search runs a title search. OMDB's own "Response":"False" answers are
// surfaced as upstream errors carrying OMDB's message.
func (o *OMDB) Search(ctx context.Context, query string, page int, kind string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("apikey", o.apiKey)
	params.Set("s", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("type", kind)
	params.Set("r", "json")

	body, err := o.client.getJSON(ctx, upstreamOMDB, o.buildURL(params))
	if err != nil {
		return nil, err
	}

	var resp omdbSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Upstream: upstreamOMDB, Message: "omdb returned an unexpected payload"}
	}
	if resp.Response != "True" {
		return nil, &Error{Upstream: upstreamOMDB, Message: omdbMessage(resp.Error)}
	}

	results := resp.Search
	if results == nil {
		results = []SearchItem{}
	}
	return &SearchResult{
		Query:   query,
		Page:    page,
		Type:    kind,
		Total:   resp.Total,
		Results: results,
	}, nil
}

// Detail returns the full OMDB record for an IMDb id as raw JSON.
func (o *OMDB) Detail(ctx context.Context, imdbID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("apikey", o.apiKey)
	params.Set("i", imdbID)
	params.Set("plot", "full")
	params.Set("r", "json")

	body, err := o.client.getJSON(ctx, upstreamOMDB, o.buildURL(params))
	if err != nil {
		return nil, err
	}

	var status struct {
		Response string `json:"Response"`
		Error    string `json:"Error"`
	}
	if err := json.Unmarshal(body, &status); err == nil && status.Response == "False" {
		return nil, &Error{Upstream: upstreamOMDB, Message: omdbMessage(status.Error)}
	}
	return body, nil
}

func (o *OMDB) buildURL(params url.Values) string {
	u, err := url.Parse(o.baseURL)
	if err != nil {
		return o.baseURL + "?" + params.Encode()
	}
	u.RawQuery = params.Encode()
	return u.String()
}

func omdbMessage(msg string) string {
	if msg == "" {
		return "unknown"
	}
	return msg
}
