package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// APIError carries a non-2xx reply from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client talks to the Flux QA HTTP API with bearer-token auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	debug      bool
}

func getClient() (*Client, error) {
	token := getConfigToken()
	if token == "" {
		return nil, fmt.Errorf("API token is required. Set it via --token flag, FLUX_TOKEN env var, or ~/.fluxctl.yaml")
	}

	return &Client{
		baseURL:    getConfigURL(),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		debug:      flagDebug,
	}, nil
}

// request is the single path every verb goes through. A nil payload
// sends no body; an error reply is surfaced as *APIError.
func (c *Client) request(method, path string, query url.Values, payload interface{}) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, u, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	if c.debug {
		fmt.Fprintf(os.Stderr, "DEBUG: %s %s\n", method, u)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		fmt.Fprintf(os.Stderr, "DEBUG: Status %d\nDEBUG: Body: %s\n", resp.StatusCode, body)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}

func (c *Client) Get(path string, query url.Values) ([]byte, error) {
	return c.request(http.MethodGet, path, query, nil)
}

func (c *Client) Post(path string, body interface{}) ([]byte, error) {
	return c.request(http.MethodPost, path, nil, body)
}

func (c *Client) Put(path string, body interface{}) ([]byte, error) {
	return c.request(http.MethodPut, path, nil, body)
}

func (c *Client) Delete(path string) ([]byte, error) {
	return c.request(http.MethodDelete, path, nil, nil)
}
