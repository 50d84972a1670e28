package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// RefreshFunc returns a fresh access token.
type RefreshFunc func(ctx context.Context) (string, error)

// defaultHTTPClient is shared by services that are not given a client.
var defaultHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// graphError is the error envelope returned by Graph.
type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError is returned for non-2xx Graph responses.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph API error %d: %s", e.StatusCode, e.Message)
}

// client issues authenticated Graph requests.
type client struct {
	baseURL string
	http    *http.Client
	refresh RefreshFunc
	logger  *slog.Logger

	mu    sync.Mutex
	token string
}

func (c *client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// do sends a request with a JSON body (when in is non-nil) and decodes the
// response into out (when non-nil). A 401 triggers one refresh and retry.
func (c *client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.refresh != nil {
		_ = resp.Body.Close()

		tok, rerr := c.refresh(ctx)
		if rerr != nil {
			return fmt.Errorf("failed to refresh Microsoft token: %w", rerr)
		}
		c.mu.Lock()
		c.token = tok
		c.mu.Unlock()
		c.logger.Debug("retrying Graph request with refreshed token", slog.String("path", path))

		if resp, err = c.send(ctx, method, path, query, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Graph response: %w", err)
	}
	return nil
}

func (c *client) send(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + encodeQuery(query)
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken())
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request failed: %w", err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var ge graphError
	if err := json.Unmarshal(data, &ge); err == nil && ge.Error.Message != "" {
		return &StatusError{StatusCode: resp.StatusCode, Code: ge.Error.Code, Message: ge.Error.Message}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

// encodeQuery encodes OData system query options. Keys such as $filter are
// left unescaped and spaces in values become %20.
func encodeQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.ReplaceAll(url.QueryEscape(v), "+", "%20"))
		}
	}
	return b.String()
}

// isUnauthorized reports whether err is a Graph 401.
func isUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// messagePath returns the path of a single message with its id escaped.
func messagePath(id string, suffix ...string) string {
	return "/me/messages/" + url.PathEscape(id) + strings.Join(suffix, "")
}
