package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client issues report requests against a POS server using a token obtained
// from the SessionManager. Report fetches carry a longer timeout than auth
// calls because large date ranges can take the server a while to aggregate.
type Client struct {
	serverURL string
	session   *SessionManager
	client    *http.Client
}

func NewClient(serverURL string, login string, passwordHash string, authTimeout time.Duration, reportTimeout time.Duration) *Client {
	if reportTimeout <= 0 {
		reportTimeout = 60 * time.Second
	}
	return &Client{
		serverURL: strings.TrimRight(strings.TrimSpace(serverURL), "/"),
		session:   NewSessionManager(serverURL, login, passwordHash, authTimeout),
		client:    &http.Client{Timeout: reportTimeout},
	}
}

func (c *Client) Authenticate(ctx context.Context) (string, error) {
	return c.session.Authenticate(ctx)
}

func (c *Client) Logout(ctx context.Context) {
	c.session.Logout(ctx)
}

// FetchPivotReport posts the columnar sales query and returns the raw JSON
// body for the normalizer.
func (c *Client) FetchPivotReport(ctx context.Context, token string, from time.Time, to time.Time, departmentID string) ([]byte, error) {
	body, err := json.Marshal(NewSalesPivotRequest(from, to, departmentID))
	if err != nil {
		return nil, &RequestError{Detail: err.Error(), Err: err}
	}

	endpoint := fmt.Sprintf("%s/resto/api/v2/reports/olap?key=%s", c.serverURL, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Detail: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// FetchDailyReport retrieves the legacy XML-oriented daily report.
func (c *Client) FetchDailyReport(ctx context.Context, token string, from time.Time, to time.Time) ([]byte, error) {
	params := DailyReportParams(from, to)
	params.Set("key", token)
	endpoint := fmt.Sprintf("%s/resto/service/reports/report.jspx?%s", c.serverURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &RequestError{Detail: err.Error(), Err: err}
	}
	return c.do(req)
}

// FetchOrderList retrieves the order/session list, used for diagnostics only.
func (c *Client) FetchOrderList(ctx context.Context, token string, from time.Time, to time.Time, closedOnly bool) ([]byte, error) {
	params := OrderListParams(from, to, closedOnly)
	params.Set("key", token)
	endpoint := fmt.Sprintf("%s/resto/api/orders?%s", c.serverURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &RequestError{Detail: err.Error(), Err: err}
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RequestError{Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &RequestError{Status: resp.StatusCode, Detail: err.Error(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Status: resp.StatusCode, Detail: extractUpstreamDetail(body)}
	}
	return body, nil
}

// extractUpstreamDetail pulls a human-readable message out of an error body,
// which may be JSON with a message field or plain text.
func extractUpstreamDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty response body"
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return truncate(trimmed, 200)
}
