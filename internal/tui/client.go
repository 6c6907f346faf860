package tui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signal-bridge/internal/domain"

	"github.com/tidwall/gjson"
)

const maxResponseBytes = 1 << 20

// Client talks to a running bridge over its public HTTP API.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	body, _, err := c.get(ctx, "/health")
	if err != nil {
		return Health{}, err
	}
	res := gjson.ParseBytes(body)
	return Health{OK: res.Get("ok").Bool(), Service: res.Get("service").String()}, nil
}

// PendingOrder peeks at the mailbox without acknowledging anything.
func (c *Client) PendingOrder(ctx context.Context) (domain.Order, bool, error) {
	body, _, err := c.get(ctx, "/next_order")
	if err != nil {
		return domain.Order{}, false, err
	}
	text := strings.TrimSpace(string(body))
	if text == "EMPTY" || text == "" {
		return domain.Order{}, false, nil
	}
	if !gjson.Valid(text) {
		return domain.Order{}, false, fmt.Errorf("unexpected next_order body: %.40q", text)
	}
	res := gjson.Parse(text)
	return domain.Order{
		ID:        res.Get("id").String(),
		Direction: domain.Side(res.Get("direction").String()),
		Symbol:    res.Get("symbol").String(),
		Lot:       res.Get("lot").Float(),
		SL:        res.Get("sl").Float(),
		TP:        res.Get("tp").Float(),
	}, true, nil
}

func (c *Client) CheckLicense(ctx context.Context, key string) (LicenseStatus, error) {
	body, status, err := c.get(ctx, "/api/check_license?license_key="+url.QueryEscape(key))
	if err != nil && status != http.StatusServiceUnavailable {
		return LicenseStatus{}, err
	}
	res := gjson.ParseBytes(body)
	if status == http.StatusServiceUnavailable {
		return LicenseStatus{}, fmt.Errorf("license storage unavailable")
	}
	return LicenseStatus{
		Valid:     res.Get("valid").Bool(),
		Reason:    res.Get("reason").String(),
		Email:     res.Get("email").String(),
		ExpiresAt: res.Get("expires_at").Int(),
	}, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode >= 300 {
		return body, resp.StatusCode, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}
