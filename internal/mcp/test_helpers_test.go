package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"signal-bridge/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubLicenses struct {
	byKey      map[string]domain.License
	checkErr   error
	lastStatus domain.LicenseStatus
	lastKey    string
}

func (s *stubLicenses) Check(ctx context.Context, key string) (domain.VerificationResult, error) {
	if s.checkErr != nil {
		return domain.VerificationResult{}, s.checkErr
	}
	l, ok := s.byKey[key]
	if !ok {
		return domain.VerificationResult{Reason: domain.ReasonNotFound}, nil
	}
	if l.Status != domain.LicenseActive {
		return domain.VerificationResult{Reason: domain.ReasonInactive, License: &l}, nil
	}
	return domain.VerificationResult{Valid: true, Reason: domain.ReasonOK, License: &l}, nil
}

func (s *stubLicenses) SetStatus(ctx context.Context, key string, status domain.LicenseStatus) error {
	if _, ok := s.byKey[key]; !ok {
		return domain.ErrLicenseNotFound
	}
	s.lastKey = key
	s.lastStatus = status
	return nil
}

type stubOrders struct {
	pending *domain.Order
	queued  []domain.Order
}

func (s *stubOrders) NextOrder(ctx context.Context) (domain.Order, bool) {
	if s.pending == nil {
		return domain.Order{}, false
	}
	return *s.pending, true
}

func (s *stubOrders) QueueOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.Symbol == "" {
		order.Symbol = "XAUUSD"
	}
	if order.Lot == 0 {
		order.Lot = 0.01
	}
	order.ID = "1700000000000"
	s.queued = append(s.queued, order)
	s.pending = &order
	return order, nil
}

var errStorageDown = errors.New("storage down")

func testServer() (*sdkmcp.Server, *stubLicenses, *stubOrders) {
	licenses := &stubLicenses{byKey: map[string]domain.License{
		"KEY-OK": {Key: "KEY-OK", Email: "a@example.com", Status: domain.LicenseActive, BoundDevice: "1001", ExpiresAt: 1_800_000_000},
		"KEY-NO": {Key: "KEY-NO", Email: "b@example.com", Status: domain.LicenseInactive},
	}}
	orders := &stubOrders{}

	srv := NewServer(nil, licenses, orders, ServerConfig{RequestTimeout: time.Second})
	return srv, licenses, orders
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "console-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type authRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}

func decodeStructured(result *sdkmcp.CallToolResult, out any) error {
	body, err := json.Marshal(result.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
