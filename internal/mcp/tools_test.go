package mcp

import (
	"context"
	"testing"
	"time"

	"signal-bridge/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestToolsListAndInvoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, licenses, orders := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	tools, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("list tools failed: %v", err)
	}
	if len(tools.Tools) != 4 {
		t.Fatalf("expected 4 tools, got %d", len(tools.Tools))
	}

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "license_check", Arguments: map[string]any{"license_key": " KEY-OK "}})
	if err != nil {
		t.Fatalf("call tool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	var check licenseCheckOutput
	if err := decodeStructured(res, &check); err != nil {
		t.Fatalf("decode check: %v", err)
	}
	if !check.Valid || check.Reason != "ok" || check.Device != "1001" {
		t.Fatalf("unexpected check output: %+v", check)
	}

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "license_deactivate", Arguments: map[string]any{"license_key": "KEY-OK"}})
	if err != nil || res.IsError {
		t.Fatalf("deactivate failed: %v %+v", err, res)
	}
	if licenses.lastKey != "KEY-OK" || licenses.lastStatus != domain.LicenseInactive {
		t.Fatalf("expected KEY-OK deactivated, got %s %s", licenses.lastKey, licenses.lastStatus)
	}

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "order_queue", Arguments: map[string]any{"direction": "sell", "sl": 2010.5}})
	if err != nil || res.IsError {
		t.Fatalf("queue failed: %v %+v", err, res)
	}
	if len(orders.queued) != 1 || orders.queued[0].Direction != domain.SideSell || orders.queued[0].SL != 2010.5 {
		t.Fatalf("unexpected queued orders: %+v", orders.queued)
	}

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "order_pending", Arguments: map[string]any{}})
	if err != nil || res.IsError {
		t.Fatalf("pending failed: %v %+v", err, res)
	}
	var pending orderPendingOutput
	if err := decodeStructured(res, &pending); err != nil {
		t.Fatalf("decode pending: %v", err)
	}
	if !pending.Pending || pending.Order == nil || pending.Order.ID != "1700000000000" {
		t.Fatalf("unexpected pending output: %+v", pending)
	}
}

func TestToolsValidationFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, licenses, orders := testServer()
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	calls := []*sdkmcp.CallToolParams{
		{Name: "order_queue", Arguments: map[string]any{"direction": "HOLD"}},
		{Name: "order_queue", Arguments: map[string]any{"direction": "BUY", "lot": -1}},
		{Name: "license_check", Arguments: map[string]any{"license_key": "  "}},
		{Name: "license_deactivate", Arguments: map[string]any{"license_key": "missing"}},
	}
	for _, params := range calls {
		res, err := session.CallTool(ctx, params)
		if err != nil {
			t.Fatalf("%s: unexpected protocol error: %v", params.Name, err)
		}
		if !res.IsError {
			t.Fatalf("%s %v: expected tool-level error", params.Name, params.Arguments)
		}
	}
	if len(orders.queued) != 0 {
		t.Fatalf("expected nothing queued, got %+v", orders.queued)
	}
	if licenses.lastKey != "" {
		t.Fatalf("expected no status change, got %s", licenses.lastKey)
	}
}

func TestToolsReportMissingDependencies(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv := NewServer(nil, nil, nil, ServerConfig{})
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	for _, name := range []string{"license_check", "order_pending"} {
		res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: map[string]any{"license_key": "KEY-OK"}})
		if err != nil {
			t.Fatalf("%s: unexpected protocol error: %v", name, err)
		}
		if !res.IsError {
			t.Fatalf("%s: expected unavailable error", name)
		}
	}
}

func TestLicenseCheckStorageFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	srv, licenses, _ := testServer()
	licenses.checkErr = errStorageDown
	session, shutdown, err := connectInMemory(ctx, srv)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer shutdown()
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "license_check", Arguments: map[string]any{"license_key": "KEY-OK"}})
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected storage failure as a tool error")
	}
}
