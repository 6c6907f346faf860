package mcp

import (
	"context"
	"fmt"

	"signal-bridge/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, licenses LicenseInspector, orders OrderDesk) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "license_check",
		Description: "Report whether a license key is currently valid and why",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in licenseCheckInput) (*mcp.CallToolResult, licenseCheckOutput, error) {
		if licenses == nil {
			return nil, licenseCheckOutput{}, fmt.Errorf("license storage unavailable")
		}
		key, err := normalizeKey(in.Key)
		if err != nil {
			return nil, licenseCheckOutput{}, err
		}
		res, err := licenses.Check(ctx, key)
		if err != nil {
			return nil, licenseCheckOutput{}, err
		}
		return nil, newLicenseCheckOutput(res), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "license_deactivate",
		Description: "Mark a license inactive",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in licenseDeactivateInput) (*mcp.CallToolResult, licenseDeactivateOutput, error) {
		if licenses == nil {
			return nil, licenseDeactivateOutput{}, fmt.Errorf("license storage unavailable")
		}
		key, err := normalizeKey(in.Key)
		if err != nil {
			return nil, licenseDeactivateOutput{}, err
		}
		if err := licenses.SetStatus(ctx, key, domain.LicenseInactive); err != nil {
			return nil, licenseDeactivateOutput{}, err
		}
		return nil, licenseDeactivateOutput{Key: key, Status: string(domain.LicenseInactive)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "order_pending",
		Description: "Show the order waiting for the terminal, if any",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ orderPendingInput) (*mcp.CallToolResult, orderPendingOutput, error) {
		if orders == nil {
			return nil, orderPendingOutput{}, fmt.Errorf("order desk unavailable")
		}
		return nil, pendingOutput(ctx, orders), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "order_queue",
		Description: "Queue a manual order for the terminal, replacing any pending one",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in orderQueueInput) (*mcp.CallToolResult, orderQueueOutput, error) {
		if orders == nil {
			return nil, orderQueueOutput{}, fmt.Errorf("order desk unavailable")
		}
		order, err := in.order()
		if err != nil {
			return nil, orderQueueOutput{}, err
		}
		stored, err := orders.QueueOrder(ctx, order)
		if err != nil {
			return nil, orderQueueOutput{}, err
		}
		return nil, orderQueueOutput{Order: stored}, nil
	})
}

func pendingOutput(ctx context.Context, orders OrderDesk) orderPendingOutput {
	order, ok := orders.NextOrder(ctx)
	if !ok {
		return orderPendingOutput{}
	}
	return orderPendingOutput{Pending: true, Order: &order}
}
