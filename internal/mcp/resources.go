package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, licenses LicenseInspector, orders OrderDesk) {
	server.AddResource(&mcp.Resource{
		URI:         "bridge://pending-order",
		Name:        "pending-order",
		Description: "The order currently waiting for the terminal",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if orders == nil {
			return nil, fmt.Errorf("order desk unavailable")
		}
		return jsonResource(req.Params.URI, pendingOutput(ctx, orders))
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "license://{key}",
		Name:        "license-status",
		Description: "Validity and binding state of one license key",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if licenses == nil {
			return nil, fmt.Errorf("license storage unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "license" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		key, err := normalizeKey(parsed.Host + strings.TrimSuffix(parsed.Path, "/"))
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		res, err := licenses.Check(ctx, key)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, newLicenseCheckOutput(res))
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
