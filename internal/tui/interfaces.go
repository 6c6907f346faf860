package tui

import (
	"context"

	"signal-bridge/internal/domain"
)

// Health is the bridge liveness payload.
type Health struct {
	OK      bool
	Service string
}

// LicenseStatus mirrors the check_license response.
type LicenseStatus struct {
	Valid     bool
	Reason    string
	Email     string
	ExpiresAt int64
}

// BridgeQuerier reads the bridge's liveness and terminal mailbox.
type BridgeQuerier interface {
	Health(ctx context.Context) (Health, error)
	PendingOrder(ctx context.Context) (domain.Order, bool, error)
}

// LicenseQuerier looks up a single license.
type LicenseQuerier interface {
	CheckLicense(ctx context.Context, key string) (LicenseStatus, error)
}

// Services bundles the dependencies injected into the TUI.
type Services struct {
	Bridge   BridgeQuerier
	Licenses LicenseQuerier
	Endpoint string
}
