package mcp

import (
	"context"

	"signal-bridge/internal/domain"
)

// LicenseInspector exposes license lookups and the admin status switch.
type LicenseInspector interface {
	Check(ctx context.Context, key string) (domain.VerificationResult, error)
	SetStatus(ctx context.Context, key string, status domain.LicenseStatus) error
}

// OrderDesk exposes the terminal mailbox.
type OrderDesk interface {
	NextOrder(ctx context.Context) (domain.Order, bool)
	QueueOrder(ctx context.Context, order domain.Order) (domain.Order, error)
}
