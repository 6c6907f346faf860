package mcp

import (
	"fmt"
	"strings"

	"signal-bridge/internal/domain"
)

type licenseCheckInput struct {
	Key string `json:"license_key" jsonschema:"license key to inspect"`
}

type licenseCheckOutput struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason"`
	Email     string `json:"email,omitempty"`
	Status    string `json:"status,omitempty"`
	Device    string `json:"bound_device,omitempty"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

type licenseDeactivateInput struct {
	Key string `json:"license_key" jsonschema:"license key to deactivate"`
}

type licenseDeactivateOutput struct {
	Key    string `json:"license_key"`
	Status string `json:"status"`
}

type orderPendingInput struct{}

type orderPendingOutput struct {
	Pending bool          `json:"pending"`
	Order   *domain.Order `json:"order,omitempty"`
}

type orderQueueInput struct {
	Direction string  `json:"direction" jsonschema:"BUY or SELL"`
	Symbol    string  `json:"symbol,omitempty" jsonschema:"instrument, defaults to the configured symbol"`
	Lot       float64 `json:"lot,omitempty" jsonschema:"position size, defaults to the configured lot"`
	SL        float64 `json:"sl,omitempty" jsonschema:"stop loss price, 0 for none"`
	TP        float64 `json:"tp,omitempty" jsonschema:"take profit price, 0 for none"`
}

type orderQueueOutput struct {
	Order domain.Order `json:"order"`
}

func normalizeKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", fmt.Errorf("license_key is required")
	}
	return key, nil
}

func newLicenseCheckOutput(res domain.VerificationResult) licenseCheckOutput {
	out := licenseCheckOutput{Valid: res.Valid, Reason: string(res.Reason)}
	if l := res.License; l != nil {
		out.Email = l.Email
		out.Status = string(l.Status)
		out.Device = l.BoundDevice
		out.ExpiresAt = l.ExpiresAt
	}
	return out
}

func (in orderQueueInput) order() (domain.Order, error) {
	side := domain.Side(strings.ToUpper(strings.TrimSpace(in.Direction)))
	if !side.IsValid() {
		return domain.Order{}, fmt.Errorf("invalid direction: %q", in.Direction)
	}
	if in.Lot < 0 || in.SL < 0 || in.TP < 0 {
		return domain.Order{}, fmt.Errorf("lot, sl and tp must not be negative")
	}
	return domain.Order{
		Direction: side,
		Symbol:    strings.TrimSpace(in.Symbol),
		Lot:       in.Lot,
		SL:        in.SL,
		TP:        in.TP,
	}, nil
}
