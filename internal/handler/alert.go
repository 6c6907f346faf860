package handler

import (
	"bytes"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"signal-bridge/internal/domain"
	"signal-bridge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// TVWebhook godoc
// @Summary      Charting alert ingress
// @Description  Evaluates an alert and forwards accepted entries to the terminal
// @Tags         signals
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Secret  header  string  true  "Shared webhook secret"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /tv-webhook [post]
func (h *Handler) TVWebhook(c *gin.Context) {
	if h.deps.Alerts == nil {
		unavailable(c, "signal_service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.tv-webhook")
	defer span.End()

	body, err := readBody(c)
	if err != nil {
		h.logger.Error("read alert body", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "server_error"})
		return
	}

	sig, opts, err := decodeAlert(body, h.opts.Alerts)
	if err != nil {
		resp := gin.H{"ok": false, "error": "bad_payload"}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			resp["field"] = verr.Field
			resp["kind"] = verr.Kind
			span.SetAttributes(attribute.String("alert.invalid_field", verr.Field))
		}
		h.logger.Warn("alert payload rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	out := h.deps.Alerts.HandleAlert(ctx, sig, opts)
	resp := gin.H{"ok": true, "status": out.Status}
	if out.Reason != "" {
		resp["reason"] = out.Reason
	}
	if out.Order != nil {
		resp["order"] = out.Order
	}
	c.JSON(http.StatusOK, resp)
}

// decodeAlert validates an alert document field by field. Numbers may arrive
// quoted since alert templates are filled in as text.
func decodeAlert(body []byte, d AlertDefaults) (domain.Signal, service.AlertOrder, error) {
	doc, err := objectBody(body)
	if err != nil {
		return domain.Signal{}, service.AlertOrder{}, err
	}

	var sig domain.Signal
	if sig.Symbol, err = optionalString(doc, "symbol", d.Symbol); err != nil {
		return sig, service.AlertOrder{}, err
	}
	if sig.Pattern, err = requiredString(doc, "pattern"); err != nil {
		return sig, service.AlertOrder{}, err
	}

	side, err := requiredString(doc, "side")
	if err != nil {
		return sig, service.AlertOrder{}, err
	}
	sig.Side = domain.Side(strings.ToUpper(side))
	if !sig.Side.IsValid() {
		return sig, service.AlertOrder{}, &domain.ValidationError{Field: "side", Kind: domain.OutOfRange}
	}

	price, err := numberField(doc, "price")
	if err != nil {
		return sig, service.AlertOrder{}, err
	}
	if price == nil {
		return sig, service.AlertOrder{}, &domain.ValidationError{Field: "price", Kind: domain.MissingField}
	}
	if *price <= 0 {
		return sig, service.AlertOrder{}, &domain.ValidationError{Field: "price", Kind: domain.OutOfRange}
	}
	sig.Price = *price

	if sig.PRZLow, err = numberField(doc, "prz_low"); err != nil {
		return sig, service.AlertOrder{}, err
	}
	if sig.PRZHigh, err = numberField(doc, "prz_high"); err != nil {
		return sig, service.AlertOrder{}, err
	}
	if sig.RSI, err = numberField(doc, "rsi"); err != nil {
		return sig, service.AlertOrder{}, err
	}
	if sig.RSI != nil && (*sig.RSI < 0 || *sig.RSI > 100) {
		return sig, service.AlertOrder{}, &domain.ValidationError{Field: "rsi", Kind: domain.OutOfRange}
	}

	trend, err := optionalString(doc, "supertrend", "")
	if err != nil {
		return sig, service.AlertOrder{}, err
	}
	sig.Trend = domain.Trend(strings.ToLower(trend))
	if !sig.Trend.IsValid() {
		return sig, service.AlertOrder{}, &domain.ValidationError{Field: "supertrend", Kind: domain.OutOfRange}
	}

	if sig.RiskReward, err = optionalString(doc, "risk_reward", domain.DefaultRiskReward); err != nil {
		return sig, service.AlertOrder{}, err
	}

	opts := service.AlertOrder{Lot: d.Lot, Magic: d.Magic, Comment: d.Comment}
	lot, err := numberField(doc, "lot")
	if err != nil {
		return sig, opts, err
	}
	if lot != nil {
		if *lot <= 0 {
			return sig, opts, &domain.ValidationError{Field: "lot", Kind: domain.OutOfRange}
		}
		opts.Lot = *lot
	}
	magic, err := numberField(doc, "magic")
	if err != nil {
		return sig, opts, err
	}
	if magic != nil {
		if *magic != math.Trunc(*magic) {
			return sig, opts, &domain.ValidationError{Field: "magic", Kind: domain.TypeMismatch}
		}
		if math.Abs(*magic) > math.MaxInt32 {
			return sig, opts, &domain.ValidationError{Field: "magic", Kind: domain.OutOfRange}
		}
		opts.Magic = int(*magic)
	}
	if opts.Comment, err = optionalString(doc, "comment", d.Comment); err != nil {
		return sig, opts, err
	}
	return sig, opts, nil
}

func requiredString(doc gjson.Result, field string) (string, error) {
	v, err := optionalString(doc, field, "")
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", &domain.ValidationError{Field: field, Kind: domain.MissingField}
	}
	return v, nil
}

// optionalString returns def for absent, null or blank values.
func optionalString(doc gjson.Result, field, def string) (string, error) {
	v := doc.Get(field)
	switch v.Type {
	case gjson.Null:
		return def, nil
	case gjson.String:
		if s := strings.TrimSpace(v.Str); s != "" {
			return s, nil
		}
		return def, nil
	}
	return "", &domain.ValidationError{Field: field, Kind: domain.TypeMismatch}
}

// numberField returns nil for absent, null or blank values.
func numberField(doc gjson.Result, field string) (*float64, error) {
	v := doc.Get(field)
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		n := v.Num
		return &n, nil
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, &domain.ValidationError{Field: field, Kind: domain.TypeMismatch}
		}
		return &n, nil
	}
	return nil, &domain.ValidationError{Field: field, Kind: domain.TypeMismatch}
}

// objectBody parses a JSON object body, tolerating the NUL padding some
// terminals append.
func objectBody(body []byte) (gjson.Result, error) {
	body = bytes.TrimSpace(bytes.Trim(body, "\x00"))
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &domain.ValidationError{Field: "body", Kind: domain.TypeMismatch}
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return gjson.Result{}, &domain.ValidationError{Field: "body", Kind: domain.TypeMismatch}
	}
	return doc, nil
}

func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
}
