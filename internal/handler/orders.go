package handler

import (
	"errors"
	"net/http"

	"signal-bridge/internal/domain"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NextOrder godoc
// @Summary      Terminal poll
// @Description  Returns the pending order without consuming it, or EMPTY
// @Tags         orders
// @Produce      json
// @Success      200  {object}  domain.Order
// @Router       /next_order [get]
func (h *Handler) NextOrder(c *gin.Context) {
	if h.deps.Orders == nil {
		c.String(http.StatusOK, "EMPTY")
		return
	}
	order, ok := h.deps.Orders.NextOrder(c.Request.Context())
	if !ok {
		c.String(http.StatusOK, "EMPTY")
		return
	}
	c.JSON(http.StatusOK, order)
}

// OrderResult godoc
// @Summary      Terminal result report
// @Description  Always acknowledged so the terminal never retries
// @Tags         orders
// @Accept       json
// @Produce      plain
// @Success      200  {string}  string  "ACK"
// @Router       /order_result [post]
func (h *Handler) OrderResult(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.order-result")
	defer span.End()

	body, err := readBody(c)
	if err != nil {
		h.logger.Error("read order result body", zap.Error(err))
		c.String(http.StatusOK, "ACK")
		return
	}
	result, err := domain.DecodeOrderResult(body)
	if err != nil {
		h.logger.Warn("malformed order result acknowledged", zap.ByteString("body", body), zap.Error(err))
		c.String(http.StatusOK, "ACK")
		return
	}
	if h.deps.Orders != nil {
		h.deps.Orders.HandleResult(ctx, result)
	}
	c.String(http.StatusOK, "ACK")
}

// PushOrder godoc
// @Summary      Manual order push
// @Tags         orders
// @Accept       json
// @Produce      plain
// @Success      200  {string}  string  "QUEUED"
// @Failure      400  {string}  string  "BAD_DIRECTION or BAD_JSON"
// @Router       /push_order [post]
func (h *Handler) PushOrder(c *gin.Context) {
	if h.deps.Orders == nil {
		unavailable(c, "order_service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.push-order")
	defer span.End()

	body, err := readBody(c)
	if err != nil {
		c.String(http.StatusBadRequest, "BAD_JSON")
		return
	}
	order, err := decodePushOrder(body)
	if err != nil {
		h.logger.Warn("push_order rejected", zap.Error(err))
		c.String(http.StatusBadRequest, "BAD_JSON")
		return
	}

	if _, err := h.deps.Orders.QueueOrder(ctx, order); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) && verr.Field == "direction" {
			c.String(http.StatusBadRequest, "BAD_DIRECTION")
			return
		}
		h.logger.Error("queue order", zap.Error(err))
		c.String(http.StatusBadRequest, "BAD_JSON")
		return
	}
	c.String(http.StatusOK, "QUEUED")
}

func decodePushOrder(body []byte) (domain.Order, error) {
	doc, err := objectBody(body)
	if err != nil {
		return domain.Order{}, err
	}

	var order domain.Order
	direction, err := optionalString(doc, "direction", "")
	if err != nil {
		return order, err
	}
	order.Direction = domain.Side(direction)
	if order.Symbol, err = optionalString(doc, "symbol", ""); err != nil {
		return order, err
	}
	for field, dst := range map[string]*float64{"lot": &order.Lot, "sl": &order.SL, "tp": &order.TP} {
		v, err := numberField(doc, field)
		if err != nil {
			return order, err
		}
		if v != nil {
			*dst = *v
		}
	}
	return order, nil
}
