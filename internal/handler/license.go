package handler

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"signal-bridge/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const isoLayout = "2006-01-02T15:04:05Z"

type licenseStatusResponse struct {
	OK           bool    `json:"ok"`
	Valid        bool    `json:"valid"`
	Reason       string  `json:"reason"`
	Email        *string `json:"email"`
	ExpiresAt    *int64  `json:"expires_at"`
	ExpiresAtISO *string `json:"expires_at_iso"`
}

func newLicenseStatus(res domain.VerificationResult) licenseStatusResponse {
	out := licenseStatusResponse{OK: true, Valid: res.Valid, Reason: string(res.Reason)}
	if res.License == nil {
		return out
	}
	email := res.License.Email
	out.Email = &email
	if exp := res.License.ExpiresAt; exp > 0 {
		iso := time.Unix(exp, 0).UTC().Format(isoLayout)
		out.ExpiresAt = &exp
		out.ExpiresAtISO = &iso
	}
	return out
}

// CheckLicense godoc
// @Summary      Heartbeat license check
// @Tags         licenses
// @Produce      json
// @Param        license_key  query  string  true  "License key"
// @Success      200  {object}  licenseStatusResponse
// @Failure      400  {object}  licenseStatusResponse
// @Failure      503  {object}  licenseStatusResponse
// @Router       /api/check_license [get]
func (h *Handler) CheckLicense(c *gin.Context) {
	key := strings.TrimSpace(c.Query("license_key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, licenseStatusResponse{Reason: string(domain.ReasonMissingKey)})
		return
	}
	if h.deps.Licenses == nil {
		c.JSON(http.StatusServiceUnavailable, licenseStatusResponse{Reason: string(domain.ReasonStorageUnavailable)})
		return
	}

	res, err := h.deps.Licenses.Check(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("license check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, licenseStatusResponse{Reason: string(domain.ReasonStorageUnavailable)})
		return
	}
	c.JSON(http.StatusOK, newLicenseStatus(res))
}

// VerifyLicense godoc
// @Summary      Device-binding license verification
// @Tags         licenses
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/verify [post]
func (h *Handler) VerifyLicense(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusOK, denied("bad_json"))
		return
	}
	doc, err := objectBody(body)
	if err != nil {
		h.logger.Warn("verify: unparseable body", zap.ByteString("body", body))
		c.JSON(http.StatusOK, denied("bad_json"))
		return
	}
	key := strings.TrimSpace(doc.Get("license_key").String())
	account := strings.TrimSpace(doc.Get("account").String())
	if key == "" {
		c.JSON(http.StatusOK, denied(string(domain.ReasonMissingKey)))
		return
	}
	if h.deps.Licenses == nil {
		c.JSON(http.StatusServiceUnavailable, denied(string(domain.ReasonStorageUnavailable)))
		return
	}

	res, err := h.deps.Licenses.Verify(c.Request.Context(), key, account)
	if err != nil {
		h.logger.Error("license verify failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, denied(string(domain.ReasonStorageUnavailable)))
		return
	}
	if !res.Valid {
		h.logger.Info("license denied",
			zap.String("reason", string(res.Reason)),
			zap.String("symbol", doc.Get("symbol").String()),
		)
		c.JSON(http.StatusOK, denied(string(res.Reason)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

func denied(reason string) gin.H {
	return gin.H{"status": "DENIED", "reason": reason}
}

// AdminCreateLicense godoc
// @Summary      Create a license
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/admin/create_license [post]
func (h *Handler) AdminCreateLicense(c *gin.Context) {
	doc, ok := h.adminBody(c)
	if !ok {
		return
	}
	email := strings.TrimSpace(doc.Get("email").String())
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_email"})
		return
	}
	days := h.opts.LicenseDays
	if v := doc.Get("days"); v.Exists() && v.Type != gjson.Null {
		n, ok := wholeNumber(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_days"})
			return
		}
		days = n
	}

	lic, err := h.deps.Licenses.Create(c.Request.Context(), email, days)
	if err != nil {
		h.adminError(c, "create license", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"license_key": lic.Key, "email": lic.Email, "days": days})
}

// AdminDeactivate godoc
// @Summary      Deactivate a license
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/admin/deactivate [post]
func (h *Handler) AdminDeactivate(c *gin.Context) {
	doc, ok := h.adminBody(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(doc.Get("license_key").String())
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_license_key"})
		return
	}
	if err := h.deps.Licenses.SetStatus(c.Request.Context(), key, domain.LicenseInactive); err != nil {
		h.adminError(c, "deactivate license", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK"})
}

// AdminSetExpiry godoc
// @Summary      Move a license expiry to now plus days
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/admin/set_expiry [post]
func (h *Handler) AdminSetExpiry(c *gin.Context) {
	doc, ok := h.adminBody(c)
	if !ok {
		return
	}
	key := strings.TrimSpace(doc.Get("license_key").String())
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_license_key"})
		return
	}
	v := doc.Get("days")
	if !v.Exists() || v.Type == gjson.Null {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_days"})
		return
	}
	days, ok := wholeNumber(v)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_days"})
		return
	}

	expiresAt, err := h.deps.Licenses.SetExpiryDays(c.Request.Context(), key, days, doc.Get("reactivate").Bool())
	if err != nil {
		h.adminError(c, "set license expiry", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "expires_at": expiresAt})
}

func (h *Handler) adminBody(c *gin.Context) (gjson.Result, bool) {
	if h.deps.Licenses == nil {
		unavailable(c, "license_service")
		return gjson.Result{}, false
	}
	body, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_json"})
		return gjson.Result{}, false
	}
	doc, err := objectBody(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_json"})
		return gjson.Result{}, false
	}
	return doc, true
}

func (h *Handler) adminError(c *gin.Context, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrLicenseNotFound):
		c.JSON(http.StatusOK, gin.H{"error": "unknown_license"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_" + verr.Field})
	default:
		h.logger.Error(op, zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": string(domain.ReasonStorageUnavailable)})
	}
}

// wholeNumber accepts integers given as numbers or numeric strings.
func wholeNumber(v gjson.Result) (int, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		r := gjson.Parse(strings.TrimSpace(v.Str))
		if r.Type != gjson.Number {
			return 0, false
		}
		f = r.Num
	default:
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > 1e6 {
		return 0, false
	}
	return int(f), true
}
