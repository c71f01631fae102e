package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/balbonits/drm-broker/core"
	"github.com/balbonits/drm-broker/service"
	"github.com/gin-gonic/gin"
)

// maxLicenseRequestBytes bounds the raw provider challenge body.
const maxLicenseRequestBytes = 1 << 20

// DRMHandlers contains HTTP handlers for the token and license endpoints.
type DRMHandlers struct {
	issuer    *service.Issuer
	validator *service.Validator
	broker    *service.Broker
}

// NewDRMHandlers creates new DRM handlers.
func NewDRMHandlers(issuer *service.Issuer, validator *service.Validator, broker *service.Broker) *DRMHandlers {
	return &DRMHandlers{
		issuer:    issuer,
		validator: validator,
		broker:    broker,
	}
}

type restrictionsRequest struct {
	MaxStreams             int      `json:"max_streams"`
	GeoRegions             []string `json:"geo_regions"`
	DeviceTypes            []string `json:"device_types"`
	HDCPRequired           bool     `json:"hdcp_required"`
	OfflinePlaybackAllowed bool     `json:"offline_playback_allowed"`
}

// GenerateToken handles the token issuance request.
func (h *DRMHandlers) GenerateToken(c *gin.Context) {
	var req struct {
		Subject         string               `json:"subject" binding:"required"`
		ContentID       string               `json:"content_id" binding:"required"`
		DeviceID        string               `json:"device_id"`
		DurationSeconds int64                `json:"duration_seconds"`
		Restrictions    *restrictionsRequest `json:"restrictions"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var restrictions core.TokenRestrictions
	if req.Restrictions != nil {
		restrictions = core.TokenRestrictions{
			MaxStreams:             req.Restrictions.MaxStreams,
			GeoRegions:             req.Restrictions.GeoRegions,
			DeviceTypes:            req.Restrictions.DeviceTypes,
			HDCPRequired:           req.Restrictions.HDCPRequired,
			OfflinePlaybackAllowed: req.Restrictions.OfflinePlaybackAllowed,
		}
	}

	duration := time.Duration(req.DurationSeconds) * time.Second

	issued, err := h.issuer.Issue(c.Request.Context(), req.Subject, req.ContentID, restrictions, req.DeviceID, duration)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidDuration):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Duration must be positive"})
		case errors.Is(err, core.ErrSigningKeyUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":            issued.Token,
		"expires_at":       issued.ExpiresAt.UTC().Format(time.RFC3339),
		"license_endpoint": issued.LicenseEndpoint,
	})
}

// ValidateToken handles the token validation request.
func (h *DRMHandlers) ValidateToken(c *gin.Context) {
	var req struct {
		Token     string `json:"token" binding:"required"`
		ContentID string `json:"content_id" binding:"required"`
		DeviceID  string `json:"device_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	decision, err := h.validator.Validate(c.Request.Context(), req.Token, req.ContentID, req.DeviceID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Validation unavailable"})
		return
	}

	if !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"valid":  false,
			"reason": string(decision.Reason),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// RevokeToken handles the token revocation request.
func (h *DRMHandlers) RevokeToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.validator.Revoke(c.Request.Context(), req.Token); err != nil {
		if errors.Is(err, core.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Revoked"})
}

// ReleaseStream handles the stream-end notification that frees a
// concurrency slot.
func (h *DRMHandlers) ReleaseStream(c *gin.Context) {
	var req struct {
		Subject string `json:"subject" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.validator.Release(c.Request.Context(), req.Subject); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to release stream"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Released"})
}

// IssueLicense handles the provider license request. The token travels
// out of band in the Authorization header or the X-DRM-Token header; the
// body is the provider's raw binary challenge.
func (h *DRMHandlers) IssueLicense(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	contentID := c.Query("content_id")
	if contentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing content_id"})
		return
	}

	rawRequest, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLicenseRequestBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.broker.IssueLicense(c.Request.Context(), token, contentID, c.Param("provider"), rawRequest)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnsupportedProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported provider"})
		case errors.Is(err, core.ErrKeyUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content key unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue license"})
		}
		return
	}

	if !result.Decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"error":  "License denied",
			"reason": string(result.Decision.Reason),
		})
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", result.License)
}

// bearerToken extracts the access token from the Authorization or
// X-DRM-Token headers.
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	return c.GetHeader("X-DRM-Token")
}
