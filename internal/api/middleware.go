package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"ferremas-fulfillment/internal/apperrors"
	"ferremas-fulfillment/internal/auth"
	"ferremas-fulfillment/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// identityMiddleware resolves the caller's identity from the Authorization
// header before any state-changing operation is accepted.
func identityMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  string(apperrors.KindAuthentication),
				"error": "authentication required",
			})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// identityFrom returns the identity stored by identityMiddleware.
func identityFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(auth.Identity); ok {
			return identity
		}
	}
	return auth.Identity{}
}

// statusFor maps the error taxonomy onto HTTP statuses. External dependency
// failures get 502/504-family codes so callers can tell a retryable outage
// from a business-rule rejection.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	case apperrors.KindAuthentication:
		return http.StatusUnauthorized
	case apperrors.KindAuthorization:
		return http.StatusForbidden
	case apperrors.KindInvalidTransition, apperrors.KindDuplicatePayment,
		apperrors.KindDuplicateShipment, apperrors.KindAmountMismatch:
		return http.StatusConflict
	case apperrors.KindPaymentRequired:
		return http.StatusPaymentRequired
	case apperrors.KindUnknownLocation, apperrors.KindUnrecognizedStatus:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindGatewayUnavailable, apperrors.KindCourierUnavailable,
		apperrors.KindPriceFeedUnavailable:
		return http.StatusBadGateway
	case apperrors.KindCourierProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a domain error with its stable code. Unclassified
// errors are logged in full and surfaced as a generic internal error so no
// internals leak to the caller.
func writeError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		util.GetLogger().Error("Unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{
			"code":  string(apperrors.KindInternal),
			"error": "internal error",
		})
		return
	}

	c.JSON(status, gin.H{
		"code":  string(kind),
		"error": err.Error(),
	})
}

// writeBindError renders a request-binding failure as a validation error,
// with the same status the domain validation rules get.
func writeBindError(c *gin.Context, err error) {
	c.JSON(statusFor(apperrors.KindValidation), gin.H{
		"code":    string(apperrors.KindValidation),
		"error":   "invalid request body",
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
