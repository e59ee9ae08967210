package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/streamgate/internal/authorization"
	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	catalogdomain "github.com/smallbiznis/streamgate/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/streamgate/internal/checkout/domain"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
	watchlistdomain "github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"github.com/smallbiznis/streamgate/pkg/db/pagination"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type       string            `json:"type"`
	Message    string            `json:"message"`
	NavigateTo string            `json:"navigate_to,omitempty"`
	Errors     []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrTooManyRequests    = errors.New("too_many_requests")
)

// ProviderError carries a billing provider message to the client unchanged.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway, errorPayload{
			Type:    "billing_provider_error",
			Message: providerErr.Message,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrUnauthenticated),
		errors.Is(err, identitydomain.ErrInvalidToken),
		errors.Is(err, identitydomain.ErrInvalidSession),
		errors.Is(err, identitydomain.ErrSessionExpired):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, billingdomain.ErrPlanUnavailable):
		return http.StatusConflict, errorPayload{
			Type:    "plan_unavailable",
			Message: "plan has no active price",
		}
	case errors.Is(err, checkoutdomain.ErrNoBillingCustomer):
		return http.StatusConflict, errorPayload{
			Type:    "no_billing_customer",
			Message: "no billing account for this principal",
		}
	case errors.Is(err, ErrTooManyRequests),
		errors.Is(err, checkoutdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, checkoutdomain.ErrAwaitTimeout),
		errors.Is(err, checkoutdomain.ErrSessionExpired):
		return http.StatusGatewayTimeout, errorPayload{
			Type:    "checkout_timeout",
			Message: "billing provider did not respond in time",
		}
	case errors.Is(err, catalogdomain.ErrUpstreamFailed),
		errors.Is(err, catalogdomain.ErrUpstreamThrottle):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "catalog temporarily unavailable",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, catalogdomain.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billingdomain.ErrInvalidSignature),
		errors.Is(err, billingdomain.ErrInvalidPayload),
		errors.Is(err, billingdomain.ErrInvalidEvent),
		errors.Is(err, billingdomain.ErrProviderNotFound),
		errors.Is(err, catalogdomain.ErrUnknownCategory),
		errors.Is(err, catalogdomain.ErrInvalidTitle),
		errors.Is(err, watchlistdomain.ErrInvalidTitle),
		errors.Is(err, watchlistdomain.ErrInvalidPrincipal),
		errors.Is(err, checkoutdomain.ErrInvalidPrincipal),
		errors.Is(err, pagination.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billingdomain.ErrPlanNotFound),
		errors.Is(err, catalogdomain.ErrTitleNotFound),
		errors.Is(err, checkoutdomain.ErrSessionNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, billingdomain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, billingdomain.ErrInvalidPayload),
		errors.Is(err, billingdomain.ErrInvalidEvent):
		return "invalid_payload"
	case errors.Is(err, billingdomain.ErrProviderNotFound):
		return "unknown_provider"
	case errors.Is(err, catalogdomain.ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, catalogdomain.ErrInvalidTitle),
		errors.Is(err, watchlistdomain.ErrInvalidTitle):
		return "invalid_title"
	case errors.Is(err, watchlistdomain.ErrInvalidPrincipal),
		errors.Is(err, checkoutdomain.ErrInvalidPrincipal):
		return "invalid_principal"
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return "invalid_page_token"
	default:
		return "invalid_request"
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_signature":
		return "Stripe-Signature"
	case "invalid_payload":
		return "body"
	case "unknown_provider":
		return "provider"
	case "unknown_category":
		return "category"
	case "invalid_title":
		return "title_id"
	case "invalid_principal":
		return "principal_id"
	case "invalid_page_token":
		return "page_token"
	default:
		return "request"
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_signature":
		return "signature verification failed"
	case "invalid_payload":
		return "payload is not a valid event"
	case "unknown_provider":
		return "unknown billing provider"
	case "unknown_category":
		return "unknown catalog category"
	case "invalid_title":
		return "title id is required"
	case "invalid_principal":
		return "principal id is required"
	case "invalid_page_token":
		return "page token is invalid"
	default:
		return "invalid request"
	}
}

// classifyErrorForLog maps an error to the log's error_type and error_code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server", payload.Type
	default:
		return "client", payload.Type
	}
}
