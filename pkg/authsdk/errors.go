package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes the service returns in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeEmailInUse              = "email_in_use"
	ErrorCodeInvalidCredentials      = "invalid_credentials"
	ErrorCodeMissingRefreshToken     = "missing_refresh_token"
	ErrorCodeInvalidRefreshToken     = "invalid_refresh_token"
	ErrorCodeSessionExpired          = "session_expired"
	ErrorCodeInvalidAccessToken      = "invalid_access_token"
	ErrorCodeInvalidVerificationCode = "invalid_verification_code"
	ErrorCodeUserNotFound            = "user_not_found"
	ErrorCodeSessionNotFound         = "session_not_found"
	ErrorCodeRateLimited             = "rate_limit_exceeded"
	ErrorCodeInternal                = "internal_error"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsCode reports whether err is an *APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies
// that are not an ErrorResponse fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeInternal,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
