package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/authd/internal/auth/service"
	"github.com/aussiebroadwan/authd/pkg/authsdk"
	"github.com/aussiebroadwan/authd/pkg/httpx"
	"github.com/aussiebroadwan/authd/pkg/slogx"
)

var kindStatus = map[service.Kind]int{
	service.KindConflict:        http.StatusConflict,
	service.KindUnauthorized:    http.StatusUnauthorized,
	service.KindNotFound:        http.StatusNotFound,
	service.KindTooManyRequests: http.StatusTooManyRequests,
	service.KindInvalidInput:    http.StatusBadRequest,
}

// writeError renders err as an ErrorResponse. Unexpected errors are logged
// and answered with a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, invalid.Error())
		return
	}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		if status, ok := kindStatus[svcErr.Kind]; ok {
			httpx.WriteError(w, status, svcErr.Code, svcErr.Message)
			return
		}
	}

	ctx := r.Context()
	slogx.FromContext(ctx).ErrorContext(ctx, "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	httpx.WriteError(w, http.StatusInternalServerError, authsdk.ErrorCodeInternal, "Internal server error")
}
