package server

import (
	"errors"
	"net/http"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/logger"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

// ErrorHandler renders every failure as JSON. Internal errors are masked
// unless devMode is set.
func ErrorHandler(devMode bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := http.StatusText(he.Code)
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			}
			_ = c.JSON(he.Code, ErrorResponse{Error: msg, Code: httpCode(he.Code)})
			return
		}

		status, code, msg := apierr.HTTPStatus(err)
		resp := ErrorResponse{Error: msg, Code: code}
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			resp.Details = apiErr.Details
		}
		if status >= http.StatusInternalServerError {
			logger.Errorf("[Server] 请求处理失败, path: %s, %v", c.Request().URL.Path, err)
			if devMode {
				resp.Detail = err.Error()
			}
		} else {
			logger.Debugf("[Server] 请求被拒绝, path: %s, code: %s, %v", c.Request().URL.Path, code, err)
		}
		_ = c.JSON(status, resp)
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return apierr.CodeInvalidParam
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return apierr.CodeInvalidMethod
	}
	return apierr.CodeInternal
}
