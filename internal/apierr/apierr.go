package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindInput Kind = iota + 1
	KindUnsupportedRoute
	KindUpstream
	KindInvariant
	KindEcosystem
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "InputError"
	case KindUnsupportedRoute:
		return "UnsupportedRoute"
	case KindUpstream:
		return "UpstreamVenueError"
	case KindInvariant:
		return "ProtocolInvariantError"
	case KindEcosystem:
		return "EcosystemMismatchError"
	}
	return "UnknownError"
}

const (
	CodeInvalidParam             = "INVALID_PARAM"
	CodeMissingParam             = "MISSING_PARAM"
	CodeInvalidMethod            = "INVALID_METHOD"
	CodeAmountTooLow             = "AMOUNT_TOO_LOW"
	CodeUnsupportedDex           = "UNSUPPORTED_DEX"
	CodeUnsupportedDexOnChain    = "UNSUPPORTED_DEX_ON_CHAIN"
	CodeSwapQuoteUnavailable     = "SWAP_QUOTE_UNAVAILABLE"
	CodeUnsupportedRoute         = "UNSUPPORTED_ROUTE"
	CodeUnsupportedTradeType     = "UNSUPPORTED_TRADE_TYPE"
	CodeUpstreamVenueError       = "UPSTREAM_VENUE_ERROR"
	CodeDomainSeparatorMismatch  = "DOMAIN_SEPARATOR_MISMATCH"
	CodeInvalidEntryPoint        = "INVALID_ENTRY_POINT"
	CodeTradeTypeMismatch        = "TRADE_TYPE_MISMATCH"
	CodeInsufficientBridgeOutput = "INSUFFICIENT_BRIDGE_OUTPUT"
	CodeMultipleDepositEvents    = "MULTIPLE_DEPOSIT_EVENTS"
	CodeEcosystemMismatch        = "ECOSYSTEM_MISMATCH"
	CodeInternal                 = "INTERNAL_ERROR"
)

const maxUpstreamMessage = 200

type Error struct {
	Kind    Kind
	Code    string
	Status  int
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func Input(code, format string, args ...any) *Error {
	return &Error{Kind: KindInput, Code: code, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func InvalidParam(param, format string, args ...any) *Error {
	return Input(CodeInvalidParam, format, args...).WithDetail("param", param)
}

func MissingParam(param string) *Error {
	return Input(CodeMissingParam, "missing required parameter %q", param).WithDetail("param", param)
}

func UnsupportedDex(dex string) *Error {
	return &Error{
		Kind:    KindUnsupportedRoute,
		Code:    CodeUnsupportedDex,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("dex %q is not supported", dex),
		Details: map[string]any{"dex": dex},
	}
}

func UnsupportedDexOnChain(dex string, chainId int64) *Error {
	return &Error{
		Kind:    KindUnsupportedRoute,
		Code:    CodeUnsupportedDexOnChain,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("dex %q is not supported on chain %d", dex, chainId),
		Details: map[string]any{"dex": dex, "chainId": chainId},
	}
}

func UnsupportedRoute(code, format string, args ...any) *Error {
	return &Error{Kind: KindUnsupportedRoute, Code: code, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Invariant(code, format string, args ...any) *Error {
	return &Error{Kind: KindInvariant, Code: code, Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

func EcosystemMismatch(venue string, chainId int64, want string) *Error {
	return &Error{
		Kind:    KindEcosystem,
		Code:    CodeEcosystemMismatch,
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("venue %q cannot serve a %s leg on chain %d", venue, want, chainId),
		Details: map[string]any{"dex": venue, "chainId": chainId},
	}
}

// NoSwapRouteError is returned by a venue that has no route for the pair.
type NoSwapRouteError struct {
	Dex            string
	TokenInSymbol  string
	TokenOutSymbol string
	ChainId        int64
	TradeType      string
}

func (e *NoSwapRouteError) Error() string {
	return fmt.Sprintf("no %s swap route found on %s for %s -> %s on chain %d",
		e.TradeType, e.Dex, e.TokenInSymbol, e.TokenOutSymbol, e.ChainId)
}

// Upstream compacts a failed venue call. A 4xx upstream status surfaces as 400,
// everything else as 502.
func Upstream(venue string, status int, body []byte, cause error) *Error {
	msg := compactBody(body)
	if msg == "" {
		msg = compactCause(cause)
	}

	httpStatus := http.StatusBadGateway
	if status >= 400 && status < 500 {
		httpStatus = http.StatusBadRequest
	}

	e := &Error{
		Kind:    KindUpstream,
		Code:    CodeUpstreamVenueError,
		Status:  httpStatus,
		Message: fmt.Sprintf("%s: %s", venue, msg),
		Details: map[string]any{"venue": venue},
		cause:   cause,
	}
	if status > 0 {
		e.Details["upstreamStatus"] = status
	}
	return e
}

func compactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"detail", "message", "error", "reason", "msg", "errorCode"} {
			if v, ok := fields[key].(string); ok && v != "" {
				return truncate(v)
			}
		}
	}
	return truncate(string(body))
}

func compactCause(cause error) string {
	switch {
	case cause == nil:
		return "request failed"
	case errors.Is(cause, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(cause, context.Canceled):
		return "request canceled"
	}
	return "request failed"
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxUpstreamMessage {
		s = s[:maxUpstreamMessage] + "..."
	}
	return s
}

// HTTPStatus maps any error to the status, code and message exposed to callers.
func HTTPStatus(err error) (int, string, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Code, apiErr.Message
	}

	var routeErr *NoSwapRouteError
	if errors.As(err, &routeErr) {
		return http.StatusBadRequest, CodeSwapQuoteUnavailable, routeErr.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, CodeUpstreamVenueError, "request timed out"
	}
	return http.StatusInternalServerError, CodeInternal, "internal server error"
}

func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	if kind == KindUnsupportedRoute {
		var routeErr *NoSwapRouteError
		return errors.As(err, &routeErr)
	}
	return false
}

func HasCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
