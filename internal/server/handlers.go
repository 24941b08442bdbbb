package server

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/swapapi"

	"github.com/labstack/echo/v4"
)

// Quoter answers a swap request for one submission flow.
type Quoter interface {
	Handle(ctx context.Context, flow swapapi.Flow, p swapapi.Params) (*swapapi.Response, error)
}

type Handlers struct {
	quoter  Quoter
	timeout time.Duration
}

func NewHandlers(quoter Quoter, timeout time.Duration) *Handlers {
	return &Handlers{quoter: quoter, timeout: timeout}
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

func (h *Handlers) Swap(c echo.Context) error {
	var p swapapi.Params
	binder := &echo.DefaultBinder{}
	if err := binder.BindQueryParams(c, &p); err != nil {
		return apierr.Input(apierr.CodeInvalidParam, "malformed query string")
	}
	if c.Request().Method == http.MethodPost {
		if err := binder.BindBody(c, &p); err != nil {
			return apierr.Input(apierr.CodeInvalidParam, "malformed request body")
		}
	}

	ctx := c.Request().Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	flow := swapapi.Flow(path.Base(c.Path()))
	resp, err := h.quoter.Handle(ctx, flow, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
