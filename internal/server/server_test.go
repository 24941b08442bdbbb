package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fachebot/cross-swap-api/internal/apierr"
	"github.com/fachebot/cross-swap-api/internal/config"
	"github.com/fachebot/cross-swap-api/internal/swapapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQuoter struct {
	mutex  sync.Mutex
	flows  []swapapi.Flow
	params []swapapi.Params
	err    error
}

func (q *recordingQuoter) Handle(ctx context.Context, flow swapapi.Flow, p swapapi.Params) (*swapapi.Response, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.flows = append(q.flows, flow)
	q.params = append(q.params, p)
	if q.err != nil {
		return nil, q.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, context.Canceled
	}
	return &swapapi.Response{Id: "quote-1", InputAmount: p.Amount}, nil
}

func newTestServer(c config.Server, quoter Quoter) http.Handler {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = time.Second
	}
	return NewServer(c, quoter).Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHealth(t *testing.T) {
	h := newTestServer(config.Server{}, &recordingQuoter{})
	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestSwapRoutesBindQuery(t *testing.T) {
	quoter := &recordingQuoter{}
	h := newTestServer(config.Server{}, quoter)

	for _, flow := range []string{"approval", "permit", "auth"} {
		req := httptest.NewRequest(http.MethodGet,
			"/api/swap/"+flow+"?amount=1000&tradeType=exactOutput&originChainId=1&includeSources=0x,uniswap-api", nil)
		rec, body := do(t, h, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1000", body["inputAmount"])
	}

	require.Len(t, quoter.flows, 3)
	assert.Equal(t, []swapapi.Flow{swapapi.FlowApproval, swapapi.FlowPermit, swapapi.FlowAuth}, quoter.flows)
	assert.Equal(t, "exactOutput", quoter.params[0].TradeType)
	assert.Equal(t, "1", quoter.params[0].OriginChainId)
	assert.Equal(t, "0x,uniswap-api", quoter.params[0].IncludeSources)
}

func TestSwapPostBindsEmbeddedActions(t *testing.T) {
	quoter := &recordingQuoter{}
	h := newTestServer(config.Server{}, quoter)

	body := `{"embeddedActions":[{"target":"0x9a8f92a830A5cB89a3816e3D267CB7791c16b04D","callData":"0x","value":"1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/swap/approval?amount=5", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec, _ := do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, quoter.params, 1)
	assert.Equal(t, "5", quoter.params[0].Amount)
	require.Len(t, quoter.params[0].EmbeddedActions, 1)
	assert.Equal(t, "0x", quoter.params[0].EmbeddedActions[0].CallData)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"input", apierr.InvalidParam("amount", "amount must be positive"), http.StatusBadRequest, apierr.CodeInvalidParam},
		{"route", apierr.UnsupportedRoute(apierr.CodeUnsupportedRoute, "no route"), http.StatusBadRequest, apierr.CodeUnsupportedRoute},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, apierr.CodeUpstreamVenueError},
		{"internal", assert.AnError, http.StatusInternalServerError, apierr.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(config.Server{}, &recordingQuoter{err: tc.err})
			rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/swap/approval", nil))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, body, "detail")
		})
	}
}

func TestDevModeExposesInternalDetail(t *testing.T) {
	h := newTestServer(config.Server{DevMode: true}, &recordingQuoter{err: assert.AnError})
	_, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/swap/approval", nil))
	assert.Equal(t, assert.AnError.Error(), body["detail"])
}

func TestNotFound(t *testing.T) {
	h := newTestServer(config.Server{}, &recordingQuoter{})
	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/swap/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestApiKey(t *testing.T) {
	quoter := &recordingQuoter{}
	h := newTestServer(config.Server{ApiKey: "secret"}, quoter)

	req := httptest.NewRequest(http.MethodGet, "/api/swap/approval", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec, _ := do(t, h, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, quoter.flows)

	req = httptest.NewRequest(http.MethodGet, "/api/swap/approval", nil)
	req.Header.Set("X-API-Key", "secret")
	rec, _ = do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays open
	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(config.Server{RateLimit: 0.001, RateBurst: 2}, &recordingQuoter{})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec, _ := do(t, h, httptest.NewRequest(http.MethodGet, "/api/swap/approval", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestInputErrorCarriesParam(t *testing.T) {
	h := newTestServer(config.Server{}, &recordingQuoter{err: apierr.MissingParam("depositor")})
	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/api/swap/permit", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierr.CodeMissingParam, body["code"])
	assert.Equal(t, map[string]any{"param": "depositor"}, body["details"])
}
