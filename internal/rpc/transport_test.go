package rpc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fedfs/internal/shared/id"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

type recorded struct {
	path    string
	auth    string
	reqID   string
	request Request
	params  map[string]interface{}
}

func newServer(t *testing.T, handle func(r *recorded) (int, interface{})) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		rec := recorded{
			path:  r.URL.Path,
			auth:  r.Header.Get("Authorization"),
			reqID: r.Header.Get(tracing.RequestIDHeader),
		}
		require.NoError(t, Unmarshal(body, &rec.request))
		if len(rec.request.Params) > 0 {
			require.NoError(t, Unmarshal(rec.request.Params, &rec.params))
		}
		calls = append(calls, rec)

		status, out := handle(&rec)
		data, err := Marshal(out)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func result(v interface{}) Response {
	raw, _ := Marshal(v)
	return Response{JSONRPC: Version, Result: raw, ID: 1}
}

func TestCallEnvelopeAndResult(t *testing.T) {
	srv, calls := newServer(t, func(r *recorded) (int, interface{}) {
		return http.StatusOK, result(map[string]bool{"exists": true})
	})
	tr := NewTransport(Options{BaseURL: srv.URL, APIKey: "secret"})

	var out struct {
		Exists bool `json:"exists"`
	}
	params := Params{}.Set("path", "/a").Opt("prefix", "").Opt("recursive", (*bool)(nil))
	require.NoError(t, tr.Call(context.Background(), "exists", params, &out))
	assert.True(t, out.Exists)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/api/nfs/exists", call.path)
	assert.Equal(t, "Bearer secret", call.auth)
	assert.Equal(t, Version, call.request.JSONRPC)
	assert.Equal(t, "exists", call.request.Method)
	assert.Equal(t, map[string]interface{}{"path": "/a"}, call.params)
	assert.True(t, strings.HasPrefix(call.reqID, "req_"))
}

func TestCallPropagatesRequestID(t *testing.T) {
	srv, calls := newServer(t, func(r *recorded) (int, interface{}) {
		return http.StatusOK, result(nil)
	})
	tr := NewTransport(Options{BaseURL: srv.URL})

	ctx := tracing.WithRequestID(context.Background(), id.RequestID("req_trace"))
	require.NoError(t, tr.Call(ctx, "delete", Params{"path": "/x"}, nil))
	assert.Equal(t, "req_trace", (*calls)[0].reqID)
}

func TestCallErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   interface{}
		kind   types.Kind
	}{
		{
			name:   "not found code",
			status: http.StatusOK,
			body:   Response{JSONRPC: Version, Error: &Error{Code: CodeNotFound, Message: "no such file"}},
			kind:   types.KindNotFound,
		},
		{
			name:   "unauthorized status",
			status: http.StatusUnauthorized,
			body:   Response{JSONRPC: Version, Error: &Error{Code: CodeAuthentication, Message: "token expired"}},
			kind:   types.KindAuthentication,
		},
		{
			name:   "forbidden without rpc body",
			status: http.StatusForbidden,
			body:   map[string]string{"detail": "nope"},
			kind:   types.KindAuthentication,
		},
		{
			name:   "auth code inside 200",
			status: http.StatusOK,
			body:   Response{JSONRPC: Version, Error: &Error{Code: CodeAuthentication, Message: "bad key"}},
			kind:   types.KindAuthentication,
		},
		{
			name:   "method not found is unsupported",
			status: http.StatusOK,
			body:   Response{JSONRPC: Version, Error: &Error{Code: CodeMethodNotFound, Message: "unknown method"}},
			kind:   types.KindUnsupported,
		},
		{
			name:   "invalid params is validation",
			status: http.StatusOK,
			body:   Response{JSONRPC: Version, Error: &Error{Code: CodeInvalidParams, Message: "path required"}},
			kind:   types.KindValidation,
		},
		{
			name:   "server error without envelope",
			status: http.StatusInternalServerError,
			body:   map[string]string{"oops": "x"},
			kind:   types.KindBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, func(*recorded) (int, interface{}) { return tt.status, tt.body })
			tr := NewTransport(Options{BaseURL: srv.URL})

			err := tr.Call(context.Background(), "read", Params{"path": "/p"}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, types.KindOf(err))
		})
	}
}

func TestCallErrorDataRoundTrip(t *testing.T) {
	wire := FromError(types.PartialFailure("delete_many", []types.ItemFailure{
		{Path: "/b", Kind: types.KindBackend, Message: "disk"},
	}))
	srv, _ := newServer(t, func(*recorded) (int, interface{}) {
		return http.StatusOK, Response{JSONRPC: Version, Error: wire}
	})
	tr := NewTransport(Options{BaseURL: srv.URL})

	err := tr.Call(context.Background(), "delete_many", nil, nil)
	var te *types.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, types.KindPartialFailure, te.Kind)
	require.Len(t, te.Items, 1)
	assert.Equal(t, "/b", te.Items[0].Path)
}

func TestCallerErrorsDoNotTripBreaker(t *testing.T) {
	srv, _ := newServer(t, func(*recorded) (int, interface{}) {
		return http.StatusOK, Response{JSONRPC: Version, Error: &Error{Code: CodeNotFound, Message: "missing"}}
	})
	tr := NewTransport(Options{BaseURL: srv.URL})

	for i := 0; i < 10; i++ {
		_ = tr.Call(context.Background(), "read", Params{"path": "/missing"}, nil)
	}
	assert.Equal(t, resilience.StateClosed, tr.BreakerState())
}

func TestNoAutomaticRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewTransport(Options{BaseURL: srv.URL})
	err := tr.Call(context.Background(), "list", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	tr := NewTransport(Options{BaseURL: srv.URL})
	err := tr.Call(ctx, "list", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.StateClosed, tr.BreakerState())
}

func TestCallRecordsMetrics(t *testing.T) {
	srv, _ := newServer(t, func(*recorded) (int, interface{}) { return http.StatusOK, result(true) })
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	tr := NewTransport(Options{BaseURL: srv.URL, Metrics: metrics})

	var ok bool
	require.NoError(t, tr.Call(context.Background(), "delete_saved_mount", Params{"mount_point": "/m"}, &ok))
	assert.True(t, ok)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RPCCalls.WithLabelValues("delete_saved_mount", "ok")))
}
