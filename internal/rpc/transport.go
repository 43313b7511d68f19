package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// EndpointPrefix is the route every method is posted under
const EndpointPrefix = "/api/nfs/"

// Caller issues one named call and decodes its result into result (which may be nil).
type Caller interface {
	Call(ctx context.Context, method string, params Params, result interface{}) error
}

// Options configures a Transport
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
}

// Transport posts JSON-RPC calls to a namespace server
type Transport struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	log     *logging.Logger
	metrics *monitoring.Metrics
	nextID  atomic.Uint64
}

// NewTransport creates a transport. Nothing is retried: a failed call fails.
func NewTransport(opts Options) *Transport {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	// Pooled transport only; the retrying client itself is never used.
	pooled := retryablehttp.NewClient()
	pooled.RetryMax = 0
	pooled.Logger = nil

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetTransport(pooled.HTTPClient.Transport).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "fedfs-client/1.0").
		SetJSONMarshaler(Marshal).
		SetJSONUnmarshaler(Unmarshal)
	if opts.APIKey != "" {
		client.SetAuthToken(opts.APIKey)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	log := opts.Logger.Component("rpc")
	breaker := resilience.New("nfs-rpc", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: callerFault,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Transport{
		resty:   client,
		limiter: limiter,
		breaker: breaker,
		log:     log,
		metrics: opts.Metrics,
	}
}

// callerFault reports whether err leaves the server's health unquestioned.
func callerFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch types.KindOf(err) {
	case types.KindAuthentication, types.KindNotFound, types.KindValidation,
		types.KindReadOnly, types.KindUnsupported, types.KindPartialFailure:
		return true
	}
	return false
}

// BreakerState exposes the circuit breaker state
func (t *Transport) BreakerState() resilience.State {
	return t.breaker.State()
}

// Call implements Caller.
func (t *Transport) Call(ctx context.Context, method string, params Params, result interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", method, err)
	}

	start := time.Now()
	err := t.breaker.Execute(func() error {
		return t.do(ctx, method, params, result)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		err = types.Wrap(types.KindBackend, method, "", err)
	}

	status := "ok"
	if err != nil {
		status = types.KindOf(err).String()
	}
	if t.metrics != nil {
		t.metrics.RecordRPC(method, status, time.Since(start))
	}
	t.log.Debug("rpc call",
		zap.String("method", method),
		zap.String("status", status),
		zap.Duration("duration", time.Since(start)))
	return err
}

func (t *Transport) do(ctx context.Context, method string, params Params, result interface{}) error {
	if params == nil {
		params = Params{}
	}
	rawParams, err := Marshal(params)
	if err != nil {
		return types.Wrap(types.KindValidation, method, "", err)
	}
	body, err := Marshal(Request{
		JSONRPC: Version,
		Method:  method,
		Params:  rawParams,
		ID:      t.nextID.Add(1),
	})
	if err != nil {
		return types.Wrap(types.KindValidation, method, "", err)
	}

	req := t.resty.R().SetContext(ctx).SetBody(body)
	tracing.Inject(ctx, req.Header)

	resp, err := req.Post(EndpointPrefix + method)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", method, ctxErr)
		}
		return fmt.Errorf("%s: %w", method, err)
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return t.authError(method, resp)
	case http.StatusNotFound:
		if !looksLikeRPC(resp) {
			return types.Errorf(types.KindUnsupported, method, "", "method not served")
		}
	}

	var envelope Response
	if err := Unmarshal(resp.Body(), &envelope); err != nil {
		return types.Errorf(types.KindBackend, method, "", "invalid response (HTTP %d): %v", resp.StatusCode(), err)
	}
	if envelope.Error != nil {
		return envelope.Error.ToTypes(method)
	}
	if resp.IsError() {
		return types.Errorf(types.KindBackend, method, "", "HTTP %d", resp.StatusCode())
	}
	if result == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := Unmarshal(envelope.Result, result); err != nil {
		return types.Errorf(types.KindBackend, method, "", "invalid result: %v", err)
	}
	return nil
}

func (t *Transport) authError(method string, resp *resty.Response) error {
	var envelope Response
	if err := Unmarshal(resp.Body(), &envelope); err == nil && envelope.Error != nil {
		out := envelope.Error.ToTypes(method)
		out.Kind = types.KindAuthentication
		return out
	}
	return types.Errorf(types.KindAuthentication, method, "", "credentials rejected (HTTP %d)", resp.StatusCode())
}

func looksLikeRPC(resp *resty.Response) bool {
	return strings.HasPrefix(resp.Header().Get("Content-Type"), "application/json")
}
