package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/federation"
	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// method handles one RPC method's raw params
type method func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Handlers serves the namespace over JSON-RPC
type Handlers struct {
	ns      *federation.Namespace
	log     *logging.Logger
	metrics *HandlerMetrics
	methods map[string]method
}

// NewHandlers creates the handler set for ns
func NewHandlers(ns *federation.Namespace, log *logging.Logger, metrics *HandlerMetrics) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	h := &Handlers{ns: ns, log: log.Component("rpc"), metrics: metrics}
	h.methods = h.register()
	return h
}

// Methods returns the served method names
func (h *Handlers) Methods() []string {
	out := make([]string, 0, len(h.methods))
	for name := range h.methods {
		out = append(out, name)
	}
	return out
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "fedfs",
	})
}

// Health reports the active mount count
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mounts": len(h.ns.ListMounts()),
	})
}

// RPC handles POST /api/nfs/:method. The route names the method; a body
// method that disagrees is ignored. Failures other than credentials travel
// in the error member of a 200 response.
func (h *Handlers) RPC(c *gin.Context) {
	name := c.Param("method")

	body, err := c.GetRawData()
	if err != nil {
		h.reply(c, 0, nil, &rpc.Error{Code: rpc.CodeParseError, Message: "unreadable request body"})
		return
	}
	var req rpc.Request
	if len(body) > 0 {
		if err := rpc.Unmarshal(body, &req); err != nil {
			h.reply(c, 0, nil, &rpc.Error{Code: rpc.CodeParseError, Message: "invalid JSON-RPC request: " + err.Error()})
			return
		}
	}
	if name == "" {
		name = req.Method
	}

	handle, ok := h.methods[name]
	if !ok {
		h.reply(c, req.ID, nil, &rpc.Error{Code: rpc.CodeMethodNotFound, Message: "method not found: " + name})
		return
	}

	done := h.metrics.Track(name)
	result, err := handle(c.Request.Context(), req.Params)
	if err != nil {
		done(statusOf(err))
		werr := rpc.FromError(err)
		if kind := types.KindOf(err); kind == types.KindBackend || kind == types.KindUnknown {
			h.log.Warn("rpc failed", zap.String("method", name), zap.Error(err))
		} else {
			h.log.Debug("rpc rejected", zap.String("method", name), zap.Error(err))
		}
		h.reply(c, req.ID, nil, werr)
		return
	}
	done("ok")
	h.reply(c, req.ID, result, nil)
}

func (h *Handlers) reply(c *gin.Context, reqID uint64, result interface{}, rerr *rpc.Error) {
	resp := rpc.Response{JSONRPC: rpc.Version, ID: reqID, Error: rerr}
	if rerr == nil {
		raw, err := rpc.Marshal(result)
		if err != nil {
			h.log.Error("encode result", zap.Error(err))
			resp.Error = &rpc.Error{Code: rpc.CodeInternal, Message: "failed to encode result"}
		} else {
			resp.Result = raw
		}
	}

	body, err := rpc.Marshal(resp)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(rpc.HTTPStatus(resp.Error), "application/json", body)
}

func statusOf(err error) string {
	kind := types.KindOf(err)
	if kind == types.KindUnknown {
		return types.KindBackend.String()
	}
	return kind.String()
}
