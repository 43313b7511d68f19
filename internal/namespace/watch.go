package namespace

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fedfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fedfs/internal/rpc"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

// EventsPath is the server's invalidation stream route
const EventsPath = "/api/nfs/events"

// Watcher subscribes to a server's invalidation stream
type Watcher struct {
	endpoint string
	apiKey   string
	dialer   *websocket.Dialer
	log      *logging.Logger
}

// NewWatcher creates a watcher for the server at baseURL.
func NewWatcher(baseURL, apiKey string, log *logging.Logger) (*Watcher, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, types.Wrap(types.KindValidation, "watch", "", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, types.Errorf(types.KindValidation, "watch", "", "unsupported scheme %q", u.Scheme)
	}
	u.Path += EventsPath

	if log == nil {
		log = logging.NewNop()
	}
	return &Watcher{
		endpoint: u.String(),
		apiKey:   apiKey,
		dialer:   websocket.DefaultDialer,
		log:      log.Component("watch"),
	}, nil
}

// Watch delivers events to fn until ctx ends or the stream fails. It returns
// nil when ctx ends.
func (w *Watcher) Watch(ctx context.Context, fn func(types.Event)) error {
	header := http.Header{}
	if w.apiKey != "" {
		header.Set("Authorization", "Bearer "+w.apiKey)
	}

	conn, resp, err := w.dialer.DialContext(ctx, w.endpoint, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return types.Errorf(types.KindAuthentication, "watch", "", "credentials rejected (HTTP %d)", resp.StatusCode)
		}
		return types.Wrap(types.KindBackend, "watch", "", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Time{})
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				w.log.Debug("stream closed", zap.Int("code", closeErr.Code))
			}
			return types.Wrap(types.KindBackend, "watch", "", err)
		}

		var event types.Event
		if err := rpc.Unmarshal(data, &event); err != nil {
			w.log.Warn("dropping malformed event", zap.Error(err))
			continue
		}
		fn(event)
	}
}
