package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast"
	"github.com/AOSIP-old/platform-frameworks-base/eventsource"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type Handlers struct {
	disp *broadcast.Dispatcher
	src  *eventsource.Source
}

func NewHandlers(disp *broadcast.Dispatcher, src *eventsource.Source) *Handlers {
	return &Handlers{
		disp: disp,
		src:  src,
	}
}

type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(200, HealthStatus{
		Status:  "ok",
		Version: versioninfo.Short(),
	})
}

// Dump returns the dispatcher registry diagnostics as plain text.
func (h *Handlers) Dump(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.disp.Dump(&buf); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.String(200, buf.String())
}

// PostBroadcast publishes one event to the source.
func (h *Handlers) PostBroadcast(c echo.Context) error {
	var ev broadcast.Event
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event")
	}
	if ev.Action == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event requires an action")
	}
	if err := h.src.Publish(ev); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(200, map[string]string{"status": "ok"})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Subscribe registers a websocket client through the dispatcher. Query
// params: action (repeatable, required), category (repeatable), user
// (defaults to all users). Matching events are streamed as JSON frames until
// the client hangs up.
func (h *Handlers) Subscribe(c echo.Context) error {
	actions := c.QueryParams()["action"]
	if len(actions) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one action query param is required")
	}

	user := broadcast.AllUsers
	if v := c.QueryParam("user"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid user query param")
		}
		user = parsed
	}

	filter := broadcast.Filter{
		Actions:    actions,
		Categories: c.QueryParams()["category"],
	}
	if err := filter.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	rcv := &wsReceiver{
		events: make(chan broadcast.Event, 256),
		done:   make(chan struct{}),
	}

	if err := h.disp.RegisterForUser(rcv, filter, nil, user); err != nil {
		conn.Close()
		return nil
	}

	go rcv.writeLoop(conn)

	// Drain the read side to notice the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.disp.Unregister(rcv)
	close(rcv.done)
	conn.Close()
	return nil
}

// wsReceiver bridges dispatcher deliveries onto a single websocket writer
// goroutine. A client that cannot keep up loses events instead of blocking
// the delivery executor.
type wsReceiver struct {
	events chan broadcast.Event
	done   chan struct{}
}

func (r *wsReceiver) OnReceive(ctx context.Context, ev broadcast.Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	default:
		slog.Warn("websocket subscriber overflow, dropping event", "action", ev.Action)
	}
}

func (r *wsReceiver) writeLoop(conn *websocket.Conn) {
	for {
		select {
		case ev := <-r.events:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-r.done:
			return
		}
	}
}
