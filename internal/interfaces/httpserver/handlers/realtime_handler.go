package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/infrastructure/metrics"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/middlewares"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// RealtimeHandler streams the change feed over Server Sent Events.
type RealtimeHandler struct {
	realtime  realtime.Service
	keepAlive time.Duration
	log       zerolog.Logger
}

func NewRealtimeHandler(realtimeService realtime.Service, keepAlive time.Duration, log zerolog.Logger) *RealtimeHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &RealtimeHandler{realtime: realtimeService, keepAlive: keepAlive, log: log.With().Str("handler", "realtime").Logger()}
}

// Stream godoc
// @Summary      Subscribe to realtime events
// @Tags         realtime
// @Produce      text/event-stream
// @Param        topics   query     string                      true   "Comma-separated topics such as channel:chn_1,user:usr_1"
// @Success      200      {object}  realtime.Event
// @Failure      400      {object}  platformerrors.HTTPErrorResponse
// @Failure      401      {object}  platformerrors.HTTPErrorResponse
// @Failure      403      {object}  platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/realtime [get]
func (h *RealtimeHandler) Stream(c *gin.Context) {
	me, ok := caller(c)
	if !ok {
		return
	}
	var q requests.RealtimeQuery
	if !bindQuery(c, &q) {
		return
	}
	topics := make([]string, 0)
	for _, t := range strings.Split(q.Topics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	ctx := c.Request.Context()
	sub, err := h.realtime.Subscribe(ctx, me.ID, topics)
	if err != nil {
		platformerrors.WriteError(c, err, h.log)
		return
	}
	defer sub.Close()

	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		platformerrors.WriteError(c, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeInternal, "streaming unsupported", nil, "7b3e9d1a-5c2f-4e84-a0b6-d9f1c3e7a528"), h.log)
		return
	}
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "event: ready\ndata: {\"subscription_id\":%q}\n\n", sub.ID())
	flusher.Flush()

	metrics.RealtimeSubscribers.Inc()
	defer metrics.RealtimeSubscribers.Dec()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeEvent(c, event); err != nil {
				h.log.Debug().Err(err).Str("subscription_id", sub.ID()).Msg("write event")
				return
			}
			flusher.Flush()
			metrics.RealtimeEventsSent.Inc()
		}
	}
}

func writeEvent(c *gin.Context, event realtime.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	name := "change"
	if event.Type == realtime.ChangeResync {
		name = "resync"
	}
	_, err = fmt.Fprintf(c.Writer, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, name, payload)
	return err
}
