package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/hpdav/cityflow-backend-go/internal/middleware"
	"github.com/hpdav/cityflow-backend-go/internal/models"
	"github.com/hpdav/cityflow-backend-go/internal/service"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// Frame types sent on the flow stream.
const (
	FrameHour = "hour"
	FrameDone = "done"
)

// StreamFrame is one websocket message of the flow stream.
type StreamFrame struct {
	Type       string                 `json:"type"`
	Hour       int                    `json:"hour_bucket"`
	Flows      []models.Flow          `json:"flows,omitempty"`
	Cells      []models.FlowCell      `json:"cells,omitempty"`
	Statistics *models.FlowStatistics `json:"statistics,omitempty"`
}

// StreamHandler replays a flow-map result hour by hour over a websocket.
type StreamHandler struct {
	flows    *service.FlowService
	interval time.Duration
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new stream handler sending one frame per
// interval.
func NewStreamHandler(flows *service.FlowService, interval time.Duration, logger logrus.FieldLogger) *StreamHandler {
	return &StreamHandler{
		flows:    flows,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HourFrames splits res into one frame per hour bucket, in hour order,
// followed by the done frame.
func HourFrames(res *models.FlowResult) []StreamFrame {
	flows := lo.GroupBy(res.Flows, func(f models.Flow) int { return f.Hour })
	cells := lo.GroupBy(res.Cells, func(c models.FlowCell) int { return c.Hour })
	hours := lo.Union(lo.Keys(flows), lo.Keys(cells))
	sort.Ints(hours)

	frames := make([]StreamFrame, 0, len(hours)+1)
	for _, h := range hours {
		frames = append(frames, StreamFrame{Type: FrameHour, Hour: h, Flows: flows[h], Cells: cells[h]})
	}
	stats := res.Statistics
	return append(frames, StreamFrame{Type: FrameDone, Hour: -1, Statistics: &stats})
}

// StreamFlowMap handles GET /api/flow-map/stream
func (h *StreamHandler) StreamFlowMap(c *gin.Context) {
	var q models.FlowQuery
	if !bind(c, &q) {
		return
	}
	// 先计算再升级, 参数错误仍走 HTTP 响应
	res, err := h.flows.Get(c.Request.Context(), q)
	if err != nil {
		reply(c, res, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		_ = c.Error(err)
		return
	}
	defer conn.Close()

	log := h.logger.WithFields(logrus.Fields{
		"component":  "stream",
		"request_id": middleware.RequestID(c),
	})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.drain(conn, cancel)

	frames := HourFrames(res)
	for i, f := range frames {
		if i > 0 && !h.wait(ctx) {
			log.WithField("sent", i).Debug("client went away")
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(f); err != nil {
			log.WithError(err).Warn("failed to write frame")
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		log.WithError(err).Debug("failed to write close frame")
	}
	log.WithField("frames", len(frames)).Info("flow stream finished")
}

// drain reads until the peer closes so that control frames are processed.
func (h *StreamHandler) drain(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) wait(ctx context.Context) bool {
	if h.interval <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(h.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
