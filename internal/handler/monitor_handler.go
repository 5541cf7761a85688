package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/algolearn/algolearn-backend/internal/config"
	"github.com/algolearn/algolearn-backend/internal/middleware"
	"github.com/algolearn/algolearn-backend/internal/service"
	ws "github.com/algolearn/algolearn-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const monitorKeepAliveInterval = 30 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live submission events to admin dashboards over
// WebSocket, fed by the Redis Pub/Sub channel the grading path publishes to.
type MonitorHandler struct {
	rdb         *redis.Client
	testService *service.TestService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, testService *service.TestService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:         rdb,
		testService: testService,
		log:         log.With().Str("component", "monitor_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// MonitorTest godoc
// WS /ws/v1/admin/tests/:id/monitor
// Upgrades to WebSocket and forwards each graded submission for the test
// as it happens.
func (h *MonitorHandler) MonitorTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), testID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("admin_id", claims.UserID).
		Str("test_id", testID.String()).
		Logger()

	wsLog.Info().Str("title", test.Title).Msg("Admin attached to live monitor")

	reqCtx := c.Request.Context()

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.SubmissionMonitorChannel(testID.String()))
	defer pubsub.Close()
	ch := pubsub.Channel()

	// Reader goroutine: consume pings, detect client close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	keepAlive := time.NewTicker(monitorKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-reqCtx.Done():
			wsLog.Info().Msg("Admin disconnected from live monitor")
			return

		case <-done:
			wsLog.Info().Msg("Admin closed live monitor")
			return

		case msg := <-ch:
			event := ws.SubmissionEvent{Event: ws.EventSubmission}
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				wsLog.Warn().Err(err).Msg("Malformed monitor payload")
				continue
			}
			if err := ws.WriteTyped(conn, event); err != nil {
				wsLog.Debug().Err(err).Msg("Monitor write failed")
				return
			}

		case <-keepAlive.C:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		}
	}
}
