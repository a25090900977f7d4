package httpinterface

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/solstream/swapd/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// orderStreamHandler upgrades the connection and streams the order's full
// event history followed by any live event. Writes to a connection that is
// not ready are dropped, the client can always recover from the durable log.
func (s *Service) orderStreamHandler(w http.ResponseWriter, req *http.Request) {
	orderId := req.URL.Query().Get("orderId")

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade websocket connection")
		return
	}

	writeLock := &sync.Mutex{}
	safeSend := func(payload interface{}, context string) {
		writeLock.Lock()
		defer writeLock.Unlock()
		if err := conn.WriteJSON(payload); err != nil {
			log.WithError(err).Warnf(
				"ws send failed for order %s (%s)", orderId, context,
			)
		}
	}

	if orderId == "" {
		safeSend(map[string]interface{}{
			"error": "orderId query param required",
		}, "missing_order_id")
		conn.Close()
		return
	}

	safeSend(map[string]interface{}{
		"orderId": orderId,
		"status":  "ws_connected",
		"ts":      time.Now().UnixMilli(),
	}, "ws_connected")

	unsubscribe, err := s.pubsub.Subscribe(
		req.Context(), orderId, func(event *domain.OrderEvent) {
			safeSend(eventToView(event), "order_event")
		},
	)
	if err != nil {
		safeSend(map[string]interface{}{"error": err.Error()}, "subscribe_failed")
		conn.Close()
		return
	}

	log.Debugf("ws order stream connected for order %s", orderId)

	// Consume control frames until the peer goes away, then detach.
	go func() {
		defer func() {
			unsubscribe()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
