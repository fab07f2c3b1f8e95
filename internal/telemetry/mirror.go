package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
	mirrorBacklog  = 16
)

// Mirror is a read-only websocket fan-out of pose samples and mission
// events. It never accepts inbound commands; the client<->robot control
// path is the TCP protocol connection, not this endpoint. Grounded on the
// gateway's websocket hub/upgrade pattern, stripped of its inbound
// message handling since this mirror is broadcast-only.
type Mirror struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*mirrorClient]struct{}
}

type mirrorClient struct {
	conn *websocket.Conn
	out  chan []byte
}

func NewMirror(logger *zap.Logger) *Mirror {
	return &Mirror{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*mirrorClient]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers it for broadcasts.
func (m *Mirror) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("telemetry mirror: upgrade failed", zap.Error(err))
		return
	}

	client := &mirrorClient{conn: conn, out: make(chan []byte, mirrorBacklog)}
	m.mu.Lock()
	m.clients[client] = struct{}{}
	m.mu.Unlock()

	go m.readPump(client)
	go m.writePump(client)
}

// readPump only drains pings/close frames; a mirror client has nothing
// to say, but the read loop must run to process control frames and
// notice disconnects.
func (m *Mirror) readPump(c *mirrorClient) {
	defer m.remove(c)
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (m *Mirror) writePump(c *mirrorClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Mirror) remove(c *mirrorClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; ok {
		delete(m.clients, c)
		close(c.out)
	}
}

// BroadcastPose pushes a pose sample to every connected mirror client,
// dropping it for any client whose send queue is full rather than
// blocking the control loop.
func (m *Mirror) BroadcastPose(sample PoseSample) {
	m.broadcast(struct {
		Type string `json:"type"`
		PoseSample
	}{Type: "pose", PoseSample: sample})
}

func (m *Mirror) BroadcastMissionEvent(ev MissionEvent) {
	m.broadcast(struct {
		Type string `json:"type"`
		MissionEvent
	}{Type: "mission_event", MissionEvent: ev})
}

func (m *Mirror) broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		m.logger.Warn("telemetry mirror: encode failed", zap.Error(err))
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for c := range m.clients {
		select {
		case c.out <- payload:
		default:
		}
	}
}
