package protocol

import (
	"encoding/json"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/omniplanner/pathbridge/internal/mapmodel"
)

// ClientState is the planner-side connection state (spec.md §4.P:
// Disconnected -> Connecting -> Connected -> Disconnected, reconnect is
// manual — the client never retries on its own).
type ClientState int32

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ClientHandler receives inbound robot messages and connection lifecycle
// events. Message callbacks run on the reader goroutine; OnConnected runs
// on the goroutine that called Connect, and OnDisconnected on whichever
// goroutine saw the failure (the reader, or a caller of a send method).
type ClientHandler interface {
	OnRobotPose(RobotPoseMsg)
	OnStatus(StatusMsg)
	OnPathExecutionStarted(PathExecutionStartedMsg)
	OnPathExecutionFinished(PathExecutionFinishedMsg)
	OnConnected()
	OnDisconnected(err error)
}

// Client is the planner side of the protocol: a single outbound connection
// to the robot's server, dialed and torn down explicitly by the caller.
type Client struct {
	addr    string
	handler ClientHandler
	logger  *zap.Logger

	mu    sync.Mutex
	state ClientState
	conn  net.Conn
}

func NewClient(addr string, handler ClientHandler, logger *zap.Logger) *Client {
	return &Client{addr: addr, handler: handler, logger: logger, state: StateDisconnected}
}

func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the robot. It blocks until the TCP handshake completes or
// fails; it never retries. Call it again after a disconnect to reconnect.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return &SocketError{Op: "dial", Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	go c.readerLoop(conn)
	c.handler.OnConnected()
	return nil
}

// Disconnect closes the connection. It is idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (c *Client) readerLoop(conn net.Conn) {
	fr := NewFrameReader(conn)
	for {
		line, err := fr.ReadLine()
		if err != nil {
			c.mu.Lock()
			wasOurs := c.conn == conn
			if wasOurs {
				c.conn = nil
				c.state = StateDisconnected
			}
			c.mu.Unlock()
			conn.Close()
			if wasOurs {
				c.handler.OnDisconnected(err)
			}
			return
		}
		c.dispatch(line)
	}
}

func (c *Client) dispatch(line []byte) {
	msgType, err := PeekType(line)
	if err != nil {
		c.logger.Warn("malformed message from robot, discarding", zap.Error(err))
		return
	}

	switch msgType {
	case MsgRobotPose:
		var m RobotPoseMsg
		if err := json.Unmarshal(line, &m); err != nil {
			c.logger.Warn("malformed robotPose, discarding", zap.Error(err))
			return
		}
		c.handler.OnRobotPose(m)

	case MsgStatus:
		var m StatusMsg
		if err := json.Unmarshal(line, &m); err != nil {
			c.logger.Warn("malformed status, discarding", zap.Error(err))
			return
		}
		c.handler.OnStatus(m)

	case MsgPathExecutionStarted:
		var m PathExecutionStartedMsg
		if err := json.Unmarshal(line, &m); err != nil {
			c.logger.Warn("malformed pathExecutionStarted, discarding", zap.Error(err))
			return
		}
		c.handler.OnPathExecutionStarted(m)

	case MsgPathExecutionFinished:
		var m PathExecutionFinishedMsg
		if err := json.Unmarshal(line, &m); err != nil {
			c.logger.Warn("malformed pathExecutionFinished, discarding", zap.Error(err))
			return
		}
		c.handler.OnPathExecutionFinished(m)

	default:
		c.logger.Warn("unexpected message type from robot", zap.String("type", string(msgType)))
	}
}

// send marshals and writes msg, failing fast (no queueing, no side effects)
// if the client is not currently connected.
func (c *Client) send(msg any) bool {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	if err := WriteLine(conn, data); err != nil {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		conn.Close()
		c.handler.OnDisconnected(err)
		return false
	}
	return true
}

// SendPath sends a sendPath message; returns false without effect if
// disconnected.
func (c *Client) SendPath(p mapmodel.Path) bool {
	data, err := mapmodel.EncodePath(p)
	if err != nil {
		return false
	}
	return c.send(SendPathMsg{Type: MsgSendPath, Path: data})
}

// SendMapData sends a sendMapData message.
func (c *Client) SendMapData(m mapmodel.MapData) bool {
	data, err := mapmodel.EncodeMapData(m)
	if err != nil {
		return false
	}
	return c.send(SendMapDataMsg{Type: MsgSendMapData, MapData: data})
}

// SendReferencePoints sends a sendReferencePoints message.
func (c *Client) SendReferencePoints(refs []WireReferencePointMsg) bool {
	return c.send(SendReferencePointsMsg{Type: MsgSendReferencePoints, ReferencePoints: refs})
}

// SetRobotShape sends a setRobotShape message.
func (c *Client) SetRobotShape(shape string) bool {
	return c.send(SetRobotShapeMsg{Type: MsgSetRobotShape, Shape: shape})
}

// GetState requests an immediate status+pose pair from the robot.
func (c *Client) GetState() bool {
	return c.send(NewGetStateMsg())
}

// SendCommand sends an application-level generic command (spec.md §4.P:
// "{type: String, data: Object}"), e.g. executePath, stop, resume.
func (c *Client) SendCommand(msgType string, data map[string]any) bool {
	return c.send(GenericCommandMsg{Type: MessageType(msgType), Data: data})
}
