package protocol

import (
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omniplanner/pathbridge/internal/mapmodel"
)

// poseTickPeriod is the sender's robotPose emission period (spec.md §4.P:
// 50ms +/- 10ms, ~20 Hz).
const poseTickPeriod = 50 * time.Millisecond

// Handler receives decoded inbound messages from the connected planner. All
// methods are invoked synchronously from the reader goroutine, in wire
// order, for a single connection at a time — exactly FIFO per spec.md §5.
type Handler interface {
	OnSendPath(p mapmodel.Path)
	OnSendMapData(m mapmodel.MapData)
	OnSendReferencePoints(refs []WireReferencePointMsg)
	OnSetRobotShape(shape string)
	OnGetState() (status StatusMsg, pose RobotPoseMsg)
	OnGenericCommand(msgType string, data map[string]any)
}

// PoseSource supplies the latest pose for the sender loop to publish; it
// must not block (spec.md §5: no torn reads, atomic cell or mutex-guarded
// struct).
type PoseSource func() RobotPoseMsg

// Server is the robot side of the protocol: it listens, accepts one client
// at a time, and runs a reader/sender pair per connection (spec.md §4.P
// connection lifecycle: Listening -> Accepting -> Connected -> Closing ->
// Listening).
type Server struct {
	addr    string
	handler Handler
	pose    PoseSource
	logger  *zap.Logger

	mu        sync.Mutex
	connected bool
	out       chan []byte // pending lifecycle/status sends for the current connection

	connCount atomic.Int64
}

func NewServer(addr string, handler Handler, pose PoseSource, logger *zap.Logger) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		pose:    pose,
		logger:  logger,
	}
}

// Serve listens on addr and accepts connections one at a time until the
// listener is closed or ctx-like cancellation is signaled by closing
// stopCh. Only one client is ever Connected; a second accept is simply not
// attempted until the current connection's goroutines have exited.
func (s *Server) Serve(stopCh <-chan struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return &SocketError{Op: "listen", Err: err}
	}
	defer ln.Close()

	s.logger.Info("protocol server listening", zap.String("addr", s.addr))

	go func() {
		<-stopCh
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stopCh:
				return nil
			default:
				return &SocketError{Op: "accept", Err: err}
			}
		}
		s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	connID := uuid.NewString()
	s.connCount.Add(1)
	log := s.logger.With(zap.String("conn_id", connID), zap.String("remote", conn.RemoteAddr().String()))
	log.Info("planner connected")

	s.mu.Lock()
	s.connected = true
	s.out = make(chan []byte, 64)
	outCh := s.out
	s.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	closeConn := func() {
		once.Do(func() {
			conn.Close()
			close(done)
		})
	}

	go s.readerLoop(conn, log, closeConn)
	go s.senderLoop(conn, outCh, log, closeConn)

	<-done

	s.mu.Lock()
	s.connected = false
	s.out = nil
	s.mu.Unlock()

	log.Info("planner disconnected")
}

func (s *Server) readerLoop(conn net.Conn, log *zap.Logger, closeConn func()) {
	defer closeConn()
	fr := NewFrameReader(conn)
	for {
		line, err := fr.ReadLine()
		if err != nil {
			if err == ErrBufferOverflow {
				log.Warn("buffer overflow, disconnecting")
			} else {
				log.Info("read loop ended", zap.Error(err))
			}
			return
		}
		s.dispatch(line, log)
	}
}

func (s *Server) dispatch(line []byte, log *zap.Logger) {
	msgType, err := PeekType(line)
	if err != nil {
		log.Warn("malformed message, discarding", zap.Error(err))
		return
	}

	switch msgType {
	case MsgSendPath:
		var m SendPathMsg
		if err := json.Unmarshal(line, &m); err != nil {
			log.Warn("malformed sendPath, discarding", zap.Error(err))
			return
		}
		p, err := mapmodel.DecodePath(m.Path)
		if err != nil {
			log.Warn("malformed path payload, discarding", zap.Error(err))
			return
		}
		s.handler.OnSendPath(p)

	case MsgSendMapData:
		var m SendMapDataMsg
		if err := json.Unmarshal(line, &m); err != nil {
			log.Warn("malformed sendMapData, discarding", zap.Error(err))
			return
		}
		md, err := mapmodel.DecodeMapData(m.MapData)
		if err != nil {
			log.Warn("malformed mapData payload, discarding", zap.Error(err))
			return
		}
		s.handler.OnSendMapData(md)

	case MsgSendReferencePoints:
		var m SendReferencePointsMsg
		if err := json.Unmarshal(line, &m); err != nil {
			log.Warn("malformed sendReferencePoints, discarding", zap.Error(err))
			return
		}
		s.handler.OnSendReferencePoints(m.ReferencePoints)

	case MsgSetRobotShape:
		var m SetRobotShapeMsg
		if err := json.Unmarshal(line, &m); err != nil {
			log.Warn("malformed setRobotShape, discarding", zap.Error(err))
			return
		}
		s.handler.OnSetRobotShape(m.Shape)

	case MsgGetState:
		status, pose := s.handler.OnGetState()
		s.enqueue(status)
		s.enqueue(pose)

	default:
		var m GenericCommandMsg
		if err := json.Unmarshal(line, &m); err != nil {
			log.Warn("malformed generic command, discarding", zap.Error(err))
			return
		}
		s.handler.OnGenericCommand(string(msgType), m.Data)
	}
}

// senderLoop owns the socket write side: a 50ms timer publishes the latest
// pose, and the out channel drains any lifecycle/status events queued by
// dispatch or by EmitX calls from the mission/controller layer.
func (s *Server) senderLoop(conn net.Conn, out <-chan []byte, log *zap.Logger, closeConn func()) {
	defer closeConn()
	ticker := time.NewTicker(poseTickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			data, err := json.Marshal(s.pose())
			if err != nil {
				continue
			}
			if err := WriteLine(conn, data); err != nil {
				log.Info("send error", zap.Error(err))
				return
			}
		case data, ok := <-out:
			if !ok {
				return
			}
			if err := WriteLine(conn, data); err != nil {
				log.Info("send error", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) enqueue(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.mu.Lock()
	out := s.out
	s.mu.Unlock()
	if out == nil {
		return
	}
	select {
	case out <- data:
	default:
		// Commands are emitted at human/controller speed; a full queue
		// here means the peer is stalled, which the sender's write
		// errors will already be catching.
	}
}

// EmitStatus enqueues a status message for the current connection, if any.
func (s *Server) EmitStatus(status string, moving bool) {
	s.enqueue(NewStatusMsg(status, moving))
}

// EmitPathExecutionStarted enqueues a pathExecutionStarted message.
func (s *Server) EmitPathExecutionStarted() {
	s.enqueue(NewPathExecutionStartedMsg())
}

// EmitPathExecutionFinished enqueues a pathExecutionFinished message.
func (s *Server) EmitPathExecutionFinished(success bool) {
	s.enqueue(NewPathExecutionFinishedMsg(success))
}

// Connected reports whether a planner is currently connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
