// Package bridgetest exercises the planner/robot protocol end to end over
// a real TCP loopback connection, rather than unit-testing server and
// client in isolation (spec.md §4.P connection lifecycle).
package bridgetest

import (
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/omniplanner/pathbridge/internal/geometry"
	"github.com/omniplanner/pathbridge/internal/mapmodel"
	"github.com/omniplanner/pathbridge/internal/protocol"
)

// recordingHandler is the robot side: it records every inbound message so
// the test can assert on what the server decoded and dispatched.
type recordingHandler struct {
	mu        sync.Mutex
	paths     []mapmodel.Path
	shapes    []string
	generic   []string
	pose      protocol.RobotPoseMsg
}

func (h *recordingHandler) OnSendPath(p mapmodel.Path) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paths = append(h.paths, p)
}

func (h *recordingHandler) OnSendMapData(mapmodel.MapData)                   {}
func (h *recordingHandler) OnSendReferencePoints([]protocol.WireReferencePointMsg) {}

func (h *recordingHandler) OnSetRobotShape(shape string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shapes = append(h.shapes, shape)
}

func (h *recordingHandler) OnGetState() (protocol.StatusMsg, protocol.RobotPoseMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return protocol.NewStatusMsg("idle", false), h.pose
}

func (h *recordingHandler) OnGenericCommand(msgType string, data map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generic = append(h.generic, msgType)
}

func (h *recordingHandler) pathCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.paths)
}

func (h *recordingHandler) genericCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.generic)
}

// recordingClient is the planner side: records inbound pose/status/
// lifecycle events from the robot.
type recordingClient struct {
	mu        sync.Mutex
	poses     int
	connected bool
}

func (c *recordingClient) OnRobotPose(protocol.RobotPoseMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poses++
}
func (c *recordingClient) OnStatus(protocol.StatusMsg)                               {}
func (c *recordingClient) OnPathExecutionStarted(protocol.PathExecutionStartedMsg)   {}
func (c *recordingClient) OnPathExecutionFinished(protocol.PathExecutionFinishedMsg) {}

func (c *recordingClient) OnConnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
}

func (c *recordingClient) OnDisconnected(error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *recordingClient) poseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poses
}

// freeAddr reserves an ephemeral loopback port by opening and immediately
// closing a listener on it; the server binds the same address moments
// later. Good enough for a single-test loopback race window.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestPlannerSendsPathRobotStores(t *testing.T) {
	addr := freeAddr(t)
	logger := zap.NewNop()
	handler := &recordingHandler{}
	server := protocol.NewServer(addr, handler, func() protocol.RobotPoseMsg {
		return protocol.NewRobotPoseMsg(1, 2, 0)
	}, logger)

	stopCh := make(chan struct{})
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(stopCh) }()
	defer func() {
		close(stopCh)
		<-serveErr
	}()
	waitForListener(t, addr)

	client := protocol.NewClient(addr, &recordingClient{}, logger)
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect()

	path := mapmodel.Path{
		Name:    "lane-1",
		Visible: true,
		Waypoints: []mapmodel.Waypoint{
			{Position: geometry.Point{X: 0, Y: 0}, Heading: 0},
			{Position: geometry.Point{X: 1, Y: 0}, Heading: 0},
		},
	}
	if !client.SendPath(path) {
		t.Fatal("SendPath reported not connected")
	}

	waitFor(t, func() bool { return handler.pathCount() == 1 })
}

func TestGenericCommandDispatch(t *testing.T) {
	addr := freeAddr(t)
	logger := zap.NewNop()
	handler := &recordingHandler{}
	server := protocol.NewServer(addr, handler, func() protocol.RobotPoseMsg {
		return protocol.NewRobotPoseMsg(0, 0, 0)
	}, logger)

	stopCh := make(chan struct{})
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(stopCh) }()
	defer func() {
		close(stopCh)
		<-serveErr
	}()
	waitForListener(t, addr)

	client := protocol.NewClient(addr, &recordingClient{}, logger)
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect()

	if !client.SendCommand("executePath", map[string]any{"name": "lane-1"}) {
		t.Fatal("SendCommand reported not connected")
	}
	if !client.SendCommand("stop", nil) {
		t.Fatal("SendCommand reported not connected")
	}

	waitFor(t, func() bool { return handler.genericCount() == 2 })
}

func TestRobotPublishesPoseOnTimer(t *testing.T) {
	addr := freeAddr(t)
	logger := zap.NewNop()
	handler := &recordingHandler{}
	server := protocol.NewServer(addr, handler, func() protocol.RobotPoseMsg {
		return protocol.NewRobotPoseMsg(3, 4, 1.5)
	}, logger)

	stopCh := make(chan struct{})
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(stopCh) }()
	defer func() {
		close(stopCh)
		<-serveErr
	}()
	waitForListener(t, addr)

	cc := &recordingClient{}
	client := protocol.NewClient(addr, cc, logger)
	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect()

	waitFor(t, func() bool { return cc.poseCount() >= 2 })
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("server never started listening on %s", addr)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
