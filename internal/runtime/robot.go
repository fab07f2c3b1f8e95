// Package runtime wires together the protocol, mapmodel store, mission
// runner, and controller into the Handler the robot's TCP server
// dispatches to (spec.md §4.I "mission glue").
package runtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/omniplanner/pathbridge/internal/controller"
	"github.com/omniplanner/pathbridge/internal/hardware"
	"github.com/omniplanner/pathbridge/internal/kinematics"
	"github.com/omniplanner/pathbridge/internal/mapmodel"
	"github.com/omniplanner/pathbridge/internal/mission"
	"github.com/omniplanner/pathbridge/internal/protocol"
	"github.com/omniplanner/pathbridge/internal/safety"
	"github.com/omniplanner/pathbridge/internal/telemetry"
)

// Lifecycle is the subset of *protocol.Server the runtime needs to emit
// status/lifecycle events, kept as an interface so tests can substitute a
// recorder in place of a live TCP server.
type Lifecycle interface {
	EmitStatus(status string, moving bool)
	EmitPathExecutionStarted()
	EmitPathExecutionFinished(success bool)
}

// Robot owns the robot-side state: the path store, the current shape,
// and the single in-flight mission, and implements protocol.Handler.
type Robot struct {
	store  *mapmodel.Store
	ctl    *controller.Controller
	odom   *kinematics.Odometry
	digital hardware.DigitalInputs
	latch  *safety.Latch
	life   Lifecycle
	logger *zap.Logger

	eventLog *telemetry.EventLog // nil if disabled
	mirror   *telemetry.Mirror   // nil if disabled

	mu      sync.Mutex
	shape   mapmodel.RobotShape
	running bool
}

func NewRobot(store *mapmodel.Store, ctl *controller.Controller, odom *kinematics.Odometry,
	digital hardware.DigitalInputs, latch *safety.Latch, life Lifecycle, logger *zap.Logger) *Robot {
	return &Robot{
		store: store, ctl: ctl, odom: odom, digital: digital, latch: latch,
		life: life, logger: logger, shape: mapmodel.ShapeRectangle,
	}
}

// WithTelemetry attaches the optional event log / websocket mirror.
func (r *Robot) WithTelemetry(eventLog *telemetry.EventLog, mirror *telemetry.Mirror) *Robot {
	r.eventLog = eventLog
	r.mirror = mirror
	return r
}

// SetLifecycle wires the protocol server back into the robot once it
// exists (the server's constructor needs this Robot as its Handler, so
// the two can't be built in a single step).
func (r *Robot) SetLifecycle(life Lifecycle) {
	r.life = life
}

func (r *Robot) OnSendPath(p mapmodel.Path) {
	r.store.Upsert(p)
	r.logger.Info("path stored", zap.String("name", p.Name), zap.Int("waypoints", len(p.Waypoints)))
}

func (r *Robot) OnSendMapData(m mapmodel.MapData) {
	r.logger.Info("map data received", zap.String("name", m.Name), zap.Int("lines", len(m.Lines)))
	for _, rp := range m.ReferencePoints {
		r.logger.Debug("reference point", zap.String("name", rp.Name))
	}
}

func (r *Robot) OnSendReferencePoints(refs []protocol.WireReferencePointMsg) {
	r.logger.Info("reference points received", zap.Int("count", len(refs)))
}

func (r *Robot) OnSetRobotShape(shape string) {
	r.mu.Lock()
	r.shape = mapmodel.ParseRobotShape(shape)
	r.mu.Unlock()
}

// OnGetState reports the current status and pose (spec.md §4.P getState).
func (r *Robot) OnGetState() (protocol.StatusMsg, protocol.RobotPoseMsg) {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()

	status := protocol.NewStatusMsg(r.statusString(running), running)
	pose := r.currentPose()
	return status, pose
}

func (r *Robot) statusString(running bool) string {
	if r.latch != nil && r.latch.Active() {
		return "stopped"
	}
	if running {
		return "moving"
	}
	return "idle"
}

func (r *Robot) currentPose() protocol.RobotPoseMsg {
	x, y, headingDeg := r.odom.X/100, r.odom.Y/100, r.odom.HeadingDeg
	headingRad := headingDeg * 3.141592653589793 / 180
	return protocol.NewRobotPoseMsg(x, y, headingRad)
}

// PoseSource adapts currentPose to protocol.PoseSource for the server.
func (r *Robot) PoseSource() protocol.RobotPoseMsg { return r.currentPose() }

// OnGenericCommand dispatches application-level commands not modeled as
// their own envelope (spec.md §4.P: "forwarded to application layer by
// name; unknown types are logged and dropped, not fatal").
func (r *Robot) OnGenericCommand(msgType string, data map[string]any) {
	switch msgType {
	case "executePath":
		name, _ := data["name"].(string)
		go r.runPath(name)
	case "stop":
		r.latch.Activate("planner requested stop")
	case "resume":
		r.latch.Release()
	default:
		r.logger.Info("unhandled generic command", zap.String("type", msgType))
	}
}

func (r *Robot) runPath(name string) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("executePath ignored, mission already running", zap.String("name", name))
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	runner := mission.NewRunner(r.store, r.ctl, r.poseMeters, r.digital, r)
	if err := runner.Execute(name); err != nil {
		r.logger.Warn("path execution failed", zap.String("name", name), zap.Error(err))
	}
}

func (r *Robot) poseMeters() (x, y, headingDeg float64) {
	return r.odom.X / 100, r.odom.Y / 100, r.odom.HeadingDeg
}

// PathExecutionStarted/PathExecutionFinished implement mission.Lifecycle,
// fanning each transition out to the protocol connection, the telemetry
// event log, and the websocket mirror.
func (r *Robot) PathExecutionStarted() {
	r.life.EmitPathExecutionStarted()
	if r.eventLog != nil {
		r.eventLog.PublishMissionEvent(context.Background(), telemetry.MissionEvent{Phase: "started"})
	}
	if r.mirror != nil {
		r.mirror.BroadcastMissionEvent(telemetry.MissionEvent{Phase: "started"})
	}
}

func (r *Robot) PathExecutionFinished(success bool) {
	r.life.EmitPathExecutionFinished(success)
	ev := telemetry.MissionEvent{Phase: "finished", Success: success}
	if r.eventLog != nil {
		r.eventLog.PublishMissionEvent(context.Background(), ev)
	}
	if r.mirror != nil {
		r.mirror.BroadcastMissionEvent(ev)
	}
}

// PublishPoseTick is called by the controller's PosePublisher on every
// 10th control tick, fanning the pose out the same way.
func (r *Robot) PublishPoseTick(x, y, headingDeg float64) {
	sample := telemetry.PoseSample{
		TimestampUnix: float64(time.Now().UnixNano()) / 1e9,
		X:             x,
		Y:             y,
		HeadingDeg:    headingDeg,
	}
	if r.eventLog != nil {
		r.eventLog.PublishPose(context.Background(), sample)
	}
	if r.mirror != nil {
		r.mirror.BroadcastPose(sample)
	}
}
