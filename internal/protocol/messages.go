// Package protocol implements the line-delimited JSON bus between the
// planner and the robot (spec.md §4.P): message envelopes, framing, and
// the reconnecting server (robot) / client (planner) state machines.
package protocol

import (
	"encoding/json"
	"math"
)

// MessageType is the mandatory "type" discriminator on every envelope.
type MessageType string

const (
	// Robot -> Planner
	MsgRobotPose             MessageType = "robotPose"
	MsgStatus                MessageType = "status"
	MsgPathExecutionStarted  MessageType = "pathExecutionStarted"
	MsgPathExecutionFinished MessageType = "pathExecutionFinished"

	// Planner -> Robot
	MsgSendPath           MessageType = "sendPath"
	MsgSendMapData        MessageType = "sendMapData"
	MsgSendReferencePoints MessageType = "sendReferencePoints"
	MsgSetRobotShape      MessageType = "setRobotShape"
	MsgGetState           MessageType = "getState"
)

// envelope is the shape used only to sniff Type before dispatching to a
// message-specific decoder; every concrete message below marshals itself.
type envelope struct {
	Type MessageType `json:"type"`
}

// PeekType returns the envelope's Type field without decoding the rest.
func PeekType(line []byte) (MessageType, error) {
	var e envelope
	if err := json.Unmarshal(line, &e); err != nil {
		return "", errMalformed(err)
	}
	if e.Type == "" {
		return "", errMissingField("type")
	}
	return e.Type, nil
}

// RobotPoseMsg is robot -> planner, emitted on the sender timer (spec.md
// §4.P, ~20 Hz) and on getState. Meters, radians.
type RobotPoseMsg struct {
	Type    MessageType `json:"type"`
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Heading float64     `json:"heading"`
}

func NewRobotPoseMsg(x, y, heading float64) RobotPoseMsg {
	return RobotPoseMsg{Type: MsgRobotPose, X: x, Y: y, Heading: heading}
}

// StatusMsg is robot -> planner, on controller phase changes or getState.
type StatusMsg struct {
	Type   MessageType `json:"type"`
	Status string      `json:"status"`
	Moving bool        `json:"moving"`
}

func NewStatusMsg(status string, moving bool) StatusMsg {
	return StatusMsg{Type: MsgStatus, Status: status, Moving: moving}
}

// PathExecutionStartedMsg is robot -> planner.
type PathExecutionStartedMsg struct {
	Type MessageType `json:"type"`
}

func NewPathExecutionStartedMsg() PathExecutionStartedMsg {
	return PathExecutionStartedMsg{Type: MsgPathExecutionStarted}
}

// PathExecutionFinishedMsg is robot -> planner.
type PathExecutionFinishedMsg struct {
	Type    MessageType `json:"type"`
	Success bool        `json:"success"`
}

func NewPathExecutionFinishedMsg(success bool) PathExecutionFinishedMsg {
	return PathExecutionFinishedMsg{Type: MsgPathExecutionFinished, Success: success}
}

// SendPathMsg is planner -> robot. Path is mapmodel's own wire schema
// (json.RawMessage here; decode via mapmodel.DecodePath).
type SendPathMsg struct {
	Type MessageType     `json:"type"`
	Path json.RawMessage `json:"path"`
}

// SendMapDataMsg is planner -> robot.
type SendMapDataMsg struct {
	Type    MessageType     `json:"type"`
	MapData json.RawMessage `json:"mapData"`
}

// WireReferencePointMsg is the protocol's flat reference-point form. Unlike
// MapData's embedded reference points (nested position, degrees), the
// sendReferencePoints message uses flat x/y and radians in "heading", with
// "heading_deg" carried alongside for degree-speaking readers — spec.md's
// Open Questions resolve the radians-vs-degrees ambiguity this way.
type WireReferencePointMsg struct {
	Name       string   `json:"name"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	HasHeading bool     `json:"hasHeading"`
	Heading    *float64 `json:"heading,omitempty"`     // radians
	HeadingDeg *float64 `json:"heading_deg,omitempty"` // degrees
}

func NewWireReferencePointMsg(name string, x, y float64, hasHeading bool, headingRad float64) WireReferencePointMsg {
	w := WireReferencePointMsg{Name: name, X: x, Y: y, HasHeading: hasHeading}
	if hasHeading {
		rad := headingRad
		deg := headingRad * 180 / math.Pi
		w.Heading = &rad
		w.HeadingDeg = &deg
	}
	return w
}

// HeadingRad resolves the reference point's heading, preferring radians,
// falling back to heading_deg converted to radians.
func (w WireReferencePointMsg) HeadingRad() float64 {
	if w.Heading != nil {
		return *w.Heading
	}
	if w.HeadingDeg != nil {
		return *w.HeadingDeg * math.Pi / 180
	}
	return 0
}

// SendReferencePointsMsg is planner -> robot.
type SendReferencePointsMsg struct {
	Type            MessageType             `json:"type"`
	ReferencePoints []WireReferencePointMsg `json:"referencePoints"`
}

// SetRobotShapeMsg is planner -> robot.
type SetRobotShapeMsg struct {
	Type  MessageType `json:"type"`
	Shape string      `json:"shape"`
}

// GetStateMsg is planner -> robot; the server responds within one tick
// with one StatusMsg and one RobotPoseMsg.
type GetStateMsg struct {
	Type MessageType `json:"type"`
}

func NewGetStateMsg() GetStateMsg { return GetStateMsg{Type: MsgGetState} }

// GenericCommandMsg carries any other {"type": ..., "data": ...} message;
// unknown types are logged and dropped by the receiver, never fatal.
type GenericCommandMsg struct {
	Type MessageType    `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}
