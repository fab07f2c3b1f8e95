// Package hardware names the collaborator interfaces the control core
// consumes (spec.md §6): motor driver, encoders, IMU, digital inputs, and a
// monotonic clock. The robot I/O layer behind these is opaque to the core;
// sim provides an in-process implementation for development and tests.
package hardware

// MotorDriver commands the chassis. Only SetLeftPwm/SetRightPwm are used by
// the kinematics and controller packages; SetBackPwm and SetElevatorPwm
// exist for parity with the collaborator surface but are never driven by
// the core (spec.md §9: three-wheel omni reduced to differential).
type MotorDriver interface {
	SetLeftPwm(x float64)
	SetRightPwm(x float64)
	SetBackPwm(x float64)
	SetElevatorPwm(x float64)
}

// Encoders reports raw tick counts, monotone modulo wraparound; the core
// tolerates wraparound by differencing successive reads.
type Encoders interface {
	ReadLeftTicks() int64
	ReadRightTicks() int64
}

// IMU reports yaw in degrees; CCW-positive is implementation-defined and
// reconciled by the core's constant offset (spec.md §4.K, §9).
type IMU interface {
	ReadYawDeg() float64
}

// DigitalInputs exposes the hardware stop/start lines.
type DigitalInputs interface {
	StopAsserted() bool
	StartAsserted() bool
}

// Clock is a monotonic time source in seconds, sub-millisecond resolution.
type Clock interface {
	Now() float64
}
