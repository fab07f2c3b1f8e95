// Package controller implements the point-to-point path controller
// (spec.md §4.C): driveToPose, angularAlign, and linearIncrement, built on
// the kinematics odometry/inverse-kinematics and a PID per wheel.
package controller

import (
	"math"
	"time"

	"github.com/omniplanner/pathbridge/internal/config"
	"github.com/omniplanner/pathbridge/internal/geometry"
	"github.com/omniplanner/pathbridge/internal/hardware"
	"github.com/omniplanner/pathbridge/internal/kinematics"
	"github.com/omniplanner/pathbridge/internal/pid"
	"github.com/omniplanner/pathbridge/internal/safety"
)

// NoHeadingGoal is the sentinel θ_goal value meaning "don't care about
// final heading" (spec.md §4.C).
const NoHeadingGoal = -1.0

// Direction selects a body-frame offset direction for linearIncrement.
type Direction int

const (
	Front Direction = iota
	Back
	Left
	Right
)

// PosePublisher streams an intermediate pose over the protocol layer
// (spec.md §4.C step 10: "every ~10th tick publish the current pose").
type PosePublisher func(x, y, headingDeg float64)

// Controller drives the chassis from its current pose to a commanded
// pose, one 20ms tick at a time (spec.md §4.C, §5: single-threaded
// cooperative control loop).
type Controller struct {
	cfg config.ControllerConfig
	geo kinematics.Geometry

	odom     *kinematics.Odometry
	motors   hardware.MotorDriver
	encoders hardware.Encoders
	imu      hardware.IMU
	digital  hardware.DigitalInputs
	clock    hardware.Clock

	leftPID, rightPID *pid.Controller

	publish PosePublisher

	latch   *safety.Latch
	limiter *safety.SpeedLimiter
}

// SetSafety wires a software stop latch and a speed envelope limiter
// into the drive loop. Either may be nil; a nil latch never trips, a nil
// limiter passes twists through unclamped.
func (c *Controller) SetSafety(latch *safety.Latch, limiter *safety.SpeedLimiter) {
	c.latch = latch
	c.limiter = limiter
}

func New(cfg config.ControllerConfig, geo kinematics.Geometry, odom *kinematics.Odometry,
	motors hardware.MotorDriver, encoders hardware.Encoders, imu hardware.IMU,
	digital hardware.DigitalInputs, clock hardware.Clock, publish PosePublisher) *Controller {
	leftPID := pid.New(0.6, 0.3, 0, -0.7, 0.7, -0.7, 0.7)
	rightPID := pid.New(0.6, 0.3, 0, -0.7, 0.7, -0.7, 0.7)
	leftPID.IncludeDerivative = cfg.IncludeDerivative
	rightPID.IncludeDerivative = cfg.IncludeDerivative

	return &Controller{
		cfg: cfg, geo: geo, odom: odom,
		motors: motors, encoders: encoders, imu: imu, digital: digital, clock: clock,
		leftPID: leftPID, rightPID: rightPID,
		publish: publish,
	}
}

// DriveToPose drives the chassis to (xGoalCM, yGoalCM), optionally ending
// at thetaGoalDeg (NoHeadingGoal to leave final heading unconstrained).
// It blocks until the controller exits: at tolerance with zero measured
// wheel speed, and holds zero for a settle period afterward (spec.md
// §4.C).
func (c *Controller) DriveToPose(xGoalCM, yGoalCM, thetaGoalDeg float64) {
	reachedLinear := false
	tick := 0

	for {
		vl, vr := c.odom.Update(c.encoders, c.imu, c.clock)

		dx := xGoalCM - c.odom.X
		dy := yGoalCM - c.odom.Y
		rho := math.Hypot(dx, dy)
		phi := math.Atan2(dy, dx) * 180 / math.Pi

		effGoalHeading := thetaGoalDeg
		if thetaGoalDeg == NoHeadingGoal {
			effGoalHeading = c.odom.HeadingDeg
		}
		forwardErr := geometry.NormalizeAngleDeg(effGoalHeading - phi)
		backwardErr := geometry.NormalizeAngleDeg(effGoalHeading - phi + 180)

		reverse := math.Abs(forwardErr) > c.cfg.DirectionBias*math.Abs(backwardErr)
		if reverse {
			rho = -rho
			phi += 180
		}

		var thetaDiff float64
		if math.Abs(rho) < c.cfg.LinearToleranceCM || reachedLinear {
			reachedLinear = true
			rho = 0
			if thetaGoalDeg == NoHeadingGoal {
				thetaDiff = 0
			} else {
				thetaDiff = thetaGoalDeg - c.odom.HeadingDeg
			}
		} else {
			thetaDiff = phi - c.odom.HeadingDeg
		}
		thetaDiff = geometry.NormalizeAngleDeg(thetaDiff)

		angularSetpoint := clamp(math.Abs(thetaDiff)/c.cfg.AngularSlowdownDeg*c.cfg.MaxAngularSpeedRadS,
			c.cfg.MinAngularSpeedRadS, c.cfg.MaxAngularSpeedRadS)
		if thetaDiff < 0 {
			angularSetpoint = -angularSetpoint
		}

		linearSetpoint := clamp(math.Abs(rho)/c.cfg.LinearSlowdownCM*c.cfg.MaxLinearSpeedCMPS,
			c.cfg.MinLinearSpeedCMPS, c.cfg.MaxLinearSpeedCMPS)
		if rho < 0 {
			linearSetpoint = -linearSetpoint
		}

		if math.Abs(thetaDiff) > c.cfg.AlignFirstThresholdDeg || rho == 0 {
			linearSetpoint = 0
		}
		if math.Abs(rho) < c.cfg.LinearToleranceCM && math.Abs(thetaDiff) < c.cfg.AngularToleranceDeg {
			linearSetpoint = 0
			angularSetpoint = 0
		}

		c.drive(linearSetpoint, angularSetpoint)

		tick++
		if tick%10 == 0 {
			c.publish(c.odom.X, c.odom.Y, c.odom.HeadingDeg)
		}

		if linearSetpoint == 0 && angularSetpoint == 0 && vl == 0 && vr == 0 {
			break
		}

		time.Sleep(c.cfg.Tick())
	}

	c.motors.SetLeftPwm(0)
	c.motors.SetRightPwm(0)
	c.leftPID.Reset()
	c.rightPID.Reset()

	time.Sleep(c.cfg.Settle())
}

// drive converts a linear/angular setpoint into per-wheel PWM via inverse
// kinematics and a PID loop, honoring the hardware stop input (spec.md
// §4.C step 9).
func (c *Controller) drive(linearCMS, angularRadS float64) {
	if c.limiter != nil {
		limited := c.limiter.Limit(linearCMS, angularRadS)
		linearCMS, angularRadS = limited.LinearCMS, limited.AngularRad
	}

	desiredLeft, desiredRight := kinematics.Inverse(linearCMS, angularRadS, c.geo)
	desiredLeftPwm := clamp(desiredLeft/c.geo.MaxWheelSpeedCMS, -1, 1)
	desiredRightPwm := clamp(desiredRight/c.geo.MaxWheelSpeedCMS, -1, 1)

	measuredLeftPwm := c.odom.LastLeftSpeedCMS() / c.geo.MaxWheelSpeedCMS
	measuredRightPwm := c.odom.LastRightSpeedCMS() / c.geo.MaxWheelSpeedCMS

	leftOut := c.leftPID.Calculate(measuredLeftPwm, desiredLeftPwm)
	rightOut := c.rightPID.Calculate(measuredRightPwm, desiredRightPwm)

	if c.digital.StopAsserted() || (c.latch != nil && c.latch.Active()) {
		c.motors.SetLeftPwm(0)
		c.motors.SetRightPwm(0)
		c.leftPID.Reset()
		c.rightPID.Reset()
		return
	}

	if desiredLeftPwm == 0 {
		c.motors.SetLeftPwm(0)
		c.leftPID.Reset()
	} else {
		c.motors.SetLeftPwm(clamp(leftOut, -1, 1))
	}
	if desiredRightPwm == 0 {
		c.motors.SetRightPwm(0)
		c.rightPID.Reset()
	} else {
		c.motors.SetRightPwm(clamp(rightOut, -1, 1))
	}
}

// AngularAlign drives angular velocity toward an externally supplied
// wall-angle estimate (degrees, signed) until three consecutive ticks
// land within 3 degrees of it (spec.md §4.C).
func (c *Controller) AngularAlign(wallAngleDeg func() float64) {
	const (
		distOffset  = 5.0
		maxSpeed    = 0.75
		minSpeed    = 0.4
		tolerance   = 3.0
		alignedRuns = 3
	)

	count := 0
	for count < alignedRuns {
		diff := wallAngleDeg()

		desired := clamp(diff/distOffset*maxSpeed, -maxSpeed, maxSpeed)
		if math.Abs(desired) < minSpeed && desired != 0 {
			if desired > 0 {
				desired = minSpeed
			} else {
				desired = -minSpeed
			}
		}

		if math.Abs(diff) < tolerance {
			desired = 0
			count++
		} else {
			count = 0
		}

		c.drive(0, desired)
		time.Sleep(c.cfg.Tick())
	}
}

// LinearIncrement drives `distance` cm along a body-frame direction
// (rotated by the current heading) and holds the current heading at the
// goal (spec.md §4.C).
func (c *Controller) LinearIncrement(distanceCM float64, dir Direction) {
	var angOffsetDeg float64
	switch dir {
	case Front:
		angOffsetDeg = 0
	case Left:
		angOffsetDeg = 90
	case Back:
		angOffsetDeg = 180
	case Right:
		angOffsetDeg = -90
	}

	headingDeg := c.odom.HeadingDeg
	rad := (angOffsetDeg + headingDeg) * math.Pi / 180
	goalX := c.odom.X + distanceCM*math.Cos(rad)
	goalY := c.odom.Y + distanceCM*math.Sin(rad)

	c.DriveToPose(goalX, goalY, headingDeg)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
