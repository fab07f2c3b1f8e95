// Package kinematics implements the differential-drive forward/inverse
// kinematics, wheel-speed estimation from encoder ticks, and the
// gyro-dominant pose integrator (spec.md §4.K). The source models a
// three-wheel omni base, but the controller never commands the third
// wheel, so this package is differential-drive only (spec.md §9).
package kinematics

import (
	"math"

	"github.com/omniplanner/pathbridge/internal/hardware"
)

// Geometry holds the per-deployment chassis constants (spec.md §4.K).
type Geometry struct {
	WheelRadiusCM    float64
	FrameRadiusCM    float64
	PulsesPerRev     float64
	GearRatio        float64
	MaxWheelSpeedCMS float64 // wheel speed that maps to PWM magnitude 1.0
}

// DistancePerTick is the linear distance one encoder pulse represents.
func (g Geometry) DistancePerTick() float64 {
	return 2 * math.Pi * g.WheelRadiusCM / (g.PulsesPerRev * g.GearRatio)
}

// Forward maps wheel speeds (cm/s, left/right) to a chassis twist: linear
// velocity along the body x-axis (cm/s) and angular velocity (rad/s).
func Forward(vl, vr float64, g Geometry) (vx, omega float64) {
	vx = (vr + vl) / 2
	omega = (vr - vl) / (2 * g.FrameRadiusCM)
	return vx, omega
}

// Inverse maps a desired chassis twist to wheel speeds (cm/s, left/right).
func Inverse(vx, omega float64, g Geometry) (vl, vr float64) {
	vr = vx + omega*g.FrameRadiusCM
	vl = vx - omega*g.FrameRadiusCM
	return vl, vr
}

// InversePwm is Inverse normalized to the [-1, 1] PWM range the motor
// driver expects, clamping on saturation.
func InversePwm(vx, omega float64, g Geometry) (leftPwm, rightPwm float64) {
	vl, vr := Inverse(vx, omega, g)
	if g.MaxWheelSpeedCMS <= 0 {
		return 0, 0
	}
	return clamp(vl/g.MaxWheelSpeedCMS, -1, 1), clamp(vr/g.MaxWheelSpeedCMS, -1, 1)
}

// WheelSpeedFromTicks computes a wheel's linear speed (cm/s) from an
// encoder tick delta over dt seconds. dt == 0 yields 0; dt > 0.5s (a
// stall or scheduling hiccup) is treated as dt == 0 (spec.md §4.K).
func WheelSpeedFromTicks(deltaTicks int64, dt float64, g Geometry) float64 {
	if dt <= 0 || dt > 0.5 {
		return 0
	}
	return 2 * math.Pi * g.WheelRadiusCM * float64(deltaTicks) / (g.PulsesPerRev * g.GearRatio * dt)
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

// Odometry is the gyro-dominant pose estimator: encoders contribute
// translation only, the IMU supplies heading (spec.md §4.K, §9).
type Odometry struct {
	geo Geometry

	X, Y       float64 // cm
	HeadingDeg float64 // [0, 360)

	// EncoderHeadingDelta accumulates the heading change implied by wheel
	// odometry alone. It is never applied to HeadingDeg; it exists purely
	// as a diagnostic to compare against the IMU-derived heading.
	EncoderHeadingDelta float64

	yawOffsetDeg float64

	lastLeftTicks, lastRightTicks int64
	lastTime                      float64
	initialized                   bool

	lastVl, lastVr float64 // most recent measured wheel speeds, cm/s
}

// LastLeftSpeedCMS returns the left wheel speed measured on the most
// recent Update call.
func (o *Odometry) LastLeftSpeedCMS() float64 { return o.lastVl }

// LastRightSpeedCMS returns the right wheel speed measured on the most
// recent Update call.
func (o *Odometry) LastRightSpeedCMS() float64 { return o.lastVr }

func NewOdometry(g Geometry) *Odometry {
	return &Odometry{geo: g}
}

// SetPose resets the integrator's origin and chooses the yaw offset so
// that the next Update reports heading == thetaDeg (spec.md §4.K: "heading
// = -yaw - offset, normalized to [0, 360)").
func (o *Odometry) SetPose(x, y, thetaDeg float64, currentYawDeg float64) {
	o.X, o.Y = x, y
	o.HeadingDeg = normalize360(thetaDeg)
	o.yawOffsetDeg = -currentYawDeg - o.HeadingDeg
	o.EncoderHeadingDelta = 0
}

// Update reads encoders and the IMU, advances the integrated pose, and
// returns the current wheel speeds (cm/s) for callers that need them
// (e.g. the controller's exit condition on zero measured wheel speed).
func (o *Odometry) Update(enc hardware.Encoders, imu hardware.IMU, clk hardware.Clock) (vl, vr float64) {
	now := clk.Now()

	lt := enc.ReadLeftTicks()
	rt := enc.ReadRightTicks()

	if !o.initialized {
		o.lastLeftTicks, o.lastRightTicks, o.lastTime = lt, rt, now
		o.initialized = true
		return 0, 0
	}

	dt := now - o.lastTime
	dnl := lt - o.lastLeftTicks
	dnr := rt - o.lastRightTicks
	o.lastLeftTicks, o.lastRightTicks, o.lastTime = lt, rt, now

	vl = WheelSpeedFromTicks(dnl, dt, o.geo)
	vr = WheelSpeedFromTicks(dnr, dt, o.geo)
	o.lastVl, o.lastVr = vl, vr

	vx, omega := Forward(vl, vr, o.geo)

	headingRad := o.HeadingDeg * math.Pi / 180
	o.X += vx * math.Cos(headingRad) * dt
	o.Y += vx * math.Sin(headingRad) * dt
	o.EncoderHeadingDelta += omega * dt * 180 / math.Pi

	yaw := imu.ReadYawDeg()
	o.HeadingDeg = normalize360(-yaw - o.yawOffsetDeg)

	return vl, vr
}

func normalize360(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}
