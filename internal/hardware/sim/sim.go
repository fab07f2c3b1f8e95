// Package sim provides an in-process simulated chassis implementing the
// hardware collaborator interfaces, grounded on the teacher's mock adapter:
// a mutex-guarded pose/velocity model advanced by a physics goroutine,
// with encoders and IMU derived from that model rather than a real bus.
package sim

import (
	"math"
	"sync"
	"time"
)

// Chassis simulates a differential-drive base: commanded wheel PWMs set
// the wheel speeds directly (no response lag), integrated into pose on a
// fixed tick.
// It implements hardware.MotorDriver, hardware.Encoders, hardware.IMU,
// hardware.DigitalInputs and hardware.Clock.
type Chassis struct {
	mu sync.Mutex

	wheelRadiusCM    float64
	frameRadiusCM    float64
	pulsesPerRev     float64
	maxWheelSpeedCMS float64

	leftPwm  float64
	rightPwm float64

	leftTicks  int64
	rightTicks int64

	x, y, headingDeg float64
	yawOffsetDeg     float64

	stop  bool
	start bool

	startTime time.Time
}

func NewChassis(wheelRadiusCM, frameRadiusCM, pulsesPerRev, maxWheelSpeedCMS float64) *Chassis {
	return &Chassis{
		wheelRadiusCM:    wheelRadiusCM,
		frameRadiusCM:    frameRadiusCM,
		pulsesPerRev:     pulsesPerRev,
		maxWheelSpeedCMS: maxWheelSpeedCMS,
		startTime:        time.Now(),
	}
}

// Step advances the simulation by dt seconds: wheel PWM -> wheel speed ->
// body twist -> pose integration -> encoder ticks.
func (c *Chassis) Step(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vl := c.leftPwm * c.maxWheelSpeedCMS
	vr := c.rightPwm * c.maxWheelSpeedCMS

	dnl := vl * dt * c.pulsesPerRev / (2 * math.Pi * c.wheelRadiusCM)
	dnr := vr * dt * c.pulsesPerRev / (2 * math.Pi * c.wheelRadiusCM)
	c.leftTicks += int64(math.Round(dnl))
	c.rightTicks += int64(math.Round(dnr))

	vx := (vl + vr) / 2
	omega := (vr - vl) / (2 * c.frameRadiusCM)

	headingRad := c.headingDeg * math.Pi / 180
	c.x += vx * math.Cos(headingRad) * dt
	c.y += vx * math.Sin(headingRad) * dt
	c.headingDeg += omega * dt * 180 / math.Pi
	c.headingDeg = math.Mod(c.headingDeg, 360)
	if c.headingDeg < 0 {
		c.headingDeg += 360
	}
}

func (c *Chassis) SetLeftPwm(x float64)  { c.mu.Lock(); c.leftPwm = clamp(x, -1, 1); c.mu.Unlock() }
func (c *Chassis) SetRightPwm(x float64) { c.mu.Lock(); c.rightPwm = clamp(x, -1, 1); c.mu.Unlock() }
func (c *Chassis) SetBackPwm(float64)      {}
func (c *Chassis) SetElevatorPwm(float64)  {}

func (c *Chassis) ReadLeftTicks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leftTicks
}

func (c *Chassis) ReadRightTicks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rightTicks
}

// ReadYawDeg reports simulated IMU yaw. The sim's internal heading already
// plays the role of ground truth, so yaw is just the negated heading (the
// core applies heading = -yaw - offset; feeding -heading back cancels to
// heading = heading - offset, matching setPose's intent when offset is 0).
func (c *Chassis) ReadYawDeg() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return -c.headingDeg - c.yawOffsetDeg
}

func (c *Chassis) StopAsserted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop
}

func (c *Chassis) StartAsserted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

func (c *Chassis) SetStop(v bool) {
	c.mu.Lock()
	c.stop = v
	c.mu.Unlock()
}

func (c *Chassis) SetStart(v bool) {
	c.mu.Lock()
	c.start = v
	c.mu.Unlock()
}

// SetYawOffset lets a test pin the simulated IMU's zero point, mirroring
// setPose's offset parameter (spec.md §4.K, §9).
func (c *Chassis) SetYawOffset(offsetDeg float64) {
	c.mu.Lock()
	c.yawOffsetDeg = offsetDeg
	c.mu.Unlock()
}

func (c *Chassis) Now() float64 {
	return time.Since(c.startTime).Seconds()
}

// GroundTruthPose returns the simulator's exact pose, for tests only — the
// core never has access to this, only to encoders/IMU.
func (c *Chassis) GroundTruthPose() (x, y, headingDeg float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.x, c.y, c.headingDeg
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
