package controller

import (
	"math"
	"testing"
	"time"

	"github.com/omniplanner/pathbridge/internal/config"
	"github.com/omniplanner/pathbridge/internal/hardware/sim"
	"github.com/omniplanner/pathbridge/internal/kinematics"
)

func testGeometry() kinematics.Geometry {
	return kinematics.Geometry{
		WheelRadiusCM:    3.25,
		FrameRadiusCM:    15.0,
		PulsesPerRev:     480,
		GearRatio:        1,
		MaxWheelSpeedCMS: 60,
	}
}

func testControllerConfig() config.ControllerConfig {
	return config.ControllerConfig{
		LinearToleranceCM:      3.0,
		AngularToleranceDeg:    2.0,
		LinearSlowdownCM:       10.0,
		MaxLinearSpeedCMPS:     30.0,
		MinLinearSpeedCMPS:     7.5,
		AngularSlowdownDeg:     10.0,
		MaxAngularSpeedRadS:    1.5,
		MinAngularSpeedRadS:    0.2,
		TickMS:                 2,
		DirectionBias:          1.2,
		AlignFirstThresholdDeg: 10.0,
		SettleMS:               5,
		IncludeDerivative:      false,
	}
}

// runSim advances the simulated chassis in the background until stop is
// closed, approximating the real robot's physics clock.
func runSim(chassis *sim.Chassis, stop <-chan struct{}) {
	const dt = 0.001
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			chassis.Step(dt)
		}
	}
}

func newTestController(chassis *sim.Chassis) *Controller {
	geo := testGeometry()
	odom := kinematics.NewOdometry(geo)

	return New(testControllerConfig(), geo, odom, chassis, chassis, chassis, chassis, chassis,
		func(x, y, headingDeg float64) {})
}

func TestDriveToPoseReachesToleranceAndTerminates(t *testing.T) {
	chassis := sim.NewChassis(3.25, 15.0, 480, 60)
	stop := make(chan struct{})
	go runSim(chassis, stop)
	defer close(stop)

	c := newTestController(chassis)

	done := make(chan struct{})
	go func() {
		c.DriveToPose(50, 0, NoHeadingGoal)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("driveToPose did not terminate")
	}

	x, y, _ := chassis.GroundTruthPose()
	dist := math.Hypot(50-x, 0-y)
	if dist > 3.0+1e-6 {
		t.Errorf("final distance to goal = %f, want <= linearTolerance", dist)
	}
}

func TestLinearIncrementFrontMovesAlongHeading(t *testing.T) {
	chassis := sim.NewChassis(3.25, 15.0, 480, 60)
	stop := make(chan struct{})
	go runSim(chassis, stop)
	defer close(stop)

	c := newTestController(chassis)

	done := make(chan struct{})
	go func() {
		c.LinearIncrement(30, Front)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("linearIncrement did not terminate")
	}

	x, y, _ := chassis.GroundTruthPose()
	if x < 20 {
		t.Errorf("expected to have moved ~30cm forward, x = %f", x)
	}
	if math.Abs(y) > 5 {
		t.Errorf("expected negligible lateral drift, y = %f", y)
	}
}
