package safety

import (
	"math"

	"go.uber.org/zap"
)

// SpeedLimiter clamps a commanded chassis twist to the deployment's
// configured envelope before it reaches inverse kinematics. Grounded on
// the gateway's per-axis velocity clamp, narrowed from a 3-DOF (x, y,
// angular) command to this chassis's 2-DOF (linear, angular) twist.
type SpeedLimiter struct {
	maxLinearCMS  float64
	maxAngularRad float64
	logger        *zap.Logger
}

func NewSpeedLimiter(maxLinearCMS, maxAngularRadS float64, logger *zap.Logger) *SpeedLimiter {
	return &SpeedLimiter{maxLinearCMS: maxLinearCMS, maxAngularRad: maxAngularRadS, logger: logger}
}

// LimitResult is the clamped twist plus whether clamping occurred.
type LimitResult struct {
	LinearCMS  float64
	AngularRad float64
	Clamped    bool
}

// Limit clamps the magnitude of the linear term and the angular term
// independently; it does not rotate either, since DriveToPose already
// shapes them relative to each other via the align-first threshold.
func (s *SpeedLimiter) Limit(linearCMS, angularRadS float64) LimitResult {
	result := LimitResult{LinearCMS: linearCMS, AngularRad: angularRadS}

	if math.Abs(linearCMS) > s.maxLinearCMS {
		if linearCMS > 0 {
			result.LinearCMS = s.maxLinearCMS
		} else {
			result.LinearCMS = -s.maxLinearCMS
		}
		result.Clamped = true
	}
	if math.Abs(angularRadS) > s.maxAngularRad {
		if angularRadS > 0 {
			result.AngularRad = s.maxAngularRad
		} else {
			result.AngularRad = -s.maxAngularRad
		}
		result.Clamped = true
	}

	if result.Clamped && s.logger != nil {
		s.logger.Debug("speed command clamped",
			zap.Float64("req_linear_cms", linearCMS),
			zap.Float64("req_angular_rads", angularRadS),
			zap.Float64("out_linear_cms", result.LinearCMS),
			zap.Float64("out_angular_rads", result.AngularRad),
		)
	}
	return result
}
