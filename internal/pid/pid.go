// Package pid implements a reusable SISO PID controller (spec.md §4.D).
package pid

// Controller is a single-input single-output PID block with clamped
// integral and output, a band-limited derivative term, and the
// zero-setpoint force-to-zero rule observed in the source.
type Controller struct {
	KP, KI, KD float64

	OutMin, OutMax float64
	IntMin, IntMax float64

	// KSum bounds the integral accumulator itself (not the integral
	// term): |sumErr| <= OutMax * KSum. Default 2.0.
	KSum float64

	// Tau is the derivative low-pass time constant; T is the sample
	// period. Both default to 0.02s.
	Tau, T float64

	// IncludeDerivative gates whether the computed derivative term is
	// added to the output. The source computes it but never publishes
	// it; spec.md §9 keeps that as the default.
	IncludeDerivative bool

	sumErr   float64
	prevErr  float64
	prevMeas float64
	prevD    float64
}

// New returns a Controller with the source's defaults for KSum/Tau/T.
func New(kP, kI, kD, outMin, outMax, intMin, intMax float64) *Controller {
	return &Controller{
		KP: kP, KI: kI, KD: kD,
		OutMin: outMin, OutMax: outMax,
		IntMin: intMin, IntMax: intMax,
		KSum: 2.0,
		Tau:  0.02,
		T:    0.02,
	}
}

// Calculate computes one PID step (spec.md §4.D). It is pure with respect
// to its arguments and the controller's own stored state.
func (c *Controller) Calculate(measurement, setpoint float64) float64 {
	setpoint = clamp(setpoint, c.OutMin, c.OutMax)
	err := setpoint - measurement

	if err == 0 && c.prevErr == 0 {
		c.sumErr = 0
	} else {
		c.sumErr += err
		bound := c.OutMax * c.KSum
		c.sumErr = clamp(c.sumErr, -bound, bound)
	}

	integral := clamp(c.KI*c.sumErr, c.IntMin, c.IntMax)
	proportional := c.KP * err

	denom := 2*c.Tau + c.T
	var d float64
	if denom != 0 {
		d = -(2*c.KD*(measurement-c.prevMeas) + (2*c.Tau-c.T)*c.prevD) / denom
	}
	c.prevD = d

	out := proportional + integral
	if c.IncludeDerivative {
		out += d
	}
	out = clamp(out, c.OutMin, c.OutMax)

	if setpoint == 0 {
		out = 0
		c.sumErr = 0
	}

	c.prevErr = err
	c.prevMeas = measurement

	return out
}

// Reset zeros all accumulated state.
func (c *Controller) Reset() {
	c.sumErr = 0
	c.prevErr = 0
	c.prevMeas = 0
	c.prevD = 0
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
