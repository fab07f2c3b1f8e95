package pid

import "testing"

func TestOutputBounded(t *testing.T) {
	c := New(5, 5, 0, -1, 1, -1, 1)
	for i := 0; i < 50; i++ {
		out := c.Calculate(0, 1)
		if out < -1 || out > 1 {
			t.Fatalf("out = %f out of bounds on iteration %d", out, i)
		}
	}
}

func TestZeroSetpointForcesZeroOutputAndIntegral(t *testing.T) {
	c := New(1, 1, 0, -1, 1, -1, 1)
	c.Calculate(0.5, 1) // build up some integral first
	out := c.Calculate(0.5, 0)
	if out != 0 {
		t.Errorf("out = %f, want 0", out)
	}
	if c.sumErr != 0 {
		t.Errorf("sumErr = %f, want 0", c.sumErr)
	}
}

func TestIntegralAccumulatorBound(t *testing.T) {
	c := New(0, 1, 0, -1, 1, -100, 100)
	c.KSum = 2.0
	for i := 0; i < 1000; i++ {
		c.Calculate(0, 1)
	}
	bound := c.OutMax * c.KSum
	if c.sumErr > bound+1e-9 || c.sumErr < -bound-1e-9 {
		t.Errorf("sumErr = %f exceeds bound %f", c.sumErr, bound)
	}
}

func TestResetClearsState(t *testing.T) {
	c := New(1, 1, 1, -1, 1, -1, 1)
	c.Calculate(0.2, 1)
	c.Calculate(0.3, 1)
	c.Reset()
	if c.sumErr != 0 || c.prevErr != 0 || c.prevMeas != 0 || c.prevD != 0 {
		t.Errorf("state not cleared after Reset: %+v", c)
	}
}

func TestDerivativeComputedButNotPublishedByDefault(t *testing.T) {
	c := New(0, 0, 10, -100, 100, -100, 100)
	c.Calculate(0, 1)
	out := c.Calculate(1, 1) // measurement jumps, would push derivative hard
	if out != 0 {
		t.Errorf("out = %f, want 0 (derivative excluded by default)", out)
	}
	if c.prevD == 0 {
		t.Error("expected prevD to have been computed even though unpublished")
	}
}

func TestIncludeDerivativeFlagAddsDTerm(t *testing.T) {
	c := New(0, 0, 10, -100, 100, -100, 100)
	c.IncludeDerivative = true
	c.Calculate(0, 1)
	out := c.Calculate(1, 1)
	if out == 0 {
		t.Error("expected nonzero output once derivative is included")
	}
}
