// Package safety carries the connection-handling stack's software stop
// latch and command speed envelope into the robot runtime (spec.md §9
// single-robot scope: no multi-robot registry, no per-user locking).
package safety

import (
	"sync"

	"go.uber.org/zap"
)

// Latch is a software emergency stop for the single robot this process
// drives. It composes with hardware.DigitalInputs.StopAsserted: either
// one halts the control loop (controller.go checks both).
type Latch struct {
	mu     sync.RWMutex
	active bool
	reason string
	logger *zap.Logger
}

func NewLatch(logger *zap.Logger) *Latch {
	return &Latch{logger: logger}
}

// Activate trips the latch. Idempotent.
func (l *Latch) Activate(reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = true
	l.reason = reason
	l.logger.Warn("software e-stop activated", zap.String("reason", reason))
}

// Release clears the latch.
func (l *Latch) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		l.logger.Info("software e-stop released", zap.String("reason", l.reason))
	}
	l.active = false
	l.reason = ""
}

// Active reports whether the latch is tripped.
func (l *Latch) Active() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// StopAsserted lets Latch satisfy hardware.DigitalInputs on its own, so
// it can stand in for (or wrap) a hardware stop input in tests.
func (l *Latch) StopAsserted() bool { return l.Active() }

// StartAsserted completes hardware.DigitalInputs; a latch has no start line.
func (l *Latch) StartAsserted() bool { return false }
