// Package telemetry mirrors the robot's pose and mission events to
// observers that are outside the planner<->robot control path: a Redis
// stream for durable history, and a read-only websocket fan-out for
// live dashboards. Neither is on the control path (spec.md's wire
// protocol stays JSON over the planner TCP connection); both are best
// effort.
package telemetry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	poseStream    = "pathbridge:pose"
	missionStream = "pathbridge:mission_events"
	streamMaxLen  = 100000
)

// EventLog appends pose samples and mission lifecycle events to Redis
// streams, msgpack-encoded. Grounded on the gateway's Redis XAdd
// publisher, narrowed from a per-robot-ID fan-out to this process's
// single robot.
type EventLog struct {
	client *redis.Client
	logger *zap.Logger
}

func NewEventLog(redisURL string, logger *zap.Logger) (*EventLog, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("telemetry: invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("telemetry: redis connection failed: %w", err)
	}
	logger.Info("telemetry event log connected to redis")
	return &EventLog{client: client, logger: logger}, nil
}

// PoseSample is one pose observation, timestamped by the caller.
type PoseSample struct {
	TimestampUnix float64 `msgpack:"ts"`
	X             float64 `msgpack:"x"`
	Y             float64 `msgpack:"y"`
	HeadingDeg    float64 `msgpack:"heading_deg"`
}

// PublishPose records a pose sample. Errors are logged, not returned:
// telemetry loss must never stall the control loop.
func (l *EventLog) PublishPose(ctx context.Context, sample PoseSample) {
	payload, err := msgpack.Marshal(sample)
	if err != nil {
		l.logger.Warn("telemetry: encode pose failed", zap.Error(err))
		return
	}
	err = l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: poseStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).Err()
	if err != nil {
		l.logger.Warn("telemetry: publish pose failed", zap.Error(err))
	}
}

// MissionEvent records a path-execution lifecycle transition.
type MissionEvent struct {
	TimestampUnix float64 `msgpack:"ts"`
	PathName      string  `msgpack:"path_name"`
	Phase         string  `msgpack:"phase"` // "started" | "finished"
	Success       bool    `msgpack:"success"`
}

func (l *EventLog) PublishMissionEvent(ctx context.Context, ev MissionEvent) {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		l.logger.Warn("telemetry: encode mission event failed", zap.Error(err))
		return
	}
	err = l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: missionStream,
		MaxLen: streamMaxLen / 10,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}).Err()
	if err != nil {
		l.logger.Warn("telemetry: publish mission event failed", zap.Error(err))
	}
}

func (l *EventLog) Close() error {
	return l.client.Close()
}
