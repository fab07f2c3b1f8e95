// Command robot runs the robot-side runtime: the TCP protocol server, the
// point-to-point controller and mission glue, and the optional telemetry
// mirror/event log (spec.md §9: development backend is the in-process
// chassis simulator behind the hardware interfaces).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/omniplanner/pathbridge/internal/config"
	"github.com/omniplanner/pathbridge/internal/controller"
	"github.com/omniplanner/pathbridge/internal/hardware/sim"
	"github.com/omniplanner/pathbridge/internal/kinematics"
	"github.com/omniplanner/pathbridge/internal/logging"
	"github.com/omniplanner/pathbridge/internal/mapmodel"
	mw "github.com/omniplanner/pathbridge/internal/middleware"
	"github.com/omniplanner/pathbridge/internal/protocol"
	"github.com/omniplanner/pathbridge/internal/runtime"
	"github.com/omniplanner/pathbridge/internal/safety"
	"github.com/omniplanner/pathbridge/internal/telemetry"
)

func main() {
	cfg, err := config.LoadRobot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)
	defer logger.Sync()

	logger.Info("starting robot runtime", zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	geo := kinematics.Geometry{
		WheelRadiusCM:    cfg.Chassis.WheelRadiusCM,
		FrameRadiusCM:    cfg.Chassis.FrameRadiusCM,
		PulsesPerRev:     float64(cfg.Chassis.EncoderPulsesRev),
		GearRatio:        cfg.Chassis.GearRatio,
		MaxWheelSpeedCMS: cfg.Chassis.MaxMotorSpeedCMPS,
	}

	chassis := sim.NewChassis(geo.WheelRadiusCM, geo.FrameRadiusCM, geo.PulsesPerRev, geo.MaxWheelSpeedCMS)
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			chassis.Step(0.001)
		}
	}()
	odom := kinematics.NewOdometry(geo)
	store := mapmodel.NewStore()
	latch := safety.NewLatch(logger)
	limiter := safety.NewSpeedLimiter(cfg.Controller.MaxLinearSpeedCMPS, cfg.Controller.MaxAngularSpeedRadS, logger)

	var eventLog *telemetry.EventLog
	if cfg.Telemetry.RedisEnabled {
		eventLog, err = telemetry.NewEventLog(cfg.Telemetry.RedisURL, logger)
		if err != nil {
			logger.Warn("telemetry event log disabled, redis unavailable", zap.Error(err))
			eventLog = nil
		}
	}

	var mirror *telemetry.Mirror
	if cfg.Telemetry.MirrorEnabled {
		mirror = telemetry.NewMirror(logger)
	}

	var robot *runtime.Robot
	ctl := controller.New(cfg.Controller, geo, odom, chassis, chassis, chassis, chassis, chassis,
		func(x, y, headingDeg float64) {
			if robot != nil {
				robot.PublishPoseTick(x, y, headingDeg)
			}
		})
	ctl.SetSafety(latch, limiter)

	robot = runtime.NewRobot(store, ctl, odom, chassis, latch, nil, logger).WithTelemetry(eventLog, mirror)
	server := protocol.NewServer(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), robot, robot.PoseSource, logger)
	robot.SetLifecycle(server)

	if mirror != nil {
		rateLimiter := mw.NewRateLimiter(120, logger)
		mux := http.NewServeMux()
		mux.HandleFunc("/telemetry", mirror.ServeHTTP)
		httpServer := &http.Server{
			Addr:    cfg.Telemetry.MirrorAddr,
			Handler: rateLimiter.Middleware(mw.LoggingMiddleware(logger)(mux)),
		}
		go func() {
			logger.Info("telemetry mirror listening", zap.String("addr", cfg.Telemetry.MirrorAddr))
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("telemetry mirror stopped", zap.Error(err))
			}
		}()
	}

	stopCh := make(chan struct{})
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(stopCh) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutting down")
		close(stopCh)
	case err := <-serveErr:
		if err != nil {
			logger.Error("server exited", zap.Error(err))
		}
	}

	if eventLog != nil {
		_ = eventLog.Close()
	}
	time.Sleep(100 * time.Millisecond)
}
