// Package config loads runtime configuration for the robot and planner
// binaries from environment variables, with sane defaults for local use.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// RobotConfig holds everything the robot runtime needs: where to listen,
// the chassis geometry, and the controller's speed envelope.
type RobotConfig struct {
	Server     ServerConfig
	Chassis    ChassisConfig
	Controller ControllerConfig
	Telemetry  TelemetryConfig
	Logging    LoggingConfig
}

// PlannerConfig holds everything the planner binary needs: the robot to
// dial, and where map/path files live on disk.
type PlannerConfig struct {
	Connect ConnectConfig
	Files   FilesConfig
	Logging LoggingConfig
}

// ServerConfig is the robot's TCP listen address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ConnectConfig is the planner's dial target.
type ConnectConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ChassisConfig carries the three-wheel omni geometry constants (spec.md §4.K).
type ChassisConfig struct {
	WheelRadiusCM     float64 `mapstructure:"wheel_radius_cm"`
	FrameRadiusCM     float64 `mapstructure:"frame_radius_cm"`
	EncoderPulsesRev  int     `mapstructure:"encoder_pulses_per_rev"`
	GearRatio         float64 `mapstructure:"gear_ratio"`
	MaxMotorSpeedCMPS float64 `mapstructure:"max_motor_speed_cm_per_s"`
}

// ControllerConfig carries the point-to-point controller's tuning knobs
// (spec.md §4.C). DirectionBias is the magic 1.2 forward-preference
// constant, surfaced as config per spec.md's Open Questions.
type ControllerConfig struct {
	LinearToleranceCM     float64 `mapstructure:"linear_tolerance_cm"`
	AngularToleranceDeg   float64 `mapstructure:"angular_tolerance_deg"`
	LinearSlowdownCM      float64 `mapstructure:"linear_slowdown_cm"`
	MaxLinearSpeedCMPS    float64 `mapstructure:"max_linear_speed_cm_per_s"`
	MinLinearSpeedCMPS    float64 `mapstructure:"min_linear_speed_cm_per_s"`
	AngularSlowdownDeg    float64 `mapstructure:"angular_slowdown_deg"`
	MaxAngularSpeedRadS   float64 `mapstructure:"max_angular_speed_rad_per_s"`
	MinAngularSpeedRadS   float64 `mapstructure:"min_angular_speed_rad_per_s"`
	TickMS                int     `mapstructure:"tick_ms"`
	DirectionBias         float64 `mapstructure:"direction_bias"`
	AlignFirstThresholdDeg float64 `mapstructure:"align_first_threshold_deg"`
	SettleMS              int     `mapstructure:"settle_ms"`
	IncludeDerivative     bool    `mapstructure:"include_derivative"`
}

// TelemetryConfig gates the optional WS mirror / Redis event log.
type TelemetryConfig struct {
	MirrorEnabled bool   `mapstructure:"mirror_enabled"`
	MirrorAddr    string `mapstructure:"mirror_addr"`
	RedisURL      string `mapstructure:"redis_url"`
	RedisEnabled  bool   `mapstructure:"redis_enabled"`
}

// FilesConfig is where the planner keeps its persisted map/paths files.
type FilesConfig struct {
	MapPath   string `mapstructure:"map_path"`
	PathsPath string `mapstructure:"paths_path"`
}

// LoggingConfig controls the zap logger's verbosity.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func (c *ControllerConfig) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c *ControllerConfig) Settle() time.Duration {
	return time.Duration(c.SettleMS) * time.Millisecond
}

// LoadRobot reads ROBOT_* environment variables, defaulting to values drawn
// from spec.md §4.K/§4.C where the wire/CAD units don't already settle them.
func LoadRobot() (*RobotConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("ROBOT")
	v.AutomaticEnv()

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 5800)

	v.SetDefault("WHEEL_RADIUS_CM", 3.25)
	v.SetDefault("FRAME_RADIUS_CM", 15.0)
	v.SetDefault("ENCODER_PULSES_PER_REV", 480)
	v.SetDefault("GEAR_RATIO", 1.0)
	v.SetDefault("MAX_MOTOR_SPEED_CM_PER_S", 60.0)

	v.SetDefault("LINEAR_TOLERANCE_CM", 3.0)
	v.SetDefault("ANGULAR_TOLERANCE_DEG", 2.0)
	v.SetDefault("LINEAR_SLOWDOWN_CM", 10.0)
	v.SetDefault("MAX_LINEAR_SPEED_CM_PER_S", 30.0)
	v.SetDefault("MIN_LINEAR_SPEED_CM_PER_S", 7.5)
	v.SetDefault("ANGULAR_SLOWDOWN_DEG", 10.0)
	v.SetDefault("MAX_ANGULAR_SPEED_RAD_PER_S", 1.5)
	v.SetDefault("MIN_ANGULAR_SPEED_RAD_PER_S", 0.2)
	v.SetDefault("TICK_MS", 20)
	v.SetDefault("DIRECTION_BIAS", 1.2)
	v.SetDefault("ALIGN_FIRST_THRESHOLD_DEG", 10.0)
	v.SetDefault("SETTLE_MS", 250)
	v.SetDefault("INCLUDE_DERIVATIVE", false)

	v.SetDefault("TELEMETRY_MIRROR_ENABLED", false)
	v.SetDefault("TELEMETRY_MIRROR_ADDR", "127.0.0.1:5801")
	v.SetDefault("TELEMETRY_REDIS_ENABLED", false)
	v.SetDefault("TELEMETRY_REDIS_URL", "redis://localhost:6379/0")

	v.SetDefault("LOG_LEVEL", "info")

	cfg := &RobotConfig{
		Server: ServerConfig{
			Host: v.GetString("HOST"),
			Port: v.GetInt("PORT"),
		},
		Chassis: ChassisConfig{
			WheelRadiusCM:     v.GetFloat64("WHEEL_RADIUS_CM"),
			FrameRadiusCM:     v.GetFloat64("FRAME_RADIUS_CM"),
			EncoderPulsesRev:  v.GetInt("ENCODER_PULSES_PER_REV"),
			GearRatio:         v.GetFloat64("GEAR_RATIO"),
			MaxMotorSpeedCMPS: v.GetFloat64("MAX_MOTOR_SPEED_CM_PER_S"),
		},
		Controller: ControllerConfig{
			LinearToleranceCM:      v.GetFloat64("LINEAR_TOLERANCE_CM"),
			AngularToleranceDeg:    v.GetFloat64("ANGULAR_TOLERANCE_DEG"),
			LinearSlowdownCM:       v.GetFloat64("LINEAR_SLOWDOWN_CM"),
			MaxLinearSpeedCMPS:     v.GetFloat64("MAX_LINEAR_SPEED_CM_PER_S"),
			MinLinearSpeedCMPS:     v.GetFloat64("MIN_LINEAR_SPEED_CM_PER_S"),
			AngularSlowdownDeg:     v.GetFloat64("ANGULAR_SLOWDOWN_DEG"),
			MaxAngularSpeedRadS:    v.GetFloat64("MAX_ANGULAR_SPEED_RAD_PER_S"),
			MinAngularSpeedRadS:    v.GetFloat64("MIN_ANGULAR_SPEED_RAD_PER_S"),
			TickMS:                 v.GetInt("TICK_MS"),
			DirectionBias:          v.GetFloat64("DIRECTION_BIAS"),
			AlignFirstThresholdDeg: v.GetFloat64("ALIGN_FIRST_THRESHOLD_DEG"),
			SettleMS:               v.GetInt("SETTLE_MS"),
			IncludeDerivative:      v.GetBool("INCLUDE_DERIVATIVE"),
		},
		Telemetry: TelemetryConfig{
			MirrorEnabled: v.GetBool("TELEMETRY_MIRROR_ENABLED"),
			MirrorAddr:    v.GetString("TELEMETRY_MIRROR_ADDR"),
			RedisEnabled:  v.GetBool("TELEMETRY_REDIS_ENABLED"),
			RedisURL:      v.GetString("TELEMETRY_REDIS_URL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
	return cfg, nil
}

// LoadPlanner reads PLANNER_* environment variables.
func LoadPlanner() (*PlannerConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("PLANNER")
	v.AutomaticEnv()

	v.SetDefault("CONNECT_HOST", "127.0.0.1")
	v.SetDefault("CONNECT_PORT", 5800)
	v.SetDefault("MAP_PATH", "map.json")
	v.SetDefault("PATHS_PATH", "paths.json")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &PlannerConfig{
		Connect: ConnectConfig{
			Host: v.GetString("CONNECT_HOST"),
			Port: v.GetInt("CONNECT_PORT"),
		},
		Files: FilesConfig{
			MapPath:   v.GetString("MAP_PATH"),
			PathsPath: v.GetString("PATHS_PATH"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
	return cfg, nil
}
