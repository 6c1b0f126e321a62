// Package config loads handboard settings from TOML and the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/handboard/internal/app"
	"github.com/ayusman/handboard/internal/capture"
	"github.com/ayusman/handboard/internal/detector"
	"github.com/ayusman/handboard/internal/engine"
	"github.com/ayusman/handboard/internal/gesture"
	"github.com/ayusman/handboard/internal/render"
	"github.com/ayusman/handboard/internal/route"
	"github.com/ayusman/handboard/internal/view"
)

// ErrUnknownSetting is returned by Apply for keys that cannot be tuned.
var ErrUnknownSetting = errors.New("unknown setting")

// Config holds application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Camera   CameraConfig   `mapstructure:"camera"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Gesture  GestureConfig  `mapstructure:"gesture"`
	Mode     ModeConfig     `mapstructure:"mode"`
	Stroke   StrokeConfig   `mapstructure:"stroke"`
	Erase    EraseConfig    `mapstructure:"erase"`
	View     ViewConfig     `mapstructure:"view"`
	Render   RenderConfig   `mapstructure:"render"`
	UI       UIConfig       `mapstructure:"ui"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// WebDir serves static files at / when set.
	WebDir string `mapstructure:"web_dir"`
	// BoardInterval throttles snapshot broadcasts to board clients.
	BoardInterval time.Duration `mapstructure:"board_interval"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CameraConfig holds capture settings.
type CameraConfig struct {
	Device          int           `mapstructure:"device"`
	Width           int           `mapstructure:"width"`
	Height          int           `mapstructure:"height"`
	Mirror          bool          `mapstructure:"mirror"`
	IdleFPS         int           `mapstructure:"idle_fps"`
	ActiveFPS       int           `mapstructure:"active_fps"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MotionThreshold float64       `mapstructure:"motion_threshold"`
}

// TrackingConfig holds hand detector settings.
type TrackingConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	MaxHands        int     `mapstructure:"max_hands"`
	MinDetection    float64 `mapstructure:"min_detection"`
	MinTracking     float64 `mapstructure:"min_tracking"`
	StableHandOrder bool    `mapstructure:"stable_hand_order"`
}

// GestureConfig holds classifier thresholds.
type GestureConfig struct {
	PinchThreshold float64 `mapstructure:"pinch_threshold"`
	FistCurlRatio  float64 `mapstructure:"fist_curl_ratio"`
	FistThumbRatio float64 `mapstructure:"fist_thumb_ratio"`
}

// ModeConfig holds mode hysteresis windows.
type ModeConfig struct {
	Cooldown          time.Duration `mapstructure:"cooldown"`
	RotateToDrawBlock time.Duration `mapstructure:"rotate_to_draw_block"`
}

// StrokeConfig holds stroke construction parameters.
type StrokeConfig struct {
	Smoothing        float64 `mapstructure:"smoothing"`
	MinStep          float64 `mapstructure:"min_step"`
	DuplicateEpsilon float64 `mapstructure:"duplicate_epsilon"`
	RebuildEvery     int     `mapstructure:"rebuild_every"`
	StraightenDeg    float64 `mapstructure:"straighten_deg"`
	SnapFactor       float64 `mapstructure:"snap_factor"`
	MinSegments      int     `mapstructure:"min_segments"`
	SegmentsPerPoint int     `mapstructure:"segments_per_point"`
}

// EraseConfig holds eraser parameters.
type EraseConfig struct {
	HoverRadius float64       `mapstructure:"hover_radius"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

// ViewConfig holds rotate/zoom parameters and the initial camera.
type ViewConfig struct {
	RotateSensitivity float64 `mapstructure:"rotate_sensitivity"`
	RotateSmoothing   float64 `mapstructure:"rotate_smoothing"`
	MinPitch          float64 `mapstructure:"min_pitch"`
	MaxPitch          float64 `mapstructure:"max_pitch"`
	ZoomSensitivity   float64 `mapstructure:"zoom_sensitivity"`
	MinDistance       float64 `mapstructure:"min_distance"`
	MaxDistance       float64 `mapstructure:"max_distance"`
	InitialDistance   float64 `mapstructure:"initial_distance"`
	FOVDegrees        float64 `mapstructure:"fov_deg"`
	Aspect            float64 `mapstructure:"aspect"`
}

// RenderConfig holds tube mesh and frame loop settings.
type RenderConfig struct {
	TubeRadius float64       `mapstructure:"tube_radius"`
	Radial     int           `mapstructure:"radial"`
	TickRate   int           `mapstructure:"tick_rate"`
	CursorEase time.Duration `mapstructure:"cursor_ease"`
}

// UIConfig holds desktop integration settings.
type UIConfig struct {
	Tray bool `mapstructure:"tray"`
}

func setDefaults(v *viper.Viper) {
	home := os.Getenv("HOME")

	v.SetDefault("server.addr", "127.0.0.1:8420")
	v.SetDefault("server.web_dir", "")
	v.SetDefault("server.board_interval", 66*time.Millisecond)

	v.SetDefault("database.path", filepath.Join(home, ".handboard", "handboard.db"))

	v.SetDefault("camera.device", capture.DefaultDevice)
	v.SetDefault("camera.width", capture.DefaultWidth)
	v.SetDefault("camera.height", capture.DefaultHeight)
	v.SetDefault("camera.mirror", true)
	v.SetDefault("camera.idle_fps", app.DefaultIdleFPS)
	v.SetDefault("camera.active_fps", app.DefaultActiveFPS)
	v.SetDefault("camera.idle_timeout", app.DefaultIdleTimeout)
	v.SetDefault("camera.motion_threshold", capture.DefaultMotionThreshold)

	v.SetDefault("tracking.enabled", true)
	v.SetDefault("tracking.max_hands", detector.MaxHands)
	v.SetDefault("tracking.min_detection", 0.5)
	v.SetDefault("tracking.min_tracking", 0.5)
	v.SetDefault("tracking.stable_hand_order", false)

	v.SetDefault("gesture.pinch_threshold", gesture.DefaultPinchThreshold)
	v.SetDefault("gesture.fist_curl_ratio", gesture.DefaultFistCurlRatio)
	v.SetDefault("gesture.fist_thumb_ratio", gesture.DefaultFistThumbRatio)

	v.SetDefault("mode.cooldown", engine.DefaultModeCooldown)
	v.SetDefault("mode.rotate_to_draw_block", engine.DefaultRotateToDrawBlock)

	v.SetDefault("stroke.smoothing", route.DefaultSmoothing)
	v.SetDefault("stroke.min_step", route.DefaultMinStep)
	v.SetDefault("stroke.duplicate_epsilon", route.DefaultDuplicateEpsilon)
	v.SetDefault("stroke.rebuild_every", route.DefaultRebuildEvery)
	v.SetDefault("stroke.straighten_deg", route.DefaultStraightenDeg)
	v.SetDefault("stroke.snap_factor", route.DefaultSnapFactor)
	v.SetDefault("stroke.min_segments", route.DefaultMinSegments)
	v.SetDefault("stroke.segments_per_point", route.DefaultSegmentsPerPoint)

	v.SetDefault("erase.hover_radius", route.DefaultHoverRadius)
	v.SetDefault("erase.cooldown", route.DefaultEraseCooldown)

	v.SetDefault("view.rotate_sensitivity", view.DefaultRotateSensitivity)
	v.SetDefault("view.rotate_smoothing", view.DefaultRotateSmoothing)
	v.SetDefault("view.min_pitch", view.DefaultMinPitch)
	v.SetDefault("view.max_pitch", view.DefaultMaxPitch)
	v.SetDefault("view.zoom_sensitivity", view.DefaultZoomSensitivity)
	v.SetDefault("view.min_distance", view.DefaultMinDistance)
	v.SetDefault("view.max_distance", view.DefaultMaxDistance)
	v.SetDefault("view.initial_distance", engine.DefaultDistance)
	v.SetDefault("view.fov_deg", 50.0)
	v.SetDefault("view.aspect", engine.DefaultAspect)

	v.SetDefault("render.tube_radius", render.DefaultRadius)
	v.SetDefault("render.radial", render.DefaultRadial)
	v.SetDefault("render.tick_rate", 60)
	v.SetDefault("render.cursor_ease", engine.DefaultCursorEase)

	v.SetDefault("ui.tray", true)
}

// Load reads configuration from file and env. Env var overrides use prefix
// HANDBOARD_, with dots replaced by underscores (HANDBOARD_VIEW_ZOOM_SENSITIVITY).
// HANDBOARD_CONFIG names an explicit config file; otherwise
// ~/.config/handboard/config.toml is read if present.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if path := os.Getenv("HANDBOARD_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "handboard"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("HANDBOARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults are all well-typed; Unmarshal cannot fail on them.
	_ = v.Unmarshal(&c)
	return c
}

// Apply overrides one runtime-tunable setting.
func (c *Config) Apply(key string, value float64) error {
	switch key {
	case engine.KeyPinchThreshold:
		c.Gesture.PinchThreshold = value
	case engine.KeyFistCurlRatio:
		c.Gesture.FistCurlRatio = value
	case engine.KeyFistThumbRatio:
		c.Gesture.FistThumbRatio = value
	case engine.KeyHoverRadius:
		c.Erase.HoverRadius = value
	case engine.KeyRotateSensitivity:
		c.View.RotateSensitivity = value
	case engine.KeyZoomSensitivity:
		c.View.ZoomSensitivity = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return nil
}

// Tunings returns the current value of every runtime-tunable setting.
func (c Config) Tunings() map[string]float64 {
	return map[string]float64{
		engine.KeyPinchThreshold:    c.Gesture.PinchThreshold,
		engine.KeyFistCurlRatio:     c.Gesture.FistCurlRatio,
		engine.KeyFistThumbRatio:    c.Gesture.FistThumbRatio,
		engine.KeyHoverRadius:       c.Erase.HoverRadius,
		engine.KeyRotateSensitivity: c.View.RotateSensitivity,
		engine.KeyZoomSensitivity:   c.View.ZoomSensitivity,
	}
}

// ApplyAll applies every override and returns the keys it skipped.
func (c *Config) ApplyAll(overrides map[string]float64) []string {
	var skipped []string
	for k, v := range overrides {
		if err := c.Apply(k, v); err != nil {
			skipped = append(skipped, k)
		}
	}
	return skipped
}

// EngineConfig maps the loaded settings onto the interaction engine.
func (c Config) EngineConfig() engine.Config {
	e := engine.DefaultConfig()
	e.Timing = engine.Timing{
		Cooldown:          c.Mode.Cooldown,
		RotateToDrawBlock: c.Mode.RotateToDrawBlock,
	}
	e.Gesture = gesture.Config{
		PinchThreshold: c.Gesture.PinchThreshold,
		FistCurlRatio:  c.Gesture.FistCurlRatio,
		FistThumbRatio: c.Gesture.FistThumbRatio,
	}
	e.Route = route.Config{
		Smoothing:        c.Stroke.Smoothing,
		MinStep:          c.Stroke.MinStep,
		DuplicateEpsilon: c.Stroke.DuplicateEpsilon,
		RebuildEvery:     c.Stroke.RebuildEvery,
		StraightenDeg:    c.Stroke.StraightenDeg,
		SnapFactor:       c.Stroke.SnapFactor,
		MinSegments:      c.Stroke.MinSegments,
		SegmentsPerPoint: c.Stroke.SegmentsPerPoint,
		HoverRadius:      c.Erase.HoverRadius,
		EraseCooldown:    c.Erase.Cooldown,
	}
	e.View = view.Config{
		RotateSensitivity: c.View.RotateSensitivity,
		RotateSmoothing:   c.View.RotateSmoothing,
		MinPitch:          c.View.MinPitch,
		MaxPitch:          c.View.MaxPitch,
		ZoomSensitivity:   c.View.ZoomSensitivity,
		MinDistance:       c.View.MinDistance,
		MaxDistance:       c.View.MaxDistance,
	}
	e.Mirror = c.Camera.Mirror
	e.StableHandOrder = c.Tracking.StableHandOrder
	e.CameraDirection = r3.Vec{Y: 0.8, Z: 1}
	e.CameraDistance = c.View.InitialDistance
	e.FOV = c.View.FOVDegrees * math.Pi / 180
	e.Aspect = c.View.Aspect
	if c.Render.TickRate > 0 {
		e.TickInterval = time.Second / time.Duration(c.Render.TickRate)
	}
	e.CursorEase = c.Render.CursorEase
	return e
}

// AppConfig maps the loaded settings onto the tracking pipeline.
func (c Config) AppConfig() app.Config {
	return app.Config{
		Camera: capture.Config{
			Device: c.Camera.Device,
			Width:  c.Camera.Width,
			Height: c.Camera.Height,
			FPS:    c.Camera.IdleFPS,
		},
		Detector: detector.Config{
			MaxHands:        c.Tracking.MaxHands,
			MinConfidence:   c.Tracking.MinDetection,
			MinTrackingConf: c.Tracking.MinTracking,
		},
		IdleFPS:         c.Camera.IdleFPS,
		ActiveFPS:       c.Camera.ActiveFPS,
		IdleTimeout:     c.Camera.IdleTimeout,
		MotionThreshold: c.Camera.MotionThreshold,
	}
}
