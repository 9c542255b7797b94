package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"pawnarena/world"
)

// ErrInvalid 配置校验失败
var ErrInvalid = errors.New("invalid config")

// Config 服务整体配置（YAML）
type Config struct {
	Addr  string      `yaml:"addr"`
	Log   LogConfig   `yaml:"log"`
	Room  RoomConfig  `yaml:"room"`
	World WorldConfig `yaml:"world"`
}

// LogConfig 日志输出与滚动策略
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// RoomConfig 房间运行参数；Tunables 部分支持热更新
type RoomConfig struct {
	Default         string `yaml:"default"`
	TicksPerSecond  int    `yaml:"ticksPerSecond"`
	FramesPerSecond int    `yaml:"framesPerSecond"`
	Tunables        `yaml:",inline"`
}

// Tunables 可在运行中调整的房间参数
type Tunables struct {
	MaxInputsPerTick int     `yaml:"maxInputsPerTick" json:"maxInputsPerTick"`
	FieldOfView      float64 `yaml:"fieldOfView" json:"fieldOfView"`
	DebugOverlay     bool    `yaml:"debugOverlay" json:"debugOverlay"`
}

// WorldConfig 参考世界：出生点、重力与静态盒子
type WorldConfig struct {
	Spawn   mgl64.Vec3  `yaml:"spawn"`
	Gravity float64     `yaml:"gravity"`
	Boxes   []world.Box `yaml:"boxes"`
}

// Default 内置默认配置：一块地面加四面围墙
func Default() Config {
	return Config{
		Addr: ":8080",
		Log: LogConfig{
			File:       "app.log",
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Room: RoomConfig{
			Default:         "room-1",
			TicksPerSecond:  60,
			FramesPerSecond: 30,
			Tunables: Tunables{
				MaxInputsPerTick: 8,
				FieldOfView:      90,
				DebugOverlay:     true,
			},
		},
		World: WorldConfig{
			Spawn:   mgl64.Vec3{0, 0, 64},
			Gravity: world.DefaultGravity,
			Boxes: []world.Box{
				{Name: "floor", Min: mgl64.Vec3{-2048, -2048, -64}, Max: mgl64.Vec3{2048, 2048, 0}},
				{Name: "wall-north", Min: mgl64.Vec3{2048, -2048, 0}, Max: mgl64.Vec3{2112, 2048, 512}},
				{Name: "wall-south", Min: mgl64.Vec3{-2112, -2048, 0}, Max: mgl64.Vec3{-2048, 2048, 512}},
				{Name: "wall-west", Min: mgl64.Vec3{-2048, 2048, 0}, Max: mgl64.Vec3{2048, 2112, 512}},
				{Name: "wall-east", Min: mgl64.Vec3{-2048, -2112, 0}, Max: mgl64.Vec3{2048, -2048, 512}},
			},
		},
	}
}

// Load 读取 YAML 并覆盖默认值；path 为空时返回默认配置
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Parse(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 在 cfg 现有值之上解码 YAML 并校验
func Parse(b []byte, cfg *Config) error {
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return cfg.Validate()
}

// Validate 校验取值范围
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is empty", ErrInvalid)
	case c.Room.Default == "":
		return fmt.Errorf("%w: room.default is empty", ErrInvalid)
	case c.Room.TicksPerSecond <= 0 || c.Room.TicksPerSecond > 1000:
		return fmt.Errorf("%w: room.ticksPerSecond %d out of range (1..1000)", ErrInvalid, c.Room.TicksPerSecond)
	case c.Room.FramesPerSecond <= 0 || c.Room.FramesPerSecond > c.Room.TicksPerSecond:
		return fmt.Errorf("%w: room.framesPerSecond %d out of range (1..ticksPerSecond)", ErrInvalid, c.Room.FramesPerSecond)
	case c.Room.TicksPerSecond%c.Room.FramesPerSecond != 0:
		// 观看侧帧每 N 个 Tick 跑一次，N 必须为整数
		return fmt.Errorf("%w: room.ticksPerSecond %d is not a multiple of framesPerSecond %d",
			ErrInvalid, c.Room.TicksPerSecond, c.Room.FramesPerSecond)
	case c.World.Gravity < 0:
		return fmt.Errorf("%w: world.gravity must not be negative", ErrInvalid)
	}
	if err := c.Room.Tunables.Validate(); err != nil {
		return err
	}
	for i, b := range c.World.Boxes {
		if !b.Valid() {
			return fmt.Errorf("%w: world.boxes[%d] (%q) min must be below max", ErrInvalid, i, b.Name)
		}
	}
	return nil
}

// Validate 校验可热更新的参数
func (t Tunables) Validate() error {
	if t.MaxInputsPerTick <= 0 {
		return fmt.Errorf("%w: maxInputsPerTick must be positive", ErrInvalid)
	}
	if t.FieldOfView <= 0 || t.FieldOfView >= 180 {
		return fmt.Errorf("%w: fieldOfView %.1f out of range (0..180)", ErrInvalid, t.FieldOfView)
	}
	return nil
}
