package models

import "time"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	URL         string        `yaml:"url"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

type HTTPConfig struct {
	Port string `yaml:"port"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// TrackingConfig holds the tuning knobs of the live-tracking core.
type TrackingConfig struct {
	AllowDirectEnRoute bool          `yaml:"allow_direct_en_route"`
	WindowSize         int           `yaml:"window_size"`
	DefaultSpeedMps    float64       `yaml:"default_speed_mps"`
	ArrivedRadiusM     float64       `yaml:"arrived_radius_m"`
	MinSpeedMps        float64       `yaml:"min_speed_mps"`
	MaxETASeconds      float64       `yaml:"max_eta_seconds"`
	SendBuffer         int           `yaml:"send_buffer"`
	SinkBuffer         int           `yaml:"sink_buffer"`
	WSAuthTimeout      time.Duration `yaml:"ws_auth_timeout"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Tracking TrackingConfig `yaml:"tracking"`
}
