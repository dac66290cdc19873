// Package config loads service settings and controller tuning with viper.
package config

import (
	"fmt"
	"strings"

	"reflow_oven/internal/controller"
	"reflow_oven/internal/pid"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Tuning keys. All four are required.
const (
	KeySamplingHz    = "sampling_hz"
	KeyPreheatUntil  = "advanced_temp_tuning.preheat_until"
	KeyProvisioning  = "advanced_temp_tuning.provisioning"
	KeyOvershootComp = "advanced_temp_tuning.overshoot_comp"
)

// Sensor and heater backends.
const (
	KindSimulated = "simulated"
	KindSerial    = "serial"
	KindGPIO      = "gpio"
)

// Settings is everything outside the tuning block.
type Settings struct {
	Port        string            `mapstructure:"port"`
	DB          DBSettings        `mapstructure:"db"`
	Log         LogSettings       `mapstructure:"log"`
	Auth        AuthSettings      `mapstructure:"auth"`
	Profile     ProfileSettings   `mapstructure:"profile"`
	Sensor      SensorSettings    `mapstructure:"sensor"`
	Heater      HeaterSettings    `mapstructure:"heater"`
	MQTT        MQTTSettings      `mapstructure:"mqtt"`
	Metrics     MetricsSettings   `mapstructure:"metrics"`
	Simulator   SimulatorSettings `mapstructure:"simulator"`
	PID         pid.Config        `mapstructure:"pid"`
	// TelemetryQueue bounds the display update queue.
	TelemetryQueue int `mapstructure:"telemetry_queue"`
}

type DBSettings struct {
	Path string `mapstructure:"path"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
}

type AuthSettings struct {
	SigningKey string `mapstructure:"signing_key"`
}

type ProfileSettings struct {
	Path string `mapstructure:"path"`
}

// SensorSettings selects the thermocouple backend and plausible range.
type SensorSettings struct {
	Kind   string         `mapstructure:"kind"`
	MinC   float64        `mapstructure:"min_c"`
	MaxC   float64        `mapstructure:"max_c"`
	Serial SerialSettings `mapstructure:"serial"`
}

type SerialSettings struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// HeaterSettings selects the relay backend.
type HeaterSettings struct {
	Kind      string `mapstructure:"kind"`
	Chip      string `mapstructure:"chip"`
	Line      int    `mapstructure:"line"`
	ActiveLow bool   `mapstructure:"active_low"`
}

// MQTTSettings configures alert and telemetry publishing. An empty broker
// disables MQTT.
type MQTTSettings struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type MetricsSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// SimulatorSettings parameterises the simulated oven.
type SimulatorSettings struct {
	AmbientC      float64 `mapstructure:"ambient_c"`
	HeatRateCPerS float64 `mapstructure:"heat_rate_c_per_s"`
	CoolCoeffPerS float64 `mapstructure:"cool_coeff_per_s"`
	InitialC      float64 `mapstructure:"initial_c"`
}

// SetDefaults registers defaults for every optional key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("profile.path", "configs/profiles/sn63pb37.yml")
	v.SetDefault("sensor.kind", KindSimulated)
	v.SetDefault("sensor.min_c", controller.DefaultSensorRange.MinC)
	v.SetDefault("sensor.max_c", controller.DefaultSensorRange.MaxC)
	v.SetDefault("sensor.serial.baud", 115200)
	v.SetDefault("heater.kind", KindSimulated)
	v.SetDefault("heater.chip", "gpiochip0")
	v.SetDefault("mqtt.client_id", "reflow-oven")
	v.SetDefault("mqtt.topic_prefix", "reflow/oven")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("simulator.ambient_c", 25.0)
	v.SetDefault("simulator.heat_rate_c_per_s", 2.2)
	v.SetDefault("simulator.cool_coeff_per_s", 0.012)
	v.SetDefault("simulator.initial_c", 25.0)
	v.SetDefault("telemetry_queue", 256)

	d := pid.Default()
	v.SetDefault("pid.kp", d.Kp)
	v.SetDefault("pid.ki", d.Ki)
	v.SetDefault("pid.kd", d.Kd)
	v.SetDefault("pid.output_min", d.OutputMin)
	v.SetDefault("pid.output_max", d.OutputMax)
}

// Load reads the config file. An empty path searches configs/config.yml.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	if path == "" {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	} else {
		v.SetConfigFile(path)
	}
	v.SetEnvPrefix("REFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// LoadSettings decodes the service settings.
func LoadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.PID.SampleSeconds = pid.Default().SampleSeconds
	if hz, err := cast.ToFloat64E(v.Get(KeySamplingHz)); err == nil && hz > 0 {
		s.PID.SampleSeconds = 1 / hz
	}
	if err := s.PID.Validate(); err != nil {
		return Settings{}, err
	}
	if s.Sensor.MaxC <= s.Sensor.MinC {
		return Settings{}, &controller.ConfigError{Key: "sensor.max_c", Reason: "must exceed sensor.min_c"}
	}
	if s.Profile.Path == "" {
		return Settings{}, &controller.ConfigError{Key: "profile.path", Reason: "missing"}
	}
	return s, nil
}

// LoadTuning reads the required tuning block. A missing or non-numeric key is
// a *controller.ConfigError.
func LoadTuning(v *viper.Viper) (controller.TuningConfig, error) {
	hz, err := requireFloat(v, KeySamplingHz)
	if err != nil {
		return controller.TuningConfig{}, err
	}
	preheat, err := requireFloat(v, KeyPreheatUntil)
	if err != nil {
		return controller.TuningConfig{}, err
	}
	prov, err := requireInt(v, KeyProvisioning)
	if err != nil {
		return controller.TuningConfig{}, err
	}
	overshoot, err := requireFloat(v, KeyOvershootComp)
	if err != nil {
		return controller.TuningConfig{}, err
	}

	t := controller.TuningConfig{
		SamplingHz:                hz,
		PreheatUntilTemp:          preheat,
		ProvisioningOffsetSeconds: prov,
		OvershootCompensation:     overshoot,
	}
	if err := t.Validate(); err != nil {
		return controller.TuningConfig{}, err
	}
	return t, nil
}

func requireFloat(v *viper.Viper, key string) (float64, error) {
	if !v.IsSet(key) {
		return 0, &controller.ConfigError{Key: key, Reason: "missing"}
	}
	f, err := cast.ToFloat64E(v.Get(key))
	if err != nil {
		return 0, &controller.ConfigError{Key: key, Reason: "not a number"}
	}
	return f, nil
}

func requireInt(v *viper.Viper, key string) (int, error) {
	if !v.IsSet(key) {
		return 0, &controller.ConfigError{Key: key, Reason: "missing"}
	}
	i, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return 0, &controller.ConfigError{Key: key, Reason: "not an integer"}
	}
	return i, nil
}
