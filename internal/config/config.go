// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-envparse"
)

// ErrConfiguration is wrapped by every configuration failure. It is fatal at startup.
var ErrConfiguration = errors.New("configuration error")

// Config holds all application configuration values.
type Config struct {
	// Sampling and analysis windows
	SampleRateHz          float64 `key:"SAMPLE_RATE_HZ" validate:"gt=0"`
	FeatureWindowMs       int     `key:"FEATURE_WINDOW_MS" validate:"gt=0"`
	NormalizationWindowMs int     `key:"NORMALIZATION_WINDOW_MS" validate:"gtefield=FeatureWindowMs"`
	CalibrationWindowMs   int     `key:"CALIBRATION_WINDOW_MS" validate:"gtefield=NormalizationWindowMs"`
	TickIntervalMs        int     `key:"TICK_INTERVAL_MS" validate:"gt=0"`
	InputQueueSize        int     `key:"INPUT_QUEUE_SIZE" validate:"min=1"`

	// Filters
	BandpassLowHz    float64 `key:"BANDPASS_LOW_HZ" validate:"gt=0"`
	BandpassHighHz   float64 `key:"BANDPASS_HIGH_HZ" validate:"gtfield=BandpassLowHz"`
	NotchLowHz       float64 `key:"NOTCH_LOW_HZ" validate:"gt=0"`
	NotchHighHz      float64 `key:"NOTCH_HIGH_HZ" validate:"gtfield=NotchLowHz"`
	EOGLowHz         float64 `key:"EOG_LOW_HZ" validate:"gt=0"`
	EOGHighHz        float64 `key:"EOG_HIGH_HZ" validate:"gtfield=EOGLowHz"`
	BaselineWindowMs int     `key:"BASELINE_WINDOW_MS" validate:"gt=0"`

	// Wavelet
	WaveletMinScale int `key:"WAVELET_MIN_SCALE" validate:"min=1"`
	WaveletMaxScale int `key:"WAVELET_MAX_SCALE" validate:"gtefield=WaveletMinScale"`

	// Feature thresholds, H = horizontal composite (Y1), V = vertical composite (Y2)
	ThreshHMaxCoeff         float64 `key:"THRESH_H_MAX_COEFF" validate:"gte=0"`
	ThreshHAUC              float64 `key:"THRESH_H_AUC" validate:"gte=0"`
	ThreshHAmplitude        float64 `key:"THRESH_H_AMPLITUDE" validate:"gte=0"`
	ThreshHVelocity         float64 `key:"THRESH_H_VELOCITY" validate:"gte=0"`
	ThreshVMaxCoeff         float64 `key:"THRESH_V_MAX_COEFF" validate:"gte=0"`
	ThreshVAUC              float64 `key:"THRESH_V_AUC" validate:"gte=0"`
	ThreshVAmplitude        float64 `key:"THRESH_V_AMPLITUDE" validate:"gte=0"`
	ThreshVVelocity         float64 `key:"THRESH_V_VELOCITY" validate:"gte=0"`
	ThreshLowActivityEnergy float64 `key:"THRESH_LOW_ACTIVITY_ENERGY" validate:"gte=0"`
	ThreshBlinkAmplitude    float64 `key:"THRESH_BLINK_AMPLITUDE" validate:"gte=0"`
	MinActiveFlags          int     `key:"MIN_ACTIVE_FLAGS" validate:"min=1,max=4"`

	// Calibration
	CalibrationSigma float64 `key:"CALIBRATION_SIGMA" validate:"gt=0"`
	CalibrationDir   string  `key:"CALIBRATION_DIR" validate:"required"`

	// Debounce
	DebounceIntervalMs int    `key:"DEBOUNCE_INTERVAL_MS" validate:"gt=0"`
	HistorySize        int    `key:"HISTORY_SIZE" validate:"min=2"`
	StreakPolicy       string `key:"STREAK_POLICY" validate:"oneof=break ignore"`
	SendStopCommands   bool   `key:"SEND_STOP_COMMANDS"`

	// Dispatch
	DispatchTransport string `key:"DISPATCH_TRANSPORT" validate:"oneof=tcp mqtt nats"`
	DispatchTimeoutMs int    `key:"DISPATCH_TIMEOUT_MS" validate:"gt=0"`
	TCPListenAddr     string `key:"TCP_LISTEN_ADDR" validate:"required_if=DispatchTransport tcp"`

	// Acquisition
	Source         string `key:"SOURCE" validate:"oneof=mock mqtt nats serial"`
	SerialPort     string `key:"SERIAL_PORT" validate:"required_if=Source serial"`
	SerialBaudRate int    `key:"SERIAL_BAUD_RATE" validate:"required_if=Source serial"`
	SerialFraming  string `key:"SERIAL_FRAMING" validate:"oneof=packet nmea"`
	MockScript     string `key:"MOCK_SCRIPT"`

	// MQTT
	MQTTBroker             string `key:"MQTT_BROKER"`
	MQTTClientIDClassifier string `key:"MQTT_CLIENT_ID_CLASSIFIER"`
	MQTTClientIDProducer   string `key:"MQTT_CLIENT_ID_PRODUCER"`
	MQTTClientIDConsole    string `key:"MQTT_CLIENT_ID_CONSOLE"`
	TopicSamples           string `key:"TOPIC_SAMPLES"`
	TopicCommands          string `key:"TOPIC_COMMANDS"`
	TopicGroundTruth       string `key:"TOPIC_GROUND_TRUTH"`
	TopicFeatures          string `key:"TOPIC_FEATURES"`

	// NATS
	NATSURL             string `key:"NATS_URL"`
	NATSNameClassifier  string `key:"NATS_NAME_CLASSIFIER"`
	NATSNameProducer    string `key:"NATS_NAME_PRODUCER"`
	NATSNameConsole     string `key:"NATS_NAME_CONSOLE"`
	NATSSubjectSamples  string `key:"NATS_SUBJECT_SAMPLES"`
	NATSSubjectCommands string `key:"NATS_SUBJECT_COMMANDS"`

	// Evaluation
	EvalAlignment   string `key:"EVAL_ALIGNMENT" validate:"oneof=window timestamp"`
	EvalToleranceMs int    `key:"EVAL_TOLERANCE_MS" validate:"gte=0"`
	EvalSpace       string `key:"EVAL_SPACE" validate:"oneof=classes commands"`
	EvalDBPath      string `key:"EVAL_DB_PATH" validate:"required"`

	// Web Server
	WebServerPort int `key:"WEB_SERVER_PORT" validate:"min=0,max=65535"`

	LogLevel string `key:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Package-level unexported variables for the singleton:
//   - globalConfig is only reachable through InitGlobal / Get.
//   - globalErr remembers the outcome of the first load.
//   - configOnce makes InitGlobal idempotent.
//   - configMu guards reads against the one-time write.
var (
	globalConfig *Config
	globalErr    error
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the research defaults. Every key in a config file overrides one of these.
func Default() *Config {
	return &Config{
		SampleRateHz:          244,
		FeatureWindowMs:       200,
		NormalizationWindowMs: 1000,
		CalibrationWindowMs:   5000,
		TickIntervalMs:        100,
		InputQueueSize:        2048,

		BandpassLowHz:    0.5,
		BandpassHighHz:   100,
		NotchLowHz:       48,
		NotchHighHz:      52,
		EOGLowHz:         0.5,
		EOGHighHz:        15,
		BaselineWindowMs: 1000,

		WaveletMinScale: 1,
		WaveletMaxScale: 31,

		ThreshHMaxCoeff:         1e4,
		ThreshHAUC:              5,
		ThreshHAmplitude:        50,
		ThreshHVelocity:         1000,
		ThreshVMaxCoeff:         1e4,
		ThreshVAUC:              5,
		ThreshVAmplitude:        50,
		ThreshVVelocity:         1000,
		ThreshLowActivityEnergy: 1e5,
		ThreshBlinkAmplitude:    300,
		MinActiveFlags:          2,

		CalibrationSigma: 3,
		CalibrationDir:   "calibration",

		DebounceIntervalMs: 1000,
		HistorySize:        3,
		StreakPolicy:       "break",
		SendStopCommands:   true,

		DispatchTransport: "tcp",
		DispatchTimeoutMs: 200,
		TCPListenAddr:     "localhost:8766",

		Source:         "mock",
		SerialBaudRate: 115200,
		SerialFraming:  "packet",
		MockScript:     "rest:2,left:1,rest:1,right:1,rest:1,blink:0.3,rest:1.5,up:1,rest:1,down:1",

		MQTTBroker:             "tcp://localhost:1883",
		MQTTClientIDClassifier: "eog-classifier",
		MQTTClientIDProducer:   "eog-mock-producer",
		MQTTClientIDConsole:    "eog-console",
		TopicSamples:           "eog/samples",
		TopicCommands:          "eog/commands",
		TopicGroundTruth:       "eog/groundtruth",
		TopicFeatures:          "eog/features",

		NATSURL:             "nats://127.0.0.1:4222",
		NATSNameClassifier:  "eog-classifier-nats",
		NATSNameProducer:    "eog-mock-producer-nats",
		NATSNameConsole:     "eog-console-nats",
		NATSSubjectSamples:  "eog.samples",
		NATSSubjectCommands: "eog.commands",

		EvalAlignment:   "window",
		EvalToleranceMs: 150,
		EvalSpace:       "classes",
		EvalDBPath:      "eog_sessions.db",

		WebServerPort: 8080,
		LogLevel:      "info",
	}
}

// Load reads the configuration file on top of Default and validates the result.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	values, err := envparse.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfiguration, configPath, err)
	}

	cfg := Default()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue assigns the field tagged with key. Unknown keys are rejected.
func (c *Config) setValue(key, value string) error {
	field, ok := fieldByKey(c, key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type for %s", key)
	}
	return nil
}

func fieldByKey(c *Config, key string) (reflect.Value, bool) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("key") == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Validate checks struct constraints and the cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("key")
	})
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %s%s (got %v)", fe.Field(), fe.Tag(), paramSuffix(fe.Param()), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	nyquist := c.SampleRateHz / 2
	for _, edge := range []struct {
		key string
		hz  float64
	}{
		{"BANDPASS_HIGH_HZ", c.BandpassHighHz},
		{"NOTCH_HIGH_HZ", c.NotchHighHz},
		{"EOG_HIGH_HZ", c.EOGHighHz},
	} {
		if edge.hz >= nyquist {
			return fmt.Errorf("%w: %s must be below Nyquist (%.1f Hz), got %.1f", ErrConfiguration, edge.key, nyquist, edge.hz)
		}
	}

	if c.FeatureWindowSamples() < 2 {
		return fmt.Errorf("%w: FEATURE_WINDOW_MS too short for %.0f Hz", ErrConfiguration, c.SampleRateHz)
	}
	if c.DispatchTransport == "mqtt" || c.Source == "mqtt" {
		if c.MQTTBroker == "" {
			return fmt.Errorf("%w: MQTT_BROKER is required", ErrConfiguration)
		}
	}
	if c.DispatchTransport == "nats" || c.Source == "nats" {
		if c.NATSURL == "" {
			return fmt.Errorf("%w: NATS_URL is required", ErrConfiguration)
		}
	}
	return nil
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// samples converts a duration in milliseconds into a sample count at the configured rate.
func (c *Config) samples(ms int) int {
	return int(c.SampleRateHz*float64(ms)/1000.0 + 0.5)
}

// FeatureWindowSamples is the length of the 200 ms analysis sub-window.
func (c *Config) FeatureWindowSamples() int { return c.samples(c.FeatureWindowMs) }

// NormalizationWindowSamples is the length of the long (energy normalization) window.
func (c *Config) NormalizationWindowSamples() int { return c.samples(c.NormalizationWindowMs) }

// CalibrationWindowSamples is the length of the reference recording used for recalibration.
func (c *Config) CalibrationWindowSamples() int { return c.samples(c.CalibrationWindowMs) }

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c *Config) DebounceInterval() time.Duration {
	return time.Duration(c.DebounceIntervalMs) * time.Millisecond
}

func (c *Config) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutMs) * time.Millisecond
}

func (c *Config) EvalTolerance() time.Duration {
	return time.Duration(c.EvalToleranceMs) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Only the first call loads; later calls return the first call's error.
func InitGlobal(configPath string) error {
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, globalErr = Load(configPath)
	})
	return globalErr
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
