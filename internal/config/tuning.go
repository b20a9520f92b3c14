// Package config holds the run tuning parameters and their JSON file
// loader.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/terrain-data/feature.track/internal/vision"
)

// TuningConfig represents the tuning parameters for a tracking run. All
// fields are optional in the JSON file; the Get* accessors supply defaults
// for anything omitted, so partial configs are safe.
type TuningConfig struct {
	// Detector / tracker params
	Sensitivity             *float64 `json:"sensitivity,omitempty"`
	MaxTrackedFeatures      *int     `json:"max_tracked_features,omitempty"`
	HarrisResponseThreshold *float64 `json:"harris_response_threshold,omitempty"`
	CorrelationThreshold    *float64 `json:"correlation_threshold,omitempty"`
	TemplateUpdateFrames    *int     `json:"template_update_frames,omitempty"`
	TemplateUpdateDistance  *float64 `json:"template_update_distance,omitempty"`

	// Run params
	MaxFrames      *int    `json:"max_frames,omitempty"`
	QueueCapacity  *int    `json:"queue_capacity,omitempty"`
	DequeueTimeout *string `json:"dequeue_timeout,omitempty"` // duration string like "5s"

	// Render server params
	ServerAddr  *string `json:"server_addr,omitempty"`
	DialTimeout *string `json:"dial_timeout,omitempty"` // duration string like "10s"
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to have a .json extension and to be under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Sensitivity != nil && *c.Sensitivity <= 0 {
		return fmt.Errorf("sensitivity must be positive, got %f", *c.Sensitivity)
	}
	if c.MaxTrackedFeatures != nil && *c.MaxTrackedFeatures < 1 {
		return fmt.Errorf("max_tracked_features must be >= 1, got %d", *c.MaxTrackedFeatures)
	}
	if c.CorrelationThreshold != nil {
		if *c.CorrelationThreshold < -1 || *c.CorrelationThreshold > 1 {
			return fmt.Errorf("correlation_threshold must be between -1 and 1, got %f", *c.CorrelationThreshold)
		}
	}
	if c.TemplateUpdateFrames != nil && *c.TemplateUpdateFrames < 1 {
		return fmt.Errorf("template_update_frames must be >= 1, got %d", *c.TemplateUpdateFrames)
	}
	if c.TemplateUpdateDistance != nil && *c.TemplateUpdateDistance < 0 {
		return fmt.Errorf("template_update_distance must be non-negative, got %f", *c.TemplateUpdateDistance)
	}
	if c.MaxFrames != nil && *c.MaxFrames < 1 {
		return fmt.Errorf("max_frames must be >= 1, got %d", *c.MaxFrames)
	}
	if c.QueueCapacity != nil && *c.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be >= 1, got %d", *c.QueueCapacity)
	}
	if c.DequeueTimeout != nil && *c.DequeueTimeout != "" {
		if _, err := time.ParseDuration(*c.DequeueTimeout); err != nil {
			return fmt.Errorf("invalid dequeue_timeout '%s': %w", *c.DequeueTimeout, err)
		}
	}
	if c.DialTimeout != nil && *c.DialTimeout != "" {
		if _, err := time.ParseDuration(*c.DialTimeout); err != nil {
			return fmt.Errorf("invalid dial_timeout '%s': %w", *c.DialTimeout, err)
		}
	}
	return nil
}

// Settings assembles the vision tuning from the config.
func (c *TuningConfig) Settings() vision.Settings {
	s := vision.DefaultSettings()
	if c.Sensitivity != nil {
		s.Sensitivity = float32(*c.Sensitivity)
	}
	if c.MaxTrackedFeatures != nil {
		s.MaxTrackedFeatures = *c.MaxTrackedFeatures
	}
	if c.HarrisResponseThreshold != nil {
		s.HarrisResponseThreshold = float32(*c.HarrisResponseThreshold)
	}
	if c.CorrelationThreshold != nil {
		s.CorrelationThreshold = float32(*c.CorrelationThreshold)
	}
	if c.TemplateUpdateFrames != nil {
		s.TemplateUpdateFrames = *c.TemplateUpdateFrames
	}
	if c.TemplateUpdateDistance != nil {
		s.TemplateUpdateDistance = float32(*c.TemplateUpdateDistance)
	}
	return s
}

// GetMaxFrames returns the max_frames value or the default.
func (c *TuningConfig) GetMaxFrames() int {
	if c.MaxFrames == nil {
		return 1000
	}
	return *c.MaxFrames
}

// GetQueueCapacity returns the queue_capacity value or the default.
func (c *TuningConfig) GetQueueCapacity() int {
	if c.QueueCapacity == nil {
		return 200
	}
	return *c.QueueCapacity
}

// GetDequeueTimeout parses and returns the DequeueTimeout as a
// time.Duration.
func (c *TuningConfig) GetDequeueTimeout() time.Duration {
	if c.DequeueTimeout == nil || *c.DequeueTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.DequeueTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetServerAddr returns the server_addr value or the default.
func (c *TuningConfig) GetServerAddr() string {
	if c.ServerAddr == nil || *c.ServerAddr == "" {
		return "localhost:10363"
	}
	return *c.ServerAddr
}

// GetDialTimeout parses and returns the DialTimeout as a time.Duration.
func (c *TuningConfig) GetDialTimeout() time.Duration {
	if c.DialTimeout == nil || *c.DialTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.DialTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
