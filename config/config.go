// Package config 加载客户端的YAML配置
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config 客户端配置
type Config struct {
	Server struct {
		URL      string        `yaml:"url"`
		Protocol string        `yaml:"protocol"`
		Timeout  time.Duration `yaml:"timeout"`
		Verbose  bool          `yaml:"verbose"`
	} `yaml:"server"`
	Model struct {
		Name              string   `yaml:"name"`
		InputName         string   `yaml:"input_name"`
		OutputNames       []string `yaml:"output_names"`
		Labels            []string `yaml:"labels"`
		LabelsFile        string   `yaml:"labels_file"`
		LabelsEncoding    string   `yaml:"labels_encoding"`
		MetadataCacheSize int      `yaml:"metadata_cache_size"`
	} `yaml:"model"`
	Sample struct {
		Seed int64 `yaml:"seed"`
	} `yaml:"sample"`
	Log LogConfig `yaml:"log"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration for the Times_Classify model.
func Default() *Config {
	var c Config
	c.Server.URL = "localhost:8000"
	c.Server.Protocol = "http"
	c.Model.Name = "Times_Classify"
	c.Model.InputName = "input"
	c.Model.OutputNames = []string{"output"}
	c.Model.Labels = []string{"bird", "uav"}
	c.Model.MetadataCacheSize = 16
	c.Sample.Seed = 42
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28
	return &c
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

// ResolveLabels returns the labels from LabelsFile when set, otherwise the
// inline list.
func (c *Config) ResolveLabels() ([]string, error) {
	if c.Model.LabelsFile == "" {
		return c.Model.Labels, nil
	}
	return LoadLabels(c.Model.LabelsFile, c.Model.LabelsEncoding)
}
