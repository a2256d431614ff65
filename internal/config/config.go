// Package config loads the inference configuration: a YAML file with
// upper-case sections, overlaid by dotted KEY VALUE pairs from the command
// line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/handpose/internal/detector"
	"github.com/ayusman/handpose/internal/pose"
	"github.com/ayusman/handpose/internal/skeleton"
)

// DefaultPath is where Load looks when no --cfg flag was given.
const DefaultPath = "config/inference.yaml"

// Size is a [width, height] pair.
type Size [2]int

// Width returns the first element.
func (s Size) Width() int { return s[0] }

// Height returns the second element.
func (s Size) Height() int { return s[1] }

// Config is the complete inference configuration.
type Config struct {
	Model    ModelConfig    `yaml:"MODEL"`
	Test     TestConfig     `yaml:"TEST"`
	Dataset  DatasetConfig  `yaml:"DATASET"`
	Pose     PoseConfig     `yaml:"POSE"`
	Detector DetectorConfig `yaml:"DETECTOR"`
	Output   OutputConfig   `yaml:"OUTPUT"`
}

type ModelConfig struct {
	Name        string `yaml:"NAME"`
	ImageSize   Size   `yaml:"IMAGE_SIZE"`
	HeatmapSize Size   `yaml:"HEATMAP_SIZE"`
	NumJoints   int    `yaml:"NUM_JOINTS"`
}

type TestConfig struct {
	ModelFile   string `yaml:"MODEL_FILE"`
	PostProcess bool   `yaml:"POST_PROCESS"`
}

type DatasetConfig struct {
	ColorRGB bool `yaml:"COLOR_RGB"`
}

type PoseConfig struct {
	Backend    string     `yaml:"BACKEND"`
	ServiceCmd string     `yaml:"SERVICE_CMD"`
	Mean       [3]float64 `yaml:"MEAN"`
	Std        [3]float64 `yaml:"STD"`
}

type DetectorConfig struct {
	Backend     string   `yaml:"BACKEND"`
	ModelFile   string   `yaml:"MODEL_FILE"`
	ConfigFile  string   `yaml:"CONFIG_FILE"`
	Threshold   float64  `yaml:"THRESHOLD"`
	TargetClass string   `yaml:"TARGET_CLASS"`
	Classes     []string `yaml:"CLASSES"`
	InputSize   Size     `yaml:"INPUT_SIZE"`
}

type OutputConfig struct {
	VideoPath string  `yaml:"VIDEO_PATH"`
	ImagePath string  `yaml:"IMAGE_PATH"`
	FPS       float64 `yaml:"FPS"`
	FourCC    string  `yaml:"FOURCC"`
}

// Default returns the built-in configuration for the 21-joint hand model
// behind the fine-tuned hand detector.
func Default() *Config {
	p := pose.DefaultConfig()
	d := detector.DefaultConfig()
	return &Config{
		Model: ModelConfig{
			Name:        "pose_hrnet",
			ImageSize:   Size{p.ImageWidth, p.ImageHeight},
			HeatmapSize: Size{p.HeatmapWidth, p.HeatmapHeight},
			NumJoints:   p.NumJoints,
		},
		Test: TestConfig{
			ModelFile:   p.ModelPath,
			PostProcess: p.PostProcess,
		},
		Dataset: DatasetConfig{ColorRGB: p.ColorRGB},
		Pose: PoseConfig{
			Backend:    string(p.Backend),
			ServiceCmd: p.ServiceCmd,
			Mean:       p.Normalization.Mean,
			Std:        p.Normalization.Std,
		},
		Detector: DetectorConfig{
			Backend:     string(d.Backend),
			ModelFile:   d.ModelPath,
			Threshold:   0.9,
			TargetClass: "hand",
			Classes:     d.Classes,
		},
		Output: OutputConfig{
			VideoPath: "output.avi",
			ImagePath: "output.jpg",
			FPS:       30,
			FourCC:    "MJPG",
		},
	}
}

// Load reads path over the defaults, applies overrides and validates the
// result. A missing file is only an error when explicit is set.
func Load(path string, explicit bool, overrides []string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		log.Debugf("config: %s not found, using built-in defaults", path)
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.Apply(overrides); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Apply sets each KEY VALUE pair in order. Keys are dotted paths such as
// TEST.MODEL_FILE; values are parsed as YAML scalars or flow sequences.
func (c *Config) Apply(opts []string) error {
	if len(opts)%2 != 0 {
		return fmt.Errorf("config overrides must be KEY VALUE pairs, got %d arguments", len(opts))
	}

	for i := 0; i < len(opts); i += 2 {
		key, value := opts[i], opts[i+1]
		doc, err := overrideDoc(key, value)
		if err != nil {
			return err
		}
		if err := decode(doc, c); err != nil {
			return fmt.Errorf("override %s: %w", key, err)
		}
		log.Debugf("config: %s = %s", key, value)
	}
	return nil
}

// overrideDoc renders KEY VALUE as a nested YAML document.
func overrideDoc(key, value string) ([]byte, error) {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid config key %q", key)
		}
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("config key %q must name SECTION.FIELD", key)
	}

	val, err := valueNode(value)
	if err != nil {
		return nil, fmt.Errorf("override %s: %w", key, err)
	}

	node := val
	for i := len(parts) - 1; i >= 0; i-- {
		node = &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: parts[i]},
				node,
			},
		}
	}
	return yaml.Marshal(node)
}

func valueNode(value string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(value), &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}, nil
	}
	return doc.Content[0], nil
}

// Validate checks sizes, ranges and backend names.
func (c *Config) Validate() error {
	if c.Model.ImageSize.Width() <= 0 || c.Model.ImageSize.Height() <= 0 {
		return fmt.Errorf("MODEL.IMAGE_SIZE must be positive, got %v", c.Model.ImageSize)
	}
	if c.Model.HeatmapSize.Width() <= 0 || c.Model.HeatmapSize.Height() <= 0 {
		return fmt.Errorf("MODEL.HEATMAP_SIZE must be positive, got %v", c.Model.HeatmapSize)
	}
	if _, err := skeleton.ForJoints(c.Model.NumJoints); err != nil {
		return fmt.Errorf("MODEL.NUM_JOINTS: %w", err)
	}

	switch pose.Backend(c.Pose.Backend) {
	case pose.BackendDNN, pose.BackendProcess, pose.BackendMock:
	default:
		return fmt.Errorf("unknown POSE.BACKEND %q", c.Pose.Backend)
	}
	if err := c.normalization().Validate(); err != nil {
		return fmt.Errorf("POSE: %w", err)
	}

	switch detector.Backend(c.Detector.Backend) {
	case detector.BackendFasterRCNN, detector.BackendCustomRCNN, detector.BackendMock:
	default:
		return fmt.Errorf("unknown DETECTOR.BACKEND %q", c.Detector.Backend)
	}
	if c.Detector.Threshold < 0 || c.Detector.Threshold > 1 {
		return fmt.Errorf("DETECTOR.THRESHOLD must be within [0,1], got %v", c.Detector.Threshold)
	}
	if c.Detector.InputSize.Width() < 0 || c.Detector.InputSize.Height() < 0 {
		return fmt.Errorf("DETECTOR.INPUT_SIZE must not be negative, got %v", c.Detector.InputSize)
	}

	if c.Output.FPS < 0 {
		return fmt.Errorf("OUTPUT.FPS must not be negative, got %v", c.Output.FPS)
	}
	if c.Output.FourCC != "" && len(c.Output.FourCC) != 4 {
		return fmt.Errorf("OUTPUT.FOURCC must be four characters, got %q", c.Output.FourCC)
	}
	return nil
}

func (c *Config) normalization() pose.Normalization {
	return pose.Normalization{Mean: c.Pose.Mean, Std: c.Pose.Std}
}

// DetectorConfig converts the DETECTOR section.
func (c *Config) DetectorConfig() detector.Config {
	return detector.Config{
		Backend:     detector.Backend(c.Detector.Backend),
		ModelPath:   c.Detector.ModelFile,
		ConfigPath:  c.Detector.ConfigFile,
		Classes:     c.Detector.Classes,
		InputWidth:  c.Detector.InputSize.Width(),
		InputHeight: c.Detector.InputSize.Height(),
	}
}

// PoseConfig converts the MODEL, TEST, DATASET and POSE sections.
func (c *Config) PoseConfig() pose.Config {
	return pose.Config{
		Backend:       pose.Backend(c.Pose.Backend),
		ModelPath:     c.Test.ModelFile,
		ServiceCmd:    c.Pose.ServiceCmd,
		ImageWidth:    c.Model.ImageSize.Width(),
		ImageHeight:   c.Model.ImageSize.Height(),
		HeatmapWidth:  c.Model.HeatmapSize.Width(),
		HeatmapHeight: c.Model.HeatmapSize.Height(),
		NumJoints:     c.Model.NumJoints,
		PostProcess:   c.Test.PostProcess,
		ColorRGB:      c.Dataset.ColorRGB,
		Normalization: c.normalization(),
	}
}

// Skeleton returns the skeleton matching MODEL.NUM_JOINTS.
func (c *Config) Skeleton() (skeleton.Skeleton, error) {
	return skeleton.ForJoints(c.Model.NumJoints)
}
