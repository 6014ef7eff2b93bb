package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type ValueSourceType string

const (
	ValueSourceType_ENV  ValueSourceType = "env"
	ValueSourceType_TEXT ValueSourceType = "text"
)

type ValueSource struct {
	Type  ValueSourceType `yaml:"type"`
	Value string          `yaml:"value"`
}

func (vs ValueSource) String() string {
	switch vs.Type {
	case ValueSourceType_ENV:
		return os.Getenv(vs.Value)
	case ValueSourceType_TEXT:
		return vs.Value
	default:
		return ""
	}
}

func (vs ValueSource) IsZero() bool {
	return vs.Type == "" && vs.Value == ""
}

// Duration wraps time.Duration so config values can be written as "30s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
