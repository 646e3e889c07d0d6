package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so the YAML config file can express
// durations as human-readable strings ("30s", "5m") instead of raw
// nanosecond integers.
type Duration struct {
	d time.Duration
}

func (d Duration) Duration() time.Duration { return d.d }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.d = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.d.String(), nil
}
