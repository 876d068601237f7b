// Package config loads the planner settings shared by allocation, cutting
// confirmation and the inventory layer.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/tiagodcc/ikts/internal/domain"
)

//go:embed defaults.toml
var defaultsTOML []byte

// EnvMinUsableLength overrides the remainder threshold from the environment
const EnvMinUsableLength = "MIN_USABLE_LENGTH"

// PlannerFile is the on-disk layout of a planner settings file
type PlannerFile struct {
	Planner PlannerSection `toml:"planner"`
}

// PlannerSection holds the [planner] table.
// Zero values leave the previous layer untouched.
type PlannerSection struct {
	MinUsableLength int   `toml:"min_usable_length"`
	StandardLengths []int `toml:"standard_lengths,omitempty"`
}

// LoadPlannerSettings resolves settings in layers, later overriding earlier:
//  1. Built-in defaults (embedded in binary)
//  2. The TOML file at path, when path is set and the file exists
//  3. MIN_USABLE_LENGTH from the environment
func LoadPlannerSettings(path string) (domain.PlannerSettings, error) {
	return loadPlannerSettings(path, os.LookupEnv)
}

func loadPlannerSettings(path string, lookup func(string) (string, bool)) (domain.PlannerSettings, error) {
	var base PlannerFile
	if err := toml.Unmarshal(defaultsTOML, &base); err != nil {
		return domain.PlannerSettings{}, fmt.Errorf("parsing built-in planner defaults: %w", err)
	}
	settings := base.Planner.apply(domain.PlannerSettings{})

	if path != "" {
		override, err := loadPlannerFile(path)
		if err != nil && !os.IsNotExist(err) {
			return domain.PlannerSettings{}, err
		}
		if override != nil {
			settings = override.Planner.apply(settings)
		}
	}

	if raw, ok := lookup(EnvMinUsableLength); ok && raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return domain.PlannerSettings{}, fmt.Errorf("invalid %s %q: must be a positive integer", EnvMinUsableLength, raw)
		}
		settings.MinUsableLength = n
	}

	if err := settings.Validate(); err != nil {
		return domain.PlannerSettings{}, err
	}
	return settings.Normalized(), nil
}

// loadPlannerFile returns the os error unchanged when the file is missing
func loadPlannerFile(path string) (*PlannerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file PlannerFile
	if _, err := toml.Decode(string(data), &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &file, nil
}

func (s PlannerSection) apply(base domain.PlannerSettings) domain.PlannerSettings {
	if s.MinUsableLength != 0 {
		base.MinUsableLength = s.MinUsableLength
	}
	if len(s.StandardLengths) > 0 {
		base.StandardLengths = append([]int(nil), s.StandardLengths...)
	}
	return base
}

// WritePlannerSettings stores settings as a TOML file
func WritePlannerSettings(path string, settings domain.PlannerSettings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	file := PlannerFile{Planner: PlannerSection{
		MinUsableLength: settings.MinUsableLength,
		StandardLengths: settings.StandardLengths,
	}}
	if err := toml.NewEncoder(f).Encode(file); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
