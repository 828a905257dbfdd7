package tuning

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickIntervalMs      int     `yaml:"tick_interval_ms" toml:"tick_interval_ms"`
	SaveKey             string  `yaml:"save_key" toml:"save_key"`
	MaxExponent         int     `yaml:"max_exponent" toml:"max_exponent"`
	LevelsPerLifeLesson int     `yaml:"levels_per_life_lesson" toml:"levels_per_life_lesson"`
	LifeLessonBonus     float64 `yaml:"life_lesson_bonus" toml:"life_lesson_bonus"`
	StarterPastryID     int     `yaml:"starter_pastry_id" toml:"starter_pastry_id"`
	StarterLevel        int     `yaml:"starter_level" toml:"starter_level"`
	StatePushEveryTicks int     `yaml:"state_push_every_ticks" toml:"state_push_every_ticks"`

	RateLimits RateLimits `yaml:"rate_limits" toml:"rate_limits"`
}

type RateLimits struct {
	CommandsPerSec float64 `yaml:"commands_per_sec" toml:"commands_per_sec"`
	CommandBurst   int     `yaml:"command_burst" toml:"command_burst"`
}

func Defaults() Tuning {
	return Tuning{
		TickIntervalMs:      50,
		SaveKey:             "bakery_save_v1",
		MaxExponent:         63,
		LevelsPerLifeLesson: 100,
		LifeLessonBonus:     0.01,
		StarterPastryID:     1,
		StarterLevel:        1,
		StatePushEveryTicks: 10,
		RateLimits: RateLimits{
			CommandsPerSec: 20,
			CommandBurst:   40,
		},
	}
}

// Load reads a yaml or toml (by extension) tuning file over Defaults().
// Fields absent from the file keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&t); err != nil {
			return t, fmt.Errorf("%s: %w", name, err)
		}
	default:
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TickIntervalMs <= 0 {
		return fmt.Errorf("tick_interval_ms must be positive")
	}
	if strings.TrimSpace(t.SaveKey) == "" {
		return fmt.Errorf("save_key must not be empty")
	}
	if t.LevelsPerLifeLesson <= 0 {
		return fmt.Errorf("levels_per_life_lesson must be positive")
	}
	if t.LifeLessonBonus < 0 {
		return fmt.Errorf("life_lesson_bonus must not be negative")
	}
	if t.StarterLevel < 0 {
		return fmt.Errorf("starter_level must not be negative")
	}
	if t.StatePushEveryTicks <= 0 {
		return fmt.Errorf("state_push_every_ticks must be positive")
	}
	return nil
}

func (t Tuning) TickInterval() time.Duration {
	return time.Duration(t.TickIntervalMs) * time.Millisecond
}
