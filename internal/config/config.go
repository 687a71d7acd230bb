// Package config loads the match parameters from a flat key=value file.
package config

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.conf
var defaultsConf string

// TicksPerSecond is the fixed simulation rate.
const TicksPerSecond = 10

var (
	ErrConfigNotFound = errors.New("config file not readable")
	ErrInvalid        = errors.New("invalid config")
	ErrMalformedLine  = errors.New("malformed config line")
)

// MatchConfig is the immutable parameter set of one match.
type MatchConfig struct {
	NumTeams               int     `yaml:"num_teams"`
	PlayersPerTeam         int     `yaml:"players_per_team"`
	RopeThreshold          float64 `yaml:"rope_threshold"`
	GameDuration           int     `yaml:"game_duration"` // seconds
	EnergyReportInterval   int     `yaml:"energy_report_interval"`
	FallRecoveryMin        int     `yaml:"fall_recovery_min"`
	FallRecoveryMax        int     `yaml:"fall_recovery_max"`
	FallProbability        float64 `yaml:"fall_probability"` // falls per second
	RoundWinThreshold      float64 `yaml:"round_win_threshold"`
	TotalRounds            int     `yaml:"total_rounds"`
	ConsecutiveRoundsToWin int     `yaml:"consecutive_rounds_to_win"`
	MinimumEnergy          int     `yaml:"minimum_energy"`
	Range                  int     `yaml:"range"`
	Countdown              int     `yaml:"countdown"` // seconds before the match and each new round
}

// Default returns the embedded defaults.
func Default() MatchConfig {
	var c MatchConfig
	if err := Parse(strings.NewReader(defaultsConf), &c, zap.NewNop()); err != nil {
		panic(fmt.Sprintf("embedded defaults: %v", err))
	}
	return c
}

// Load overlays the file at path on the defaults and validates the result.
// A missing or unreadable file is an error; bad lines inside it are not.
func Load(path string, log *zap.Logger) (MatchConfig, error) {
	c := Default()

	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("%w: %w", ErrConfigNotFound, err)
	}
	defer f.Close()

	if err := Parse(f, &c, log); err != nil {
		return c, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Parse applies every recognized key=value line from r to c.
// Comments, blank lines and unknown keys are skipped; malformed lines are
// logged and skipped. Only read errors are returned.
func Parse(r io.Reader, c *MatchConfig, log *zap.Logger) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, err := splitLine(line)
		if err == nil {
			err = c.set(key, value)
		}
		switch {
		case errors.Is(err, errUnknownKey):
			log.Debug("ignoring unknown config key", zap.Int("line", lineNo), zap.String("key", key))
		case err != nil:
			log.Warn("skipping config line", zap.Int("line", lineNo), zap.Error(err))
		}
	}
	return sc.Err()
}

func splitLine(line string) (string, string, error) {
	kv, err := godotenv.Unmarshal(line)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	if len(kv) != 1 {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	for k, v := range kv {
		if k == "" {
			return "", "", fmt.Errorf("%w: %q", ErrMalformedLine, line)
		}
		return k, v, nil
	}
	return "", "", nil
}

var errUnknownKey = errors.New("unknown key")

func (c *MatchConfig) set(key, value string) error {
	ints := map[string]*int{
		"num_teams":                 &c.NumTeams,
		"players_per_team":          &c.PlayersPerTeam,
		"game_duration":             &c.GameDuration,
		"energy_report_interval":    &c.EnergyReportInterval,
		"fall_recovery_min":         &c.FallRecoveryMin,
		"fall_recovery_max":         &c.FallRecoveryMax,
		"total_rounds":              &c.TotalRounds,
		"consecutive_rounds_to_win": &c.ConsecutiveRoundsToWin,
		"minimum_energy":            &c.MinimumEnergy,
		"range":                     &c.Range,
		"countdown":                 &c.Countdown,
	}
	floats := map[string]*float64{
		"rope_threshold":      &c.RopeThreshold,
		"fall_probability":    &c.FallProbability,
		"round_win_threshold": &c.RoundWinThreshold,
	}

	if dst, ok := ints[key]; ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrMalformedLine, key, value)
		}
		*dst = n
		return nil
	}
	if dst, ok := floats[key]; ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrMalformedLine, key, value)
		}
		*dst = f
		return nil
	}
	return errUnknownKey
}

// Validate reports every out-of-range parameter at once.
func (c MatchConfig) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.NumTeams == 2, "num_teams must be 2, got %d", c.NumTeams)
	check(c.PlayersPerTeam >= 1, "players_per_team must be at least 1, got %d", c.PlayersPerTeam)
	check(c.RopeThreshold > 0, "rope_threshold must be positive, got %g", c.RopeThreshold)
	check(c.GameDuration > 0, "game_duration must be positive, got %d", c.GameDuration)
	check(c.EnergyReportInterval >= 1, "energy_report_interval must be at least 1, got %d", c.EnergyReportInterval)
	check(c.FallRecoveryMin >= 0, "fall_recovery_min must not be negative, got %d", c.FallRecoveryMin)
	check(c.FallRecoveryMax >= c.FallRecoveryMin, "fall_recovery_max (%d) is below fall_recovery_min (%d)", c.FallRecoveryMax, c.FallRecoveryMin)
	check(c.FallProbability >= 0 && c.FallProbability <= TicksPerSecond,
		"fall_probability must be within [0, %d], got %g", TicksPerSecond, c.FallProbability)
	check(c.RoundWinThreshold > 0 && c.RoundWinThreshold <= c.RopeThreshold,
		"round_win_threshold must be within (0, rope_threshold], got %g", c.RoundWinThreshold)
	check(c.ConsecutiveRoundsToWin >= 1, "consecutive_rounds_to_win must be at least 1, got %d", c.ConsecutiveRoundsToWin)
	check(c.TotalRounds >= c.ConsecutiveRoundsToWin,
		"total_rounds (%d) is below consecutive_rounds_to_win (%d)", c.TotalRounds, c.ConsecutiveRoundsToWin)
	check(c.MinimumEnergy >= 0, "minimum_energy must not be negative, got %d", c.MinimumEnergy)
	check(c.Range >= 1, "range must be at least 1, got %d", c.Range)
	check(c.Countdown >= 0, "countdown must not be negative, got %d", c.Countdown)
	return err
}

// Duration is the wall-clock limit of the match.
func (c MatchConfig) Duration() time.Duration {
	return time.Duration(c.GameDuration) * time.Second
}

// TickInterval is the wall-clock length of one tick.
func (c MatchConfig) TickInterval() time.Duration {
	return time.Second / TicksPerSecond
}

// NumPlayers is the total number of player workers.
func (c MatchConfig) NumPlayers() int {
	return c.NumTeams * c.PlayersPerTeam
}

// WriteYAML writes the configuration to a YAML file.
func (c MatchConfig) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
