// Package telemetry produces the periodic match reports and the files
// written to the output directory.
package telemetry

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/stat"

	"github.com/DoyleJ11/tugofwar/internal/engine"
)

// Report is one energy report. The CSV layout assumes two teams.
type Report struct {
	ElapsedSec float64 `csv:"elapsed_s"`
	Tick       int     `csv:"tick"`
	Round      int     `csv:"round"`
	Rope       float64 `csv:"rope"`

	Team1Effort float64 `csv:"team1_effort"`
	Team2Effort float64 `csv:"team2_effort"`
	Team1Wins   int     `csv:"team1_wins"`
	Team2Wins   int     `csv:"team2_wins"`

	// Energy distribution per team
	Team1EnergyMean float64 `csv:"team1_energy_mean"`
	Team1EnergyStd  float64 `csv:"team1_energy_std"`
	Team2EnergyMean float64 `csv:"team2_energy_mean"`
	Team2EnergyStd  float64 `csv:"team2_energy_std"`

	Recovering int `csv:"recovering"`
}

// NewReport samples s at the given elapsed match time.
func NewReport(s *engine.State, elapsed time.Duration) Report {
	r := Report{
		ElapsedSec: elapsed.Seconds(),
		Tick:       s.Tick,
		Round:      s.RoundNumber,
		Rope:       s.RopePosition,
	}
	for t := range s.Teams {
		team := &s.Teams[t]
		energies := make([]float64, len(team.Players))
		for i, p := range team.Players {
			energies[i] = p.Energy
			if p.Recovering {
				r.Recovering++
			}
		}
		mean, std := EnergyStats(energies)
		switch t {
		case 0:
			r.Team1Effort, r.Team1Wins = team.Effort, team.RoundWins
			r.Team1EnergyMean, r.Team1EnergyStd = mean, std
		case 1:
			r.Team2Effort, r.Team2Wins = team.Effort, team.RoundWins
			r.Team2EnergyMean, r.Team2EnergyStd = mean, std
		}
	}
	return r
}

// EnergyStats returns the mean and sample standard deviation of values.
// The deviation is 0 for fewer than two values.
func EnergyStats(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

func (r Report) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddFloat64("elapsed_s", r.ElapsedSec)
	enc.AddInt("round", r.Round)
	enc.AddFloat64("rope", r.Rope)
	enc.AddFloat64("team1_effort", r.Team1Effort)
	enc.AddFloat64("team2_effort", r.Team2Effort)
	enc.AddInt("team1_wins", r.Team1Wins)
	enc.AddInt("team2_wins", r.Team2Wins)
	enc.AddFloat64("team1_energy_mean", r.Team1EnergyMean)
	enc.AddFloat64("team2_energy_mean", r.Team2EnergyMean)
	enc.AddInt("recovering", r.Recovering)
	return nil
}

// Log writes the report as a single structured line.
func (r Report) Log(log *zap.Logger) {
	log.Info("energy report", zap.Object("report", r))
}
