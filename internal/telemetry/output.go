package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/tugofwar/internal/config"
	"github.com/DoyleJ11/tugofwar/internal/engine"
)

// Output writes match reports into a directory.
// A nil *Output is valid and discards everything.
type Output struct {
	dir           string
	statsFile     *os.File
	headerWritten bool
}

// NewOutput creates dir and opens stats.csv in it.
// Returns nil if dir is empty (output disabled).
func NewOutput(dir string) (*Output, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	return &Output{dir: dir, statsFile: f}, nil
}

// WriteConfig saves the effective configuration as config.yaml.
func (o *Output) WriteConfig(cfg config.MatchConfig) error {
	if o == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(o.dir, "config.yaml"))
}

// WriteReport appends one row to stats.csv.
func (o *Output) WriteReport(r Report) error {
	if o == nil {
		return nil
	}
	records := []Report{r}
	if !o.headerWritten {
		if err := gocsv.Marshal(records, o.statsFile); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		o.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, o.statsFile); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

type resultFile struct {
	MatchID string        `yaml:"match_id"`
	Result  engine.Result `yaml:"result"`
}

// WriteResult saves the final outcome as result.yaml.
func (o *Output) WriteResult(matchID string, res engine.Result) error {
	if o == nil {
		return nil
	}
	data, err := yaml.Marshal(resultFile{MatchID: matchID, Result: res})
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(o.dir, "result.yaml"), data, 0644); err != nil {
		return fmt.Errorf("writing result.yaml: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (o *Output) Dir() string {
	if o == nil {
		return ""
	}
	return o.dir
}

func (o *Output) Close() error {
	if o == nil || o.statsFile == nil {
		return nil
	}
	err := multierr.Append(o.statsFile.Sync(), o.statsFile.Close())
	o.statsFile = nil
	return err
}
