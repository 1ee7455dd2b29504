package orbitsim

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is a snapshot of a body at a given time.
type State struct {
	DT    time.Time
	Body  string
	Orbit *Orbit // must not be mutated once sent
}

// NewState snapshots the orbit of a propagator.
func NewState(dt time.Time, p *Propagator) State {
	return State{DT: dt, Body: p.Name(), Orbit: p.Orbit().Clone()}
}

// ExportConfig configures the exporting of the simulation.
type ExportConfig struct {
	Filename     string
	OutputDir    string
	AsCSV        bool
	Timestamp    bool
	CSVAppend    func(st State) []string // Custom export columns
	CSVAppendHdr func() []string         // Header for the custom export
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV
}

// path returns the path of the CSV file.
func (c ExportConfig) path() string {
	if c.Timestamp {
		t := time.Now()
		return filepath.Join(c.OutputDir, fmt.Sprintf("states-%s-%d-%02d-%02dT%02d.%02d.%02d.csv", c.Filename, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()))
	}
	return filepath.Join(c.OutputDir, fmt.Sprintf("states-%s.csv", c.Filename))
}

var stateHeader = []string{"jd", "body", "x", "y", "z", "vx", "vy", "vz", "e", "M"}

// StreamStates streams the output of the channel to the configured file until the channel is
// closed. The channel is always drained, even when the file cannot be written.
func StreamStates(conf ExportConfig, stateChan <-chan State) (err error) {
	defer func() {
		for range stateChan {
		}
	}()
	if conf.IsUseless() {
		return nil
	}
	f, err := os.Create(conf.path())
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteStates(f, conf, stateChan)
}

// WriteStates writes every state received on the channel as a CSV row:
// Julian date, body, position, velocity, eccentricity and mean anomaly in degrees.
func WriteStates(w io.Writer, conf ExportConfig, stateChan <-chan State) error {
	cw := csv.NewWriter(w)
	hdr := stateHeader
	if conf.CSVAppendHdr != nil {
		hdr = append(append([]string{}, stateHeader...), conf.CSVAppendHdr()...)
	}
	if err := cw.Write(hdr); err != nil {
		return err
	}
	for state := range stateChan {
		R, V := state.Orbit.Position(), state.Orbit.Velocity()
		record := []string{
			strconv.FormatFloat(julian.TimeToJD(state.DT), 'f', 8, 64),
			state.Body,
			formatFloat(R.X), formatFloat(R.Y), formatFloat(R.Z),
			formatFloat(V.X), formatFloat(V.Y), formatFloat(V.Z),
			strconv.FormatFloat(state.Orbit.Eccentricity(), 'f', 6, 64),
			strconv.FormatFloat(state.Orbit.MeanAnomaly()/deg2rad, 'f', 6, 64),
		}
		if conf.CSVAppend != nil {
			record = append(record, conf.CSVAppend(state)...)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOrbitPoints writes sampled orbit points as "body,x,y,z" CSV rows.
func WriteOrbitPoints(w io.Writer, body string, points []r3.Vec) error {
	cw := csv.NewWriter(w)
	for _, pt := range points {
		if err := cw.Write([]string{body, formatFloat(pt.X), formatFloat(pt.Y), formatFloat(pt.Z)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}
