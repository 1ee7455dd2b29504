package orbitsim

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

const scenarioTOML = `
[general]
output_path = "/tmp/orbitsim"

[scale]
units_per_au = 1000.0
time_scale = 10.0

[sampling]
points = 64
max_distance = 5000.0

[simulation]
start = "2020-03-15 12:00:00"
ticks = 5
dt = 0.5
jump = "2h"

[catalog]
path = "/tmp/orbitsim/catalog.db"

[[bodies]]
name = "Sun"
position = [1.0, 2.0, 3.0]

[[bodies]]
name = "Earth"
attractor = "Sun"
mode = "locked"
[bodies.elements]
ecc = 0.0167
sma = 1000.0
mAnomaly = 10.0
inc = 1.5
argPeri = 102.9
RAAN = 11.2

[[bodies]]
name = "probe"
attractor = "Earth"
mass = 1
position = [1, 0, 0]
velocity = [0.0, 1.5, 0.0]
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orbitsim.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ORBITSIM_CONFIG", "")
	c, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Scale.UnitsPerAU != AU || c.G != GravitationalConstant || c.TimeScale != 1 {
		t.Fatalf("invalid defaults: %+v", c)
	}
	if c.Sampling.Points != 128 || !math.IsInf(c.Sampling.MaxDistance, 1) || c.Sampling.MinSpan != 1e-3 {
		t.Fatalf("invalid sampling defaults: %+v", c.Sampling)
	}
	if c.OutputDir != "." || c.Ticks != 0 || c.Dt != 1 || c.Jump != 0 || len(c.Bodies) != 0 {
		t.Fatalf("invalid simulation defaults: %+v", c)
	}
	// With one unit per meter, G is unchanged.
	if ctx := c.TickContext(); !scalar.EqualWithinRel(ctx.G, GravitationalConstant, 1e-12) {
		t.Fatalf("G=%g", ctx.G)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ORBITSIM_CONFIG", writeConfig(t, scenarioTOML))
	t.Setenv("ORBITSIM_SCALE_TIME_SCALE", "20")
	c, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Scale.UnitsPerAU != 1000 || c.TimeScale != 20 {
		t.Fatalf("invalid scale: %+v, time scale %f", c.Scale, c.TimeScale)
	}
	if c.Sampling.Points != 64 || c.Sampling.MaxDistance != 5000 {
		t.Fatalf("invalid sampling: %+v", c.Sampling)
	}
	if exp := time.Date(2020, 3, 15, 12, 0, 0, 0, time.UTC); !c.Start.Equal(exp) {
		t.Fatalf("start=%s instead of %s", c.Start, exp)
	}
	if c.Ticks != 5 || c.Dt != 0.5 || c.Jump != 2*time.Hour {
		t.Fatalf("invalid simulation: %+v", c)
	}
	if c.OutputDir != "/tmp/orbitsim" || c.CatalogPath != "/tmp/orbitsim/catalog.db" {
		t.Fatalf("invalid paths: %s %s", c.OutputDir, c.CatalogPath)
	}
	if len(c.Bodies) != 3 {
		t.Fatalf("%d bodies instead of 3", len(c.Bodies))
	}
	sun, earth, probe := c.Bodies[0], c.Bodies[1], c.Bodies[2]
	if sun.Mass != Sun.Mass || sun.Attractor != "" || sun.Position != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("invalid sun: %+v", sun)
	}
	if earth.Mode != Locked || earth.Attractor != "Sun" || earth.Elements == nil {
		t.Fatalf("invalid earth: %+v", earth)
	}
	exp := ElementsConfig{Ecc: 0.0167, SMA: 1000, MeanAnomaly: 10, Inc: 1.5, ArgPeri: 102.9, RAAN: 11.2}
	if *earth.Elements != exp {
		t.Fatalf("invalid elements: %+v", *earth.Elements)
	}
	if probe.Mode != Live || probe.Mass != 1 || probe.Elements != nil {
		t.Fatalf("invalid probe: %+v", probe)
	}
	if probe.Position != (r3.Vec{X: 1}) || probe.Velocity != (r3.Vec{Y: 1.5}) {
		t.Fatalf("invalid probe state: %+v %+v", probe.Position, probe.Velocity)
	}
}

func TestLoadConfigJDE(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "[simulation]\nstart = 2451545.0\n"))
	if err != nil {
		t.Fatal(err)
	}
	if exp := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC); c.Start.Sub(exp).Abs() > time.Millisecond {
		t.Fatalf("start=%s instead of %s", c.Start, exp)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	for name, contents := range map[string]string{
		"scale":      "[scale]\nunits_per_au = -1.0\n",
		"time scale": "[scale]\ntime_scale = -1.0\n",
		"G":          "[physics]\ng = 0.0\n",
		"points":     "[sampling]\npoints = -1\n",
		"start":      "[simulation]\nstart = \"yesterday\"\n",
		"no name":    "[[bodies]]\nmass = 1.0\n",
		"mode":       "[[bodies]]\nname = \"x\"\nmode = \"frozen\"\n",
		"position":   "[[bodies]]\nname = \"x\"\nposition = [1.0, 2.0]\n",
	} {
		if _, err := LoadConfig(writeConfig(t, contents)); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestParseMode(t *testing.T) {
	for s, exp := range map[string]Mode{"": Live, "live": Live, "Locked": Locked} {
		if m, err := ParseMode(s); err != nil || m != exp {
			t.Fatalf("%q: %s %v", s, m, err)
		}
	}
	if _, err := ParseMode("uninitialized"); err == nil {
		t.Fatal("expected an error")
	}
}
