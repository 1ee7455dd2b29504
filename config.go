package orbitsim

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	envPrefix      = "ORBITSIM"
	dateTimeFormat = "2006-01-02 15:04:05"
)

// SamplingConfig configures the orbit path sampling.
type SamplingConfig struct {
	Points      int
	MaxDistance float64 // +Inf when unset
	MinSpan     float64
}

// ElementsConfig holds the orbital elements of a body. All angles are in degrees.
type ElementsConfig struct {
	Ecc, SMA, MeanAnomaly, Inc, ArgPeri, RAAN float64
	Period                                    float64 // seconds, optional
}

// BodyConfig defines a body of the scenario. Bodies without attractor are fixed attractors
// placed at Position. Others orbit their attractor, from their Elements if set, or else from
// Position and Velocity relative to the attractor.
type BodyConfig struct {
	Name      string
	Attractor string
	Mode      Mode
	Mass      float64
	Position  r3.Vec
	Velocity  r3.Vec
	Elements  *ElementsConfig
}

// Config is the full simulation configuration.
type Config struct {
	Scale       Scale
	TimeScale   float64
	G           float64
	Sampling    SamplingConfig
	OutputDir   string
	Start       time.Time
	Ticks       int
	Dt          float64 // seconds per tick
	Jump        time.Duration
	CatalogPath string
	MetricsAddr string
	Bodies      []BodyConfig
}

// TickContext returns the per tick parameters, with G compensated for the scale.
func (c Config) TickContext() TickContext {
	return TickContext{Dt: c.Dt, TimeScale: c.TimeScale, G: c.Scale.CompensatedG(c.G)}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scale.units_per_au", AU)
	v.SetDefault("scale.time_scale", 1.0)
	v.SetDefault("physics.g", GravitationalConstant)
	v.SetDefault("sampling.points", 128)
	v.SetDefault("sampling.max_distance", 0.0)
	v.SetDefault("sampling.min_span", 1e-3)
	v.SetDefault("general.output_path", ".")
	v.SetDefault("simulation.ticks", 0)
	v.SetDefault("simulation.dt", 1.0)
	v.SetDefault("simulation.jump", time.Duration(0))
}

// LoadConfig reads the TOML configuration at path, or at $ORBITSIM_CONFIG if path is empty.
// Every key may be overridden by an environment variable, e.g. ORBITSIM_SCALE_UNITS_PER_AU.
// Without any file, the defaults are used.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return configFrom(v)
}

func configFrom(v *viper.Viper) (Config, error) {
	c := Config{
		Scale:     Scale{UnitsPerAU: v.GetFloat64("scale.units_per_au")},
		TimeScale: v.GetFloat64("scale.time_scale"),
		G:         v.GetFloat64("physics.g"),
		Sampling: SamplingConfig{
			Points:      v.GetInt("sampling.points"),
			MaxDistance: v.GetFloat64("sampling.max_distance"),
			MinSpan:     v.GetFloat64("sampling.min_span"),
		},
		OutputDir:   v.GetString("general.output_path"),
		Ticks:       v.GetInt("simulation.ticks"),
		Dt:          v.GetFloat64("simulation.dt"),
		Jump:        v.GetDuration("simulation.jump"),
		CatalogPath: v.GetString("catalog.path"),
		MetricsAddr: v.GetString("metrics.addr"),
	}
	if c.Scale.UnitsPerAU <= 0 {
		return Config{}, errors.New("scale.units_per_au must be strictly positive")
	}
	if c.G <= 0 {
		return Config{}, errors.New("physics.g must be strictly positive")
	}
	if c.TimeScale < 0 {
		return Config{}, errors.New("scale.time_scale cannot be negative")
	}
	if c.Sampling.Points <= 0 {
		return Config{}, errors.New("sampling.points must be strictly positive")
	}
	if c.Sampling.MaxDistance <= 0 {
		c.Sampling.MaxDistance = math.Inf(1)
	}
	c.Start = time.Now().UTC()
	if v.IsSet("simulation.start") {
		start, err := readJDEorTime(v, "simulation.start")
		if err != nil {
			return Config{}, err
		}
		c.Start = start
	}
	for bodyNo := 0; v.IsSet(fmt.Sprintf("bodies.%d", bodyNo)); bodyNo++ {
		body, err := readBody(v, fmt.Sprintf("bodies.%d", bodyNo))
		if err != nil {
			return Config{}, err
		}
		c.Bodies = append(c.Bodies, body)
	}
	return c, nil
}

func readBody(v *viper.Viper, key string) (BodyConfig, error) {
	b := BodyConfig{
		Name:      v.GetString(key + ".name"),
		Attractor: v.GetString(key + ".attractor"),
		Mass:      v.GetFloat64(key + ".mass"),
	}
	if b.Name == "" {
		return b, fmt.Errorf("%s: missing name", key)
	}
	if b.Mass == 0 {
		if obj, err := CelestialObjectFromString(b.Name); err == nil {
			b.Mass = obj.Mass
		}
	}
	mode, err := ParseMode(v.GetString(key + ".mode"))
	if err != nil {
		return b, fmt.Errorf("%s: %w", key, err)
	}
	b.Mode = mode
	if b.Position, err = readVec(v, key+".position"); err != nil {
		return b, err
	}
	if b.Velocity, err = readVec(v, key+".velocity"); err != nil {
		return b, err
	}
	if v.IsSet(key + ".elements") {
		b.Elements = &ElementsConfig{
			Ecc:         v.GetFloat64(key + ".elements.ecc"),
			SMA:         v.GetFloat64(key + ".elements.sma"),
			MeanAnomaly: v.GetFloat64(key + ".elements.mAnomaly"),
			Inc:         v.GetFloat64(key + ".elements.inc"),
			ArgPeri:     v.GetFloat64(key + ".elements.argPeri"),
			RAAN:        v.GetFloat64(key + ".elements.RAAN"),
			Period:      v.GetFloat64(key + ".elements.period"),
		}
	}
	return b, nil
}

// readVec reads an optional three component array.
func readVec(v *viper.Viper, key string) (r3.Vec, error) {
	if !v.IsSet(key) {
		return r3.Vec{}, nil
	}
	var xyz []float64
	if err := v.UnmarshalKey(key, &xyz); err != nil {
		return r3.Vec{}, fmt.Errorf("could not understand `%s`: %w", key, err)
	}
	if len(xyz) != 3 {
		return r3.Vec{}, fmt.Errorf("`%s` must have three components, got %d", key, len(xyz))
	}
	return r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// readJDEorTime reads either a Julian date or a "2006-01-02 15:04:05" UTC date.
func readJDEorTime(v *viper.Viper, key string) (time.Time, error) {
	if jde := v.GetFloat64(key); jde != 0 {
		return julian.JDToTime(jde), nil
	}
	dt, err := time.Parse(dateTimeFormat, v.GetString(key))
	if err != nil {
		return time.Time{}, fmt.Errorf("could not understand `%s`: %w", key, err)
	}
	return dt, nil
}

// ParseMode parses a mode name; the empty string is Live.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "live":
		return Live, nil
	case "locked":
		return Locked, nil
	}
	return Uninitialized, fmt.Errorf("unknown mode '%s'", s)
}
