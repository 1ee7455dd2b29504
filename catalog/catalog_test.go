package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orbitsim/orbitsim"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func openTemp(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestFromOrbit(t *testing.T) {
	o := orbitsim.NewOrbitFromElements(0.3, 7000, 40, 28.5, 45, 60, orbitsim.Earth.Mass, orbitsim.GravitationalConstant, 0)
	epoch := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	s := FromOrbit("sat", "Earth", epoch, o)
	for _, c := range []struct {
		name     string
		got, exp float64
	}{
		{"ecc", s.Ecc, 0.3},
		{"sma", s.SMA, 7000},
		{"M", s.MeanAnomaly, 40},
		{"inc", s.Inc, 28.5},
		{"ω", s.ArgPeri, 45},
		{"Ω", s.RAAN, 60},
	} {
		if !scalar.EqualWithinAbsOrRel(c.got, c.exp, 1e-6, 1e-9) {
			t.Fatalf("%s=%f instead of %f", c.name, c.got, c.exp)
		}
	}
	rebuilt := s.Orbit()
	if !vectorsEqual(rebuilt.Position(), o.Position()) || !vectorsEqual(rebuilt.Velocity(), o.Velocity()) {
		t.Fatalf("rebuilt orbit differs:\n%+v %+v\n%+v %+v", rebuilt.Position(), rebuilt.Velocity(), o.Position(), o.Velocity())
	}

	// Parabolas are stored with their periapsis distance.
	para := orbitsim.NewOrbitFromElements(1, 5, 10, 0, 0, 0, 1, 1, 0)
	if s := FromOrbit("comet", "Sun", epoch, para); s.SMA != para.PeriapsisDistance() {
		t.Fatalf("parabola stored with sma=%f", s.SMA)
	}
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	epoch := time.Date(2021, 6, 1, 12, 30, 0, 123, time.UTC)
	o := orbitsim.NewOrbitFromElements(1.4, 2e4, -20, 10, 20, 30, orbitsim.Earth.Mass, orbitsim.GravitationalConstant, 0)
	id, err := c.Save(ctx, FromOrbit("flyby", "Earth", epoch, o))
	if err != nil {
		t.Fatal(err)
	}
	if id == uuid.Nil {
		t.Fatal("no id assigned")
	}
	got, err := c.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Epoch.Equal(epoch) {
		t.Fatalf("epoch %s instead of %s", got.Epoch, epoch)
	}
	exp := FromOrbit("flyby", "Earth", epoch, o)
	exp.ID, exp.Epoch = id, got.Epoch
	if got != exp {
		t.Fatalf("got %+v\ninstead of %+v", got, exp)
	}
	if got.MeanAnomaly >= 0 {
		t.Fatal("hyperbolic mean anomaly lost its sign")
	}

	// Saving again with the same id replaces the set.
	got.Name = "renamed"
	if _, err := c.Save(ctx, got); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Save(ctx, ElementSet{Name: "another", Epoch: epoch, Ecc: 0.1, SMA: 1, Mass: 1, G: 1}); err != nil {
		t.Fatal(err)
	}
	sets, err := c.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != 2 || sets[0].Name != "another" || sets[1].Name != "renamed" || sets[1].ID != id {
		t.Fatalf("invalid listing %+v", sets)
	}

	if _, err := c.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func vectorsEqual(a, b r3.Vec) bool {
	const ε = 1e-6
	return scalar.EqualWithinAbsOrRel(a.X, b.X, ε, ε) &&
		scalar.EqualWithinAbsOrRel(a.Y, b.Y, ε, ε) &&
		scalar.EqualWithinAbsOrRel(a.Z, b.Z, ε, ε)
}
