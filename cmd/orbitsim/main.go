package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/joho/godotenv"
	"github.com/orbitsim/orbitsim"
	"github.com/orbitsim/orbitsim/catalog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gonum.org/v1/gonum/spatial/r3"
)

// This code reads the configuration, propagates every body and exports their states.

var (
	configPath string
	exportName string
	verbose    bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "configuration TOML file (defaults to $ORBITSIM_CONFIG)")
	flag.StringVar(&exportName, "name", "orbitsim", "name used in the exported file names")
	flag.BoolVar(&verbose, "verbose", false, "log every tick failure")
}

func main() {
	flag.Parse()
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Log("level", "warning", "subsys", "conf", "message", "could not load .env", "err", err)
	}
	if err := run(context.Background(), logger); err != nil {
		logger.Log("level", "critical", "subsys", "main", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger kitlog.Logger) error {
	conf, err := orbitsim.LoadConfig(configPath)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	metrics := orbitsim.NewMetrics(reg)
	if conf.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(conf.MetricsAddr, mux); err != nil {
				logger.Log("level", "warning", "subsys", "metrics", "err", err)
			}
		}()
	}

	scene, err := orbitsim.BuildScene(conf, logger, metrics)
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}
	tick := conf.TickContext()
	if err := scene.System.Activate(tick); err != nil {
		return fmt.Errorf("activating: %w", err)
	}
	timeline := orbitsim.NewTimeline(conf.Start, orbitsim.WithTimelineLogger(logger), orbitsim.WithTimelineMetrics(metrics))
	for _, p := range scene.Bodies {
		if _, err := timeline.RegisterBody(p); err != nil {
			return err
		}
	}
	logger.Log("level", "info", "subsys", "main", "bodies", len(scene.Bodies), "start", conf.Start, "jd", timeline.JD())

	// Stream the states to the CSV writer.
	var wg sync.WaitGroup
	stateChan := make(chan orbitsim.State, 1000)
	export := orbitsim.ExportConfig{Filename: exportName, OutputDir: conf.OutputDir, AsCSV: true}
	var exportErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		exportErr = orbitsim.StreamStates(export, stateChan)
	}()
	snapshot := func() {
		for _, p := range scene.Bodies {
			if p.Orbit() != nil {
				stateChan <- orbitsim.NewState(timeline.Now(), p)
			}
		}
	}

	snapshot()
	for i := 0; i < conf.Ticks; i++ {
		if err := scene.System.Tick(tick); err != nil && verbose {
			logger.Log("level", "notice", "subsys", "main", "tick", i, "err", err)
		}
		timeline.Elapse(tick)
		snapshot()
	}
	if conf.Jump != 0 {
		timeline.AdvanceBy(conf.Jump)
		logger.Log("level", "info", "subsys", "main", "jumped", conf.Jump, "date", timeline.Now())
		snapshot()
	}
	close(stateChan)
	wg.Wait()
	if exportErr != nil {
		return exportErr
	}

	if err := writePaths(conf, scene); err != nil {
		return err
	}
	if conf.CatalogPath != "" {
		if err := saveCatalog(ctx, conf.CatalogPath, timeline, scene); err != nil {
			return err
		}
	}
	logger.Log("level", "notice", "subsys", "main", "status", "finished", "date", timeline.Now())
	return nil
}

// writePaths exports the sampled path of every body.
func writePaths(conf orbitsim.Config, scene *orbitsim.Scene) (err error) {
	f, err := os.Create(filepath.Join(conf.OutputDir, fmt.Sprintf("paths-%s.csv", exportName)))
	if err != nil {
		return fmt.Errorf("creating paths file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	sampler := orbitsim.NewSampler(conf.Sampling.MinSpan)
	for _, p := range scene.Bodies {
		if p.Orbit() == nil {
			continue
		}
		var werr error
		sampler.Sample(p.Orbit(), conf.Sampling.Points, conf.Sampling.MaxDistance, func(pts []r3.Vec) {
			werr = orbitsim.WriteOrbitPoints(f, p.Name(), pts)
		})
		if werr != nil {
			return werr
		}
	}
	return nil
}

func saveCatalog(ctx context.Context, path string, timeline *orbitsim.Timeline, scene *orbitsim.Scene) error {
	cat, err := catalog.Open(ctx, path)
	if err != nil {
		return err
	}
	defer cat.Close()
	for _, p := range scene.Bodies {
		if p.Orbit() == nil || !p.Orbit().IsValidOrbit() {
			continue
		}
		attractor := ""
		if s, ok := p.Attractor().(fmt.Stringer); ok {
			attractor = s.String()
		}
		if _, err := cat.Save(ctx, catalog.FromOrbit(p.Name(), attractor, timeline.Now(), p.Orbit())); err != nil {
			return err
		}
	}
	return nil
}
