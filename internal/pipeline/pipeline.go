// Package pipeline runs one batch pass: load raw reviews, normalize them,
// save the cleaned table, compute the reports and save each of them.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"reviewetl/internal/datasource"
	"reviewetl/internal/metrics"
	"reviewetl/internal/normalize"
	"reviewetl/internal/output"
	"reviewetl/internal/reports"
	"reviewetl/internal/table"
)

// Deps are the collaborators a run needs.
type Deps struct {
	Source datasource.Source
	Writer *output.Writer
	Logger *zap.Logger
}

// Options describe one run.
type Options struct {
	Job       string
	RunID     string
	Locations []string
	Load      datasource.LoadOptions

	NormalizeWorkers int
	AggregateWorkers int

	// SinkKind is recorded in the manifest.
	SinkKind string
	// ManifestPath enables the YAML run manifest when set.
	ManifestPath string

	// Now defaults to time.Now.
	Now func() time.Time
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	InputRows   int
	CleanedRows int
	Reports     []reports.Result
	Artifacts   []output.Artifact
	Elapsed     time.Duration
}

// Run executes every stage in order. The first failure stops the run and is
// returned as *output.StageError; artifacts written before it stay in place.
func Run(ctx context.Context, deps Deps, opt Options) (*Summary, error) {
	now := opt.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	started := now()
	sum := &Summary{RunID: opt.RunID}

	var raw *table.Table
	err := step(opt.Job, output.StageLoad, logger, func() error {
		var err error
		raw, err = deps.Source.Load(ctx, opt.Locations, opt.Load)
		if err != nil {
			return err
		}
		logger.Info("raw reviews loaded", zap.Int("rows", raw.Len()), zap.Strings("columns", raw.Names()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sum.InputRows = raw.Len()
	metrics.RecordRow(opt.Job, "loaded", int64(raw.Len()))

	var cleaned *table.Table
	err = step(opt.Job, output.StageNormalize, logger, func() error {
		var err error
		cleaned, err = normalize.Normalize(raw, normalize.Options{Workers: opt.NormalizeWorkers})
		return err
	})
	if err != nil {
		return nil, err
	}
	sum.CleanedRows = cleaned.Len()
	metrics.RecordRow(opt.Job, "cleaned", int64(cleaned.Len()))

	if err := write(ctx, opt.Job, sum, func(ctx context.Context) (output.Artifact, error) {
		return deps.Writer.WriteCleaned(ctx, cleaned)
	}); err != nil {
		return nil, err
	}

	err = step(opt.Job, output.StageAggregate, logger, func() error {
		var err error
		sum.Reports, err = reports.RunAll(cleaned, reports.Options{Workers: opt.AggregateWorkers})
		return err
	})
	if err != nil {
		return nil, err
	}

	for i, r := range sum.Reports {
		r := r
		logger.Info("writing report", zap.Int("query", i+1), zap.String("report", r.Name), zap.Int("rows", r.Table.Len()))
		metrics.RecordRow(opt.Job, "reported", int64(r.Table.Len()))
		if err := write(ctx, opt.Job, sum, func(ctx context.Context) (output.Artifact, error) {
			return deps.Writer.Write(ctx, r.Name, r.Table)
		}); err != nil {
			return nil, err
		}
	}

	sum.Elapsed = now().Sub(started)
	if opt.ManifestPath != "" {
		m := output.Manifest{
			Job:        opt.Job,
			RunID:      opt.RunID,
			StartedAt:  started.UTC(),
			FinishedAt: started.Add(sum.Elapsed).UTC(),
			Sources:    opt.Locations,
			Sink:       opt.SinkKind,
			InputRows:  sum.InputRows,
			Artifacts:  sum.Artifacts,
		}
		err := step(opt.Job, output.StageManifest, logger, func() error {
			return output.WriteManifest(opt.ManifestPath, m)
		})
		if err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// step times fn, records it and wraps a failure as a StageError.
func step(job, stage string, logger *zap.Logger, fn func() error) error {
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.RecordStep(job, stage, err, d)
	if err != nil {
		logger.Error("stage failed", zap.String("stage", stage), zap.Duration("elapsed", d), zap.Error(err))
		return &output.StageError{Stage: stage, Err: err}
	}
	logger.Info("stage finished", zap.String("stage", stage), zap.Duration("elapsed", d))
	return nil
}

// write saves one artifact and records it. Writer errors are already
// StageErrors.
func write(ctx context.Context, job string, sum *Summary, fn func(context.Context) (output.Artifact, error)) error {
	start := time.Now()
	a, err := fn(ctx)
	metrics.RecordStep(job, output.StageWrite, err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.RecordArtifact(job, a.Name, a.Bytes)
	sum.Artifacts = append(sum.Artifacts, a)
	return nil
}
