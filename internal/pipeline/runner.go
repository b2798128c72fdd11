package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"cocomerge/internal/coco"
	"cocomerge/internal/config"
	"cocomerge/internal/dataset"
	"cocomerge/internal/fileutil"
	"cocomerge/internal/ledger"
	"cocomerge/internal/logging"
)

// Recorder persists the remaps of a completed run.
type Recorder interface {
	RecordRun(ctx context.Context, run ledger.Run, scenes []ledger.SceneRemap) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock overrides the clock used for info.date_created.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLedger records every successful run's remaps.
func WithLedger(rec Recorder) Option {
	return func(r *Runner) { r.ledger = rec }
}

// WithDryRun folds every scene but skips the output write and ledger.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) { r.dryRun = dryRun }
}

// Runner merges the scenes of one dataset split.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	split      *dataset.SplitParams
	models     *dataset.ModelParams
	bbox       dataset.BBoxType
	outputPath string

	now    func() time.Time
	ledger Recorder
	dryRun bool
}

// SceneResult describes how one scene contributed to the merge.
type SceneResult struct {
	SceneID     int
	Path        string
	Missing     bool
	Images      int
	Annotations int
	Remap       coco.IDRemap
}

// Result summarizes a completed run.
type Result struct {
	RunID       string
	OutputPath  string
	DryRun      bool
	Scenes      []SceneResult
	Images      int
	Annotations int
	Categories  int
	Bytes       int64
}

// Merged counts scenes that contributed data.
func (r *Result) Merged() int {
	n := 0
	for _, s := range r.Scenes {
		if !s.Missing {
			n++
		}
	}
	return n
}

// MissingScenes lists the IDs of skipped scenes in processing order.
func (r *Result) MissingScenes() []int {
	var ids []int
	for _, s := range r.Scenes {
		if s.Missing {
			ids = append(ids, s.SceneID)
		}
	}
	return ids
}

// New resolves the split and object list described by cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires a config")
	}
	bbox, err := dataset.ParseBBoxType(cfg.Dataset.BBoxType)
	if err != nil {
		return nil, fmt.Errorf("dataset.bbox_type: %w", err)
	}
	split, err := dataset.ResolveSplit(dataset.SplitRequest{
		DatasetsPath: cfg.Dataset.DatasetsPath,
		Dataset:      cfg.Dataset.Name,
		Split:        cfg.Dataset.Split,
		SplitType:    cfg.Dataset.SplitType,
		SceneIDs:     cfg.Dataset.SceneIDs,
	})
	if err != nil {
		return nil, err
	}
	models, err := dataset.ResolveModels(cfg.Dataset.DatasetsPath, cfg.Dataset.Name, cfg.Dataset.ObjIDs)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		split:      split,
		models:     models,
		bbox:       bbox,
		outputPath: split.OutputPath(),
		now:        time.Now,
	}
	if cfg.Output.Path != "" {
		r.outputPath = cfg.Output.Path
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Split exposes the resolved split parameters.
func (r *Runner) Split() *dataset.SplitParams { return r.split }

// OutputPath is where Run writes the merged collection.
func (r *Runner) OutputPath() string { return r.outputPath }

// Run folds every scene in order and writes the merged collection once.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := r.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldDataset, r.split.Dataset),
		logging.String(logging.FieldSplit, r.split.Split),
		logging.String(logging.FieldSplitType, r.split.SplitType),
	)

	created := r.now()
	acc := coco.NewCollection(
		coco.NewInfo(r.cfg.Description(), r.cfg.Info.URL, r.cfg.Info.Version, r.cfg.Info.Contributor, created),
		coco.CategoriesFromObjectIDs(r.models.ObjIDs, r.split.Dataset),
	)

	result := &Result{
		RunID:      runID,
		OutputPath: r.outputPath,
		DryRun:     r.dryRun,
		Scenes:     make([]SceneResult, 0, len(r.split.SceneIDs)),
		Categories: len(acc.Categories),
	}

	for _, sceneID := range r.split.SceneIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scene, err := r.mergeScene(acc, sceneID, logger)
		if err != nil {
			return nil, err
		}
		result.Scenes = append(result.Scenes, scene)
	}
	result.Images = len(acc.Images)
	result.Annotations = len(acc.Annotations)

	if r.dryRun {
		logger.Info("dry run: skipping merged coco file write",
			logging.String(logging.FieldPath, r.outputPath),
			logging.Int("images", result.Images),
			logging.Int("annotations", result.Annotations),
		)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("saving merged coco file", logging.String(logging.FieldPath, r.outputPath))
	written, err := fileutil.WriteFileAtomic(r.outputPath, 0o644, func(w io.Writer) error {
		return coco.Encode(w, acc)
	})
	if err != nil {
		return nil, fmt.Errorf("write merged coco file: %w", err)
	}
	result.Bytes = written
	logger.Info("merged coco file written",
		logging.String(logging.FieldPath, r.outputPath),
		logging.Int("scenes", result.Merged()),
		logging.Int("missing", len(result.MissingScenes())),
		logging.Int("images", result.Images),
		logging.Int("annotations", result.Annotations),
		logging.String("size", humanize.Bytes(uint64(written))),
	)

	if r.ledger != nil {
		if err := r.record(ctx, result, created); err != nil {
			return result, fmt.Errorf("record remap ledger: %w", err)
		}
	}
	return result, nil
}

// mergeScene loads one scene, rewrites its image paths and folds it into acc.
func (r *Runner) mergeScene(acc *coco.Collection, sceneID int, logger *slog.Logger) (SceneResult, error) {
	path := r.split.SceneCocoPath(sceneID, r.bbox)
	res := SceneResult{SceneID: sceneID, Path: path}

	scene, err := coco.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("scene annotation file missing",
				logging.Int(logging.FieldSceneID, sceneID),
				logging.String(logging.FieldPath, path),
			)
			res.Missing = true
			return res, nil
		}
		return res, err
	}

	scene.RewriteImagePaths(func(name string) string {
		return r.split.ImagePath(sceneID, name)
	})

	logger.Info("merging coco annotations", logging.Int(logging.FieldSceneID, sceneID))

	res.Images = len(scene.Images)
	res.Annotations = len(scene.Annotations)
	remap, err := coco.Merge(acc, scene)
	if err != nil {
		return res, fmt.Errorf("scene %d (%s): %w", sceneID, path, err)
	}
	res.Remap = remap
	return res, nil
}

func (r *Runner) record(ctx context.Context, result *Result, created time.Time) error {
	scenes := make([]ledger.SceneRemap, 0, len(result.Scenes))
	for _, s := range result.Scenes {
		if s.Missing {
			continue
		}
		scenes = append(scenes, ledger.SceneRemap{
			SceneID:     s.SceneID,
			Images:      s.Remap.Images,
			Annotations: s.Remap.Annotations,
		})
	}
	return r.ledger.RecordRun(ctx, ledger.Run{
		RunID:       result.RunID,
		Dataset:     r.split.Dataset,
		Split:       r.split.Split,
		SplitType:   r.split.SplitType,
		BBoxType:    string(r.bbox),
		OutputPath:  result.OutputPath,
		Images:      result.Images,
		Annotations: result.Annotations,
		CreatedAt:   created,
	}, scenes)
}
