package testsupport

import (
	"path/filepath"
	"testing"

	"cocomerge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a finalized config whose datasets path is a unique temp
// directory. The dataset defaults to "jmas" split "train" with objects 1..3.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Dataset.Name = "jmas"
	cfgVal.Dataset.Split = "train"
	cfgVal.Dataset.DatasetsPath = filepath.Join(base, "datasets")
	cfgVal.Dataset.ObjIDs = []int{1, 2, 3}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Finalize(); err != nil {
		t.Fatalf("finalize test config: %v", err)
	}
	return builder.cfg
}

// WithSceneIDs pins the merged scene list.
func WithSceneIDs(ids ...int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.SceneIDs = ids
	}
}

// WithSplit overrides the split name and type.
func WithSplit(split, splitType string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.Split = split
		b.cfg.Dataset.SplitType = splitType
	}
}

// WithBBoxType selects modal or amodal annotations.
func WithBBoxType(bbox string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.BBoxType = bbox
	}
}

// WithObjIDs overrides the configured objects; no IDs means read models_info.json.
func WithObjIDs(ids ...int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dataset.ObjIDs = ids
	}
}

// WithLedger enables the remap ledger inside the temp directory.
func WithLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Trace.RemapLedger = filepath.Join(b.baseDir, "trace", "ledger.db")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Dataset.DatasetsPath)
}

// SplitDir returns the directory holding the configured split's scenes.
func SplitDir(cfg *config.Config) string {
	split := cfg.Dataset.Split
	if cfg.Dataset.SplitType != "" {
		split += "_" + cfg.Dataset.SplitType
	}
	return filepath.Join(cfg.Dataset.DatasetsPath, cfg.Dataset.Name, split)
}
