package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cocomerge/internal/config"
	"cocomerge/internal/pipeline"
)

type mergeFlags struct {
	dataset      string
	split        string
	splitType    string
	bboxType     string
	datasetsPath string
	output       string
	dryRun       bool
	summary      bool
	jsonOut      bool
}

// apply copies every flag the user set onto cfg.
func (f *mergeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("dataset") {
		cfg.Dataset.Name = f.dataset
	}
	if flags.Changed("split") {
		cfg.Dataset.Split = f.split
	}
	if flags.Changed("split-type") {
		cfg.Dataset.SplitType = f.splitType
	}
	if flags.Changed("bbox-type") {
		cfg.Dataset.BBoxType = f.bboxType
	}
	if flags.Changed("datasets-path") {
		cfg.Dataset.DatasetsPath = f.datasetsPath
	}
	if flags.Changed("output") {
		cfg.Output.Path = f.output
	}
}

func addDatasetFlags(cmd *cobra.Command, f *mergeFlags) {
	cmd.Flags().StringVar(&f.dataset, "dataset", "", "Dataset name (for example jmas)")
	cmd.Flags().StringVar(&f.split, "split", "", "Split name (for example train)")
	cmd.Flags().StringVar(&f.splitType, "split-type", "", "Split type suffix of the scene directory (for example primesense)")
	cmd.Flags().StringVar(&f.bboxType, "bbox-type", "", "Annotation variant to merge: amodal or modal")
	cmd.Flags().StringVar(&f.datasetsPath, "datasets-path", "", "Root directory holding BOP datasets")
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	flags := &mergeFlags{}

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the scene annotation files of a split into coco_<split>.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.finalConfig(func(cfg *config.Config) { flags.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd, cfg)
			if err != nil {
				return err
			}

			opts := []pipeline.Option{pipeline.WithDryRun(flags.dryRun)}
			if cfg.Trace.RemapLedger != "" && !flags.dryRun {
				store, err := openLedger(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, pipeline.WithLedger(store))
			}

			runner, err := pipeline.New(cfg, logger, opts...)
			if err != nil {
				return err
			}
			result, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}

			if flags.jsonOut {
				return writeJSON(cmd, mergeJSON(result))
			}
			out := cmd.OutOrStdout()
			if flags.summary {
				fmt.Fprintln(out, renderMergeSummary(result, shouldColorize(out)))
			}
			if result.DryRun {
				fmt.Fprintf(out, "Dry run: would write %d images and %d annotations to %s\n",
					result.Images, result.Annotations, result.OutputPath)
				return nil
			}
			fmt.Fprintf(out, "Wrote %s (%d images, %d annotations, %s)\n",
				result.OutputPath, result.Images, result.Annotations, humanize.Bytes(uint64(result.Bytes)))
			if missing := result.MissingScenes(); len(missing) > 0 {
				fmt.Fprintf(out, "Skipped %d missing scenes: %s\n", len(missing), joinInts(missing))
			}
			return nil
		},
	}

	addDatasetFlags(cmd, flags)
	cmd.Flags().StringVar(&flags.output, "output", "", "Override the merged file path")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Merge in memory without writing the output or the ledger")
	cmd.Flags().BoolVar(&flags.summary, "summary", false, "Print a per-scene summary table")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Print the run result as JSON")
	return cmd
}

type mergeSceneJSON struct {
	SceneID     int    `json:"scene_id"`
	Path        string `json:"path"`
	Missing     bool   `json:"missing"`
	Images      int    `json:"images"`
	Annotations int    `json:"annotations"`
}

type mergeResultJSON struct {
	RunID       string           `json:"run_id"`
	OutputPath  string           `json:"output_path"`
	DryRun      bool             `json:"dry_run"`
	Images      int              `json:"images"`
	Annotations int              `json:"annotations"`
	Categories  int              `json:"categories"`
	Bytes       int64            `json:"bytes"`
	Missing     []int            `json:"missing_scenes"`
	Scenes      []mergeSceneJSON `json:"scenes"`
}

func mergeJSON(result *pipeline.Result) mergeResultJSON {
	payload := mergeResultJSON{
		RunID:       result.RunID,
		OutputPath:  result.OutputPath,
		DryRun:      result.DryRun,
		Images:      result.Images,
		Annotations: result.Annotations,
		Categories:  result.Categories,
		Bytes:       result.Bytes,
		Missing:     result.MissingScenes(),
		Scenes:      make([]mergeSceneJSON, 0, len(result.Scenes)),
	}
	if payload.Missing == nil {
		payload.Missing = []int{}
	}
	for _, s := range result.Scenes {
		payload.Scenes = append(payload.Scenes, mergeSceneJSON{
			SceneID:     s.SceneID,
			Path:        s.Path,
			Missing:     s.Missing,
			Images:      s.Images,
			Annotations: s.Annotations,
		})
	}
	return payload
}

func renderMergeSummary(result *pipeline.Result, colorize bool) string {
	rows := make([][]string, 0, len(result.Scenes))
	for _, s := range result.Scenes {
		rows = append(rows, []string{
			fmt.Sprintf("%06d", s.SceneID),
			sceneStatus(!s.Missing, colorize),
			strconv.Itoa(s.Images),
			strconv.Itoa(s.Annotations),
		})
	}
	return renderTable(
		[]string{"Scene", "Status", "Images", "Annotations"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
		"Total", fmt.Sprintf("%d merged", result.Merged()), strconv.Itoa(result.Images), strconv.Itoa(result.Annotations),
	)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}
