package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cocomerge/internal/config"
	"cocomerge/internal/dataset"
)

type sceneJSON struct {
	SceneID int    `json:"scene_id"`
	Path    string `json:"path"`
	Present bool   `json:"present"`
}

func newScenesCommand(ctx *commandContext) *cobra.Command {
	flags := &mergeFlags{}

	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "List the scenes a merge would read and whether each annotation file exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.finalConfig(func(cfg *config.Config) { flags.apply(cmd, cfg) })
			if err != nil {
				return err
			}
			bbox, err := dataset.ParseBBoxType(cfg.Dataset.BBoxType)
			if err != nil {
				return err
			}
			split, err := dataset.ResolveSplit(dataset.SplitRequest{
				DatasetsPath: cfg.Dataset.DatasetsPath,
				Dataset:      cfg.Dataset.Name,
				Split:        cfg.Dataset.Split,
				SplitType:    cfg.Dataset.SplitType,
				SceneIDs:     cfg.Dataset.SceneIDs,
			})
			if err != nil {
				return err
			}
			files := split.SceneFiles(bbox)

			if flags.jsonOut {
				payload := make([]sceneJSON, 0, len(files))
				for _, f := range files {
					payload = append(payload, sceneJSON{SceneID: f.SceneID, Path: f.Path, Present: f.Present})
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No scenes found in %s\n", split.SplitPath)
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(files))
			present := 0
			for _, f := range files {
				if f.Present {
					present++
				}
				rows = append(rows, []string{dataset.SceneDir(f.SceneID), sceneStatus(f.Present, colorize), f.Path})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Scene", "Status", "Annotation file"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d scenes have %s annotations\n", present, len(files), bbox)
			return nil
		},
	}

	addDatasetFlags(cmd, flags)
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Print the scene list as JSON")
	return cmd
}
