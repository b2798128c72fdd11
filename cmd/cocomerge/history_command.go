package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"cocomerge/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var sceneID int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded merge runs, or the identifier remaps of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.finalConfig(nil)
			if err != nil {
				return err
			}
			store, err := openLedger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if !cmd.Flags().Changed("scene") {
				sceneID = -1
			} else if runID == "" {
				return errors.New("--scene requires --run")
			}

			if runID == "" {
				runs, err := store.Runs(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, runsJSON(runs))
				}
				return printRuns(cmd, runs)
			}

			remaps, err := store.Remaps(cmd.Context(), runID, sceneID)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, remapsJSON(remaps))
			}
			return printRemaps(cmd, runID, remaps)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID whose remaps to list")
	cmd.Flags().IntVar(&sceneID, "scene", 0, "Restrict remaps to one scene (requires --run)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func printRuns(cmd *cobra.Command, runs []ledger.Run) error {
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		split := run.Split
		if run.SplitType != "" {
			split += "_" + run.SplitType
		}
		rows = append(rows, []string{
			run.RunID,
			run.CreatedAt.Local().Format(time.DateTime),
			run.Dataset,
			split,
			run.BBoxType,
			strconv.Itoa(run.Images),
			strconv.Itoa(run.Annotations),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Created", "Dataset", "Split", "BBox", "Images", "Annotations"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

func printRemaps(cmd *cobra.Command, runID string, remaps []ledger.Remap) error {
	out := cmd.OutOrStdout()
	if len(remaps) == 0 {
		fmt.Fprintf(out, "No remaps recorded for run %s\n", runID)
		return nil
	}
	rows := make([][]string, 0, len(remaps))
	for _, r := range remaps {
		rows = append(rows, []string{
			fmt.Sprintf("%06d", r.SceneID),
			r.Kind,
			strconv.FormatInt(r.OldID, 10),
			strconv.FormatInt(r.NewID, 10),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Scene", "Kind", "Old ID", "New ID"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))
	return nil
}

type runJSON struct {
	RunID       string    `json:"run_id"`
	Dataset     string    `json:"dataset"`
	Split       string    `json:"split"`
	SplitType   string    `json:"split_type"`
	BBoxType    string    `json:"bbox_type"`
	OutputPath  string    `json:"output_path"`
	Images      int       `json:"images"`
	Annotations int       `json:"annotations"`
	CreatedAt   time.Time `json:"created_at"`
}

type remapJSON struct {
	SceneID int    `json:"scene_id"`
	Kind    string `json:"kind"`
	OldID   int64  `json:"old_id"`
	NewID   int64  `json:"new_id"`
}

func runsJSON(runs []ledger.Run) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON(run))
	}
	return out
}

func remapsJSON(remaps []ledger.Remap) []remapJSON {
	out := make([]remapJSON, 0, len(remaps))
	for _, r := range remaps {
		out = append(out, remapJSON(r))
	}
	return out
}
