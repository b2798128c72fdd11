package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"cocomerge/internal/coco"
	"cocomerge/internal/testsupport"
)

func twoSceneFixture(t *testing.T, env *cliTestEnv) {
	t.Helper()
	testsupport.WriteScene(t, env.cfg, 1, testsupport.Scene{
		Images:      []testsupport.SceneImage{{ID: 0, FileName: "rgb/000000.png"}},
		Annotations: []testsupport.SceneAnnotation{{ID: 0, ImageID: 0, CategoryID: 1}},
	})
	testsupport.WriteScene(t, env.cfg, 3, testsupport.Scene{
		Images:      []testsupport.SceneImage{{ID: 0, FileName: "rgb/000000.png"}},
		Annotations: []testsupport.SceneAnnotation{{ID: 0, ImageID: 0, CategoryID: 2}},
	})
}

func TestMergeCommandWritesOutputAndSummary(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSceneIDs(1, 2, 3))
	twoSceneFixture(t, env)

	out, stderr, err := runCLI(t, []string{"merge", "--summary"}, env.configPath)
	if err != nil {
		t.Fatalf("merge: %v (stderr: %s)", err, stderr)
	}
	outputPath := filepath.Join(env.cfg.Dataset.DatasetsPath, "jmas", "coco_train.json")
	requireContains(t, out, "Wrote "+outputPath)
	requireContains(t, out, "Skipped 1 missing scenes: 2")
	requireContains(t, out, "000002")
	requireContains(t, out, "missing")
	requireContains(t, stderr, "scene annotation file missing")

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	merged, err := coco.Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	var names []string
	for _, img := range merged.Images {
		names = append(names, img.FileName)
	}
	if diff := cmp.Diff([]string{"train/000001/rgb/000000.png", "train/000003/rgb/000000.png"}, names); diff != "" {
		t.Fatalf("merged images mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeCommandFlagsOverrideConfig(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSceneIDs(1))
	env.cfg.Dataset.Name = ""
	writeTestConfig(t, env.configPath, env.cfg)
	env.cfg.Dataset.Name = "jmas"
	env.cfg.Dataset.Split = "val"
	env.cfg.Dataset.SplitType = "pbr"
	testsupport.WriteScene(t, env.cfg, 1, testsupport.Scene{
		Images: []testsupport.SceneImage{{ID: 7, FileName: "rgb/000007.png"}},
	})

	target := filepath.Join(env.baseDir, "custom", "merged.json")
	out, _, err := runCLI(t, []string{
		"merge", "--dataset", "jmas", "--split", "val", "--split-type", "pbr",
		"--output", target, "--log-level", "error",
	}, env.configPath)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	requireContains(t, out, "Wrote "+target)

	file, err := os.Open(target)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()
	merged, err := coco.Decode(file)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if merged.Info.Description != "jmas_val" {
		t.Fatalf("unexpected description %q", merged.Info.Description)
	}
	if len(merged.Images) != 1 || merged.Images[0].FileName != "val/000001/rgb/000007.png" || merged.Images[0].ID != 0 {
		t.Fatalf("unexpected images %+v", merged.Images)
	}
}

func TestMergeCommandJSONAndDryRun(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSceneIDs(1, 2, 3), testsupport.WithLedger())
	twoSceneFixture(t, env)

	out, _, err := runCLI(t, []string{"merge", "--dry-run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("merge --dry-run: %v", err)
	}
	var payload mergeResultJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if !payload.DryRun || payload.Images != 2 || payload.Annotations != 2 || payload.Categories != 3 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if diff := cmp.Diff([]int{2}, payload.Missing); diff != "" {
		t.Fatalf("missing scenes mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(payload.OutputPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run wrote output: %v", err)
	}
	if _, err := os.Stat(env.cfg.Trace.RemapLedger); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run opened the ledger: %v", err)
	}
}

func TestMergeCommandParseErrorFails(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSceneIDs(1))
	testsupport.WriteRawScene(t, env.cfg, 1, []byte(`{"images": []`))

	_, _, err := runCLI(t, []string{"merge"}, env.configPath)
	var perr *coco.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestMergeCommandRejectsBadBBoxFlag(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSceneIDs(1))
	_, _, err := runCLI(t, []string{"merge", "--bbox-type", "visible"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "dataset.bbox_type") {
		t.Fatalf("expected bbox type error, got %v", err)
	}
}

func TestScenesCommandListsPresence(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSceneIDs(1, 2, 3))
	twoSceneFixture(t, env)

	out, _, err := runCLI(t, []string{"scenes"}, env.configPath)
	if err != nil {
		t.Fatalf("scenes: %v", err)
	}
	requireContains(t, out, "000001")
	requireContains(t, out, "000002")
	requireContains(t, out, "present")
	requireContains(t, out, "missing")
	requireContains(t, out, "2 of 3 scenes have amodal annotations")

	out, _, err = runCLI(t, []string{"scenes", "--json", "--bbox-type", "modal"}, env.configPath)
	if err != nil {
		t.Fatalf("scenes --json: %v", err)
	}
	var scenes []sceneJSON
	if err := json.Unmarshal([]byte(out), &scenes); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(scenes) != 3 {
		t.Fatalf("expected three scenes, got %+v", scenes)
	}
	for _, s := range scenes {
		if s.Present || !strings.HasSuffix(s.Path, "scene_gt_coco_modal.json") {
			t.Fatalf("modal files should be reported missing: %+v", s)
		}
	}
}

func TestHistoryCommandShowsRunsAndRemaps(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSceneIDs(1, 2, 3), testsupport.WithLedger())
	twoSceneFixture(t, env)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history before merge: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	out, _, err = runCLI(t, []string{"merge", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	var payload mergeResultJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode merge json: %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, payload.RunID)
	requireContains(t, out, "jmas")

	out, _, err = runCLI(t, []string{"history", "--run", payload.RunID, "--scene", "3", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --run: %v", err)
	}
	var remaps []remapJSON
	if err := json.Unmarshal([]byte(out), &remaps); err != nil {
		t.Fatalf("decode remaps: %v\n%s", err, out)
	}
	want := []remapJSON{
		{SceneID: 3, Kind: "image", OldID: 0, NewID: 1},
		{SceneID: 3, Kind: "annotation", OldID: 0, NewID: 1},
	}
	if diff := cmp.Diff(want, remaps); diff != "" {
		t.Fatalf("remaps mismatch (-want +got):\n%s", diff)
	}

	if _, _, err := runCLI(t, []string{"history", "--scene", "3"}, env.configPath); err == nil {
		t.Fatal("expected --scene without --run to fail")
	}
}

func TestHistoryCommandRequiresLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "trace.remap_ledger") {
		t.Fatalf("expected ledger error, got %v", err)
	}
}
