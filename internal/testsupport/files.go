package testsupport

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"cocomerge/internal/config"
)

// SceneImage is a minimal image entry for scene fixtures.
type SceneImage struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
}

// SceneAnnotation is a minimal annotation entry for scene fixtures.
type SceneAnnotation struct {
	ID         int64 `json:"id"`
	ImageID    int64 `json:"image_id"`
	CategoryID int64 `json:"category_id"`
}

// Scene is a scene_gt_coco.json fixture.
type Scene struct {
	Images      []SceneImage      `json:"images"`
	Annotations []SceneAnnotation `json:"annotations"`
}

// WriteScene writes scene as the amodal annotation file of sceneID and
// returns its path.
func WriteScene(t testing.TB, cfg *config.Config, sceneID int, scene Scene) string {
	t.Helper()
	return writeSceneFile(t, cfg, sceneID, "scene_gt_coco.json", scene)
}

// WriteModalScene writes scene as the modal annotation file of sceneID.
func WriteModalScene(t testing.TB, cfg *config.Config, sceneID int, scene Scene) string {
	t.Helper()
	return writeSceneFile(t, cfg, sceneID, "scene_gt_coco_modal.json", scene)
}

// WriteRawScene writes arbitrary bytes as the amodal annotation file.
func WriteRawScene(t testing.TB, cfg *config.Config, sceneID int, data []byte) string {
	t.Helper()
	path := filepath.Join(SplitDir(cfg), fmt.Sprintf("%06d", sceneID), "scene_gt_coco.json")
	writeBytes(t, path, data)
	return path
}

// WriteModelsInfo writes models/models_info.json listing objIDs.
func WriteModelsInfo(t testing.TB, cfg *config.Config, objIDs ...int) string {
	t.Helper()
	info := make(map[string]map[string]float64, len(objIDs))
	for _, id := range objIDs {
		info[strconv.Itoa(id)] = map[string]float64{"diameter": 100}
	}
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal models info: %v", err)
	}
	path := filepath.Join(cfg.Dataset.DatasetsPath, cfg.Dataset.Name, "models", "models_info.json")
	writeBytes(t, path, data)
	return path
}

func writeSceneFile(t testing.TB, cfg *config.Config, sceneID int, name string, scene Scene) string {
	t.Helper()
	if scene.Images == nil {
		scene.Images = []SceneImage{}
	}
	if scene.Annotations == nil {
		scene.Annotations = []SceneAnnotation{}
	}
	data, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		t.Fatalf("marshal scene %d: %v", sceneID, err)
	}
	path := filepath.Join(SplitDir(cfg), fmt.Sprintf("%06d", sceneID), name)
	writeBytes(t, path, data)
	return path
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
