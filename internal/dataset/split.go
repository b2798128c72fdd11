package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	sceneIDPlaceholder = "{scene_id}"
	sceneGTCocoName    = "scene_gt_coco"
	sceneGTCocoModal   = "scene_gt_coco_modal"
)

// BBoxType selects which per-scene annotation variant is merged.
type BBoxType string

const (
	// BBoxAmodal covers the full inferred extent of each object.
	BBoxAmodal BBoxType = "amodal"
	// BBoxModal covers only the visible extent.
	BBoxModal BBoxType = "modal"
)

// ParseBBoxType accepts "modal" or "amodal" in any case; empty means amodal.
func ParseBBoxType(value string) (BBoxType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(BBoxAmodal):
		return BBoxAmodal, nil
	case string(BBoxModal):
		return BBoxModal, nil
	default:
		return "", fmt.Errorf("unsupported bbox type %q (want modal or amodal)", value)
	}
}

// SplitParams locates every scene of one dataset split.
type SplitParams struct {
	Dataset   string
	Split     string
	SplitType string

	BasePath  string
	SplitPath string
	SceneIDs  []int

	// SceneGTCocoTPath contains {scene_id}, replaced by the zero-padded ID.
	SceneGTCocoTPath string
}

// SplitRequest describes the split to resolve.
type SplitRequest struct {
	DatasetsPath string
	Dataset      string
	Split        string
	SplitType    string
	// SceneIDs, when set, is used as-is instead of listing the split directory.
	SceneIDs []int
}

// ResolveSplit computes split paths and the ordered scene list.
func ResolveSplit(req SplitRequest) (*SplitParams, error) {
	name := strings.TrimSpace(req.Dataset)
	split := strings.TrimSpace(req.Split)
	if name == "" {
		return nil, errors.New("resolve split: dataset name is required")
	}
	if split == "" {
		return nil, errors.New("resolve split: split name is required")
	}
	splitType := strings.TrimSpace(req.SplitType)

	base := filepath.Join(req.DatasetsPath, name)
	params := &SplitParams{
		Dataset:   name,
		Split:     split,
		SplitType: splitType,
		BasePath:  base,
	}
	params.SplitPath = filepath.Join(base, params.CompleteSplit())
	params.SceneGTCocoTPath = filepath.Join(params.SplitPath, sceneIDPlaceholder, sceneGTCocoName+".json")

	if len(req.SceneIDs) > 0 {
		params.SceneIDs = append([]int(nil), req.SceneIDs...)
		return params, nil
	}
	ids, err := discoverSceneIDs(params.SplitPath)
	if err != nil {
		return nil, err
	}
	params.SceneIDs = ids
	return params, nil
}

// CompleteSplit is the split name with the split type appended, e.g. train_pbr.
func (p *SplitParams) CompleteSplit() string {
	if p.SplitType == "" {
		return p.Split
	}
	return p.Split + "_" + p.SplitType
}

// SceneDir returns the zero-padded directory name of a scene.
func SceneDir(sceneID int) string {
	return fmt.Sprintf("%06d", sceneID)
}

// SceneCocoPath returns the annotation file for sceneID, switching to the
// modal variant when requested.
func (p *SplitParams) SceneCocoPath(sceneID int, bbox BBoxType) string {
	path := strings.ReplaceAll(p.SceneGTCocoTPath, sceneIDPlaceholder, SceneDir(sceneID))
	if bbox != BBoxModal {
		return path
	}
	dir, file := filepath.Split(path)
	return dir + strings.Replace(file, sceneGTCocoName, sceneGTCocoModal, 1)
}

// ImagePath rewrites a scene-relative image path so it resolves from a root
// shared by every scene of the split.
func (p *SplitParams) ImagePath(sceneID int, fileName string) string {
	return p.Split + "/" + SceneDir(sceneID) + "/" + fileName
}

// OutputPath is the default location of the merged annotation file.
func (p *SplitParams) OutputPath() string {
	return filepath.Join(p.BasePath, "coco_"+p.Split+".json")
}

func discoverSceneIDs(splitPath string) ([]int, error) {
	entries, err := os.ReadDir(splitPath)
	if err != nil {
		return nil, fmt.Errorf("list scenes in %s: %w", splitPath, err)
	}
	ids := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !isDigits(entry.Name()) {
			continue
		}
		id, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SceneFile pairs a scene with its annotation file.
type SceneFile struct {
	SceneID int
	Path    string
	Present bool
}

// SceneFiles stats the annotation file of every scene in order.
func (p *SplitParams) SceneFiles(bbox BBoxType) []SceneFile {
	files := make([]SceneFile, 0, len(p.SceneIDs))
	for _, id := range p.SceneIDs {
		path := p.SceneCocoPath(id, bbox)
		info, err := os.Stat(path)
		files = append(files, SceneFile{
			SceneID: id,
			Path:    path,
			Present: err == nil && !info.IsDir(),
		})
	}
	return files
}
