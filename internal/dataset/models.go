package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// ErrNoObjectIDs means neither configuration nor models_info.json named any objects.
var ErrNoObjectIDs = errors.New("no object ids")

// ModelParams lists the dataset's object identifiers.
type ModelParams struct {
	ObjIDs         []int
	ModelsInfoPath string
}

// ModelsInfoPath returns <datasets_path>/<dataset>/models/models_info.json.
func ModelsInfoPath(datasetsPath, dataset string) string {
	return filepath.Join(datasetsPath, dataset, "models", "models_info.json")
}

// ResolveModels returns explicit object IDs when given, otherwise the sorted
// keys of models_info.json.
func ResolveModels(datasetsPath, dataset string, explicit []int) (*ModelParams, error) {
	infoPath := ModelsInfoPath(datasetsPath, dataset)
	if len(explicit) > 0 {
		return &ModelParams{ObjIDs: append([]int(nil), explicit...), ModelsInfoPath: infoPath}, nil
	}

	data, err := os.ReadFile(infoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: set dataset.obj_ids or provide %s", ErrNoObjectIDs, infoPath)
		}
		return nil, fmt.Errorf("read models info: %w", err)
	}

	var info map[string]json.RawMessage
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse models info %s: %w", infoPath, err)
	}
	ids := make([]int, 0, len(info))
	for key := range info {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("parse models info %s: object key %q is not an integer", infoPath, key)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoObjectIDs, infoPath)
	}
	sort.Ints(ids)
	return &ModelParams{ObjIDs: ids, ModelsInfoPath: infoPath}, nil
}
