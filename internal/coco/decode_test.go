package coco_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"cocomerge/internal/coco"
)

func TestDecodeKeepsExtraFields(t *testing.T) {
	doc := `{
  "info": {"description": "scene"},
  "categories": [{"id": 1, "name": "1", "supercategory": "jmas"}],
  "images": [{"id": 3, "file_name": "rgb/000003.png", "width": 640, "height": 480, "date_captured": "2020"}],
  "annotations": [{"id": 8, "image_id": 3, "category_id": 1, "iscrowd": 0, "bbox": [1, 2, 3, 4], "segmentation": {"counts": [1, 2], "size": [480, 640]}}]
}`
	coll, err := coco.Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(coll.Images) != 1 || len(coll.Annotations) != 1 {
		t.Fatalf("unexpected record counts: %d images, %d annotations", len(coll.Images), len(coll.Annotations))
	}
	img := coll.Images[0]
	if img.ID != 3 || img.FileName != "rgb/000003.png" || img.Width != 640 || img.Height != 480 {
		t.Fatalf("unexpected image: %+v", img)
	}
	if string(img.Extra["date_captured"]) != `"2020"` {
		t.Fatalf("expected date_captured extra, got %v", img.Extra)
	}
	ann := coll.Annotations[0]
	if ann.ID != 8 || ann.ImageID != 3 || ann.CategoryID != 1 {
		t.Fatalf("unexpected annotation: %+v", ann)
	}
	for _, key := range []string{"iscrowd", "bbox", "segmentation"} {
		if _, ok := ann.Extra[key]; !ok {
			t.Fatalf("expected extra %q to survive decode", key)
		}
	}
	if len(coll.Categories) != 0 {
		t.Fatalf("scene categories should be ignored, got %+v", coll.Categories)
	}
}

func TestDecodeRejectsMalformedScenes(t *testing.T) {
	cases := []struct {
		name     string
		doc      string
		location string
		target   error
	}{
		{name: "invalid json", doc: `{"images": [`, location: ""},
		{name: "missing images", doc: `{"annotations": []}`, location: "images"},
		{name: "missing annotations", doc: `{"images": []}`, location: "annotations"},
		{name: "images not array", doc: `{"images": 3, "annotations": []}`, location: ""},
		{name: "image missing id", doc: `{"images": [{"file_name": "a.png"}], "annotations": []}`, location: "images[0].id"},
		{name: "image id not integer", doc: `{"images": [{"id": 1.5, "file_name": "a.png"}], "annotations": []}`, location: "images[0].id"},
		{name: "image empty file name", doc: `{"images": [{"id": 1, "file_name": " "}], "annotations": []}`, location: "images[0].file_name"},
		{name: "image not object", doc: `{"images": ["a.png"], "annotations": []}`, location: "images[0]"},
		{
			name:     "annotation missing category",
			doc:      `{"images": [{"id": 1, "file_name": "a.png"}], "annotations": [{"id": 1, "image_id": 1}]}`,
			location: "annotations[0].category_id",
		},
		{
			name:     "duplicate image ids",
			doc:      `{"images": [{"id": 1, "file_name": "a.png"}, {"id": 1, "file_name": "b.png"}], "annotations": []}`,
			location: "images[1].id",
			target:   coco.ErrDuplicateID,
		},
		{
			name:     "duplicate annotation ids",
			doc:      `{"images": [{"id": 1, "file_name": "a.png"}], "annotations": [{"id": 4, "image_id": 1, "category_id": 1}, {"id": 4, "image_id": 1, "category_id": 1}]}`,
			location: "annotations[1].id",
			target:   coco.ErrDuplicateID,
		},
		{
			name:     "dangling image reference",
			doc:      `{"images": [{"id": 1, "file_name": "a.png"}], "annotations": [{"id": 4, "image_id": 2, "category_id": 1}]}`,
			location: "annotations[0].image_id",
			target:   coco.ErrDanglingImage,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := coco.Decode(strings.NewReader(tc.doc))
			var perr *coco.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Location != tc.location {
				t.Fatalf("unexpected location: got %q want %q (%v)", perr.Location, tc.location, err)
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Fatalf("expected %v in chain, got %v", tc.target, err)
			}
		})
	}
}

func TestLoadFileMissingReportsNotExist(t *testing.T) {
	_, err := coco.LoadFile(filepath.Join(t.TempDir(), "scene_gt_coco.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	var perr *coco.ParseError
	if errors.As(err, &perr) {
		t.Fatalf("missing file must not be a ParseError: %v", err)
	}
}

func TestLoadFileAttachesPathToParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene_gt_coco.json")
	if err := os.WriteFile(path, []byte(`{"images": [{"id": 0}], "annotations": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := coco.LoadFile(path)
	var perr *coco.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Path != path {
		t.Fatalf("expected path %q, got %q", path, perr.Path)
	}
	if !strings.Contains(err.Error(), "images[0].file_name") {
		t.Fatalf("expected location in message, got %q", err.Error())
	}
}

func TestEncodeWritesCollectionShape(t *testing.T) {
	created := time.Date(2024, 3, 5, 6, 7, 8, 9000, time.UTC)
	coll := coco.NewCollection(
		coco.NewInfo("jmas_train", "https://github.com/thodan/bop_toolkit", "0.1.0", "", created),
		coco.CategoriesFromObjectIDs([]int{1, 2}, "jmas"),
	)
	coll.Images = append(coll.Images, coco.Image{
		ID:       0,
		FileName: "train/000001/rgb/a&b.png",
		Width:    640,
		Height:   480,
		Extra:    map[string]json.RawMessage{"z_extra": json.RawMessage(`1`), "a_extra": json.RawMessage(`"x"`)},
	})
	coll.Annotations = append(coll.Annotations, coco.Annotation{
		ID: 0, ImageID: 0, CategoryID: 2,
		Extra: map[string]json.RawMessage{"bbox": json.RawMessage(`[1,2,3,4]`)},
	})

	var buf bytes.Buffer
	if err := coco.Encode(&buf, coll); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"{\n  \"info\": {\n    \"description\": \"jmas_train\",",
		`"date_created": "2024-03-05 06:07:08.000009"`,
		`"year": 2024`,
		`"licenses": []`,
		`"file_name": "train/000001/rgb/a&b.png"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	order := []string{`"info"`, `"licenses"`, `"categories"`, `"images"`, `"annotations"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(out, key)
		if idx <= last {
			t.Fatalf("top-level key %s out of order in:\n%s", key, out)
		}
		last = idx
	}
	imageOrder := []string{`"id": 0`, `"file_name"`, `"width"`, `"height"`, `"a_extra"`, `"z_extra"`}
	last = strings.Index(out, `"images"`)
	for _, key := range imageOrder {
		idx := strings.Index(out[last:], key)
		if idx < 0 {
			t.Fatalf("image key %s missing or out of order in:\n%s", key, out)
		}
		last += idx
	}

	decoded, err := coco.Decode(&buf)
	if err != nil {
		t.Fatalf("decode encoded output: %v", err)
	}
	if diff := cmp.Diff(coll.Images, decoded.Images); diff != "" {
		t.Fatalf("images changed across encode/decode (-want +got):\n%s", diff)
	}
}

func TestEncodeEmptyCollectionUsesEmptyArrays(t *testing.T) {
	var buf bytes.Buffer
	if err := coco.Encode(&buf, &coco.Collection{}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(buf.String(), "null") {
		t.Fatalf("expected empty arrays, got %s", buf.String())
	}
}

func TestCategoriesFromObjectIDs(t *testing.T) {
	got := coco.CategoriesFromObjectIDs([]int{1, 5}, "jmas")
	want := []coco.Category{
		{ID: 1, Name: "1", Supercategory: "jmas"},
		{ID: 5, Name: "5", Supercategory: "jmas"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
}
