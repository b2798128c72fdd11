package coco

import (
	"errors"
	"fmt"
)

// ErrDuplicateID is wrapped when a record identifier repeats within a scene.
var ErrDuplicateID = errors.New("duplicate id")

// ErrDanglingImage is wrapped when an annotation points at an image that
// does not exist in the same collection.
var ErrDanglingImage = errors.New("image_id does not reference an image")

// ErrUnknownCategory is wrapped when an annotation's category is absent from
// the accumulator's category list.
var ErrUnknownCategory = errors.New("category_id does not reference a category")

// ParseError reports a scene file that is present but malformed.
//
// Location uses a path-like notation such as images[3].file_name; it is empty
// for failures that apply to the whole document.
type ParseError struct {
	Path     string
	Location string
	Err      error
}

func (e *ParseError) Error() string {
	src := e.Path
	if src == "" {
		src = "annotation document"
	}
	if e.Location == "" {
		return fmt.Sprintf("parse %s: %v", src, e.Err)
	}
	return fmt.Sprintf("parse %s: %s: %v", src, e.Location, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MergeError reports a scene that cannot be folded into the accumulator.
type MergeError struct {
	Kind    string
	Section string
	Index   int
	ID      int64
	Err     error
}

// Merge error kinds.
const (
	KindDuplicateID     = "duplicate_id"
	KindDanglingImage   = "dangling_image"
	KindUnknownCategory = "unknown_category"
)

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge %s[%d] (id %d): %v", e.Section, e.Index, e.ID, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure for callers that branch on it.
func (e *MergeError) ErrorKind() string { return e.Kind }
