package coco

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

type rawDocument struct {
	Images      *[]json.RawMessage `json:"images"`
	Annotations *[]json.RawMessage `json:"annotations"`
}

// LoadFile reads and validates one scene annotation file. A missing file is
// returned as the underlying *fs.PathError so callers can test for
// fs.ErrNotExist; every other failure is a *ParseError.
func LoadFile(path string) (*Collection, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	coll, err := Decode(file)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
			return nil, perr
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return coll, nil
}

// Decode parses a scene collection. Only images and annotations are taken
// from the document; scene-level info and categories are ignored because
// the merged file carries its own.
func Decode(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read: %w", err)}
	}
	data = bytes.TrimSpace(data)

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{Err: fmt.Errorf("invalid JSON at offset %d: %w", syntaxErr.Offset, err)}
		}
		return nil, &ParseError{Err: err}
	}
	if doc.Images == nil {
		return nil, &ParseError{Location: "images", Err: errMissing}
	}
	if doc.Annotations == nil {
		return nil, &ParseError{Location: "annotations", Err: errMissing}
	}

	coll := &Collection{
		Licenses:    []License{},
		Categories:  []Category{},
		Images:      make([]Image, 0, len(*doc.Images)),
		Annotations: make([]Annotation, 0, len(*doc.Annotations)),
	}
	for i, raw := range *doc.Images {
		img, err := decodeImage(raw)
		if err != nil {
			return nil, recordError("images", i, err)
		}
		coll.Images = append(coll.Images, img)
	}
	for i, raw := range *doc.Annotations {
		ann, err := decodeAnnotation(raw)
		if err != nil {
			return nil, recordError("annotations", i, err)
		}
		coll.Annotations = append(coll.Annotations, ann)
	}
	if err := validateScene(coll); err != nil {
		return nil, err
	}
	return coll, nil
}

func recordError(section string, index int, err error) *ParseError {
	loc := fmt.Sprintf("%s[%d]", section, index)
	var ferr *fieldError
	if errors.As(err, &ferr) {
		if ferr.field != "" {
			loc += "." + ferr.field
		}
		return &ParseError{Location: loc, Err: ferr.err}
	}
	return &ParseError{Location: loc, Err: err}
}

// validateScene checks identifier uniqueness and image references.
func validateScene(coll *Collection) error {
	images := make(map[int64]struct{}, len(coll.Images))
	for i, img := range coll.Images {
		if _, dup := images[img.ID]; dup {
			return &ParseError{Location: fmt.Sprintf("images[%d].id", i), Err: fmt.Errorf("%w %d", ErrDuplicateID, img.ID)}
		}
		images[img.ID] = struct{}{}
	}
	annotations := make(map[int64]struct{}, len(coll.Annotations))
	for i, ann := range coll.Annotations {
		if _, dup := annotations[ann.ID]; dup {
			return &ParseError{Location: fmt.Sprintf("annotations[%d].id", i), Err: fmt.Errorf("%w %d", ErrDuplicateID, ann.ID)}
		}
		annotations[ann.ID] = struct{}{}
		if _, ok := images[ann.ImageID]; !ok {
			return &ParseError{Location: fmt.Sprintf("annotations[%d].image_id", i), Err: fmt.Errorf("%w: %d", ErrDanglingImage, ann.ImageID)}
		}
	}
	return nil
}

// Encode writes coll as JSON indented with two spaces.
func Encode(w io.Writer, coll *Collection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(coll)
}
