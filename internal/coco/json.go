package coco

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	errMissing   = errors.New("missing required field")
	errNotObject = errors.New("expected a JSON object")
	errEmpty     = errors.New("must not be empty")
)

// fieldError locates a decode failure inside a single record.
type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string {
	if e.field == "" {
		return e.err.Error()
	}
	return e.field + ": " + e.err.Error()
}

func (e *fieldError) Unwrap() error { return e.err }

var (
	imageKeys      = []string{"id", "file_name", "width", "height"}
	annotationKeys = []string{"id", "image_id", "category_id"}
)

// UnmarshalJSON decodes an image, keeping unknown keys in Extra.
func (img *Image) UnmarshalJSON(data []byte) error {
	decoded, err := decodeImage(data)
	if err != nil {
		return err
	}
	*img = decoded
	return nil
}

// MarshalJSON writes typed keys first, then extras in key order.
func (img Image) MarshalJSON() ([]byte, error) {
	var w objectWriter
	w.field("id", img.ID)
	w.field("file_name", img.FileName)
	if img.Width != 0 {
		w.field("width", img.Width)
	}
	if img.Height != 0 {
		w.field("height", img.Height)
	}
	w.extras(img.Extra, imageKeys)
	return w.finish()
}

// UnmarshalJSON decodes an annotation, keeping unknown keys in Extra.
func (ann *Annotation) UnmarshalJSON(data []byte) error {
	decoded, err := decodeAnnotation(data)
	if err != nil {
		return err
	}
	*ann = decoded
	return nil
}

// MarshalJSON writes typed keys first, then extras in key order.
func (ann Annotation) MarshalJSON() ([]byte, error) {
	var w objectWriter
	w.field("id", ann.ID)
	w.field("image_id", ann.ImageID)
	w.field("category_id", ann.CategoryID)
	w.extras(ann.Extra, annotationKeys)
	return w.finish()
}

func decodeImage(data []byte) (Image, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Image{}, err
	}
	var img Image
	if img.ID, err = takeInt(fields, "id", true); err != nil {
		return Image{}, err
	}
	if img.FileName, err = takeString(fields, "file_name"); err != nil {
		return Image{}, err
	}
	width, err := takeInt(fields, "width", false)
	if err != nil {
		return Image{}, err
	}
	height, err := takeInt(fields, "height", false)
	if err != nil {
		return Image{}, err
	}
	img.Width, img.Height = int(width), int(height)
	if len(fields) > 0 {
		img.Extra = fields
	}
	return img, nil
}

func decodeAnnotation(data []byte) (Annotation, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Annotation{}, err
	}
	var ann Annotation
	if ann.ID, err = takeInt(fields, "id", true); err != nil {
		return Annotation{}, err
	}
	if ann.ImageID, err = takeInt(fields, "image_id", true); err != nil {
		return Annotation{}, err
	}
	if ann.CategoryID, err = takeInt(fields, "category_id", true); err != nil {
		return Annotation{}, err
	}
	if len(fields) > 0 {
		ann.Extra = fields
	}
	return ann, nil
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &fieldError{err: errNotObject}
	}
	if fields == nil {
		return nil, &fieldError{err: errNotObject}
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// takeInt removes key from fields and decodes it as an integer.
func takeInt(fields map[string]json.RawMessage, key string, required bool) (int64, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		delete(fields, key)
		if required {
			return 0, &fieldError{field: key, err: errMissing}
		}
		return 0, nil
	}
	delete(fields, key)
	var value int64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, &fieldError{field: key, err: fmt.Errorf("expected integer, got %s", strings.TrimSpace(string(raw)))}
	}
	return value, nil
}

// takeString removes key from fields and decodes it as a non-empty string.
func takeString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	delete(fields, key)
	if !ok || isNull(raw) {
		return "", &fieldError{field: key, err: errMissing}
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", &fieldError{field: key, err: fmt.Errorf("expected string, got %s", strings.TrimSpace(string(raw)))}
	}
	if strings.TrimSpace(value) == "" {
		return "", &fieldError{field: key, err: errEmpty}
	}
	return value, nil
}

// objectWriter assembles a JSON object with a fixed key order.
type objectWriter struct {
	buf bytes.Buffer
	n   int
	err error
}

func (w *objectWriter) field(key string, value any) {
	if w.err != nil {
		return
	}
	encoded, err := marshalPlain(value)
	if err != nil {
		w.err = fmt.Errorf("marshal %s: %w", key, err)
		return
	}
	w.raw(key, encoded)
}

func (w *objectWriter) raw(key string, value json.RawMessage) {
	if w.n == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	w.n++
	name, _ := marshalPlain(key)
	w.buf.Write(name)
	w.buf.WriteByte(':')
	w.buf.Write(value)
}

func (w *objectWriter) extras(extra map[string]json.RawMessage, reserved []string) {
	if w.err != nil || len(extra) == 0 {
		return
	}
	keys := make([]string, 0, len(extra))
	for key := range extra {
		if contains(reserved, key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := extra[key]
		if !json.Valid(value) {
			w.err = fmt.Errorf("extra field %s: invalid JSON", key)
			return
		}
		w.raw(key, value)
	}
}

func (w *objectWriter) finish() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.n == 0 {
		return []byte("{}"), nil
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// marshalPlain is json.Marshal without HTML escaping, so file names such as
// "a&b.png" survive unchanged.
func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
