package coco

import (
	"encoding/json"
	"strconv"
	"time"
)

// DateCreatedLayout mirrors the space-separated ISO timestamp written into
// info.date_created.
const DateCreatedLayout = "2006-01-02 15:04:05.000000"

// Info is the collection-level metadata record.
type Info struct {
	Description string `json:"description"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

// NewInfo builds metadata stamped with the supplied creation time.
func NewInfo(description, url, version, contributor string, created time.Time) Info {
	created = created.UTC()
	return Info{
		Description: description,
		URL:         url,
		Version:     version,
		Year:        created.Year(),
		Contributor: contributor,
		DateCreated: created.Format(DateCreatedLayout),
	}
}

// License is a COCO license entry.
type License struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Category describes one object class shared by every scene of a dataset.
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// CategoriesFromObjectIDs builds one category per object ID, named after the
// ID and grouped under supercategory.
func CategoriesFromObjectIDs(objIDs []int, supercategory string) []Category {
	cats := make([]Category, 0, len(objIDs))
	for _, id := range objIDs {
		cats = append(cats, Category{
			ID:            int64(id),
			Name:          strconv.Itoa(id),
			Supercategory: supercategory,
		})
	}
	return cats
}

// Image is one frame. Keys other than the typed ones are kept in Extra.
type Image struct {
	ID       int64
	FileName string
	Width    int
	Height   int
	Extra    map[string]json.RawMessage
}

// Annotation is one object instance on an image. Keys such as bbox,
// segmentation, area and iscrowd are kept in Extra untouched.
type Annotation struct {
	ID         int64
	ImageID    int64
	CategoryID int64
	Extra      map[string]json.RawMessage
}

// Collection is a complete annotation document.
type Collection struct {
	Info        Info         `json:"info"`
	Licenses    []License    `json:"licenses"`
	Categories  []Category   `json:"categories"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
}

// NewCollection returns an empty accumulator seeded with metadata and the
// full category list.
func NewCollection(info Info, categories []Category) *Collection {
	cats := make([]Category, len(categories))
	copy(cats, categories)
	return &Collection{
		Info:        info,
		Licenses:    []License{},
		Categories:  cats,
		Images:      []Image{},
		Annotations: []Annotation{},
	}
}

// MarshalJSON emits empty sequences as [] rather than null.
func (c Collection) MarshalJSON() ([]byte, error) {
	type plain Collection
	out := plain(c)
	if out.Licenses == nil {
		out.Licenses = []License{}
	}
	if out.Categories == nil {
		out.Categories = []Category{}
	}
	if out.Images == nil {
		out.Images = []Image{}
	}
	if out.Annotations == nil {
		out.Annotations = []Annotation{}
	}
	return marshalPlain(out)
}

// MaxImageID returns the largest image ID, or false when there are no images.
func (c *Collection) MaxImageID() (int64, bool) {
	if len(c.Images) == 0 {
		return 0, false
	}
	maxID := c.Images[0].ID
	for _, img := range c.Images[1:] {
		if img.ID > maxID {
			maxID = img.ID
		}
	}
	return maxID, true
}

// MaxAnnotationID returns the largest annotation ID, or false when empty.
func (c *Collection) MaxAnnotationID() (int64, bool) {
	if len(c.Annotations) == 0 {
		return 0, false
	}
	maxID := c.Annotations[0].ID
	for _, ann := range c.Annotations[1:] {
		if ann.ID > maxID {
			maxID = ann.ID
		}
	}
	return maxID, true
}

// RewriteImagePaths replaces every image file name with rewrite(name).
func (c *Collection) RewriteImagePaths(rewrite func(string) string) {
	for i := range c.Images {
		c.Images[i].FileName = rewrite(c.Images[i].FileName)
	}
}
