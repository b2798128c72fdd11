package coco

import "fmt"

// IDRemap records how one merge call renumbered a scene's identifiers.
type IDRemap struct {
	Images      map[int64]int64
	Annotations map[int64]int64
}

// nextID returns the identifier after the current maximum, or zero for an
// empty sequence.
func nextID(maxID int64, ok bool) int64 {
	if !ok {
		return 0
	}
	return maxID + 1
}

// Merge folds scene into acc. Scene images and annotations receive new
// identifiers continuing after acc's current maxima, annotations are
// re-pointed at the renumbered images, and category identifiers pass through
// unchanged. acc's info and categories are never modified. On error acc is
// left exactly as it was.
//
// scene is consumed: its records are appended to acc after renumbering and
// should not be used afterward.
func Merge(acc, scene *Collection) (IDRemap, error) {
	if acc == nil {
		return IDRemap{}, fmt.Errorf("merge: nil accumulator")
	}
	if scene == nil {
		return IDRemap{}, fmt.Errorf("merge: nil scene collection")
	}
	if err := checkMergeable(acc, scene); err != nil {
		return IDRemap{}, err
	}

	remap := IDRemap{
		Images:      make(map[int64]int64, len(scene.Images)),
		Annotations: make(map[int64]int64, len(scene.Annotations)),
	}

	nextImage := nextID(acc.MaxImageID())
	for _, img := range scene.Images {
		remap.Images[img.ID] = nextImage
		img.ID = nextImage
		acc.Images = append(acc.Images, img)
		nextImage++
	}

	nextAnnotation := nextID(acc.MaxAnnotationID())
	for _, ann := range scene.Annotations {
		remap.Annotations[ann.ID] = nextAnnotation
		ann.ID = nextAnnotation
		ann.ImageID = remap.Images[ann.ImageID]
		acc.Annotations = append(acc.Annotations, ann)
		nextAnnotation++
	}

	return remap, nil
}

func checkMergeable(acc, scene *Collection) error {
	images := make(map[int64]struct{}, len(scene.Images))
	for i, img := range scene.Images {
		if _, dup := images[img.ID]; dup {
			return &MergeError{Kind: KindDuplicateID, Section: "images", Index: i, ID: img.ID, Err: ErrDuplicateID}
		}
		images[img.ID] = struct{}{}
	}

	categories := make(map[int64]struct{}, len(acc.Categories))
	for _, cat := range acc.Categories {
		categories[cat.ID] = struct{}{}
	}

	annotations := make(map[int64]struct{}, len(scene.Annotations))
	for i, ann := range scene.Annotations {
		if _, dup := annotations[ann.ID]; dup {
			return &MergeError{Kind: KindDuplicateID, Section: "annotations", Index: i, ID: ann.ID, Err: ErrDuplicateID}
		}
		annotations[ann.ID] = struct{}{}
		if _, ok := images[ann.ImageID]; !ok {
			return &MergeError{Kind: KindDanglingImage, Section: "annotations", Index: i, ID: ann.ID, Err: fmt.Errorf("%w: %d", ErrDanglingImage, ann.ImageID)}
		}
		if _, ok := categories[ann.CategoryID]; !ok {
			return &MergeError{Kind: KindUnknownCategory, Section: "annotations", Index: i, ID: ann.ID, Err: fmt.Errorf("%w: %d", ErrUnknownCategory, ann.CategoryID)}
		}
	}
	return nil
}
