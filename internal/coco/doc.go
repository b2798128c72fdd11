// Package coco models COCO-style annotation collections and folds per-scene
// collections into a single merged collection.
//
// Images and annotations carry typed identifier fields so the merge can
// renumber them safely; every other key in the source JSON is preserved
// verbatim and re-emitted after the typed keys. Decode validates the typed
// schema and scene-level referential integrity, reporting problems as
// *ParseError. Merge renumbers a scene against the accumulator's current
// maxima and returns the identifier remap it applied.
package coco
