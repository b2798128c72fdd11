// Package pipeline drives one merge run: it resolves the split, folds every
// scene's annotation file into a single accumulator in scene order, and
// writes the merged collection exactly once.
//
// Missing scene files are logged and skipped. Malformed scene files, merge
// conflicts and write failures abort the run before anything is written.
package pipeline
