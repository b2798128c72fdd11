// Command cocomerge folds the per-scene COCO annotation files of a BOP
// dataset split into a single coco_<split>.json.
//
// Subcommands:
//
//	merge    write the merged file (flags override the config)
//	scenes   list the resolved scenes and whether their files exist
//	history  show runs and identifier remaps from the remap ledger
//	config   init, validate or show the configuration
package main
