// Package dataset resolves the on-disk layout of BOP-style datasets.
//
// A dataset lives under <datasets_path>/<name>. Each split directory
// (optionally suffixed with a split type, e.g. train_pbr) holds one
// zero-padded directory per scene containing scene_gt_coco.json. Object IDs
// come from configuration or from models/models_info.json.
package dataset
