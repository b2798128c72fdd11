// Package config loads, normalizes, and validates cocomerge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the BOP_DATASETS_PATH
// environment fallback for the dataset root. The Config type names the
// dataset split to merge, the output location, the static info metadata,
// the optional remap ledger, and logging preferences.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical enum values, and clear validation errors.
package config
