package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDataset() error {
	if c.Dataset.Name == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cocomerge/config.toml"
		}
		return fmt.Errorf("dataset.name must be set. Pass --dataset or edit %s (create with 'cocomerge config init')", defaultPath)
	}
	if strings.ContainsAny(c.Dataset.Name, `/\`) {
		return fmt.Errorf("dataset.name %q must not contain path separators", c.Dataset.Name)
	}
	if c.Dataset.Split == "" {
		return errors.New("dataset.split must be set")
	}
	if strings.ContainsAny(c.Dataset.Split, `/\`) || strings.ContainsAny(c.Dataset.SplitType, `/\`) {
		return errors.New("dataset.split and dataset.split_type must not contain path separators")
	}
	switch c.Dataset.BBoxType {
	case "modal", "amodal":
	default:
		return fmt.Errorf("dataset.bbox_type must be modal or amodal, got %q", c.Dataset.BBoxType)
	}
	if err := ensureNonNegative("dataset.scene_ids", c.Dataset.SceneIDs); err != nil {
		return err
	}
	if err := ensureNonNegative("dataset.obj_ids", c.Dataset.ObjIDs); err != nil {
		return err
	}
	if err := ensureUnique("dataset.scene_ids", c.Dataset.SceneIDs); err != nil {
		return err
	}
	return ensureUnique("dataset.obj_ids", c.Dataset.ObjIDs)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensureNonNegative(key string, values []int) error {
	for _, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must not contain negative ids (found %d)", key, value)
		}
	}
	return nil
}

func ensureUnique(key string, values []int) error {
	seen := make(map[int]struct{}, len(values))
	for _, value := range values {
		if _, dup := seen[value]; dup {
			return fmt.Errorf("%s contains duplicate id %d", key, value)
		}
		seen[value] = struct{}{}
	}
	return nil
}
