package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDataset(); err != nil {
		return err
	}
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeInfo()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeDataset() error {
	c.Dataset.Name = strings.TrimSpace(c.Dataset.Name)
	c.Dataset.Split = strings.TrimSpace(c.Dataset.Split)
	if c.Dataset.Split == "" {
		c.Dataset.Split = defaultSplit
	}
	c.Dataset.SplitType = strings.TrimSpace(c.Dataset.SplitType)
	c.Dataset.BBoxType = strings.ToLower(strings.TrimSpace(c.Dataset.BBoxType))
	if c.Dataset.BBoxType == "" {
		c.Dataset.BBoxType = defaultBBoxType
	}

	c.Dataset.DatasetsPath = strings.TrimSpace(c.Dataset.DatasetsPath)
	if c.Dataset.DatasetsPath == "" {
		if value, ok := os.LookupEnv(datasetsPathEnv); ok && strings.TrimSpace(value) != "" {
			c.Dataset.DatasetsPath = strings.TrimSpace(value)
		} else {
			c.Dataset.DatasetsPath = defaultDatasetsPath
		}
	}
	var err error
	if c.Dataset.DatasetsPath, err = expandPath(c.Dataset.DatasetsPath); err != nil {
		return fmt.Errorf("dataset.datasets_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeOutput() error {
	var err error
	c.Output.Path = strings.TrimSpace(c.Output.Path)
	if c.Output.Path, err = expandPath(c.Output.Path); err != nil {
		return fmt.Errorf("output.path: %w", err)
	}
	c.Trace.RemapLedger = strings.TrimSpace(c.Trace.RemapLedger)
	if c.Trace.RemapLedger, err = expandPath(c.Trace.RemapLedger); err != nil {
		return fmt.Errorf("trace.remap_ledger: %w", err)
	}
	return nil
}

func (c *Config) normalizeInfo() {
	c.Info.URL = strings.TrimSpace(c.Info.URL)
	if c.Info.URL == "" {
		c.Info.URL = defaultInfoURL
	}
	c.Info.Version = strings.TrimSpace(c.Info.Version)
	if c.Info.Version == "" {
		c.Info.Version = defaultInfoVersion
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
