/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
This is useful for extracting checkpoint policy values from YAML/JSON
structures without verbose type assertions and nil checks.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "save_top_k":  3,
	    "save_last":   true,
	    "monitor":     "val_loss",
	})

	topK := cfg.Int("save_top_k", 1)        // 3
	last := cfg.Bool("save_last", false)    // true
	monitor := cfg.String("monitor", "")    // "val_loss"
	missing := cfg.Int("num_threads", 0)    // 0

# File Loading

Load configuration from YAML or JSON files:

	cfg, err := config.FromFile("checkpoint.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	// Or load from bytes
	cfg, err = config.FromYAML(yamlBytes)
	cfg, err = config.FromJSON(jsonBytes)

Loader failures use the module's typed errors: *errors.IOError for an
unreadable file, *errors.ConfigError for an unsupported extension or a
parse failure.

# Nested Sections

Checkpoint settings often live inside a larger application config.
Section extracts one block:

	cfg, _ := config.FromFile("app.yaml")
	ckptCfg := cfg.Section("checkpoint")
	topK := ckptCfg.Int("save_top_k", 1)

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation. However, if the original map is modified
externally, behavior is undefined.
*/
package config
