// Package config loads the small set of options the ingestion core
// consults at runtime: check_text_attachments, allow_raw_input,
// ignore_received, local_client, plus size tunables for MIME depth and
// GTUBE-scan bounds.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/halvardwex/ingestcore/internal/expand"
)

// Config is the read-only configuration handle shared across tasks. No
// pipeline component may mutate it.
type Config struct {
	CheckTextAttachments bool `yaml:"check_text_attachments"`
	AllowRawInput        bool `yaml:"allow_raw_input"`
	IgnoreReceived       bool `yaml:"ignore_received"`
	LocalClient          bool `yaml:"local_client"`

	MaxMimeDepth     int `yaml:"max_mime_depth"`
	GtubeMaxPartSize int `yaml:"gtube_max_part_size"`
}

// Default returns the configuration Process assumes when none is
// supplied: raw input forbidden, received headers honored, the
// documented defaults for depth (20) and GTUBE scan size (4096 bytes).
func Default() Config {
	return Config{
		AllowRawInput:    false,
		MaxMimeDepth:     20,
		GtubeMaxPartSize: 4096,
	}
}

// Load reads a YAML configuration file from path, expanding
// "${env.VAR}" references anywhere in the document text via
// internal/expand before unmarshaling it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse unmarshals a YAML document into a Config, applying Default's
// values for any field the document omits.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	expanded := expand.Expand(string(raw), lookupEnv)
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing yaml: %w", err)
	}
	return &cfg, nil
}

func lookupEnv(ref string) string {
	const envPrefix = "env."
	if len(ref) > len(envPrefix) && ref[:len(envPrefix)] == envPrefix {
		return os.Getenv(ref[len(envPrefix):])
	}
	return ""
}
