// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// loadFile overlays the YAML file at path onto cfg. Fields absent from the
// file keep their current values.
func loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	f, err := os.Open(path) // #nosec G304 -- path originates from operator flags
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	// Config files are small; cap reads to catch accidents like pointing at a DB file.
	const maxConfigSize = 1 << 20
	data, err := io.ReadAll(io.LimitReader(f, maxConfigSize))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
