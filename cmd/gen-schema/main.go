// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tessera Contributors

// Command gen-schema writes the JSON Schema for tessera.yaml files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/tessera-build/tessera/internal/config"
)

func main() {
	out := pflag.StringP("out", "o", filepath.Join("schemas", "tessera.schema.json"), "output file, - for stdout")
	pflag.Parse()

	if err := run(*out); err != nil {
		fmt.Fprintf(os.Stderr, "gen-schema: %v\n", err)
		os.Exit(1)
	}
}

func run(outPath string) error {
	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}

	if outPath == "-" {
		_, err := os.Stdout.Write(schema)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(outPath, schema, 0o600); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	fmt.Printf("Generated %s\n", outPath)
	return nil
}
