//go:build mage

// Package main contains Mage build targets for citation-miner developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories a mining run expects.
var projectDirs = []string{
	"data/pmc",
	"data/known",
	"output",
}

// Init creates the project directory structure for mining runs.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "citation-miner"
	cmdPkg  = "./cmd/citation-miner"

	// buildTags enables FTS5 in mattn/go-sqlite3.
	buildTags = "sqlite_fts5"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-tags", buildTags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with FTS5 enabled.
func Test() error {
	return sh.RunV("go", "test", "-tags", buildTags, "./...")
}

// Stats prints project metrics: Go production and test LOC.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	return nil
}

// countGoLines walks the directory tree and counts non-blank lines in Go
// files, skipping underscore-prefixed directories.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if testOnly != strings.HasSuffix(path, "_test.go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}

// Mine runs a mining pass using the environment:
// CITATION_MINER_KNOWN, CITATION_MINER_OUT, and CITATION_MINER_POLICY.
func Mine() error {
	mg.Deps(Build)

	known := envOr("CITATION_MINER_KNOWN", "data/known/qrels.json")
	out := envOr("CITATION_MINER_OUT", "output")
	policy := envOr("CITATION_MINER_POLICY", "iterative")
	return sh.RunV(filepath.Join(binDir, binName), "mine", known, out, policy)
}

// Index loads the output of the last mining run into the corpus database.
func Index() error {
	mg.Deps(Build)
	out := envOr("CITATION_MINER_OUT", "output")
	return sh.RunV(filepath.Join(binDir, binName), "corpus", "store", "--output-dir", out)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
