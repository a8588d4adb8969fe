//go:build mage

// Package main contains Mage build targets for profmatch developer tooling.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories a checkout expects.
var projectDirs = []string{
	".secrets",
	"data",
	"output",
}

// Init creates the working directories and an empty .env.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		if err := os.WriteFile(".env", []byte("# PROFMATCH_SCORING_PROVIDER=openai\n# OPENAI_API_KEY=\n"), 0o600); err != nil {
			return fmt.Errorf("writing .env: %w", err)
		}
		fmt.Println("   .env")
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "profmatch"
	cmdPkg  = "./cmd/profmatch"
)

// Build compiles the CLI binary into bin/, stamping the version from
// PROFMATCH_VERSION when set.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version := os.Getenv("PROFMATCH_VERSION")
	if version == "" {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet over every package.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// DryRun builds the CLI and evaluates input against query with the offline
// mock provider and no DBLP calls.
func DryRun(input, query string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "evaluate",
		"--dry-run", "--upstream=false", "--no-cache", "-i", input, "-q", query)
}

// Warm builds the CLI and fills the scholar cache from input's DBLP profiles.
func Warm(input string) error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "cache", "warm", input)
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

// countGoLines counts non-blank lines in Go files under root, either only
// tests or only production code.
func countGoLines(root string, tests bool) (int, error) {
	total := 0
	err := walkFiles(root, func(path string, data []byte) {
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") != tests {
			return
		}
		for _, line := range bytes.Split(data, []byte("\n")) {
			if len(bytes.TrimSpace(line)) > 0 {
				total++
			}
		}
	})
	return total, err
}

// countDocWords counts words in Markdown and YAML files under root.
func countDocWords(root string) (int, error) {
	total := 0
	err := walkFiles(root, func(path string, data []byte) {
		switch filepath.Ext(path) {
		case ".md", ".yaml", ".yml":
			total += len(strings.Fields(string(data)))
		}
	})
	return total, err
}

// walkFiles calls fn with the contents of every regular file under root,
// skipping hidden and underscore-prefixed directories.
func walkFiles(root string, fn func(path string, data []byte)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		fn(path, data)
		return nil
	})
}
