//go:build mage
// +build mage

package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	handlerPkg = "./cmd/handler"
	versionVar = "github.com/uniedit/upload-notifier/internal/app.Version"
)

// Default target when running mage without arguments.
var Default = Build

// Build builds the handler binary for the host platform.
func Build() error {
	mg.Deps(Generate)
	fmt.Println("Building handler...")
	return sh.Run("go", "build", "-ldflags", ldflags(), "-o", "bin/handler", handlerPkg)
}

// Lambda builds the bootstrap binary for the provided.al2023 runtime.
func Lambda() error {
	mg.Deps(Generate)
	fmt.Println("Building lambda bootstrap...")
	env := map[string]string{
		"GOOS":        "linux",
		"GOARCH":      "arm64",
		"CGO_ENABLED": "0",
	}
	return sh.RunWith(env, "go", "build",
		"-tags", "lambda.norpc",
		"-trimpath",
		"-ldflags", "-s -w "+ldflags(),
		"-o", "bin/lambda/bootstrap",
		handlerPkg,
	)
}

// Package zips the lambda bootstrap into bin/handler.zip.
func Package() error {
	mg.Deps(Lambda)
	fmt.Println("Packaging bin/handler.zip...")
	return zipFile("bin/handler.zip", "bin/lambda/bootstrap", "bootstrap")
}

func zipFile(dst, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	header := &zip.FileHeader{Name: name, Method: zip.Deflate}
	header.SetMode(0o755)
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, in); err != nil {
		return err
	}
	return zw.Close()
}

func ldflags() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version, _ = sh.Output("git", "describe", "--tags", "--always", "--dirty")
	}
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("-X %s=%s", versionVar, version)
}

// Generate runs all code generation.
func Generate() error {
	mg.Deps(Wire)
	return nil
}

// Wire runs wire to generate dependency injection code.
func Wire() error {
	fmt.Println("Running wire...")

	wireDirs, err := findWireDirs()
	if err != nil {
		return fmt.Errorf("finding wire directories: %w", err)
	}

	for _, dir := range wireDirs {
		fmt.Printf("  Generating wire code for %s\n", dir)
		if err := sh.Run("wire", dir); err != nil {
			return fmt.Errorf("wire %s: %w", dir, err)
		}
	}

	return nil
}

// skipDir reports directories the go tool ignores as well.
func skipDir(name string) bool {
	return name == "vendor" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// findWireDirs finds all directories containing wire.go files.
func findWireDirs() ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)

	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != "." && skipDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Name() == "wire.go" {
			dir := filepath.Dir(path)
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, "./"+dir)
			}
		}

		return nil
	})

	return dirs, err
}

// Test runs all tests.
func Test() error {
	fmt.Println("Running tests...")
	return sh.Run("go", "test", "-v", "./...")
}

// TestCover runs tests with coverage.
func TestCover() error {
	fmt.Println("Running tests with coverage...")
	return sh.Run("go", "test", "-race", "-cover", "-coverprofile=coverage.out", "./...")
}

// TestIntegration runs tests against local Redis and Postgres instances.
func TestIntegration() error {
	fmt.Println("Running integration tests...")
	env := map[string]string{
		"TEST_REDIS_ADDR":   envOr("TEST_REDIS_ADDR", "localhost:6379"),
		"TEST_POSTGRES_DSN": envOr("TEST_POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=uploads sslmode=disable"),
	}
	return sh.RunWith(env, "go", "test", "-run", "Integration", "./internal/adapter/outbound/...")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Lint runs golangci-lint.
func Lint() error {
	fmt.Println("Running linter...")
	return sh.Run("golangci-lint", "run", "./...")
}

// Vet runs go vet.
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	fmt.Println("Cleaning...")

	if err := os.RemoveAll("bin"); err != nil {
		return err
	}
	_ = os.Remove("coverage.out")
	return nil
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// All runs tidy, generate, vet, lint, test, and build.
func All() error {
	mg.SerialDeps(Tidy, Generate, Vet, Lint, Test, Build)
	return nil
}

// Dev builds and runs the queue receiver for development.
func Dev() error {
	mg.Deps(Build)
	fmt.Println("Starting handler in sqs mode...")
	cmd := exec.Command("./bin/handler")
	cmd.Env = append(os.Environ(), "UPLOAD_NOTIFIER_SOURCE_MODE=sqs")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// CI runs the CI pipeline (tidy, generate, vet, test with coverage).
func CI() error {
	mg.SerialDeps(Tidy, Generate, Vet, TestCover)
	return nil
}

// Install installs development tools.
func Install() error {
	fmt.Println("Installing development tools...")

	tools := []string{
		"github.com/google/wire/cmd/wire@latest",
		"github.com/golangci/golangci-lint/cmd/golangci-lint@latest",
	}

	for _, tool := range tools {
		fmt.Printf("  Installing %s\n", tool)
		if err := sh.Run("go", "install", tool); err != nil {
			return fmt.Errorf("installing %s: %w", tool, err)
		}
	}

	return nil
}
