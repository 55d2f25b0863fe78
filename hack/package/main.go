package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/panda-cat/netdev-dep/pkg/version"
)

// Builds a single-file connexec binary into dist/. The output name
// follows the historic packaging convention: ssh_exec.exe on windows,
// ssh_exec.bin everywhere else.
func main() {
	root, err := findProjectRoot()
	if err != nil {
		fatal(err)
	}

	goos := os.Getenv("GOOS")
	if goos == "" {
		goos = runtime.GOOS
	}
	name := "ssh_exec.bin"
	if goos == "windows" {
		name = "ssh_exec.exe"
	}

	distDir := filepath.Join(root, "dist")
	err = os.MkdirAll(distDir, 0o755)
	if err != nil {
		fatal(err)
	}

	v := os.Getenv("VERSION")
	if v == "" {
		v = version.Version
	}

	cmd := exec.Command("go", "build",
		"-trimpath",
		"-ldflags", fmt.Sprintf("-s -w -X github.com/panda-cat/netdev-dep/pkg/version.Version=%s", v),
		"-o", filepath.Join(distDir, name),
		"./cmd/connexec",
	)
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err = cmd.Run()
	if err != nil {
		fatal(err)
	}

	fmt.Printf("built %s\n", filepath.Join(distDir, name))
}

func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		_, err := os.Stat(filepath.Join(dir, "go.mod"))
		if err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
