//go:build integration

package itest

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

const modulePath = "github.com/forPelevin/reelcut"

// findRepoRoot walks up from the working directory to the go.mod that
// declares this module.
func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for dir := wd; ; dir = filepath.Dir(dir) {
		if declaresModule(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		if filepath.Dir(dir) == dir {
			return "", fmt.Errorf("no go.mod for %s above %s", modulePath, wd)
		}
	}
}

func declaresModule(gomod string) bool {
	f, err := os.Open(gomod)
	if err != nil {
		return false
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module")) == modulePath
		}
	}
	return false
}

var (
	cliOnce sync.Once
	cliBin  string
	cliErr  error
)

// buildCLI compiles ./cmd/reelcut once per test binary and returns its path.
func buildCLI(repoRoot string) (string, error) {
	cliOnce.Do(func() {
		dir, err := os.MkdirTemp("", "reelcut-cli-*")
		if err != nil {
			cliErr = err
			return
		}
		bin := filepath.Join(dir, "reelcut")
		cmd := exec.Command("go", "build", "-o", bin, "./cmd/reelcut")
		cmd.Dir = repoRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			cliErr = fmt.Errorf("go build: %w\n%s", err, out)
			return
		}
		cliBin = bin
	})
	return cliBin, cliErr
}
