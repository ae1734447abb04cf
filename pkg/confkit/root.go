package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/joho/godotenv"
)

// maxWalkDepth bounds the upward search for the module root.
const maxWalkDepth = 8

var dotenvOnce sync.Once

// LoadDotenvOnce loads a .env file into the process environment the first
// time it is called. Lookup order:
//
//   - NO_DOTENV=1 disables loading;
//   - ENV_FILE names the only file read;
//   - otherwise every .env from this package up to the module root.
//
// Variables already set win unless DOTENV_OVERLOAD=1.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = load(envFile)
		return
	}

	found := walkToRoot(func(dir string) {
		_ = load(filepath.Join(dir, ".env"))
	})
	if !found {
		_ = load(".env")
	}
}

// ProjectRoot is the nearest directory above this package holding go.mod or
// .git, or the working directory when none is found.
func ProjectRoot() (string, error) {
	root := ""
	if walkToRoot(func(dir string) { root = dir }) {
		return root, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", fmt.Errorf("getwd: %w", err)
	}
	return wd, nil
}

// ProjectPath joins rel onto ProjectRoot.
func ProjectPath(rel string) (string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, rel), nil
}

// MustProjectPath is ProjectPath for tests and init code; it panics on error.
func MustProjectPath(rel string) string {
	p, err := ProjectPath(rel)
	if err != nil {
		panic(err)
	}
	return p
}

// walkToRoot calls visit on each directory from this source file upwards,
// stopping after the module root. It reports whether a root was reached.
func walkToRoot(visit func(dir string)) bool {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return false
	}
	dir := filepath.Dir(file)
	for range maxWalkDepth {
		visit(dir)
		if fileExists(filepath.Join(dir, "go.mod")) || fileExists(filepath.Join(dir, ".git")) {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
	return false
}
