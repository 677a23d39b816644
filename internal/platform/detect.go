package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

type Runtime struct {
	OS   string
	Arch string
}

func CurrentRuntime() Runtime {
	return Runtime{
		OS:   runtime.GOOS,
		Arch: NormalizeArch(runtime.GOARCH),
	}
}

func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64":
		return "amd64"
	case "aarch64":
		return "arm64"
	default:
		return arch
	}
}

// DefaultModelDirFor picks the per-user model directory for an OS from
// pre-resolved environment values, so the decision stays testable.
func DefaultModelDirFor(goos, homeDir, xdgDataHome, localAppData string) (string, error) {
	dataDir, err := defaultDataDirFor(goos, homeDir, xdgDataHome, localAppData)
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "models"), nil
}

// ResolveModelDir returns the model directory to use, preferring an
// explicit override from the command line.
func ResolveModelDir(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	return DefaultModelDirFor(runtime.GOOS, homeDir, os.Getenv("XDG_DATA_HOME"), os.Getenv("LOCALAPPDATA"))
}

func defaultDataDirFor(goos, homeDir, xdgDataHome, localAppData string) (string, error) {
	if homeDir == "" {
		return "", errors.New("home directory is empty")
	}

	switch goos {
	case "linux":
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "tolka"), nil
		}
		return filepath.Join(homeDir, ".local", "share", "tolka"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "tolka"), nil
	case "windows":
		if localAppData != "" {
			return filepath.Join(localAppData, "tolka"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", "tolka"), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}
