package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = "GameSoundtracks"

// DefaultDownloadDir returns the platform download directory for soundtracks.
// On Android the public Downloads folder is used so files show up in media apps.
func DefaultDownloadDir() (string, error) {
	if isAndroid() {
		return filepath.Join("/sdcard", "Download", appDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Downloads", appDirName), nil
}

func isAndroid() bool {
	return runtime.GOOS == "android" ||
		os.Getenv("ANDROID_ROOT") != "" ||
		os.Getenv("ANDROID_DATA") != "" ||
		os.Getenv("ANDROID_ARGUMENT") != ""
}

// ResolveDestination maps a user-supplied output path onto a usable directory.
// Blank values use defaultDir, relative values are joined to it, and a directory
// the process is not permitted to create falls back to defaultDir.
func ResolveDestination(defaultDir, requested string) (string, error) {
	if err := os.MkdirAll(defaultDir, 0o755); err != nil {
		return "", fmt.Errorf("create default directory %s: %w", defaultDir, err)
	}

	requested = strings.TrimSpace(requested)
	if requested == "" {
		return filepath.Abs(defaultDir)
	}

	dir := requested
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(defaultDir, dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return filepath.Abs(defaultDir)
		}
		return "", fmt.Errorf("create destination %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}
