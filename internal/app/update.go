package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Version is the released client version, bumped per release.
const Version = "0.3.0"

const (
	releaseOwner = "parley-chat"
	releaseRepo  = "parley"
)

type githubRelease struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// LatestVersion asks GitHub for the newest published release tag,
// without the leading "v".
func LatestVersion() (string, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", releaseOwner, releaseRepo)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github api returned status %d", resp.StatusCode)
	}
	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}

// CompareVersions returns 1 when a is newer, -1 when older, 0 when
// equal. Plain string ordering is enough for our tag scheme.
func CompareVersions(a, b string) int {
	a = strings.TrimPrefix(a, "v")
	b = strings.TrimPrefix(b, "v")
	switch {
	case a == b:
		return 0
	case a > b:
		return 1
	}
	return -1
}

// CheckForUpdate reports whether a newer release exists and its version.
func CheckForUpdate() (bool, string, error) {
	latest, err := LatestVersion()
	if err != nil {
		return false, "", err
	}
	return CompareVersions(latest, Version) > 0, latest, nil
}

// SelfUpdate downloads the latest release binary for this platform and
// swaps it in place of the running executable.
func SelfUpdate(out io.Writer) error {
	latest, err := LatestVersion()
	if err != nil {
		return fmt.Errorf("check for updates: %w", err)
	}
	if CompareVersions(latest, Version) <= 0 {
		fmt.Fprintf(out, "Already on the latest version (v%s)\n", Version)
		return nil
	}

	fmt.Fprintf(out, "Updating from v%s to v%s...\n", Version, latest)
	tmpFile, err := downloadRelease(releaseDownloadURL(latest))
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer os.Remove(tmpFile)

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}
	if err := os.Chmod(tmpFile, 0o755); err != nil {
		return fmt.Errorf("mark binary executable: %w", err)
	}
	if err := replaceBinary(tmpFile, execPath); err != nil {
		return fmt.Errorf("install new binary: %w", err)
	}

	fmt.Fprintf(out, "Updated to v%s. Restart parley to use it.\n", latest)
	return nil
}

func releaseDownloadURL(version string) string {
	return fmt.Sprintf("https://github.com/%s/%s/releases/download/v%s/%s",
		releaseOwner, releaseRepo, version, platformBinary())
}

func platformBinary() string {
	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "parley-macos-arm64"
		}
		return "parley-macos-amd64"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "parley-linux-arm64"
		}
		return "parley-linux-amd64"
	case "windows":
		return "parley-windows-amd64.exe"
	}
	return "parley-unknown"
}

func downloadRelease(url string) (string, error) {
	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "parley-update-*")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()
	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}
	return tmpFile.Name(), nil
}

// replaceBinary swaps the running executable for the downloaded one.
// Windows cannot overwrite a running binary, so it is shuffled through
// a backup rename first.
func replaceBinary(newPath, oldPath string) error {
	if runtime.GOOS == "windows" {
		backup := oldPath + ".old"
		if err := os.Rename(oldPath, backup); err != nil {
			return fmt.Errorf("back up old binary: %w", err)
		}
		if err := copyFile(newPath, oldPath); err != nil {
			_ = os.Rename(backup, oldPath)
			return err
		}
		_ = os.Remove(backup)
		return nil
	}
	if err := os.Rename(newPath, oldPath); err != nil {
		// Rename fails across filesystems; fall back to a copy.
		return copyFile(newPath, oldPath)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
