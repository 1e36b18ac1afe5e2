// Package fsutil holds the file operations of the project layout step.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// CopyMatching copies the regular files directly inside src whose names match
// pattern (filepath.Match, case-insensitive) into dst. It returns the copied
// file names.
func CopyMatching(src, dst, pattern string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	if err := EnsureDir(dst); err != nil {
		return nil, err
	}
	lower := strings.ToLower(pattern)
	var copied []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ok, err := filepath.Match(lower, strings.ToLower(entry.Name()))
		if err != nil {
			return copied, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if !ok {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return copied, err
		}
		copied = append(copied, entry.Name())
	}
	return copied, nil
}

// CopyTree recursively copies src into dst and returns the number of files copied.
func CopyTree(src, dst string) (int, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !srcInfo.IsDir() {
		return 0, fmt.Errorf("copy tree: %s is not a directory", src)
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()|0o700); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			n, err := CopyTree(srcPath, dstPath)
			count += n
			if err != nil {
				return count, err
			}
		case entry.Type().IsRegular():
			if err := copyFile(srcPath, dstPath); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// copyFile copies a single file, preserving mode and modification time.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src) // #nosec G304 -- paths come from the build layout
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, srcInfo.Mode().Perm()) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := dstFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}

// LauncherScript is the batch file that starts the project executable from
// its data directory. binDir is relative to the launcher, e.g. "bin/x64".
func LauncherScript(binDir, project string) string {
	return fmt.Sprintf("@echo off\r\n:A\r\ncls\r\ncd %%~dp0/data\r\nstart %%1../%s/%s.exe\r\nexit\r\n", binDir, project)
}

// WriteLauncher writes a launcher script named name into dir and returns its path.
func WriteLauncher(dir, name, binDir, project string) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(LauncherScript(binDir, project)), 0o600); err != nil {
		return "", fmt.Errorf("write launcher %s: %w", path, err)
	}
	return path, nil
}
