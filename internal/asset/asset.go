// Package asset enumerates source assets and observes their compiled artifacts.
package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies an asset by the compiler family that consumes it.
type Kind string

const (
	KindModel   Kind = "model"
	KindTexture Kind = "texture"
	KindOther   Kind = "other"
)

// ParseKind maps a configured kind onto Kind; unknown values become KindOther.
func ParseKind(s string) Kind {
	switch Kind(strings.ToLower(s)) {
	case KindModel:
		return KindModel
	case KindTexture:
		return KindTexture
	default:
		return KindOther
	}
}

// Asset is a source file observed at enumeration time.
type Asset struct {
	Path    string
	Name    string // base filename, the tag rules match against
	Kind    Kind
	ModTime time.Time
}

// Artifact is the expected compiled output of an asset.
type Artifact struct {
	Path    string
	Exists  bool
	ModTime time.Time
}

// ArtifactPath returns <outDir>/<source stem><ext>. The output layout is flat.
func ArtifactPath(outDir string, a Asset, ext string) string {
	stem := strings.TrimSuffix(a.Name, filepath.Ext(a.Name))
	return filepath.Join(outDir, stem+ext)
}

// Observe stats an artifact path. A missing file is not an error.
func Observe(path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Artifact{Path: path}, nil
		}
		return Artifact{Path: path}, fmt.Errorf("stat artifact %s: %w", path, err)
	}
	if info.IsDir() {
		return Artifact{Path: path}, fmt.Errorf("artifact path %s is a directory", path)
	}
	return Artifact{Path: path, Exists: true, ModTime: info.ModTime()}, nil
}

// ModTime returns the modification time of an existing file.
func ModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
