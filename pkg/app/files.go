package app

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-ups/pkg/ups"
)

// PatchSource locates a patch file, either directly on disk or as an entry
// inside a zip archive.
type PatchSource struct {
	Path string

	// Entry is the patch's path inside the archive at Path. When empty and
	// Path is a zip archive, the archive must hold exactly one .ups file.
	Entry string

	// StripParentDir resolves Entry below the archive's top-level folder,
	// for archives that wrap everything in a single directory.
	StripParentDir bool
}

// String renders the source as path or path:entry
func (s PatchSource) String() string {
	if s.Entry == "" {
		return s.Path
	}
	return s.Path + ":" + s.Entry
}

var zipMagic = []byte("PK\x03\x04")

// LoadPatch reads and decodes the UPS patch described by src
func LoadPatch(src PatchSource) (*ups.Patch, error) {
	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, NewError(ErrCodeFileAccess, "failed to read patch file", err)
	}

	if src.Entry != "" || bytes.HasPrefix(raw, zipMagic) {
		if raw, err = readZipEntry(raw, src); err != nil {
			return nil, err
		}
	}

	patch, err := ups.Decode(raw)
	if err != nil {
		return nil, ClassifyError(fmt.Sprintf("failed to decode patch %s", src), err)
	}
	return patch, nil
}

// readZipEntry extracts the patch named by src.Entry from the archive in raw
func readZipEntry(raw []byte, src PatchSource) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, NewError(ErrCodeInvalidInput, fmt.Sprintf("%s is not a zip archive", src.Path), err)
	}
	if len(zr.File) == 0 {
		return nil, NewError(ErrCodeInvalidInput, fmt.Sprintf("%s is an empty archive", src.Path), nil)
	}

	name := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(src.Entry)), "/")
	if src.Entry == "" {
		if name, err = soleUPSEntry(zr); err != nil {
			return nil, NewError(ErrCodeInvalidInput, fmt.Sprintf("%s: %v (use --patch-entry)", src.Path, err), nil)
		}
	} else if src.StripParentDir {
		if parent, _, found := strings.Cut(zr.File[0].Name, "/"); found {
			name = path.Join(parent, name)
		}
	}

	f, err := zr.Open(name)
	if err != nil {
		return nil, NewError(ErrCodeFileAccess, fmt.Sprintf("patch %s not found in %s", name, src.Path), err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, NewError(ErrCodeFileAccess, fmt.Sprintf("failed to extract %s from %s", name, src.Path), err)
	}
	return data, nil
}

func soleUPSEntry(zr *zip.Reader) (string, error) {
	var found []string
	for _, f := range zr.File {
		if !f.FileInfo().IsDir() && strings.EqualFold(path.Ext(f.Name), ".ups") {
			found = append(found, f.Name)
		}
	}
	switch len(found) {
	case 0:
		return "", errors.New("archive contains no .ups file")
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("archive contains %d .ups files", len(found))
	}
}

// ReadSource reads a source file into memory
func ReadSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewError(ErrCodeFileAccess, "failed to read source file", err)
	}
	return data, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so a failed write never leaves a partial output behind. An
// existing file is only replaced when overwrite is set.
func WriteFileAtomic(path string, data []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return NewError(ErrCodeFileAccess, fmt.Sprintf("output %s already exists (use --overwrite)", path), nil)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return NewError(ErrCodeFileAccess, "failed to stat output file", err)
		}
	}

	dir, base := filepath.Split(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return NewError(ErrCodeFileAccess, "failed to write output file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return NewError(ErrCodeFileAccess, "failed to move output file into place", err)
	}
	return nil
}

// PatchedName derives the default output name for source inside dir:
// rom.gba becomes rom.patched.gba.
func PatchedName(source, dir string) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)] + ".patched" + ext
	if dir == "" {
		dir = filepath.Dir(source)
	}
	return filepath.Join(dir, name)
}
