// Package fs resolves and cleans up download destinations.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mediadl/internal/domain/consts"
	"mediadl/internal/domain/errs"
	"mediadl/internal/domain/regex"
)

// NormalizeName strips characters that are unsafe in a filename and
// collapses whitespace. It returns fallback when nothing usable is left.
func NormalizeName(name, fallback string) string {
	n := regex.ReservedChars().ReplaceAllString(name, " ")
	n = regex.ExtraSpaces().ReplaceAllString(n, " ")
	n = strings.Trim(strings.TrimSpace(n), ".")
	if n == "" {
		return fallback
	}
	return n
}

// Resolve reserves a collision-free destination in dir.
//
// With an extension the returned path is a freshly created empty file. Without
// one it is a freshly created directory (directory mode). Reservation uses
// exclusive creation, so concurrent callers never receive the same path.
// Conflicts are numbered "name (2).ext", "name (3).ext", ...
func Resolve(dir, name, ext string) (string, error) {
	if err := os.MkdirAll(dir, consts.PermsOutputDir); err != nil {
		return "", &errs.ResourceError{Path: dir, Err: err}
	}
	ext = strings.TrimPrefix(ext, ".")

	for n := 1; n <= consts.MaxPathProbes; n++ {
		p := filepath.Join(dir, candidate(name, ext, n))

		err := reserve(p, ext == "")
		if err == nil {
			return p, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return "", &errs.ResourceError{Path: p, Err: err}
	}
	return "", &errs.ResourceError{
		Path: filepath.Join(dir, candidate(name, ext, 1)),
		Err:  fmt.Errorf("%w after %d attempts", errs.ErrPathExhausted, consts.MaxPathProbes),
	}
}

// candidate builds the n-th probe name.
func candidate(name, ext string, n int) string {
	base := name
	if n > 1 {
		base = fmt.Sprintf("%s (%d)", name, n)
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// reserve atomically claims p as a file or directory.
func reserve(p string, dirMode bool) error {
	if dirMode {
		return os.Mkdir(p, consts.PermsOutputDir)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, consts.PermsOutputFile)
	if err != nil {
		return err
	}
	return f.Close()
}

// TempName returns the sibling path "name<suffix>.ext" of p.
func TempName(p, suffix string) string {
	ext := filepath.Ext(p)
	return strings.TrimSuffix(p, ext) + suffix + ext
}

// RemoveIfExists deletes a file, treating a missing file as success.
func RemoveIfExists(p string) error {
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
