package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	ErrOutputDirRequired  = errors.New("output_dir is required")
	ErrOutputDirTraversal = errors.New("output_dir cannot contain path traversal")
	ErrOutputDirMissing   = errors.New("output_dir does not exist")
)

const maxNameLen = 80

// SanitizeName strips control characters from s and replaces anything that
// is unsafe in a filename with '_', truncating to maxLen runes when maxLen > 0.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
		case isAllowedNameRune(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return strings.ContainsRune(" -_.,()", r)
}

// FileName builds an export filename from a project title.
func FileName(title, ext string) string {
	name := SanitizeName(title, maxNameLen)
	if name == "" || strings.Trim(name, ".") == "" {
		name = "export"
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// ValidateOutputDir checks that dir is a clean path to an existing directory.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return ErrOutputDirRequired
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return ErrOutputDirTraversal
		}
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("output_dir must be a clean path")
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrOutputDirMissing
		}
		return fmt.Errorf("invalid output_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output_dir is not a directory")
	}
	return nil
}
