package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"control chars", " A\nB\rC\tD\x00 ", 100, "ABCD"},
		{"allowed chars", "Az09 -_.,()", 100, "Az09 -_.,()"},
		{"disallowed", "bad<>|\"name", 100, "bad____name"},
		{"truncated", "abcdefghijklmnopqrstuvwxyz", 10, "abcdefghij"},
		{"no limit", "abc/def", 0, "abc_def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("SanitizeName(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		title, ext, want string
	}{
		{"My Trip", "edl", "My Trip.edl"},
		{"a/b", ".edl", "a_b.edl"},
		{"", "edl", "export.edl"},
		{"..", "edl", "export.edl"},
	}
	for _, tt := range tests {
		if got := FileName(tt.title, tt.ext); got != tt.want {
			t.Errorf("FileName(%q, %q) = %q, want %q", tt.title, tt.ext, got, tt.want)
		}
	}
}

func TestValidateOutputDir(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "file.txt")
	if err := os.WriteFile(filePath, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	if err := ValidateOutputDir(tmp); err != nil {
		t.Errorf("ValidateOutputDir(%q) error = %v, want nil", tmp, err)
	}
	if err := ValidateOutputDir(""); !errors.Is(err, ErrOutputDirRequired) {
		t.Errorf("ValidateOutputDir(\"\") error = %v", err)
	}
	if err := ValidateOutputDir("/tmp/../etc"); !errors.Is(err, ErrOutputDirTraversal) {
		t.Errorf("ValidateOutputDir(traversal) error = %v", err)
	}
	if err := ValidateOutputDir(filepath.Join(tmp, "missing")); !errors.Is(err, ErrOutputDirMissing) {
		t.Errorf("ValidateOutputDir(missing) error = %v", err)
	}
	if err := ValidateOutputDir(filePath); err == nil {
		t.Errorf("ValidateOutputDir(%q) expected non-directory error", filePath)
	}
	if err := ValidateOutputDir(tmp + "/"); err == nil {
		t.Error("ValidateOutputDir() should reject unclean path")
	}
}
