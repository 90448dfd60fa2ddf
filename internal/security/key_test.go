package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/Ning0612/Stowage/internal/domain"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{"plain key", "docs/report.pdf", ""},
		{"nested key", "a/b/c/d.txt", ""},
		{"leading slash", "/docs/a.txt", ""},
		{"unicode", "фото/día.jpg", ""},
		{"dot segments allowed", "./a/.hidden", ""},
		{"parent traversal", "../etc/passwd", "path traversal detected"},
		{"embedded traversal", "a/../b", "path traversal detected"},
		{"backslash", "a\\b", "path traversal detected"},
		{"home dir", "~/secret", "home directory path not allowed"},
		{"null byte", "a\x00b", "control characters detected"},
		{"newline", "a\nb", "control characters detected"},
		{"unit separator", "a\x1fb", "control characters detected"},
		{"delete char", "a\x7fb", "control characters detected"},
		{"traversal wins over home", "~/..", "path traversal detected"},
		{"home wins over control", "~\x01", "home directory path not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateKey(%q) unexpected error: %v", tt.key, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateKey(%q) expected error", tt.key)
			}
			if !errors.Is(err, domain.ErrInvalidKey) {
				t.Errorf("error should wrap ErrInvalidKey, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"path//to///file", "path/to/file"},
		{"/path/to/file/", "path/to/file"},
		{"///", ""},
		{"", ""},
		{"a", "a"},
		{"//a//b//", "a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := SanitizeKey(tt.key)
			if err != nil {
				t.Fatalf("SanitizeKey(%q) unexpected error: %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("SanitizeKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSanitizeKey_Rejects(t *testing.T) {
	for _, key := range []string{"a/../b", "~/x", "a\tb"} {
		if _, err := SanitizeKey(key); !errors.Is(err, domain.ErrInvalidKey) {
			t.Errorf("SanitizeKey(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestEscapeQueryValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"file'name", `file\'name`},
		{`file\'name`, `file\\\'name`},
		{`path\to\file`, `path\\to\\file`},
		{"it's a 'test'", `it\'s a \'test\'`},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := EscapeQueryValue(tt.input); got != tt.expected {
				t.Errorf("EscapeQueryValue(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLeadingSlash(t *testing.T) {
	tests := map[string]string{
		"":      "/",
		"a":     "/a",
		"/a":    "/a",
		"//a/b": "/a/b",
	}
	for in, want := range tests {
		if got := LeadingSlash(in); got != want {
			t.Errorf("LeadingSlash(%q) = %q, want %q", in, got, want)
		}
	}
}
