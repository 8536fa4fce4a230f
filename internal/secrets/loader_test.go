package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "inline", src: Source{Name: "jwt secret", Value: " inline "}, want: "inline"},
		{name: "file wins", src: Source{Name: "jwt secret", Value: "inline", File: keyFile}, want: "from-file"},
		{name: "empty file", src: Source{Name: "razorpay key secret", File: emptyFile}, wantErr: "razorpay key secret file"},
		{name: "missing file", src: Source{Name: "gemini api key", File: filepath.Join(dir, "nope")}, wantErr: "reading gemini api key"},
		{name: "not configured", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOptional(t *testing.T) {
	secret, ok, err := Optional(Source{Name: "gemini api key"})
	if err != nil || ok || secret != "" {
		t.Fatalf("expected absent secret, got %q %v %v", secret, ok, err)
	}

	secret, ok, err = Optional(Source{Name: "gemini api key", Value: "abc"})
	if err != nil || !ok || secret != "abc" {
		t.Fatalf("expected abc, got %q %v %v", secret, ok, err)
	}

	_, _, err = Optional(Source{Name: "gemini api key", File: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error for unreadable file")
	}
}
