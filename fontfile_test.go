package matrixrelay

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

func TestDetectFontFileType(t *testing.T) {
	tests := []struct {
		path string
		want FontFileType
	}{
		{"a.ttf", FontFileTrueType},
		{"A.TTF", FontFileTrueType},
		{"b.otf", FontFileOpenType},
		{"c.ttc", FontFileCollection},
		{"readme.txt", FontFileUnknown},
		{"noext", FontFileUnknown},
	}
	for _, tt := range tests {
		if got := detectFontFileType(tt.path); got != tt.want {
			t.Errorf("detectFontFileType(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFontLibraryBundled(t *testing.T) {
	lib, err := NewFontLibrary(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !lib.Has("go") || !lib.Has(" GO ") {
		t.Error("bundled family not found case-insensitively")
	}
	if lib.Has(LatinFontDefault) {
		t.Error("unexpected family without system fonts")
	}
	if _, err := lib.Source("Nope"); !errors.Is(err, ErrUnknownFont) {
		t.Errorf("err = %v, want ErrUnknownFont", err)
	}
	if lib.SourceOrBundled("Nope") == nil {
		t.Error("no bundled fallback")
	}
}

func TestFontLibraryLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("Siemreap.ttf", goregular.TTF)
	write("HeavyFace.otf", gobold.TTF)
	write("broken.ttf", []byte("not a font"))
	write("notes.txt", []byte("ignored"))

	lib, err := NewFontLibrary(nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := lib.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded = %d, want 2", n)
	}
	for _, fam := range []string{"siemreap", "HeavyFace"} {
		if !lib.Has(fam) {
			t.Errorf("family %q not registered", fam)
		}
	}

	if _, err := lib.LoadDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing directory accepted")
	}
}

func TestFontLibraryRegister(t *testing.T) {
	lib, err := NewFontLibrary(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := lib.Register("Khmer OS", goregular.TTF); err != nil {
		t.Fatal(err)
	}
	if !lib.Has("khmer os") {
		t.Error("registered family missing")
	}
	if err := lib.Register("Bad", []byte{1, 2, 3}); err == nil {
		t.Error("invalid data accepted")
	}
}

func TestFileMD5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := FileMD5(path)
	if err != nil {
		t.Fatal(err)
	}
	if sum != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("md5 = %s", sum)
	}
}
