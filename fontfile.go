package matrixrelay

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-text/typesetting/fontscan"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// ─── Font Kütüphanesi ───────────────────────────────────────────────────────────
//
// Font dosyaları üç kaynaktan yüklenir:
//
//  1. Gömülü Go fontu ("Go"); her zaman mevcuttur ve son çaredir
//  2. Yapılandırılan dizindeki .ttf / .otf dosyaları (koleksiyonlar atlanır)
//  3. İsteğe bağlı olarak işletim sisteminin font dizinleri (fontscan)
//
// Aile adları büyük/küçük harf duyarsız eşleşir. Bir dosya hem font içindeki
// ad ile hem de uzantısız dosya adı ile kaydedilir.

// ErrUnknownFont, istenen font ailesi hiçbir kaynakta bulunamadığında döner.
var ErrUnknownFont = errors.New("matrixrelay: bilinmeyen font ailesi")

// FontFileType, font dosyasının biçimidir.
type FontFileType int

const (
	FontFileUnknown FontFileType = iota
	FontFileTrueType
	FontFileOpenType
	FontFileCollection
)

// detectFontFileType, dosya uzantısından font biçimini tespit eder.
func detectFontFileType(path string) FontFileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttf":
		return FontFileTrueType
	case ".otf":
		return FontFileOpenType
	case ".ttc", ".otc":
		return FontFileCollection
	default:
		return FontFileUnknown
	}
}

// FontLibrary, aile adından gg FontSource'a eşleme tutar.
// FontChecker arayüzünü uygular. Eşzamanlı kullanım için güvenlidir.
type FontLibrary struct {
	mu      sync.RWMutex
	sources map[string]*text.FontSource
	system  *fontscan.FontMap
	bundled *text.FontSource
	logger  Logger
}

// NewFontLibrary, yalnızca gömülü Go fontunu içeren bir kütüphane oluşturur.
func NewFontLibrary(logger Logger) (*FontLibrary, error) {
	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("gömülü font yüklenemedi: %w", err)
	}
	lib := &FontLibrary{
		sources: make(map[string]*text.FontSource),
		bundled: src,
		logger:  logger,
	}
	lib.sources[familyKey(BundledFontFamily)] = src
	return lib, nil
}

// LoadDir, dizindeki font dosyalarını yükler ve yüklenen dosya sayısını döner.
// Okunamayan tek bir dosya loglanır ve atlanır.
func (l *FontLibrary) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("font dizini okunamadı: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch detectFontFileType(path) {
		case FontFileTrueType, FontFileOpenType:
		case FontFileCollection:
			logf(l.logger, "font koleksiyonu atlandı: %s", path)
			continue
		default:
			continue
		}
		if err := l.LoadFile(path); err != nil {
			logf(l.logger, "font yüklenemedi: %v", err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// LoadFile, bir font dosyasını yükler. Dosya, font içindeki ad, uzantısız dosya
// adı ve verilen ek aile adları altında kaydedilir.
func (l *FontLibrary) LoadFile(path string, families ...string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("font dosyası okunamadı: %w", err)
	}
	src, err := text.NewFontSource(data)
	if err != nil {
		return fmt.Errorf("font çözümlenemedi (%s): %w", filepath.Base(path), err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	names := append([]string{src.Name(), base}, families...)

	l.mu.Lock()
	for _, name := range names {
		if name == "" {
			continue
		}
		l.sources[familyKey(name)] = src
	}
	l.mu.Unlock()

	if sum, err := FileMD5(path); err == nil {
		logf(l.logger, "font yüklendi: %s (%s, MD5: %s)", src.Name(), filepath.Base(path), sum)
	}
	return nil
}

// Register, bellekteki font verisini verilen aile adıyla kaydeder.
func (l *FontLibrary) Register(family string, data []byte) error {
	src, err := text.NewFontSource(data)
	if err != nil {
		return fmt.Errorf("font çözümlenemedi (%s): %w", family, err)
	}
	l.mu.Lock()
	l.sources[familyKey(family)] = src
	l.mu.Unlock()
	return nil
}

// EnableSystemFonts, işletim sistemi font dizinlerini tarar. Tarama sonucu
// cacheDir altında saklanır; boş bırakılırsa kullanıcı önbellek dizini kullanılır.
// Sistem fontları ilk kullanımda yüklenir.
func (l *FontLibrary) EnableSystemFonts(cacheDir string) error {
	fm := fontscan.NewFontMap(l.logger)
	if err := fm.UseSystemFonts(cacheDir); err != nil {
		return fmt.Errorf("sistem fontları taranamadı: %w", err)
	}
	l.mu.Lock()
	l.system = fm
	l.mu.Unlock()
	return nil
}

// Has, ailenin yüklenebilir olup olmadığını döner.
func (l *FontLibrary) Has(family string) bool {
	_, err := l.Source(family)
	return err == nil
}

// Source, ailenin FontSource'unu döner. Aile yüklü değilse ve sistem fontları
// açıksa sistemde aranır ve bulunursa kaydedilir.
func (l *FontLibrary) Source(family string) (*text.FontSource, error) {
	key := familyKey(family)

	l.mu.RLock()
	src, ok := l.sources[key]
	system := l.system
	l.mu.RUnlock()
	if ok {
		return src, nil
	}
	if system == nil {
		return nil, fmt.Errorf("%q: %w", family, ErrUnknownFont)
	}

	loc, found := system.FindSystemFont(family)
	if !found {
		return nil, fmt.Errorf("%q: %w", family, ErrUnknownFont)
	}
	if detectFontFileType(loc.File) == FontFileCollection {
		return nil, fmt.Errorf("%q koleksiyon dosyasında (%s): %w", family, loc.File, ErrUnknownFont)
	}
	if err := l.LoadFile(loc.File, family); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sources[key], nil
}

// SourceOrBundled, aile bulunamazsa gömülü Go fontunu döner.
func (l *FontLibrary) SourceOrBundled(family string) *text.FontSource {
	if src, err := l.Source(family); err == nil {
		return src
	}
	return l.bundled
}

// Families, yüklü aile adlarını (küçük harfli) sıralı olarak döner.
func (l *FontLibrary) Families() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.sources))
	for k := range l.sources {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FileMD5, bir dosyanın MD5 hash'ini hesaplar (hex string).
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func familyKey(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}
