package matrixrelay

import "strings"

// ─── Font Çözümleme ─────────────────────────────────────────────────────────────
//
// Kullanıcı tek bir font ailesi seçer; her yazı sınıfı için hangi ailenin
// kullanılacağı burada belirlenir:
//
//   - Seçilen aile bilinen bir Khmer ailesiyse hem Khmer hem Latin için kullanılır
//   - Değilse Khmer için KhmerFontDefault, Latin için seçilen aile kullanılır
//   - Emoji her zaman EmojiFontDefault ile çizilir
//   - Seçilen aile sistemde yoksa Latin için LatinFontDefault'a düşülür ve
//     warn seviyesinde status üretilir (render iptal edilmez)

// FontChecker, bir font ailesinin çizim için kullanılabilir olup olmadığını bildirir.
type FontChecker interface {
	Has(family string) bool
}

// FontSet, her yazı sınıfı için çözümlenmiş font ailesi adlarını tutar.
type FontSet struct {
	Latin string
	Khmer string
	Emoji string
}

// Family, verilen yazı sınıfı için aile adını döner.
func (f FontSet) Family(s Script) string {
	switch s {
	case ScriptKhmer:
		return f.Khmer
	case ScriptEmoji:
		return f.Emoji
	default:
		return f.Latin
	}
}

// khmerFamilies, Latin karakterleri de kapsadığı kabul edilen Khmer font aileleridir.
var khmerFamilies = map[string]bool{
	"siemreap":            true,
	"battambang":          true,
	"bayon":               true,
	"bokor":               true,
	"content":             true,
	"dangrek":             true,
	"hanuman":             true,
	"kantumruy":           true,
	"kantumruy pro":       true,
	"kdam thmor":          true,
	"khmer os":            true,
	"khmer os system":     true,
	"khmer os battambang": true,
	"koulen":              true,
	"moul":                true,
	"moulpali":            true,
	"nokora":              true,
	"noto sans khmer":     true,
	"noto serif khmer":    true,
	"preahvihear":         true,
	"suwannaphum":         true,
	"taprom":              true,
}

// IsKhmerFamily, aile adının bilinen bir Khmer fontu olup olmadığını kontrol eder.
func IsKhmerFamily(family string) bool {
	return khmerFamilies[strings.ToLower(strings.TrimSpace(family))]
}

// ResolveFonts, istenen aile için yazı sınıfı başına font adlarını belirler.
// available nil ise tüm aileler mevcut kabul edilir.
//
//	set, warnings := matrixrelay.ResolveFonts("Battambang", lib.Has)
//	// set.Khmer == "Battambang", set.Latin == "Battambang"
func ResolveFonts(requested string, available func(string) bool) (FontSet, []StatusEvent) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		requested = LatinFontDefault
	}

	set := FontSet{
		Latin: requested,
		Khmer: KhmerFontDefault,
		Emoji: EmojiFontDefault,
	}
	khmer := IsKhmerFamily(requested)
	if khmer {
		set.Khmer = requested
	}

	if available == nil || available(requested) {
		return set, nil
	}

	set.Latin = LatinFontDefault
	if khmer {
		set.Khmer = KhmerFontDefault
	}
	warning := StatusWarn("Font %q not available; falling back to %s", requested, LatinFontDefault)
	return set, []StatusEvent{warning}
}
