package matrixrelay

import "unicode/utf8"

// ─── Yazı Sınıflandırma ─────────────────────────────────────────────────────────
//
// Karışık dilli metin (ör: Khmer + Latin + emoji) tek bir fontla düzgün çizilemez.
// Bu dosya metni aynı yazı sınıfına ait ardışık karakter gruplarına (run) böler.
// Çizim motoru metni byte offset ile adreslediği için run sınırları karakter
// indeksi değil, UTF-8 byte offseti olarak tutulur.

// Run, aynı yazı sınıfına ait kesintisiz bir metin aralığıdır.
// Start dahil, End hariç byte offsetleridir.
type Run struct {
	Start  int
	End    int
	Script Script
}

// Len, run'ın byte uzunluğunu döner.
func (r Run) Len() int {
	return r.End - r.Start
}

// Text, run'ın kapsadığı alt metni döner.
func (r Run) Text(s string) string {
	return s[r.Start:r.End]
}

// DetectScript, bir karakterin yazı sınıfını kod noktası aralığına göre belirler.
// Khmer ve emoji dışındaki her şey (atanmamış kod noktaları dahil) Latin sayılır.
func DetectScript(r rune) Script {
	switch {
	case r >= 0x1780 && r <= 0x17FF:
		return ScriptKhmer
	case r >= 0x1F300 && r <= 0x1FAFF, r >= 0x2600 && r <= 0x26FF:
		return ScriptEmoji
	default:
		return ScriptLatin
	}
}

// SegmentScripts, metni yazı sınıfı değiştiği noktalardan run'lara böler.
// Dönen run'lar [0, len(s)) aralığını boşluksuz ve çakışmasız kaplar.
// Boş metin için nil döner.
//
//	runs := matrixrelay.SegmentScripts("Aខ😀")
//	// [{0 1 latin} {1 4 khmer} {4 8 emoji}]
func SegmentScripts(s string) []Run {
	if s == "" {
		return nil
	}

	runs := make([]Run, 0, 4)
	start := 0
	offset := 0
	current := ScriptLatin
	first := true

	for offset < len(s) {
		r, size := utf8.DecodeRuneInString(s[offset:])
		script := DetectScript(r)

		switch {
		case first:
			current = script
			first = false
		case script != current:
			runs = append(runs, Run{Start: start, End: offset, Script: current})
			start = offset
			current = script
		}
		offset += size
	}

	runs = append(runs, Run{Start: start, End: len(s), Script: current})
	return runs
}
