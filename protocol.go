package matrixrelay

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ─── Paket Oluşturma ────────────────────────────────────────────────────────────
//
// Bu dosya, cihaza giden binary segment paketlerini ve controller'dan gelen
// eski tip tek parça çerçeveleri işleyen düşük seviyeli fonksiyonları içerir.
// Tüm 16 bit alanlar little-endian byte sıralaması kullanır.
//
// Segment Paketi Formatı (toplam 10 + w*h*2 byte):
//
//	[2B] tag            = "SG"
//	[2B] toplam genişlik = çerçevenin tam piksel genişliği
//	[2B] x offset       = bu segmentin çerçeve içindeki başlangıç sütunu
//	[2B] segment genişliği
//	[2B] yükseklik
//	[NB] RGB565 pikseller, satır öncelikli, piksel başına 2 byte

var (
	// ErrShortFrame, eski tip çerçeve başlıkta bildirilen boyuttan kısa olduğunda döner.
	ErrShortFrame = errors.New("matrixrelay: çerçeve verisi bildirilen boyuttan kısa")

	// ErrBadSegment, segment paketi ayrıştırılamadığında döner.
	ErrBadSegment = errors.New("matrixrelay: geçersiz segment paketi")
)

// SegmentHeader, segment paketinin 10 byte'lık başlığıdır.
type SegmentHeader struct {
	TotalWidth uint16
	XOffset    uint16
	Width      uint16
	Height     uint16
}

// PayloadLen, başlığa göre beklenen piksel verisi uzunluğunu döner.
func (h SegmentHeader) PayloadLen() int {
	return int(h.Width) * int(h.Height) * 2
}

// BuildSegmentPacket, bir segmenti cihaza gönderilecek binary pakete dönüştürür.
//
//	pkt := matrixrelay.BuildSegmentPacket(tile)
//	// pkt[0:2] == "SG", len(pkt) == 10 + tile.Width*tile.Height*2
func BuildSegmentPacket(t Tile) []byte {
	h := SegmentHeader{
		TotalWidth: t.TotalWidth,
		XOffset:    t.XOffset,
		Width:      t.Width,
		Height:     t.Height,
	}
	pkt := make([]byte, segmentHeaderLength+h.PayloadLen())

	// Header: [2B tag][2B total][2B offset][2B width][2B height]
	pkt[0] = segmentTag[0]
	pkt[1] = segmentTag[1]
	binary.LittleEndian.PutUint16(pkt[2:4], h.TotalWidth)
	binary.LittleEndian.PutUint16(pkt[4:6], h.XOffset)
	binary.LittleEndian.PutUint16(pkt[6:8], h.Width)
	binary.LittleEndian.PutUint16(pkt[8:10], h.Height)

	// Piksel verisini kopyala
	if t.Pixels != nil {
		putPixels(pkt[segmentHeaderLength:], t.Pixels.Pix)
	}
	return pkt
}

// ParseSegmentHeader, segment paketinin başlığını ayrıştırır.
// En az segmentHeaderLength (10) byte ve doğru tag gerektirir.
//
// Dönen değerler:
//   - h: Ayrıştırılan başlık
//   - ok: Ayrıştırma başarılı mı
func ParseSegmentHeader(data []byte) (h SegmentHeader, ok bool) {
	if len(data) < segmentHeaderLength {
		return SegmentHeader{}, false
	}
	if data[0] != segmentTag[0] || data[1] != segmentTag[1] {
		return SegmentHeader{}, false
	}
	h.TotalWidth = binary.LittleEndian.Uint16(data[2:4])
	h.XOffset = binary.LittleEndian.Uint16(data[4:6])
	h.Width = binary.LittleEndian.Uint16(data[6:8])
	h.Height = binary.LittleEndian.Uint16(data[8:10])
	return h, true
}

// ParseSegmentPacket, segment paketini başlık ve piksel verisi olarak çözer.
func ParseSegmentPacket(data []byte) (Tile, error) {
	h, ok := ParseSegmentHeader(data)
	if !ok {
		return Tile{}, fmt.Errorf("başlık çözümlenemedi (%d byte): %w", len(data), ErrBadSegment)
	}
	if uint32(h.XOffset)+uint32(h.Width) > uint32(h.TotalWidth) {
		return Tile{}, fmt.Errorf("segment çerçeve dışına taşıyor (x=%d w=%d toplam=%d): %w",
			h.XOffset, h.Width, h.TotalWidth, ErrBadSegment)
	}
	payload := data[segmentHeaderLength:]
	if len(payload) < h.PayloadLen() {
		return Tile{}, fmt.Errorf("%d byte piksel bekleniyordu, %d geldi: %w",
			h.PayloadLen(), len(payload), ErrBadSegment)
	}

	m := NewPixelMatrix(int(h.Width), int(h.Height))
	getPixels(m.Pix, payload)
	return Tile{
		TotalWidth: h.TotalWidth,
		XOffset:    h.XOffset,
		Width:      h.Width,
		Height:     h.Height,
		Pixels:     m,
	}, nil
}

// ─── Eski Tip Çerçeve ───────────────────────────────────────────────────────────
//
// Controller'ın kendi ürettiği (görsel/video) çerçeveleri doğrudan gönderdiği format:
//
//	[2B] genişlik (LE)
//	[2B] yükseklik (LE)
//	[NB] genişlik*yükseklik*2 byte RGB565 piksel

// ParseLegacyFrame, eski tip çerçeveyi RGB565 matrisine dönüştürür.
// Veri bildirilen boyuttan kısaysa ErrShortFrame döner.
// Fazla byte'lar yok sayılır; extra sayısı çağırana bildirilir.
func ParseLegacyFrame(data []byte) (m *PixelMatrix, extra int, err error) {
	if len(data) < legacyHeaderLength {
		return nil, 0, fmt.Errorf("başlık için %d byte gerekli, %d geldi: %w",
			legacyHeaderLength, len(data), ErrShortFrame)
	}
	w := int(binary.LittleEndian.Uint16(data[0:2]))
	h := int(binary.LittleEndian.Uint16(data[2:4]))
	payload := data[legacyHeaderLength:]

	need := w * h * 2
	if len(payload) < need {
		return nil, 0, fmt.Errorf("%dx%d için %d byte gerekli, %d geldi: %w",
			w, h, need, len(payload), ErrShortFrame)
	}

	m = NewPixelMatrix(w, h)
	getPixels(m.Pix, payload[:need])
	return m, len(payload) - need, nil
}

// BuildLegacyFrame, matrisi eski tip çerçeve formatına dönüştürür.
// Controller tarafı araçlar ve testler için kullanılır.
func BuildLegacyFrame(m *PixelMatrix) []byte {
	pkt := make([]byte, legacyHeaderLength+len(m.Pix)*2)
	binary.LittleEndian.PutUint16(pkt[0:2], uint16(m.Width))
	binary.LittleEndian.PutUint16(pkt[2:4], uint16(m.Height))
	putPixels(pkt[legacyHeaderLength:], m.Pix)
	return pkt
}

// ─── Dahili Yardımcılar ─────────────────────────────────────────────────────────

func putPixels(dst []byte, pix []uint16) {
	for i, p := range pix {
		binary.LittleEndian.PutUint16(dst[i*2:], p)
	}
}

func getPixels(dst []uint16, src []byte) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint16(src[i*2:])
	}
}
