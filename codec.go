package matrixrelay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ─── RGB565 Piksel Dönüşümü ─────────────────────────────────────────────────────
//
// Çizim motoru piksel başına 4 byte (B, G, R, A) üretir. LED matris ise
// 16 bit RGB565 bekler:
//
//	bit 15..11: kırmızının üst 5 biti
//	bit 10..5 : yeşilin üst 6 biti
//	bit  4..0 : mavinin üst 5 biti
//
// Paketlemeden önce alpha > 0 olan pikseller alpha ile ön-çarpılır.

// ErrShortBuffer, piksel tamponu bildirilen boyutlar için yetersiz olduğunda döner.
var ErrShortBuffer = errors.New("matrixrelay: piksel tamponu beklenenden kısa")

// PixelMatrix, satır öncelikli RGB565 piksel matrisidir.
// Pix[y*Width+x] piksel (x, y)'ye karşılık gelir.
// Bir matris aynı anda yalnızca tek bir pipeline aşamasına aittir.
type PixelMatrix struct {
	Width  int
	Height int
	Pix    []uint16
}

// NewPixelMatrix, sıfırlarla dolu width x height boyutunda bir matris oluşturur.
func NewPixelMatrix(width, height int) *PixelMatrix {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &PixelMatrix{
		Width:  width,
		Height: height,
		Pix:    make([]uint16, width*height),
	}
}

// At, (x, y) pikselini döner. Sınır dışı koordinatlar için 0 döner.
func (m *PixelMatrix) At(x, y int) uint16 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set, (x, y) pikselini ayarlar. Sınır dışı koordinatlar yok sayılır.
func (m *PixelMatrix) Set(x, y int, v uint16) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Row, y satırını döner. Dönen dilim matrisle aynı belleği paylaşır.
func (m *PixelMatrix) Row(y int) []uint16 {
	return m.Pix[y*m.Width : (y+1)*m.Width]
}

// PackRGB565, 8 bitlik kanalları tek bir 16 bit değere paketler.
//
//	matrixrelay.PackRGB565(255, 255, 255) // 0xFFFF
//	matrixrelay.PackRGB565(255, 0, 0)     // 0xF800
func PackRGB565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b&0xF8)>>3
}

// ToPacked16, B,G,R,A sıralı piksel tamponunu RGB565 matrisine dönüştürür.
// stride bir satırın byte uzunluğudur ve width*4'ten büyük olabilir (satır dolgusu).
//
// alpha == 0 olan pikseller ölçeklenmeden, ham renkleriyle paketlenir.
// Çıkış formatında alpha kanalı olmadığından bu mevcut cihaz yazılımıyla
// uyumluluk için korunur; siyaha maskelenmesi gerekip gerekmediği açık bir sorudur.
func ToPacked16(buf []byte, width, height, stride int) (*PixelMatrix, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("geçersiz boyut: %dx%d", width, height)
	}
	if width > 0 && stride < width*4 {
		return nil, fmt.Errorf("geçersiz stride %d (genişlik %d): %w", stride, width, ErrShortBuffer)
	}
	if height > 0 && width > 0 {
		need := (height-1)*stride + width*4
		if len(buf) < need {
			return nil, fmt.Errorf("%d byte gerekli, %d byte var: %w", need, len(buf), ErrShortBuffer)
		}
	}

	m := NewPixelMatrix(width, height)
	for y := 0; y < height; y++ {
		row := y * stride
		out := m.Row(y)
		for x := 0; x < width; x++ {
			i := row + x*4
			b, g, r, a := buf[i], buf[i+1], buf[i+2], buf[i+3]
			if a > 0 {
				r = premultiply(r, a)
				g = premultiply(g, a)
				b = premultiply(b, a)
			}
			out[x] = PackRGB565(r, g, b)
		}
	}
	return m, nil
}

func premultiply(c, a uint8) uint8 {
	return uint8(uint16(c) * uint16(a) / 255)
}

// UnpackRGB565, 16 bit değeri 8 bitlik kanallara açar. Alt bitler üst bitlerle
// doldurulur; 0xFFFF beyaza, 0x0000 siyaha döner.
func UnpackRGB565(v uint16) (r, g, b uint8) {
	r5 := uint8(v >> 11 & 0x1F)
	g6 := uint8(v >> 5 & 0x3F)
	b5 := uint8(v & 0x1F)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// Image, matrisi opak bir RGBA görüntüsüne çevirir.
func (m *PixelMatrix) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x, v := range m.Row(y) {
			r, g, b := UnpackRGB565(v)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xFF})
		}
	}
	return img
}
