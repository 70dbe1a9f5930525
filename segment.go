package matrixrelay

import (
	"iter"
	"time"
)

// ─── Çerçeve Bölme ──────────────────────────────────────────────────────────────
//
// Render edilen metin matristen çok daha geniş olabilir (kayan yazı).
// Cihazın alım tamponu sınırlı olduğundan çerçeve soldan sağa, tam yükseklikte
// ve en fazla MaxTileWidth genişliğinde segmentlere bölünür.
//
// Örnek: 500 piksel genişliğinde bir çerçeve, 192 limitiyle 3 segmente bölünür:
//
//	Segment 1: x=0,   genişlik=192
//	Segment 2: x=192, genişlik=192
//	Segment 3: x=384, genişlik=116

// Tile, bir çerçevenin dikey bir dilimidir.
// XOffset + Width <= TotalWidth her zaman sağlanır.
type Tile struct {
	TotalWidth uint16
	XOffset    uint16
	Width      uint16
	Height     uint16
	Pixels     *PixelMatrix
}

// Segmenter, çerçeveleri segmentlere böler ve segmentler arası beklemeyi uygular.
type Segmenter struct {
	// MaxTileWidth, bir segmentin en fazla piksel genişliğidir.
	MaxTileWidth int

	// Pacing, ikinci segmentten itibaren, kalan segment varsa bir sonrakinden
	// önce beklenen süredir. Bekleme yalnızca çağıran goroutine'i durdurur.
	Pacing time.Duration

	// sleep, testlerde beklemeyi gözlemlemek için değiştirilebilir.
	sleep func(time.Duration)
}

// NewSegmenter, verilen limit ve bekleme süresiyle bir Segmenter oluşturur.
// maxTileWidth <= 0 ise DefaultTileWidth kullanılır.
func NewSegmenter(maxTileWidth int, pacing time.Duration) *Segmenter {
	if maxTileWidth <= 0 {
		maxTileWidth = DefaultTileWidth
	}
	return &Segmenter{
		MaxTileWidth: maxTileWidth,
		Pacing:       pacing,
		sleep:        time.Sleep,
	}
}

// Count, m için üretilecek segment sayısını döner.
func (s *Segmenter) Count(m *PixelMatrix) int {
	if m == nil || m.Width <= 0 {
		return 0
	}
	limit := s.limit()
	return (m.Width + limit - 1) / limit
}

// Tiles, m'nin segmentlerini soldan sağa sırayla üreten senkron bir iteratördür.
// Her segment, döngü gövdesi (ör: gönderim) tamamlanmadan bir sonraki üretilmez.
// Genişliği sıfır olan matris için hiçbir segment üretilmez.
//
//	for tile := range seg.Tiles(matrix) {
//	    router.Forward(BuildSegmentPacket(tile))
//	}
func (s *Segmenter) Tiles(m *PixelMatrix) iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		if m == nil || m.Width <= 0 {
			return
		}

		limit := s.limit()
		index := 0
		for x := 0; x < m.Width; x += limit {
			w := min(limit, m.Width-x)

			tile := Tile{
				TotalWidth: uint16(m.Width),
				XOffset:    uint16(x),
				Width:      uint16(w),
				Height:     uint16(m.Height),
				Pixels:     m.Crop(x, w),
			}
			if !yield(tile) {
				return
			}

			remaining := x+w < m.Width
			if index >= 1 && remaining && s.Pacing > 0 {
				s.pause()
			}
			index++
		}
	}
}

func (s *Segmenter) limit() int {
	if s.MaxTileWidth <= 0 {
		return DefaultTileWidth
	}
	return s.MaxTileWidth
}

func (s *Segmenter) pause() {
	if s.sleep != nil {
		s.sleep(s.Pacing)
		return
	}
	time.Sleep(s.Pacing)
}

// Crop, [x, x+w) sütunlarını tam yükseklikte yeni bir matrise kopyalar.
func (m *PixelMatrix) Crop(x, w int) *PixelMatrix {
	out := NewPixelMatrix(w, m.Height)
	for y := 0; y < m.Height; y++ {
		copy(out.Row(y), m.Pix[y*m.Width+x:y*m.Width+x+w])
	}
	return out
}
