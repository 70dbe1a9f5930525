package matrixrelay

import (
	"fmt"
	"sync"
)

// ─── Çerçeve Birleştirme ────────────────────────────────────────────────────────
//
// Cihaz tarafında segmentler (toplam genişlik, yükseklik) anahtarıyla biriktirilir.
// x offset kapsaması toplam genişliğe ulaştığında çerçeve tamamlanmış olur.
// Protokol segmentlerin sıralı gelmesini garanti etmez; Segmenter her zaman
// artan x sırasıyla gönderse de birleştirici sırasız segmentleri de kabul eder.

// Assembler, gelen segmentlerden tam çerçeveleri yeniden oluşturur.
// Eşzamanlı kullanım için güvenlidir.
type Assembler struct {
	mu      sync.Mutex
	pending map[frameKey]*partialFrame
}

type frameKey struct {
	totalWidth uint16
	height     uint16
}

type partialFrame struct {
	matrix  *PixelMatrix
	covered []bool // sütun başına
	filled  int
}

// NewAssembler, boş bir Assembler oluşturur.
func NewAssembler() *Assembler {
	return &Assembler{pending: make(map[frameKey]*partialFrame)}
}

// Add, bir segmenti ekler. Çerçeve tamamlandıysa tam matrisi ve true döner.
// Daha önce doldurulmuş bir sütuna denk gelen segment yeni bir çerçevenin
// başladığı anlamına gelir; yarım kalan çerçeve atılır.
func (a *Assembler) Add(t Tile) (*PixelMatrix, bool, error) {
	if t.Width == 0 {
		return nil, false, fmt.Errorf("sıfır genişlikli segment: %w", ErrBadSegment)
	}
	if t.Pixels == nil || int(t.Width) != t.Pixels.Width || int(t.Height) != t.Pixels.Height {
		return nil, false, fmt.Errorf("segment piksel boyutu başlıkla uyuşmuyor: %w", ErrBadSegment)
	}
	if uint32(t.XOffset)+uint32(t.Width) > uint32(t.TotalWidth) {
		return nil, false, fmt.Errorf("segment çerçeve dışına taşıyor: %w", ErrBadSegment)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	x0, x1 := int(t.XOffset), int(t.XOffset)+int(t.Width)
	key := frameKey{totalWidth: t.TotalWidth, height: t.Height}
	p := a.pending[key]
	if p == nil || p.overlaps(x0, x1) {
		p = &partialFrame{
			matrix:  NewPixelMatrix(int(t.TotalWidth), int(t.Height)),
			covered: make([]bool, t.TotalWidth),
		}
		a.pending[key] = p
	}

	for y := 0; y < int(t.Height); y++ {
		copy(p.matrix.Row(y)[x0:x1], t.Pixels.Row(y))
	}
	for x := x0; x < x1; x++ {
		p.covered[x] = true
	}
	p.filled += x1 - x0

	if p.filled < int(t.TotalWidth) {
		return nil, false, nil
	}
	delete(a.pending, key)
	return p.matrix, true, nil
}

func (p *partialFrame) overlaps(x0, x1 int) bool {
	for x := x0; x < x1; x++ {
		if p.covered[x] {
			return true
		}
	}
	return false
}

// AddPacket, binary segment paketini çözüp Add'e iletir.
func (a *Assembler) AddPacket(pkt []byte) (*PixelMatrix, bool, error) {
	t, err := ParseSegmentPacket(pkt)
	if err != nil {
		return nil, false, err
	}
	return a.Add(t)
}

// Pending, tamamlanmamış çerçeve sayısını döner.
func (a *Assembler) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
