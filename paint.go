package matrixrelay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
)

// ─── Çizim Adaptörü ─────────────────────────────────────────────────────────────
//
// Metin şekillendirme ve rasterleştirme dışarıdan verilen bir Painter'a
// bırakılır. Painter, script run'ları ve çözülmüş font aileleriyle birlikte
// metni alır, BGRA düzeninde bir Surface döner. Surface genişliği metnin
// yatay ilerlemesine eşittir; yükseklik istenen kutu yüksekliğidir.
//
// Testler gerçek font gerektirmeyen sahte bir Painter kullanır.

// ErrInvalidRequest, render parametreleri geçersiz olduğunda döner.
var ErrInvalidRequest = errors.New("matrixrelay: geçersiz render isteği")

// ErrFrameTooWide, çizilen yüzey segment başlığının taşıyabileceğinden genişse döner.
var ErrFrameTooWide = errors.New("matrixrelay: çerçeve çok geniş")

// surfaceStrideAlign, Surface satırlarının hizalandığı byte sayısıdır.
const surfaceStrideAlign = 16

// Painter, metni piksel yüzeyine çizen motorun arayüzüdür.
type Painter interface {
	Paint(req PaintRequest) (*Surface, error)
}

// FontRun, bir script run'ı ve onu çizecek font ailesidir.
type FontRun struct {
	Run
	Family string
}

// PaintRequest, tek bir çizim çağrısının girdileridir.
type PaintRequest struct {
	Text      string
	Runs      []FontRun
	SizePt    float64
	BoxHeight int
	YOffset   int
	FG        RGB
	FG2       *RGB
	BG        RGB
	Gradient  GradientAxis
}

// Surface, BGRA düzeninde (byte sırası B, G, R, A) bir piksel tamponudur.
// Stride satır başına byte sayısıdır ve Width*4'ten büyük olabilir.
type Surface struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// NewSurface, satırları hizalanmış boş bir Surface oluşturur.
func NewSurface(width, height int) *Surface {
	stride := (width*4 + surfaceStrideAlign - 1) / surfaceStrideAlign * surfaceStrideAlign
	return &Surface{
		Pix:    make([]byte, stride*height),
		Width:  width,
		Height: height,
		Stride: stride,
	}
}

// SetBGRA, (x, y) pikselini yazar.
func (s *Surface) SetBGRA(x, y int, b, g, r, a uint8) {
	i := y*s.Stride + x*4
	s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3] = b, g, r, a
}

// BGRA, (x, y) pikselini okur.
func (s *Surface) BGRA(x, y int) (b, g, r, a uint8) {
	i := y*s.Stride + x*4
	return s.Pix[i], s.Pix[i+1], s.Pix[i+2], s.Pix[i+3]
}

// ─── gg Tabanlı Çizici ──────────────────────────────────────────────────────────

// GlyphPainter, FontLibrary'deki fontlarla gg/text üzerinden çizim yapar.
// Her run kendi font yüzüyle soldan sağa yan yana dizilir; metin kutu içinde
// dikey olarak ortalanır ve YOffset kadar kaydırılır.
type GlyphPainter struct {
	fonts *FontLibrary
}

// NewGlyphPainter, verilen font kütüphanesini kullanan bir çizici oluşturur.
func NewGlyphPainter(fonts *FontLibrary) *GlyphPainter {
	return &GlyphPainter{fonts: fonts}
}

// Paint, Painter arayüzünü uygular.
func (p *GlyphPainter) Paint(req PaintRequest) (*Surface, error) {
	if req.BoxHeight <= 0 || req.BoxHeight > MaxPixelHeight {
		return nil, fmt.Errorf("yükseklik %d: %w", req.BoxHeight, ErrInvalidRequest)
	}
	if req.SizePt <= 0 || req.SizePt > MaxFontSizePt {
		return nil, fmt.Errorf("font boyutu %.1f: %w", req.SizePt, ErrInvalidRequest)
	}

	faces := make([]text.Face, len(req.Runs))
	advances := make([]float64, len(req.Runs))
	var total, ascent, descent float64
	for i, r := range req.Runs {
		face := p.fonts.SourceOrBundled(r.Family).Face(req.SizePt)
		faces[i] = face
		advances[i] = face.Advance(r.Text(req.Text))
		total += advances[i]

		m := face.Metrics()
		ascent = math.Max(ascent, m.Ascent)
		descent = math.Max(descent, m.Descent)
	}

	width := max(1, int(math.Ceil(total)))
	if width > MaxFrameWidth {
		return nil, fmt.Errorf("genişlik %d > %d: %w", width, MaxFrameWidth, ErrFrameTooWide)
	}
	// Tamponlar ayrılmadan önce
	if width*req.BoxHeight > MaxFrameArea {
		return nil, fmt.Errorf("%dx%d alan sınırını (%d) aşıyor: %w", width, req.BoxHeight, MaxFrameArea, ErrInvalidRequest)
	}

	// Glifler önce bir alfa maskesine çizilir, renk sonra uygulanır
	mask := image.NewAlpha(image.Rect(0, 0, width, req.BoxHeight))
	baseline := (float64(req.BoxHeight)-(ascent+descent))/2 + ascent + float64(req.YOffset)
	pen := 0.0
	for i, r := range req.Runs {
		text.Draw(mask, r.Text(req.Text), faces[i], pen, baseline, color.Opaque)
		pen += advances[i]
	}

	fill := newFill(req, width)
	surf := NewSurface(width, req.BoxHeight)
	for y := 0; y < req.BoxHeight; y++ {
		for x := 0; x < width; x++ {
			a := mask.AlphaAt(x, y).A
			fg := fill(x, y)
			surf.SetBGRA(x, y,
				blend(fg.B, req.BG.B, a),
				blend(fg.G, req.BG.G, a),
				blend(fg.R, req.BG.R, a),
				0xFF,
			)
		}
	}
	return surf, nil
}

// newFill, ön plan renk fonksiyonunu döner. Gradyan istenmişse gg doğrusal
// gradyanı kullanılır; FG2 verilmemişse gradyan tek renk olur.
func newFill(req PaintRequest, width int) func(x, y int) RGB {
	if req.Gradient == GradientNone {
		return func(int, int) RGB { return req.FG }
	}

	end := req.FG
	if req.FG2 != nil {
		end = *req.FG2
	}

	var brush *gg.LinearGradientBrush
	if req.Gradient == GradientVertical {
		brush = gg.NewLinearGradientBrush(0, 0, 0, float64(req.BoxHeight-1))
	} else {
		brush = gg.NewLinearGradientBrush(0, 0, float64(width-1), 0)
	}
	brush.AddColorStop(0, toGG(req.FG)).AddColorStop(1, toGG(end))

	return func(x, y int) RGB {
		return fromGG(brush.ColorAt(float64(x), float64(y)))
	}
}

func blend(fg, bg, a uint8) uint8 {
	return uint8((uint16(fg)*uint16(a) + uint16(bg)*uint16(255-a) + 127) / 255)
}

func toGG(c RGB) gg.RGBA {
	return gg.RGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
}

func fromGG(c gg.RGBA) RGB {
	return RGB{
		R: uint8(clamp(int(math.Round(c.R * 255)))),
		G: uint8(clamp(int(math.Round(c.G * 255)))),
		B: uint8(clamp(int(math.Round(c.B * 255)))),
	}
}
