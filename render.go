package matrixrelay

import (
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// ─── Render Pipeline ────────────────────────────────────────────────────────────
//
//	metin → NFC → script run'ları → font çözümü → Painter → RGB565 matrisi
//
// Renderer durumsuzdur; her çağrı kendi isteğini işler ve farklı goroutine'lerden
// eşzamanlı çağrılabilir (Painter eşzamanlı kullanıma uygunsa).

// Renderer, RenderRequest'i gönderilmeye hazır bir piksel matrisine çevirir.
type Renderer struct {
	painter Painter
	fonts   FontChecker
}

// NewRenderer, verilen çizici ve font kontrolüyle bir Renderer oluşturur.
// fonts nil ise her aile mevcut kabul edilir.
func NewRenderer(painter Painter, fonts FontChecker) *Renderer {
	return &Renderer{painter: painter, fonts: fonts}
}

// Render, isteği çizer ve RGB565 matrisini döner. Font geri dönüşü gibi
// render'ı durdurmayan durumlar uyarı olarak döner.
func (r *Renderer) Render(req RenderRequest) (*PixelMatrix, []StatusEvent, error) {
	if req.PixelHeight <= 0 || req.PixelHeight > MaxPixelHeight {
		return nil, nil, fmt.Errorf("yükseklik %d (1..%d): %w", req.PixelHeight, MaxPixelHeight, ErrInvalidRequest)
	}
	if req.FontSizePt <= 0 || req.FontSizePt > MaxFontSizePt {
		return nil, nil, fmt.Errorf("font boyutu %d (1..%d): %w", req.FontSizePt, MaxFontSizePt, ErrInvalidRequest)
	}
	if r.painter == nil {
		return nil, nil, fmt.Errorf("çizici tanımlı değil: %w", ErrInvalidRequest)
	}

	text := norm.NFC.String(req.Text)
	fonts, warnings := ResolveFonts(req.BaseFont, r.available)

	scriptRuns := SegmentScripts(text)
	runs := make([]FontRun, len(scriptRuns))
	for i, run := range scriptRuns {
		runs[i] = FontRun{Run: run, Family: fonts.Family(run.Script)}
	}

	gradient := GradientNone
	if req.UseGradient {
		gradient = req.GradientAxis
		if gradient == GradientNone {
			gradient = GradientHorizontal
		}
	}

	surf, err := r.painter.Paint(PaintRequest{
		Text:      text,
		Runs:      runs,
		SizePt:    float64(req.FontSizePt),
		BoxHeight: req.PixelHeight,
		YOffset:   req.YOffset,
		FG:        req.FG,
		FG2:       req.FG2,
		BG:        req.BG,
		Gradient:  gradient,
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("çizim başarısız: %w", err)
	}
	if surf == nil {
		return nil, warnings, fmt.Errorf("çizici boş yüzey döndü: %w", ErrInvalidRequest)
	}
	if surf.Width > MaxFrameWidth || surf.Height > MaxFrameWidth {
		return nil, warnings, fmt.Errorf("yüzey %dx%d: %w", surf.Width, surf.Height, ErrFrameTooWide)
	}
	if surf.Width*surf.Height > MaxFrameArea {
		return nil, warnings, fmt.Errorf("yüzey %dx%d alan sınırını (%d) aşıyor: %w", surf.Width, surf.Height, MaxFrameArea, ErrInvalidRequest)
	}

	m, err := ToPacked16(surf.Pix, surf.Width, surf.Height, surf.Stride)
	if err != nil {
		return nil, warnings, fmt.Errorf("piksel dönüşümü başarısız: %w", err)
	}
	return m, warnings, nil
}

func (r *Renderer) available(family string) bool {
	if r.fonts == nil {
		return true
	}
	return r.fonts.Has(family)
}
