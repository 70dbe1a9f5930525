package matrixrelay

import (
	"encoding/hex"
	"encoding/json"
	"strings"
)

// ─── Wire Mesajları ─────────────────────────────────────────────────────────────
//
// Kontrol kanalı JSON metin mesajları taşır:
//
//	{"type":"hello","role":"device"|"controller"}
//	{"type":"command","action":"render","text":"...","height":32,...}
//	{"type":"status","level":"info"|"warn"|"error","message":"..."}   (sunucu → controller)
//	{"type":"config","animate":"...","bg_noise":false}                 (sunucu → cihaz)
//
// Renkler "#RRGGBB" string'i veya [r,g,b] sayı üçlüsü olarak gelebilir.

// Mesaj tipleri
const (
	MessageHello   = "hello"
	MessageCommand = "command"
	MessageStatus  = "status"
	MessageConfig  = "config"
)

// Komut aksiyonları. render_and_send ve render_and_send_text eski istemcilerin adlarıdır.
const (
	ActionRender            = "render"
	ActionRenderAndSend     = "render_and_send"
	ActionRenderAndSendText = "render_and_send_text"
)

// isRenderAction, aksiyonun render pipeline'ını tetikleyip tetiklemediğini döner.
func isRenderAction(action string) bool {
	switch action {
	case ActionRender, ActionRenderAndSend, ActionRenderAndSendText:
		return true
	}
	return false
}

// envelope, gelen her mesajın ortak alanıdır; tip belirlendikten sonra
// mesaj ilgili yapıya ikinci kez çözülür.
type envelope struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
}

// HelloMessage, bağlantının rolünü bildirir.
type HelloMessage struct {
	Type string `json:"type"`
	Role string `json:"role"`
}

// CommandMessage, controller'dan gelen render komutudur.
// Verilmeyen alanlar RenderRequest'e çevrilirken varsayılanlarla doldurulur.
type CommandMessage struct {
	Type        string          `json:"type"`
	Action      string          `json:"action"`
	Text        string          `json:"text"`
	Height      *int            `json:"height,omitempty"`
	FontFamily  string          `json:"font_family,omitempty"`
	FontSizePt  *int            `json:"font_size_pt,omitempty"`
	YOffset     int             `json:"y_offset,omitempty"`
	FGColor     json.RawMessage `json:"fg_color,omitempty"`
	FGColor2    json.RawMessage `json:"fg_color2,omitempty"`
	BGColor     json.RawMessage `json:"bg_color,omitempty"`
	Animate     string          `json:"animate,omitempty"`
	BGNoise     bool            `json:"bg_noise,omitempty"`
	UseGradient bool            `json:"use_gradient,omitempty"`
	GradientDir string          `json:"gradient_dir,omitempty"`
}

// StatusMessage, controller'lara yayınlanan status mesajıdır.
type StatusMessage struct {
	Type    string `json:"type"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// ConfigMessage, segmentlerden önce cihaza gönderilen animasyon ayarıdır.
type ConfigMessage struct {
	Type    string `json:"type"`
	Animate string `json:"animate"`
	BGNoise bool   `json:"bg_noise"`
}

func newStatusMessage(ev StatusEvent) StatusMessage {
	return StatusMessage{Type: MessageStatus, Level: ev.Level, Message: ev.Message}
}

func newConfigMessage(req RenderRequest) ConfigMessage {
	return ConfigMessage{Type: MessageConfig, Animate: req.AnimateMode, BGNoise: req.BackgroundNoise}
}

// ToRequest, komutu varsayılanları uygulanmış bir RenderRequest'e çevirir.
// Hatalı renkler sessizce varsayılana düşer.
func (c *CommandMessage) ToRequest() RenderRequest {
	req := RenderRequest{
		Text:            c.Text,
		PixelHeight:     DefaultMatrixHeight,
		BaseFont:        c.FontFamily,
		FontSizePt:      DefaultFontSizePt,
		YOffset:         c.YOffset,
		FG:              ParseColor(c.FGColor, ColorWhite),
		BG:              ParseColor(c.BGColor, ColorBlack),
		UseGradient:     c.UseGradient,
		AnimateMode:     c.Animate,
		BackgroundNoise: c.BGNoise,
	}
	if c.Height != nil {
		req.PixelHeight = *c.Height
	}
	if c.FontSizePt != nil {
		req.FontSizePt = *c.FontSizePt
	}
	if req.BaseFont == "" {
		req.BaseFont = LatinFontDefault
	}
	if len(c.FGColor2) > 0 {
		fg2 := ParseColor(c.FGColor2, req.FG)
		req.FG2 = &fg2
	}
	if c.UseGradient {
		req.GradientAxis = GradientHorizontal
		if strings.EqualFold(c.GradientDir, string(GradientVertical)) {
			req.GradientAxis = GradientVertical
		}
	}
	return req
}

// ─── Renk Ayrıştırma ────────────────────────────────────────────────────────────

// ParseColor, "#RRGGBB" (veya "RRGGBB") string'ini ya da [r,g,b] sayı üçlüsünü
// çözer. Üçlü değerleri 0..255 aralığına sıkıştırılır. Çözülemeyen her değer
// için hata döndürmeden fallback döner.
func ParseColor(raw json.RawMessage, fallback RGB) RGB {
	if len(raw) == 0 {
		return fallback
	}

	if c, ok := parseColorValue(raw); ok {
		return c
	}
	return fallback
}

func parseColorValue(raw json.RawMessage) (RGB, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseHexColor(s)
	}

	var triple []float64
	if err := json.Unmarshal(raw, &triple); err == nil && len(triple) == 3 {
		return RGB{
			R: uint8(clamp(int(triple[0]))),
			G: uint8(clamp(int(triple[1]))),
			B: uint8(clamp(int(triple[2]))),
		}, true
	}
	return RGB{}, false
}

func parseHexColor(s string) (RGB, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return RGB{}, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: b[0], G: b[1], B: b[2]}, true
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
