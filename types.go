package matrixrelay

import (
	"fmt"
	"strings"
	"time"
)

// ─── Protokol Sabitleri ─────────────────────────────────────────────────────────

const (
	// DefaultPort, relay sunucusunun varsayılan HTTP/WebSocket portudur.
	DefaultPort = 9122

	// DefaultMatrixWidth, klasik tek parça çerçeve gönderen istemciler için
	// varsayılan matris genişliğidir.
	DefaultMatrixWidth = 128

	// DefaultMatrixHeight, render isteğinde yükseklik verilmezse kullanılır.
	DefaultMatrixHeight = 32

	// DefaultTileWidth, tek bir segment paketindeki maksimum piksel genişliğidir.
	// 192 x 32 x 2 byte = 12 KB; mikrodenetleyicinin WebSocket alım tamponuna sığar.
	DefaultTileWidth = 192

	// DefaultPacing, ikinci segmentten itibaren paketler arasına konan bekleme süresidir.
	DefaultPacing = 25 * time.Millisecond

	// DefaultKeepaliveInterval, WebSocket ping paketlerinin gönderilme aralığıdır.
	DefaultKeepaliveInterval = 30 * time.Second

	// DefaultFontSizePt, render isteğinde font boyutu verilmezse kullanılır.
	DefaultFontSizePt = 22

	// MaxFrameWidth, segment başlığındaki 16 bit alanların taşıyabileceği en büyük değerdir.
	MaxFrameWidth = 0xFFFF

	// MaxPixelHeight, render isteğinde kabul edilen en büyük kutu yüksekliğidir.
	MaxPixelHeight = 256

	// MaxFontSizePt, render isteğinde kabul edilen en büyük font boyutudur.
	MaxFontSizePt = 256

	// MaxFrameArea, tek bir çerçevenin en fazla piksel sayısıdır (genişlik x yükseklik).
	// Çizim tamponları bu sınıra göre ayrılır; 4M piksel ≈ 28 MB geçici bellek.
	MaxFrameArea = 4 << 20

	// MaxMessageSize, bir WebSocket mesajının en büyük boyutudur.
	// En büyük eski tip çerçeve (başlık + MaxFrameArea x 2 byte) sığar.
	MaxMessageSize = legacyHeaderLength + MaxFrameArea*2

	// DefaultSendQueue, bağlantı başına bekleyen giden mesaj sayısı sınırıdır.
	DefaultSendQueue = 256

	// segmentHeaderLength, segment paket başlık uzunluğudur.
	// Format: [2B tag][2B total width][2B x offset][2B tile width][2B height]
	segmentHeaderLength = 10

	// legacyHeaderLength, eski tip tek parça çerçeve başlık uzunluğudur.
	// Format: [2B width LE][2B height LE]
	legacyHeaderLength = 4
)

// segmentTag, segment paketlerinin ilk iki byte'ıdır ("SG").
var segmentTag = [2]byte{'S', 'G'}

// ─── Font Varsayılanları ────────────────────────────────────────────────────────

const (
	// KhmerFontDefault, Khmer yazısı için varsayılan font ailesidir.
	KhmerFontDefault = "Siemreap"

	// LatinFontDefault, Latin ve sınıflandırılamayan karakterler için varsayılan ailedir.
	LatinFontDefault = "Noto Sans"

	// EmojiFontDefault, emoji karakterleri için her zaman kullanılan ailedir.
	EmojiFontDefault = "Noto Color Emoji"

	// BundledFontFamily, hiçbir font bulunamazsa kullanılan gömülü Go fontunun adıdır.
	BundledFontFamily = "Go"
)

// ─── Yazı Sınıfları ─────────────────────────────────────────────────────────────

// Script, bir karakterin hangi font ile çizileceğini belirleyen kaba yazı sınıfıdır.
// Tam Unicode script özelliği değildir; yalnızca üç sınıf vardır.
type Script uint8

const (
	ScriptLatin Script = iota // Varsayılan sınıf (bilinmeyen aralıklar dahil)
	ScriptKhmer               // U+1780–U+17FF
	ScriptEmoji               // U+1F300–U+1FAFF, U+2600–U+26FF
)

// String, Script'in okunabilir adını döner.
func (s Script) String() string {
	switch s {
	case ScriptLatin:
		return "latin"
	case ScriptKhmer:
		return "khmer"
	case ScriptEmoji:
		return "emoji"
	default:
		return fmt.Sprintf("Script(%d)", uint8(s))
	}
}

// ─── Bağlantı Rolleri ───────────────────────────────────────────────────────────

// Role, bir bağlantının relay üzerindeki görevini belirtir.
type Role int

const (
	// RoleUnclassified, henüz kayda alınmamış bağlantının durumudur.
	RoleUnclassified Role = iota

	// RoleDevice, segment paketlerini ve config mesajlarını alan LED matris cihazıdır.
	// Yeni bağlantılar, hiç hello göndermeyen eski istemcilerle uyum için bu role atanır.
	RoleDevice

	// RoleController, render komutu gönderen ve status mesajlarını alan web istemcisidir.
	RoleController
)

// String, Role'ün wire formatındaki adını döner.
func (r Role) String() string {
	switch r {
	case RoleUnclassified:
		return "unclassified"
	case RoleDevice:
		return "device"
	case RoleController:
		return "controller"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole, hello mesajındaki rol adını çözer.
// Eski istemcilerin kullandığı "esp32" ve "browser" adları da kabul edilir.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "device", "esp32":
		return RoleDevice, true
	case "controller", "browser":
		return RoleController, true
	default:
		return RoleUnclassified, false
	}
}

// ─── Status Olayları ────────────────────────────────────────────────────────────

// Level, status olayının önem derecesidir.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// StatusEvent, tüm controller bağlantılarına yayınlanan geçici durum mesajıdır.
// Hiçbir yerde saklanmaz.
type StatusEvent struct {
	Level   Level
	Message string
}

// StatusInfo, info seviyesinde bir status olayı oluşturur.
func StatusInfo(format string, v ...interface{}) StatusEvent {
	return StatusEvent{Level: LevelInfo, Message: fmt.Sprintf(format, v...)}
}

// StatusWarn, warn seviyesinde bir status olayı oluşturur.
func StatusWarn(format string, v ...interface{}) StatusEvent {
	return StatusEvent{Level: LevelWarn, Message: fmt.Sprintf(format, v...)}
}

// StatusError, error seviyesinde bir status olayı oluşturur.
func StatusError(format string, v ...interface{}) StatusEvent {
	return StatusEvent{Level: LevelError, Message: fmt.Sprintf(format, v...)}
}

// ─── Render Tipleri ─────────────────────────────────────────────────────────────

// GradientAxis, iki renkli gradyanın yönünü belirler.
type GradientAxis string

const (
	GradientNone       GradientAxis = ""
	GradientHorizontal GradientAxis = "horizontal" // Soldan sağa
	GradientVertical   GradientAxis = "vertical"   // Yukarıdan aşağıya
)

// RGB, 8 bit kanallı opak bir renktir.
type RGB struct {
	R, G, B uint8
}

// Hex, rengi #rrggbb formatında döner.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	// ColorWhite, varsayılan ön plan rengidir.
	ColorWhite = RGB{255, 255, 255}

	// ColorBlack, varsayılan arka plan rengidir.
	ColorBlack = RGB{0, 0, 0}
)

// RenderRequest, tek bir render komutunun tüm parametrelerini taşır.
// Her komut için oluşturulur, istek bitince atılır.
type RenderRequest struct {
	Text            string
	PixelHeight     int
	BaseFont        string
	FontSizePt      int
	YOffset         int
	FG              RGB
	FG2             *RGB
	BG              RGB
	UseGradient     bool
	GradientAxis    GradientAxis
	AnimateMode     string
	BackgroundNoise bool
}

// ─── Seçenek Yapıları ───────────────────────────────────────────────────────────

// Option, Router/Dispatcher/Server yapılandırma seçeneklerini tanımlar.
// Functional Options pattern kullanılır.
type Option func(*options)

type options struct {
	tileWidth         int
	pacing            time.Duration
	keepaliveInterval time.Duration
	writeTimeout      time.Duration
	sendQueue         int
	logger            Logger
	painter           Painter
	fonts             FontChecker
	sinks             []StatusSink
	staticDir         string
}

func defaultOptions() options {
	return options{
		tileWidth:         DefaultTileWidth,
		pacing:            DefaultPacing,
		keepaliveInterval: DefaultKeepaliveInterval,
		writeTimeout:      0,
		sendQueue:         DefaultSendQueue,
		logger:            nil,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTileWidth, segment başına maksimum piksel genişliğini ayarlar.
//
//	srv, _ := matrixrelay.NewServer(cfg,
//	    matrixrelay.WithTileWidth(128),
//	)
func WithTileWidth(w int) Option {
	return func(o *options) {
		if w > 0 {
			o.tileWidth = w
		}
	}
}

// WithPacing, segmentler arası bekleme süresini ayarlar. 0 beklemeyi kapatır.
func WithPacing(d time.Duration) Option {
	return func(o *options) {
		o.pacing = d
	}
}

// WithKeepalive, WebSocket ping aralığını ayarlar. 0 ping göndermeyi kapatır.
func WithKeepalive(d time.Duration) Option {
	return func(o *options) {
		o.keepaliveInterval = d
	}
}

// WithWriteTimeout, her gönderim için yazma zaman aşımını ayarlar.
// Varsayılan olarak zaman aşımı yoktur. Yazma bağlantının kendi goroutine'inde
// yapılır; okumayan alıcının kuyruğu dolunca alıcı kayıttan çıkarılır.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		o.writeTimeout = d
	}
}

// WithSendQueue, bağlantı başına giden mesaj kuyruğunun boyutunu ayarlar.
// Kuyruk dolduğunda gönderim ErrSendQueueFull ile başarısız olur ve alıcı
// kayıttan çıkarılır.
func WithSendQueue(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sendQueue = n
		}
	}
}

// WithLogger, özel bir loglama arayüzü ayarlar.
// Varsayılan olarak loglama devre dışıdır.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithPainter, metin çizim motorunu değiştirir. Testlerde sahte çizici için kullanılır.
func WithPainter(p Painter) Option {
	return func(o *options) {
		o.painter = p
	}
}

// WithFonts, font ailesi mevcudiyet kontrolünü ayarlar.
func WithFonts(f FontChecker) Option {
	return func(o *options) {
		o.fonts = f
	}
}

// WithStatusSink, status olaylarının controller'lara ek olarak iletileceği
// bir hedef ekler (ör: MQTT).
func WithStatusSink(s StatusSink) Option {
	return func(o *options) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithStaticDir, "/" altında sunulacak statik dosya dizinini ayarlar.
func WithStaticDir(dir string) Option {
	return func(o *options) {
		o.staticDir = dir
	}
}

// ─── Logger Arayüzü ─────────────────────────────────────────────────────────────

// Logger, kütüphanenin loglama arayüzüdür.
// stdlib log paketi, slog.NewLogLogger veya zerolog/zap adaptörleriyle uyumludur.
type Logger interface {
	// Printf, formatlanmış bir log mesajı yazar.
	Printf(format string, v ...interface{})
}

func logf(l Logger, format string, v ...interface{}) {
	if l != nil {
		l.Printf("[matrixrelay] "+format, v...)
	}
}
