package matrixrelay

import (
	"encoding/json"
	"strings"
)

// ─── Komut İşleyici ─────────────────────────────────────────────────────────────
//
// Her bağlantının durumu:
//
//	Unclassified ──Open──▶ Device (varsayılan) ◀──hello──▶ Controller
//
// Yeni bağlantılar, hiç hello göndermeyen eski cihaz yazılımlarıyla uyum için
// Device olarak başlar. Sonraki her hello rolü yeniden ayarlayabilir.
//
// Bir bağlantının mesajları, çağıranın okuma döngüsünde sırayla işlenir: bir
// render ve gönderim bitmeden aynı bağlantıdan yeni mesaj işlenmez. Farklı
// bağlantıların döngüleri eşzamanlı çalışır.

// Dispatcher, bağlantılardan gelen mesajları işler.
type Dispatcher struct {
	router    *Router
	renderer  *Renderer
	segmenter *Segmenter
	logger    Logger
}

// NewDispatcher, bir Dispatcher oluşturur.
// Kullanılan seçenekler: WithTileWidth, WithPacing, WithLogger.
func NewDispatcher(router *Router, renderer *Renderer, opts ...Option) *Dispatcher {
	o := buildOptions(opts)
	return &Dispatcher{
		router:    router,
		renderer:  renderer,
		segmenter: NewSegmenter(o.tileWidth, o.pacing),
		logger:    o.logger,
	}
}

// Open, yeni bağlantıyı varsayılan rolle kaydeder.
func (d *Dispatcher) Open(p Peer) error {
	if err := d.router.Registry().RegisterDefault(p); err != nil {
		return err
	}
	logf(d.logger, "bağlantı açıldı: %s", p.ID())
	d.router.BroadcastStatus(StatusInfo("Client connected"))
	return nil
}

// Close, bağlantıyı kayıttan çıkarır. Bağlantı hangi sebeple kapanırsa kapansın çağrılır.
func (d *Dispatcher) Close(p Peer) {
	d.router.Registry().Unregister(p)
	logf(d.logger, "bağlantı kapandı: %s", p.ID())
	d.router.BroadcastStatus(StatusInfo("Client disconnected"))
}

// HandleError, taşıma katmanı hatasını controller'lara bildirir.
func (d *Dispatcher) HandleError(p Peer, err error) {
	d.router.BroadcastStatus(StatusError("WS error: %v", err))
}

// HandleText, bir JSON metin mesajını işler.
func (d *Dispatcher) HandleText(p Peer, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		d.router.BroadcastStatus(StatusInfo("Text message: %s", data))
		return
	}

	switch {
	case env.Type == MessageHello:
		d.handleHello(p, data)
	case env.Type == MessageCommand && isRenderAction(env.Action):
		var cmd CommandMessage
		if err := json.Unmarshal(data, &cmd); err != nil {
			d.router.BroadcastStatus(StatusError("Invalid command: %v", err))
			return
		}
		d.handleRender(&cmd)
	default:
		d.router.BroadcastStatus(StatusWarn("Unknown command: %s", strings.TrimSpace(string(data))))
	}
}

func (d *Dispatcher) handleHello(p Peer, data []byte) {
	var hello HelloMessage
	if err := json.Unmarshal(data, &hello); err != nil {
		d.router.BroadcastStatus(StatusWarn("Invalid hello: %v", err))
		return
	}
	role, ok := ParseRole(hello.Role)
	if !ok {
		d.router.BroadcastStatus(StatusWarn("Unknown role: %q", hello.Role))
		return
	}
	if err := d.router.Registry().SetRole(p, role); err != nil {
		logf(d.logger, "rol ayarlanamadı (%s): %v", p.ID(), err)
		return
	}
	d.router.BroadcastStatus(StatusInfo("%s registered", role))
}

// handleRender, render pipeline'ını çalıştırır ve sonucu cihazlara gönderir.
// Render hatasında hiçbir segment gönderilmez.
func (d *Dispatcher) handleRender(cmd *CommandMessage) {
	req := cmd.ToRequest()

	d.router.BroadcastStatus(StatusInfo("Rendering text…"))
	m, warnings, err := d.renderer.Render(req)
	for _, w := range warnings {
		d.router.BroadcastStatus(w)
	}
	if err != nil {
		d.router.BroadcastStatus(StatusError("Render/send error: %v", err))
		return
	}

	d.router.BroadcastStatus(StatusInfo("Sending frame to device…"))

	cfg, err := json.Marshal(newConfigMessage(req))
	if err != nil {
		d.router.BroadcastStatus(StatusError("Render/send error: %v", err))
		return
	}
	if rep := d.router.ForwardText(cfg); rep.NoRecipients {
		return
	}

	if d.sendFrame(m) {
		d.router.BroadcastStatus(StatusInfo("Frame sent"))
	}
}

// HandleBinary, controller'ın önceden kodladığı eski tip çerçeveyi render
// adımını atlayarak segmentleyip cihazlara gönderir.
func (d *Dispatcher) HandleBinary(p Peer, data []byte) {
	d.router.BroadcastStatus(StatusInfo("Binary frame received: %d bytes", len(data)))

	m, extra, err := ParseLegacyFrame(data)
	if err != nil {
		d.router.BroadcastStatus(StatusError("Binary frame rejected: %v", err))
		return
	}
	if extra > 0 {
		d.router.BroadcastStatus(StatusWarn("Binary frame has %d trailing bytes; ignored", extra))
	}
	if m.Width == 0 || m.Height == 0 {
		d.router.BroadcastStatus(StatusWarn("Binary frame is empty (%dx%d); nothing sent", m.Width, m.Height))
		return
	}

	if d.sendFrame(m) {
		d.router.BroadcastStatus(StatusInfo("Frame sent"))
	}
}

// sendFrame, matrisin segmentlerini sırayla gönderir. Gönderim sırasında hiç
// cihaz kalmazsa durur ve false döner.
func (d *Dispatcher) sendFrame(m *PixelMatrix) bool {
	sent := 0
	for tile := range d.segmenter.Tiles(m) {
		rep := d.router.Forward(BuildSegmentPacket(tile))
		if rep.NoRecipients {
			return false
		}
		sent++
	}
	logf(d.logger, "çerçeve gönderildi: %dx%d, %d segment", m.Width, m.Height, sent)
	return true
}
