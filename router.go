package matrixrelay

import (
	"encoding/json"
)

// ─── Yayın ve Yönlendirme ───────────────────────────────────────────────────────
//
// Router iki temel işlem sunar:
//
//   - BroadcastStatus: status olayını tüm Controllers'a gönderir
//   - Forward / ForwardText: binary segmenti veya config mesajını tüm Devices'a gönderir
//
// Gönderimler en iyi çaba (best-effort) ile yapılır: her alıcı en fazla bir kez
// denenir, yeniden deneme yoktur. Hata alan alıcı kendi kümesinden çıkarılır,
// diğer alıcılar etkilenmez. Her gönderimin sonucu Report içinde döner.

// StatusSink, status olaylarının controller'lar dışında iletildiği ek hedeftir.
type StatusSink interface {
	PublishStatus(ev StatusEvent)
}

// SendOutcome, tek bir alıcıya yapılan gönderimin sonucudur.
type SendOutcome struct {
	PeerID string
	Err    error
}

// OK, gönderim başarılı mı.
func (o SendOutcome) OK() bool {
	return o.Err == nil
}

// Report, bir yayın veya yönlendirme işleminin alıcı bazında sonuçlarıdır.
type Report struct {
	Outcomes []SendOutcome

	// NoRecipients, hedef küme boş olduğu için hiçbir gönderim yapılmadığını gösterir.
	NoRecipients bool
}

// Delivered, başarılı gönderim sayısını döner.
func (r Report) Delivered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

// Failed, başarısız (ve kayıttan çıkarılan) alıcı sayısını döner.
func (r Report) Failed() int {
	return len(r.Outcomes) - r.Delivered()
}

// Router, Registry üzerindeki kümelere mesaj dağıtır.
type Router struct {
	registry *Registry
	sinks    []StatusSink
	logger   Logger
}

// NewRouter, verilen kayıt üzerinde çalışan bir Router oluşturur.
// Kullanılan seçenekler: WithLogger, WithStatusSink.
func NewRouter(reg *Registry, opts ...Option) *Router {
	o := buildOptions(opts)
	return &Router{
		registry: reg,
		sinks:    o.sinks,
		logger:   o.logger,
	}
}

// Registry, Router'ın kullandığı kaydı döner.
func (rt *Router) Registry() *Registry {
	return rt.registry
}

// BroadcastStatus, status olayını tüm Controllers'a gönderir.
// Hata alan controller'lar kümeden çıkarılır.
func (rt *Router) BroadcastStatus(ev StatusEvent) Report {
	logf(rt.logger, "status %s: %s", ev.Level, ev.Message)
	for _, s := range rt.sinks {
		s.PublishStatus(ev)
	}

	payload, err := json.Marshal(newStatusMessage(ev))
	if err != nil {
		logf(rt.logger, "status kodlanamadı: %v", err)
		return Report{}
	}

	return rt.deliver(RoleController, func(p Peer) error {
		return p.SendText(payload)
	})
}

// Forward, binary veriyi tüm Devices'a gönderir.
// Devices boşsa warn seviyesinde tek bir status yayınlanır ve hiçbir şey gönderilmez.
func (rt *Router) Forward(payload []byte) Report {
	return rt.forward(func(p Peer) error {
		return p.SendBinary(payload)
	})
}

// ForwardText, metin (JSON) mesajı tüm Devices'a gönderir. Forward ile aynı kurallar geçerlidir.
func (rt *Router) ForwardText(payload []byte) Report {
	return rt.forward(func(p Peer) error {
		return p.SendText(payload)
	})
}

func (rt *Router) forward(send func(Peer) error) Report {
	rep := rt.deliver(RoleDevice, send)
	if rep.NoRecipients {
		rt.BroadcastStatus(StatusWarn("No device connected; frame not sent"))
	}
	return rep
}

// deliver, rol kümesinin anlık kopyasındaki her alıcıya bir kez gönderim yapar.
func (rt *Router) deliver(role Role, send func(Peer) error) Report {
	peers := rt.registry.snapshot(role)
	if len(peers) == 0 {
		return Report{NoRecipients: true}
	}

	rep := Report{Outcomes: make([]SendOutcome, 0, len(peers))}
	for _, p := range peers {
		err := send(p)
		rep.Outcomes = append(rep.Outcomes, SendOutcome{PeerID: p.ID(), Err: err})
		if err != nil && rt.registry.evict(p, role) {
			logf(rt.logger, "%s %s gönderim hatası, kayıttan çıkarıldı: %v", role, p.ID(), err)
		}
	}
	return rep
}
