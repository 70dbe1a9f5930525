package matrixrelay

import (
	"errors"
	"sync"
)

// ─── Bağlantı Kaydı ─────────────────────────────────────────────────────────────
//
// Her canlı bağlantı iki kümeden tam olarak birinde bulunur: Devices veya
// Controllers. Kayıt sunucu başlarken oluşturulur, kapanırken Close ile
// boşaltılır ve Router/Dispatcher'a açıkça verilir; global durum yoktur.

// ErrClosed, kapatılmış bir Registry veya bağlantı kullanıldığında döner.
var ErrClosed = errors.New("matrixrelay: kapatıldı")

// Peer, relay'in mesaj gönderebildiği bir bağlantıdır.
// WebSocket bağlantısı (Conn) ve testlerdeki sahte bağlantılar bunu uygular.
type Peer interface {
	// ID, bağlantının benzersiz kimliğidir.
	ID() string

	// SendText, bir metin (JSON) mesajı gönderir.
	SendText(data []byte) error

	// SendBinary, bir binary mesaj gönderir.
	SendBinary(data []byte) error
}

// Registry, bağlantıları rollerine göre iki ayrık kümede tutar.
// Eşzamanlı okuma, dolaşma ve silme için güvenlidir.
type Registry struct {
	mu          sync.RWMutex
	devices     map[Peer]struct{}
	controllers map[Peer]struct{}
	closed      bool
}

// NewRegistry, boş bir Registry oluşturur.
func NewRegistry() *Registry {
	return &Registry{
		devices:     make(map[Peer]struct{}),
		controllers: make(map[Peer]struct{}),
	}
}

// RegisterDefault, yeni kabul edilen bağlantıyı Devices kümesine ekler.
// Hiç hello göndermeyen eski cihaz yazılımları bu varsayılana güvenir.
func (r *Registry) RegisterDefault(p Peer) error {
	return r.SetRole(p, RoleDevice)
}

// SetRole, bağlantıyı hedef kümeye taşır ve diğerinden çıkarır. İdempotenttir.
func (r *Registry) SetRole(p Peer, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	switch role {
	case RoleDevice:
		delete(r.controllers, p)
		r.devices[p] = struct{}{}
	case RoleController:
		delete(r.devices, p)
		r.controllers[p] = struct{}{}
	default:
		delete(r.devices, p)
		delete(r.controllers, p)
	}
	return nil
}

// Unregister, bağlantıyı hangi kümedeyse oradan çıkarır.
func (r *Registry) Unregister(p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.devices, p)
	delete(r.controllers, p)
}

// RoleOf, bağlantının mevcut rolünü döner. Kayıtlı değilse RoleUnclassified döner.
func (r *Registry) RoleOf(p Peer) Role {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.devices[p]; ok {
		return RoleDevice
	}
	if _, ok := r.controllers[p]; ok {
		return RoleController
	}
	return RoleUnclassified
}

// Devices, Devices kümesinin anlık bir kopyasını döner.
// Kopya üzerinde dolaşırken küme değişebilir.
func (r *Registry) Devices() []Peer {
	return r.snapshot(RoleDevice)
}

// Controllers, Controllers kümesinin anlık bir kopyasını döner.
func (r *Registry) Controllers() []Peer {
	return r.snapshot(RoleController)
}

// Len, rol başına bağlantı sayılarını döner.
func (r *Registry) Len() (devices, controllers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices), len(r.controllers)
}

// Close, kaydı kapatır ve o anki tüm bağlantıları döner.
// Kapatıldıktan sonra yeni kayıt kabul edilmez.
func (r *Registry) Close() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]Peer, 0, len(r.devices)+len(r.controllers))
	for p := range r.devices {
		all = append(all, p)
	}
	for p := range r.controllers {
		all = append(all, p)
	}
	r.devices = make(map[Peer]struct{})
	r.controllers = make(map[Peer]struct{})
	r.closed = true
	return all
}

func (r *Registry) snapshot(role Role) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.set(role)
	out := make([]Peer, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// evict, gönderim hatası alan bağlantıyı yalnızca hâlâ verilen roldeyse çıkarır.
// Bu sırada başka bir goroutine rolü değiştirdiyse yeni üyelik korunur.
func (r *Registry) evict(p Peer, role Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.set(role)
	if _, ok := set[p]; !ok {
		return false
	}
	delete(set, p)
	return true
}

func (r *Registry) set(role Role) map[Peer]struct{} {
	if role == RoleController {
		return r.controllers
	}
	return r.devices
}
