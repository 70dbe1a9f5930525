package matrixrelay

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakePeer, gönderilen mesajları kaydeden test bağlantısıdır.
type fakePeer struct {
	id string

	mu     sync.Mutex
	texts  [][]byte
	binary [][]byte
	fail   error
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) SendText(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.texts = append(p.texts, append([]byte(nil), data...))
	return nil
}

func (p *fakePeer) SendBinary(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.binary = append(p.binary, append([]byte(nil), data...))
	return nil
}

func (p *fakePeer) setFail(err error) {
	p.mu.Lock()
	p.fail = err
	p.mu.Unlock()
}

// statuses, bağlantıya gönderilen status mesajlarını çözer.
func (p *fakePeer) statuses(t *testing.T) []StatusMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []StatusMessage
	for _, raw := range p.texts {
		var msg StatusMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("status decode: %v", err)
		}
		if msg.Type == MessageStatus {
			out = append(out, msg)
		}
	}
	return out
}

func (p *fakePeer) binaryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.binary)
}

func (p *fakePeer) textCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.texts)
}

var errBrokenPipe = errors.New("broken pipe")

// recordingSink, yayınlanan status olaylarını toplar.
type recordingSink struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (s *recordingSink) PublishStatus(ev StatusEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) levels(level Level) []StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StatusEvent
	for _, ev := range s.events {
		if ev.Level == level {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = fmt.Sprintf("%s: %s", ev.Level, ev.Message)
	}
	return out
}

func containsPeer(peers []Peer, p Peer) bool {
	for _, q := range peers {
		if q == p {
			return true
		}
	}
	return false
}
