package matrixrelay

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type dispatchFixture struct {
	reg     *Registry
	router  *Router
	painter *fakePainter
	sink    *recordingSink
	d       *Dispatcher
	ctl     *fakePeer
}

func newDispatchFixture(t *testing.T, painter *fakePainter, opts ...Option) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		reg:     NewRegistry(),
		painter: painter,
		sink:    &recordingSink{},
		ctl:     newFakePeer("ctl"),
	}
	f.router = NewRouter(f.reg, WithStatusSink(f.sink))
	opts = append([]Option{WithPacing(0)}, opts...)
	f.d = NewDispatcher(f.router, NewRenderer(painter, nil), opts...)
	if err := f.reg.SetRole(f.ctl, RoleController); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *dispatchFixture) messages(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, m := range f.ctl.statuses(t) {
		out = append(out, string(m.Level)+": "+m.Message)
	}
	return out
}

func hasMessage(msgs []string, prefix string) bool {
	for _, m := range msgs {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

func TestDispatcherOpenDefaultsToDevice(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{})
	dev := newFakePeer("dev")

	if err := f.d.Open(dev); err != nil {
		t.Fatal(err)
	}
	if f.reg.RoleOf(dev) != RoleDevice {
		t.Error("new connection not registered as device")
	}
	if !hasMessage(f.messages(t), "info: Client connected") {
		t.Errorf("statuses = %v", f.messages(t))
	}

	f.d.Close(dev)
	if f.reg.RoleOf(dev) != RoleUnclassified {
		t.Error("closed connection still registered")
	}
	if !hasMessage(f.messages(t), "info: Client disconnected") {
		t.Errorf("statuses = %v", f.messages(t))
	}
}

func TestDispatcherHello(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		role   Role
		status string
	}{
		{"controller", `{"type":"hello","role":"controller"}`, RoleController, "info: controller registered"},
		{"browser alias", `{"type":"hello","role":"browser"}`, RoleController, "info: controller registered"},
		{"device", `{"type":"hello","role":"device"}`, RoleDevice, "info: device registered"},
		{"esp32 alias", `{"type":"hello","role":"esp32"}`, RoleDevice, "info: device registered"},
		{"unknown role", `{"type":"hello","role":"toaster"}`, RoleDevice, "warn: Unknown role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture(t, &fakePainter{})
			p := newFakePeer("p")
			_ = f.d.Open(p)

			f.d.HandleText(p, []byte(tt.msg))
			if got := f.reg.RoleOf(p); got != tt.role {
				t.Errorf("role = %v, want %v", got, tt.role)
			}
			if !hasMessage(f.messages(t), tt.status) {
				t.Errorf("statuses = %v, want %q", f.messages(t), tt.status)
			}
		})
	}
}

func TestDispatcherRenderSendsConfigThenTiles(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{width: 500}, WithTileWidth(192))
	dev := newFakePeer("dev")
	_ = f.d.Open(dev)

	f.d.HandleText(f.ctl, []byte(`{"type":"command","action":"render","text":"hello","height":8,"animate":"scroll","bg_noise":true}`))

	if dev.textCount() != 1 {
		t.Fatalf("device texts = %d, want 1 config", dev.textCount())
	}
	var cfg ConfigMessage
	if err := json.Unmarshal(dev.texts[0], &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Type != MessageConfig || cfg.Animate != "scroll" || !cfg.BGNoise {
		t.Errorf("config = %+v", cfg)
	}

	if dev.binaryCount() != 3 {
		t.Fatalf("tiles = %d, want 3", dev.binaryCount())
	}
	wantOffsets := []uint16{0, 192, 384}
	for i, pkt := range dev.binary {
		h, ok := ParseSegmentHeader(pkt)
		if !ok {
			t.Fatalf("tile %d: bad header", i)
		}
		if h.TotalWidth != 500 || h.XOffset != wantOffsets[i] || h.Height != 8 {
			t.Errorf("tile %d header = %+v", i, h)
		}
	}

	msgs := f.messages(t)
	for _, want := range []string{"info: Rendering text", "info: Sending frame to device", "info: Frame sent"} {
		if !hasMessage(msgs, want) {
			t.Errorf("missing %q in %v", want, msgs)
		}
	}
	if f.ctl.binaryCount() != 0 {
		t.Error("controller received tiles")
	}
}

func TestDispatcherRenderLegacyActionNames(t *testing.T) {
	for _, action := range []string{ActionRenderAndSend, ActionRenderAndSendText} {
		f := newDispatchFixture(t, &fakePainter{})
		dev := newFakePeer("dev")
		_ = f.d.Open(dev)

		f.d.HandleText(f.ctl, []byte(`{"type":"command","action":"`+action+`","text":"x"}`))
		if dev.binaryCount() != 1 {
			t.Errorf("%s: tiles = %d, want 1", action, dev.binaryCount())
		}
	}
}

func TestDispatcherRenderWithoutDevices(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{})

	f.d.HandleText(f.ctl, []byte(`{"type":"command","action":"render","text":"x"}`))

	if warns := f.sink.levels(LevelWarn); len(warns) != 1 {
		t.Errorf("warns = %v", f.sink.messages())
	}
	if hasMessage(f.messages(t), "info: Frame sent") {
		t.Error("frame reported as sent without devices")
	}
}

func TestDispatcherRenderFailureSendsNothing(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{err: errors.New("no glyphs")})
	dev := newFakePeer("dev")
	_ = f.d.Open(dev)

	f.d.HandleText(f.ctl, []byte(`{"type":"command","action":"render","text":"x"}`))

	if dev.textCount() != 0 || dev.binaryCount() != 0 {
		t.Errorf("device received texts=%d binary=%d", dev.textCount(), dev.binaryCount())
	}
	errs := f.sink.levels(LevelError)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "no glyphs") {
		t.Errorf("errors = %v", errs)
	}
}

func TestDispatcherRenderInvalidHeight(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{})
	dev := newFakePeer("dev")
	_ = f.d.Open(dev)

	f.d.HandleText(f.ctl, []byte(`{"type":"command","action":"render","text":"x","height":0}`))
	if len(f.sink.levels(LevelError)) != 1 || dev.binaryCount() != 0 {
		t.Errorf("statuses = %v", f.sink.messages())
	}
}

func TestDispatcherRenderOversizedRequest(t *testing.T) {
	for _, cmd := range []string{
		`{"type":"command","action":"render","text":"WWWW","height":65535}`,
		`{"type":"command","action":"render","text":"W","font_size_pt":100000}`,
	} {
		f := newDispatchFixture(t, &fakePainter{})
		dev := newFakePeer("dev")
		_ = f.d.Open(dev)

		f.d.HandleText(f.ctl, []byte(cmd))
		if f.painter.n != 0 {
			t.Errorf("%s: painter called", cmd)
		}
		if len(f.sink.levels(LevelError)) != 1 || dev.binaryCount() != 0 {
			t.Errorf("%s: statuses = %v", cmd, f.sink.messages())
		}
	}
}

func TestDispatcherMalformedAndUnknown(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{})

	f.d.HandleText(f.ctl, []byte(`not json`))
	f.d.HandleText(f.ctl, []byte(`{"type":"command","action":"explode"}`))
	f.d.HandleText(f.ctl, []byte(`{"type":"ping"}`))

	msgs := f.messages(t)
	if !hasMessage(msgs, "info: Text message: not json") {
		t.Errorf("malformed not echoed: %v", msgs)
	}
	if warns := f.sink.levels(LevelWarn); len(warns) != 2 {
		t.Errorf("unknown commands warned %d times, want 2 (%v)", len(warns), msgs)
	}
	if f.reg.RoleOf(f.ctl) != RoleController {
		t.Error("controller role lost")
	}
}

func TestDispatcherBinaryPassthrough(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{}, WithTileWidth(100))
	dev := newFakePeer("dev")
	_ = f.d.Open(dev)

	frame := gradientMatrix(250, 4)
	f.d.HandleBinary(f.ctl, BuildLegacyFrame(frame))

	if dev.binaryCount() != 3 {
		t.Fatalf("tiles = %d, want 3", dev.binaryCount())
	}
	asm := NewAssembler()
	var got *PixelMatrix
	for _, pkt := range dev.binary {
		m, ok, err := asm.AddPacket(pkt)
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			got = m
		}
	}
	if got == nil {
		t.Fatal("frame not reassembled")
	}
	for i := range frame.Pix {
		if got.Pix[i] != frame.Pix[i] {
			t.Fatalf("pixel %d mismatch", i)
		}
	}
	msgs := f.messages(t)
	if !hasMessage(msgs, "info: Binary frame received: 2004 bytes") || !hasMessage(msgs, "info: Frame sent") {
		t.Errorf("statuses = %v", msgs)
	}
	if dev.textCount() != 0 {
		t.Error("config sent for passthrough frame")
	}
}

func TestDispatcherBinaryRejects(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{})
	dev := newFakePeer("dev")
	_ = f.d.Open(dev)

	f.d.HandleBinary(f.ctl, []byte{4, 0, 4, 0, 1, 2})
	if len(f.sink.levels(LevelError)) != 1 {
		t.Errorf("short frame not reported: %v", f.sink.messages())
	}

	f.d.HandleBinary(f.ctl, append(BuildLegacyFrame(NewPixelMatrix(1, 1)), 9, 9))
	if !hasMessage(f.messages(t), "warn: Binary frame has 2 trailing bytes") {
		t.Errorf("trailing bytes not reported: %v", f.messages(t))
	}
	if dev.binaryCount() != 1 {
		t.Errorf("tiles = %d, want 1", dev.binaryCount())
	}
}

func TestDispatcherHandleError(t *testing.T) {
	f := newDispatchFixture(t, &fakePainter{})
	f.d.HandleError(f.ctl, errors.New("reset by peer"))

	errs := f.sink.levels(LevelError)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "reset by peer") {
		t.Errorf("errors = %v", errs)
	}
}
