package matrixrelay

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newConnPair, sunucu tarafı Conn'u ve ona bağlı istemci soketini döner.
func newConnPair(t *testing.T, opts ...Option) (*Conn, *websocket.Conn) {
	t.Helper()
	o := buildOptions(append([]Option{WithKeepalive(0)}, opts...))

	conns := make(chan *Conn, 1)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- newConn(ws, o)
	}))
	t.Cleanup(ts.Close)

	client := dial(t, ts)
	select {
	case c := <-conns:
		t.Cleanup(func() { _ = c.Close() })
		return c, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side connection not created")
		return nil, nil
	}
}

// stallWriter, istemci hiç okumazken Conn'un yazıcısı bloklanana kadar
// büyük mesajlar kuyruğa alır. Kuyruk dolmadan durur.
func stallWriter(t *testing.T, c *Conn, queue int) {
	t.Helper()
	big := make([]byte, 1<<20)
	for i := 0; i < queue/2; i++ {
		if err := c.SendBinary(big); err != nil {
			t.Fatalf("SendBinary %d: %v", i, err)
		}
	}
}

func TestConnSendDelivers(t *testing.T) {
	c, client := newConnPair(t)

	if err := c.SendText([]byte(`{"type":"status"}`)); err != nil {
		t.Fatal(err)
	}
	if err := c.SendBinary([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := client.ReadMessage()
	if err != nil || mt != websocket.TextMessage || string(data) != `{"type":"status"}` {
		t.Fatalf("first message = %d %q %v", mt, data, err)
	}
	mt, data, err = client.ReadMessage()
	if err != nil || mt != websocket.BinaryMessage || len(data) != 3 {
		t.Fatalf("second message = %d %v %v", mt, data, err)
	}
}

func TestConnSendQueueFullWhenClientStopsReading(t *testing.T) {
	c, _ := newConnPair(t, WithSendQueue(2))

	big := make([]byte, 1<<20)
	var err error
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		start := time.Now()
		err = c.SendBinary(big)
		if took := time.Since(start); took > 200*time.Millisecond {
			t.Fatalf("SendBinary blocked for %v", took)
		}
		if err != nil {
			break
		}
	}
	if !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("err = %v, want ErrSendQueueFull", err)
	}

	// Dolu kuyruk bağlantıyı kapatır; sonraki gönderimler ErrClosed döner
	for time.Now().Before(deadline) {
		if err = c.SendText([]byte("x")); errors.Is(err, ErrClosed) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("err after queue overflow = %v, want ErrClosed", err)
}

func TestConnCloseIdempotent(t *testing.T) {
	c, _ := newConnPair(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := c.SendText([]byte("x")); !errors.Is(err, ErrClosed) {
		t.Errorf("send after close = %v", err)
	}
}

func TestRenderNotStalledByUnreadingController(t *testing.T) {
	const queue = 64
	hung, _ := newConnPair(t, WithSendQueue(queue))
	stallWriter(t, hung, queue)

	f := newDispatchFixture(t, &fakePainter{width: 300}, WithTileWidth(192))
	if err := f.reg.SetRole(hung, RoleController); err != nil {
		t.Fatal(err)
	}
	dev := newFakePeer("dev")
	_ = f.reg.RegisterDefault(dev)

	done := make(chan struct{})
	go func() {
		f.d.HandleText(f.ctl, []byte(`{"type":"command","action":"render","text":"hi","height":8}`))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("render stalled by a controller that does not read")
	}

	if got := dev.binaryCount(); got != 2 {
		t.Errorf("device received %d tiles, want 2", got)
	}
	if !hasMessage(f.messages(t), "info: Frame sent") {
		t.Errorf("statuses = %v", f.messages(t))
	}
}

func TestBroadcastEvictsControllerWithFullQueue(t *testing.T) {
	hung, _ := newConnPair(t, WithSendQueue(1))
	big := make([]byte, 1<<20)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := hung.SendBinary(big); err != nil {
			break
		}
	}

	reg := NewRegistry()
	ok := newFakePeer("ok")
	_ = reg.SetRole(hung, RoleController)
	_ = reg.SetRole(ok, RoleController)

	rep := NewRouter(reg).BroadcastStatus(StatusInfo("Client connected"))
	if rep.Delivered() != 1 || rep.Failed() != 1 {
		t.Fatalf("delivered=%d failed=%d, want 1/1", rep.Delivered(), rep.Failed())
	}
	if reg.RoleOf(hung) != RoleUnclassified {
		t.Error("controller with full queue not evicted")
	}
	if reg.RoleOf(ok) != RoleController {
		t.Error("healthy controller evicted")
	}
}
