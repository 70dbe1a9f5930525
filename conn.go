package matrixrelay

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrSendQueueFull, alıcının giden mesaj kuyruğu dolu olduğunda döner.
// Mesajı okumayan bir istemci diğer gönderimleri bekletmez; bu hatayı alan
// Router alıcıyı kayıttan çıkarır.
var ErrSendQueueFull = errors.New("matrixrelay: gönderim kuyruğu dolu")

// outbound, yazılmayı bekleyen tek bir WebSocket mesajıdır.
type outbound struct {
	messageType int
	data        []byte
}

// Conn, relay'e bağlı tek bir WebSocket istemcisidir ve Peer arayüzünü uygular.
// Gönderimler sınırlı bir kuyruğa alınır ve bağlantıya ait yazıcı goroutine'i
// tarafından sırayla yazılır; SendText/SendBinary hiçbir zaman ağ yazımını
// beklemez. Okuma yalnızca serve döngüsünden yapılır.
type Conn struct {
	// id, bu bağlantı için benzersiz kimlik.
	id string

	// ws, altta yatan WebSocket bağlantısıdır.
	ws *websocket.Conn

	// writeTimeout, her yazma için süre sınırıdır. 0 ise sınır yoktur.
	writeTimeout time.Duration

	// keepalive, ping paketlerinin aralığıdır. 0 ise ping gönderilmez.
	keepalive time.Duration

	logger Logger

	// out, yazıcı goroutine'inin boşalttığı giden mesaj kuyruğudur.
	out chan outbound

	// done, Close ile kapatılır; yazıcı ve ping goroutine'lerini durdurur.
	done chan struct{}

	// mu, kapanma durumu için mutex'tir.
	mu     sync.Mutex
	closed bool
}

func newConn(ws *websocket.Conn, o options) *Conn {
	ws.SetReadLimit(MaxMessageSize)
	c := &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: o.writeTimeout,
		keepalive:    o.keepaliveInterval,
		logger:       o.logger,
		out:          make(chan outbound, o.sendQueue),
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// ID, bağlantının kimliğini döner.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr, istemcinin adresini döner.
func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// SendText, bir metin mesajını gönderim kuyruğuna ekler.
// data kuyruğa alındıktan sonra değiştirilmemelidir.
func (c *Conn) SendText(data []byte) error {
	return c.enqueue(websocket.TextMessage, data)
}

// SendBinary, bir binary mesajı gönderim kuyruğuna ekler.
// data kuyruğa alındıktan sonra değiştirilmemelidir.
func (c *Conn) SendBinary(data []byte) error {
	return c.enqueue(websocket.BinaryMessage, data)
}

// enqueue hiçbir zaman bloklamaz. Kuyruk doluysa bağlantı arka planda kapatılır.
func (c *Conn) enqueue(messageType int, data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.out <- outbound{messageType: messageType, data: data}:
		return nil
	default:
		logf(c.logger, "gönderim kuyruğu dolu, bağlantı kapatılıyor: %s", c.id)
		go c.Close()
		return fmt.Errorf("%s: %w", c.id, ErrSendQueueFull)
	}
}

// writeLoop, kuyruktaki mesajları sırayla yazar. Yazma hatasında bağlantıyı kapatır.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.out:
			var deadline time.Time
			if c.writeTimeout > 0 {
				deadline = time.Now().Add(c.writeTimeout)
			}
			err := c.ws.SetWriteDeadline(deadline)
			if err == nil {
				err = c.ws.WriteMessage(msg.messageType, msg.data)
			}
			if err != nil {
				if !c.isClosed() {
					logf(c.logger, "yazma hatası (%s): %v", c.id, err)
				}
				_ = c.Close()
				return
			}
		}
	}
}

// serve, bağlantıyı kapanana kadar okur ve mesajları sırayla Dispatcher'a verir.
// Bir mesaj (render ve gönderim dahil) tamamen işlenmeden sonraki okunmaz.
func (c *Conn) serve(d *Dispatcher) {
	if c.keepalive > 0 {
		go c.keepaliveLoop()
	}

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.isClosed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				d.HandleError(c, err)
			}
			return
		}

		switch mt {
		case websocket.TextMessage:
			d.HandleText(c, data)
		case websocket.BinaryMessage:
			d.HandleBinary(c, data)
		}
	}
}

// keepaliveLoop, bağlantı canlı kaldığı sürece periyodik ping gönderir.
func (c *Conn) keepaliveLoop() {
	ticker := time.NewTicker(c.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.keepalive)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logf(c.logger, "ping gönderilemedi (%s): %v", c.id, err)
				}
				return
			}
		}
	}
}

// Close, bağlantıyı güvenli bir şekilde kapatır. Birden fazla çağrılabilir.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := c.ws.Close(); err != nil {
		return fmt.Errorf("bağlantı kapatılamadı: %w", err)
	}
	return nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
