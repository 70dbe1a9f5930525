// matrixsim, relay'e LED matris cihazı gibi bağlanır, gelen segmentleri
// birleştirir ve her tamamlanan çerçeveyi PNG olarak kaydeder.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alparslanahmed/matrixrelay"
)

func main() {
	url := flag.String("url", "ws://localhost:9122/ws", "relay WebSocket adresi")
	out := flag.String("out", "frames", "PNG çıktı dizini")
	count := flag.Int("count", 0, "bu kadar çerçeveden sonra çık (0: sınırsız)")
	legacy := flag.Bool("legacy", false, "hello göndermeden bağlan (eski cihaz yazılımı)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		slog.Error("çıktı dizini oluşturulamadı", "error", err)
		os.Exit(1)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, _, err := dialer.Dial(*url, nil)
	if err != nil {
		slog.Error("relay'e bağlanılamadı", "url", *url, "error", err)
		os.Exit(1)
	}
	defer ws.Close()
	slog.Info("bağlandı", "url", *url)

	if !*legacy {
		hello, _ := json.Marshal(matrixrelay.HelloMessage{Type: matrixrelay.MessageHello, Role: "device"})
		if err := ws.WriteMessage(websocket.TextMessage, hello); err != nil {
			slog.Error("hello gönderilemedi", "error", err)
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = ws.Close()
	}()

	asm := matrixrelay.NewAssembler()
	frames := 0
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("bağlantı kapandı", "error", err)
			}
			return
		}

		switch mt {
		case websocket.TextMessage:
			var cfg matrixrelay.ConfigMessage
			if err := json.Unmarshal(data, &cfg); err == nil && cfg.Type == matrixrelay.MessageConfig {
				slog.Info("config", "animate", cfg.Animate, "bg_noise", cfg.BGNoise)
				continue
			}
			slog.Info("metin mesajı", "data", string(data))

		case websocket.BinaryMessage:
			m, done, err := asm.AddPacket(data)
			if err != nil {
				slog.Warn("segment reddedildi", "bytes", len(data), "error", err)
				continue
			}
			if !done {
				continue
			}

			frames++
			path := filepath.Join(*out, fmt.Sprintf("frame-%04d.png", frames))
			if err := writePNG(path, m); err != nil {
				slog.Error("PNG yazılamadı", "path", path, "error", err)
				continue
			}
			slog.Info("çerçeve kaydedildi", "path", path, "width", m.Width, "height", m.Height)

			if *count > 0 && frames >= *count {
				return
			}
		}
	}
}

func writePNG(path string, m *matrixrelay.PixelMatrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, m.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
