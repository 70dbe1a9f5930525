package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alparslanahmed/matrixrelay"
)

func main() {
	configPath := flag.String("config", "", "YAML yapılandırma dosyası (boşsa varsayılanlar)")
	addr := flag.String("addr", "", "dinleme adresi (yapılandırmadakini ezer)")
	debug := flag.Bool("debug", false, "debug loglarını aç")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	// Kütüphane logları Printf arayüzüyle yazar; slog'a debug seviyesinde aktarılır.
	libLogger := slog.NewLogLogger(handler, slog.LevelDebug)

	cfg := matrixrelay.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = matrixrelay.LoadConfig(*configPath)
		if err != nil {
			slog.Error("yapılandırma yüklenemedi", "error", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Listen = *addr
	}

	slog.Info("matrixrelay başlıyor",
		"config", *configPath,
		"listen", cfg.Listen,
		"tile_width", cfg.Segment.TileWidth,
		"pacing_ms", cfg.Segment.PacingMS,
	)

	fonts, err := cfg.LoadFonts(libLogger)
	if err != nil {
		slog.Error("fontlar yüklenemedi", "error", err)
		os.Exit(1)
	}
	slog.Info("fontlar hazır", "families", len(fonts.Families()))

	opts := append(cfg.Options(),
		matrixrelay.WithLogger(libLogger),
		matrixrelay.WithFonts(fonts),
		matrixrelay.WithPainter(matrixrelay.NewGlyphPainter(fonts)),
	)

	var sink *matrixrelay.MQTTStatusSink
	if cfg.MQTT.Broker != "" {
		sink, err = matrixrelay.NewMQTTStatusSink(cfg.MQTT, libLogger)
		if err != nil {
			slog.Error("MQTT bağlantısı kurulamadı", "broker", cfg.MQTT.Broker, "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		opts = append(opts, matrixrelay.WithStatusSink(sink))
		slog.Info("status olayları MQTT'ye yansıtılıyor", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
	}

	srv, err := matrixrelay.NewServer(cfg.Listen, opts...)
	if err != nil {
		slog.Error("sunucu oluşturulamadı", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("kapanma sinyali alındı", "signal", sig)
	case err := <-errChan:
		if err != nil {
			slog.Error("sunucu hatası", "error", err)
			os.Exit(1)
		}
	}

	timeout := cfg.ShutdownTimeout()
	slog.Info("kapanıyor", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("kapanma başarısız", "error", err)
		if sink != nil {
			sink.Close()
		}
		os.Exit(1)
	}

	if sink != nil {
		published, dropped := sink.Stats()
		slog.Info("MQTT istatistikleri", "published", published, "dropped", dropped)
	}
	slog.Info("matrixrelay durdu")
}
