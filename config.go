package matrixrelay

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ─── Yapılandırma Dosyası ───────────────────────────────────────────────────────
//
// Örnek matrixrelay.yaml:
//
//	listen: ":9122"
//	static_dir: ./templates
//	segment:
//	  tile_width: 192
//	  pacing_ms: 25
//	connection:
//	  keepalive_s: 30
//	  write_timeout_ms: 0
//	  send_queue: 256
//	fonts:
//	  dir: ./fonts
//	  system: true
//	  files:
//	    Siemreap: /usr/share/fonts/truetype/khmer/Siemreap.ttf
//	mqtt:
//	  broker: localhost:1883
//	  topic: matrixrelay/status

// Config, matrixrelayd servisinin tüm yapılandırmasıdır.
type Config struct {
	Listen           string           `yaml:"listen"`
	StaticDir        string           `yaml:"static_dir"`
	ShutdownTimeoutS int              `yaml:"shutdown_timeout_s"`
	Segment          SegmentConfig    `yaml:"segment"`
	Connection       ConnectionConfig `yaml:"connection"`
	Fonts            FontsConfig      `yaml:"fonts"`
	MQTT             MQTTConfig       `yaml:"mqtt"`
}

// SegmentConfig, segment boyutu ve gönderim hızı ayarlarıdır.
type SegmentConfig struct {
	TileWidth int `yaml:"tile_width"`
	PacingMS  int `yaml:"pacing_ms"`
}

// ConnectionConfig, WebSocket bağlantı ayarlarıdır.
type ConnectionConfig struct {
	KeepaliveS     int `yaml:"keepalive_s"`
	WriteTimeoutMS int `yaml:"write_timeout_ms"` // 0: zaman aşımı yok
	SendQueue      int `yaml:"send_queue"`       // bağlantı başına bekleyen mesaj
}

// FontsConfig, font kaynaklarıdır.
type FontsConfig struct {
	Dir      string            `yaml:"dir"`
	Files    map[string]string `yaml:"files"` // aile -> dosya yolu
	System   bool              `yaml:"system"`
	CacheDir string            `yaml:"cache_dir"`
}

// MQTTConfig, status olaylarının yansıtılacağı MQTT broker ayarlarıdır.
// Broker boşsa MQTT kullanılmaz.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// DefaultConfig, dosya olmadan kullanılan varsayılan yapılandırmayı döner.
func DefaultConfig() *Config {
	cfg := &Config{}
	_ = Validate(cfg)
	return cfg
}

// LoadConfig, YAML yapılandırma dosyasını okur, varsayılanları uygular ve doğrular.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("yapılandırma dosyası okunamadı: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("yapılandırma çözümlenemedi: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("geçersiz yapılandırma: %w", err)
	}
	return &cfg, nil
}

// Validate, yapılandırmayı kontrol eder ve boş alanlara varsayılanları yazar.
func Validate(cfg *Config) error {
	if cfg.Listen == "" {
		cfg.Listen = fmt.Sprintf(":%d", DefaultPort)
	}
	if cfg.ShutdownTimeoutS < 0 {
		return fmt.Errorf("shutdown_timeout_s negatif olamaz")
	}
	if cfg.ShutdownTimeoutS == 0 {
		cfg.ShutdownTimeoutS = 5
	}

	if cfg.Segment.TileWidth < 0 || cfg.Segment.TileWidth > MaxFrameWidth {
		return fmt.Errorf("segment.tile_width 1..%d aralığında olmalı", MaxFrameWidth)
	}
	if cfg.Segment.TileWidth == 0 {
		cfg.Segment.TileWidth = DefaultTileWidth
	}
	if cfg.Segment.PacingMS < 0 {
		return fmt.Errorf("segment.pacing_ms negatif olamaz")
	}

	if cfg.Connection.KeepaliveS < 0 {
		return fmt.Errorf("connection.keepalive_s negatif olamaz")
	}
	if cfg.Connection.KeepaliveS == 0 {
		cfg.Connection.KeepaliveS = int(DefaultKeepaliveInterval / time.Second)
	}
	if cfg.Connection.WriteTimeoutMS < 0 {
		return fmt.Errorf("connection.write_timeout_ms negatif olamaz")
	}
	if cfg.Connection.SendQueue < 0 {
		return fmt.Errorf("connection.send_queue negatif olamaz")
	}
	if cfg.Connection.SendQueue == 0 {
		cfg.Connection.SendQueue = DefaultSendQueue
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "matrixrelay/status"
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "matrixrelay"
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos 0, 1 veya 2 olmalı")
		}
	}
	return nil
}

// ShutdownTimeout, kapanma için beklenecek süreyi döner.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

// Options, yapılandırmayı Server seçeneklerine çevirir.
func (c *Config) Options() []Option {
	opts := []Option{
		WithTileWidth(c.Segment.TileWidth),
		WithPacing(time.Duration(c.Segment.PacingMS) * time.Millisecond),
		WithKeepalive(time.Duration(c.Connection.KeepaliveS) * time.Second),
		WithWriteTimeout(time.Duration(c.Connection.WriteTimeoutMS) * time.Millisecond),
		WithSendQueue(c.Connection.SendQueue),
	}
	if c.StaticDir != "" {
		opts = append(opts, WithStaticDir(c.StaticDir))
	}
	return opts
}

// LoadFonts, yapılandırılan kaynaklardan bir FontLibrary kurar.
// Tek bir dosyanın yüklenememesi loglanır; dizin veya sistem taraması hatası döner.
func (c *Config) LoadFonts(logger Logger) (*FontLibrary, error) {
	lib, err := NewFontLibrary(logger)
	if err != nil {
		return nil, err
	}
	if c.Fonts.Dir != "" {
		n, err := lib.LoadDir(c.Fonts.Dir)
		if err != nil {
			return nil, err
		}
		logf(logger, "%d font dosyası yüklendi: %s", n, c.Fonts.Dir)
	}
	for family, path := range c.Fonts.Files {
		if err := lib.LoadFile(path, family); err != nil {
			logf(logger, "font yüklenemedi (%s): %v", family, err)
		}
	}
	if c.Fonts.System {
		if err := lib.EnableSystemFonts(c.Fonts.CacheDir); err != nil {
			return nil, err
		}
	}
	return lib, nil
}
