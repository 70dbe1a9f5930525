package matrixrelay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ─── MQTT Status Yansıtma ───────────────────────────────────────────────────────
//
// Status olayları controller'lara ek olarak bir MQTT konusuna da yayınlanabilir.
// Yayın asenkrondur; broker'ın yavaşlığı Router'ı bekletmez. Bağlantı yoksa
// olay düşürülür, saklanmaz.

// mqttPublisher, mqtt.Client'ın kullanılan alt kümesidir.
type mqttPublisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTStatusSink, status olaylarını JSON olarak MQTT'ye yayınlar.
type MQTTStatusSink struct {
	client mqttPublisher
	topic  string
	qos    byte
	logger Logger

	mu        sync.Mutex
	published uint64
	dropped   uint64
}

// NewMQTTStatusSink, broker'a bağlanır ve bir sink döner.
// Bağlantı koparsa paho otomatik olarak yeniden bağlanır.
func NewMQTTStatusSink(cfg MQTTConfig, logger Logger) (*MQTTStatusSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		logf(logger, "MQTT bağlantısı kuruldu: %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logf(logger, "MQTT bağlantısı koptu, yeniden bağlanılacak: %v", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("MQTT bağlantı zaman aşımı: %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("MQTT bağlantı hatası: %w", err)
	}

	return newMQTTStatusSink(client, cfg.Topic, cfg.QoS, logger), nil
}

func newMQTTStatusSink(client mqttPublisher, topic string, qos byte, logger Logger) *MQTTStatusSink {
	return &MQTTStatusSink{client: client, topic: topic, qos: qos, logger: logger}
}

// PublishStatus, StatusSink arayüzünü uygular.
func (s *MQTTStatusSink) PublishStatus(ev StatusEvent) {
	if !s.client.IsConnected() {
		s.count(false)
		return
	}

	payload, err := json.Marshal(newStatusMessage(ev))
	if err != nil {
		s.count(false)
		return
	}

	token := s.client.Publish(s.topic, s.qos, false, payload)
	go func() {
		if !token.WaitTimeout(2 * time.Second) {
			logf(s.logger, "MQTT yayın zaman aşımı: %s", s.topic)
			s.count(false)
			return
		}
		if err := token.Error(); err != nil {
			logf(s.logger, "MQTT yayın hatası: %v", err)
			s.count(false)
			return
		}
		s.count(true)
	}()
}

// Stats, başarılı ve düşürülen yayın sayılarını döner.
func (s *MQTTStatusSink) Stats() (published, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published, s.dropped
}

// Close, broker bağlantısını kapatır.
func (s *MQTTStatusSink) Close() {
	if c, ok := s.client.(mqtt.Client); ok {
		c.Disconnect(250)
	}
}

func (s *MQTTStatusSink) count(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.published++
	} else {
		s.dropped++
	}
}
