package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/OliverBerger-ORBIS/ORBIS-Modellfabrik-sub008/config"
)

// Handler receives raw inbound message bytes with their concrete topic.
type Handler func(topic string, payload []byte)

// Client is the unified messaging client (MQTT or Kafka). MQTT is the
// shop-floor default; Kafka serves deployments that bridge the factory
// into an existing event pipeline.
type Client struct {
	mu       sync.RWMutex
	cfg      *config.MessagingConfig
	backend  string
	mqttConn mqtt.Client
	kafkaW   *kafkago.Writer
	kafkaR   map[string]*kafkago.Reader

	// subscriptions are replayed after an MQTT auto-reconnect
	subs []subscription

	statusFn func(connected bool, detail string)
}

type subscription struct {
	topic   string
	qos     byte
	handler Handler
}

func NewClient(cfg *config.MessagingConfig) *Client {
	return &Client{
		cfg:     cfg,
		backend: cfg.Backend,
		kafkaR:  make(map[string]*kafkago.Reader),
	}
}

// SetStatusFunc registers a callback invoked on connect and disconnect.
// Must be called before Connect.
func (c *Client) SetStatusFunc(fn func(connected bool, detail string)) {
	c.mu.Lock()
	c.statusFn = fn
	c.mu.Unlock()
}

// Connect establishes the messaging connection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.backend {
	case "mqtt":
		return c.connectMQTT()
	case "kafka":
		return c.connectKafka()
	default:
		return fmt.Errorf("unknown messaging backend: %s", c.backend)
	}
}

// ConnectWithRetry attempts Connect up to retries times, sleeping interval
// between attempts. The caller treats exhaustion as fatal: a control unit
// without a bus controls nothing.
func (c *Client) ConnectWithRetry(retries int, interval time.Duration) error {
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = c.Connect(); err == nil {
			return nil
		}
		log.Printf("messaging: connect attempt %d/%d: %v", attempt, retries, err)
		if attempt < retries {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("messaging: connect failed after %d attempts: %w", retries, err)
}

func (c *Client) connectMQTT() error {
	broker := fmt.Sprintf("tcp://%s:%d", c.cfg.MQTT.Broker, c.cfg.MQTT.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(c.cfg.MQTT.ClientID).
		SetUsername(c.cfg.MQTT.Username).
		SetPassword(c.cfg.MQTT.Password).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetOnConnectHandler(func(conn mqtt.Client) {
			c.resubscribe(conn)
			c.notify(true, "mqtt connected to "+broker)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.notify(false, err.Error())
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.mqttConn = client
	return nil
}

func (c *Client) connectKafka() error {
	if len(c.cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	conn, err := kafkago.DialContext(ctx, "tcp", c.cfg.Kafka.Brokers[0])
	cancel()
	if err != nil {
		return fmt.Errorf("kafka connect: %w", err)
	}
	conn.Close()

	c.kafkaW = &kafkago.Writer{
		Addr:         kafkago.TCP(c.cfg.Kafka.Brokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	c.notify(true, "kafka connected")
	return nil
}

func (c *Client) notify(connected bool, detail string) {
	c.mu.RLock()
	fn := c.statusFn
	c.mu.RUnlock()
	if fn != nil {
		fn(connected, detail)
	}
}

// resubscribe replays all registered subscriptions on an MQTT session.
func (c *Client) resubscribe(conn mqtt.Client) {
	c.mu.RLock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.mu.RUnlock()
	for _, s := range subs {
		s := s
		token := conn.Subscribe(s.topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
			s.handler(msg.Topic(), msg.Payload())
		})
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("messaging: subscribe %s: %v", s.topic, err)
		}
	}
}

// Publish sends a message at the given QoS level.
func (c *Client) Publish(topic string, qos byte, payload []byte) error {
	return c.publish(topic, qos, false, payload)
}

// PublishRetained publishes a broker-retained state snapshot so late
// subscribers receive the latest value immediately. Kafka has no retain
// flag; compacted topics give the equivalent there.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.publish(topic, 1, true, payload)
}

func (c *Client) publish(topic string, qos byte, retained bool, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.backend {
	case "mqtt":
		if c.mqttConn == nil || !c.mqttConn.IsConnected() {
			return fmt.Errorf("mqtt not connected")
		}
		token := c.mqttConn.Publish(topic, qos, retained, payload)
		token.Wait()
		return token.Error()
	case "kafka":
		if c.kafkaW == nil {
			return fmt.Errorf("kafka writer not initialized")
		}
		return c.kafkaW.WriteMessages(context.Background(), kafkago.Message{
			Topic: topic,
			Value: payload,
		})
	default:
		return fmt.Errorf("unknown backend: %s", c.backend)
	}
}

// PublishJSON encodes v and publishes it.
func (c *Client) PublishJSON(topic string, qos byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode for %s: %w", topic, err)
	}
	return c.Publish(topic, qos, data)
}

// Subscribe registers a handler for a topic filter. MQTT supports the `+`
// single-level wildcard; Kafka readers consume the literal topic name.
func (c *Client) Subscribe(topic string, qos byte, handler Handler) error {
	c.mu.Lock()
	c.subs = append(c.subs, subscription{topic: topic, qos: qos, handler: handler})
	backend := c.backend
	c.mu.Unlock()

	switch backend {
	case "mqtt":
		c.mu.RLock()
		conn := c.mqttConn
		c.mu.RUnlock()
		if conn == nil {
			return fmt.Errorf("mqtt not connected")
		}
		token := conn.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
			handler(msg.Topic(), msg.Payload())
		})
		token.Wait()
		return token.Error()
	case "kafka":
		reader := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers: c.cfg.Kafka.Brokers,
			Topic:   topic,
			GroupID: c.cfg.Kafka.GroupID,
		})
		c.mu.Lock()
		c.kafkaR[topic] = reader
		c.mu.Unlock()
		go func() {
			for {
				msg, err := reader.ReadMessage(context.Background())
				if err != nil {
					return
				}
				handler(msg.Topic, msg.Value)
			}
		}()
		return nil
	default:
		return fmt.Errorf("unknown backend: %s", backend)
	}
}

// IsConnected reports whether the bus connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.backend {
	case "mqtt":
		return c.mqttConn != nil && c.mqttConn.IsConnected()
	case "kafka":
		return c.kafkaW != nil
	default:
		return false
	}
}

// Close shuts down the messaging connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mqttConn != nil {
		c.mqttConn.Disconnect(1000)
		c.mqttConn = nil
	}
	if c.kafkaW != nil {
		c.kafkaW.Close()
		c.kafkaW = nil
	}
	for topic, r := range c.kafkaR {
		r.Close()
		delete(c.kafkaR, topic)
	}
}
