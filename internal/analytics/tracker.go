package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bazaar-next/internal/config"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// ErrDisabled 未配置 broker
var ErrDisabled = errors.New("analytics tracker disabled")

const defaultWriteTimeout = 3 * time.Second

// Event 分析事件
type Event struct {
	Type     string                 `json:"type"`
	TargetID string                 `json:"target_id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// envelope 投递到 Kafka 的消息体
type envelope struct {
	EventID    string                 `json:"event_id"`
	UserID     uint                   `json:"user_id"`
	Channel    string                 `json:"channel"`
	Type       string                 `json:"type"`
	TargetID   string                 `json:"target_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTracker 将分析事件写入 Kafka，消息按用户 ID 分区
type KafkaTracker struct {
	writer       messageWriter
	writeTimeout time.Duration
}

// NewKafkaTracker 根据配置创建 tracker，broker 为空时返回关闭状态的 tracker
func NewKafkaTracker(cfg config.KafkaConfig) *KafkaTracker {
	brokers := splitBrokers(cfg.Brokers)
	timeout := defaultWriteTimeout
	if cfg.WriteTimeoutMS > 0 {
		timeout = time.Duration(cfg.WriteTimeoutMS) * time.Millisecond
	}
	tracker := &KafkaTracker{writeTimeout: timeout}
	if len(brokers) == 0 {
		return tracker
	}
	tracker.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        strings.TrimSpace(cfg.AnalyticsTopic),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: timeout,
	}
	return tracker
}

// Enabled 是否已配置 broker
func (t *KafkaTracker) Enabled() bool {
	return t != nil && t.writer != nil
}

// TrackEvent 投递事件；未启用时直接返回 nil
func (t *KafkaTracker) TrackEvent(ctx context.Context, userID uint, channel string, event Event) error {
	if !t.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Type) == "" {
		return errors.New("analytics event type is required")
	}
	payload, err := json.Marshal(envelope{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Channel:    channel,
		Type:       event.Type,
		TargetID:   event.TargetID,
		Metadata:   event.Metadata,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()
	return t.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(userID), 10)),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

// Close 关闭 writer
func (t *KafkaTracker) Close() error {
	if !t.Enabled() {
		return nil
	}
	return t.writer.Close()
}

func splitBrokers(raw string) []string {
	brokers := make([]string, 0)
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
