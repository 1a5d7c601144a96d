// pkg/messaging/nats.go
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"LevelRadar/pkg/model"
)

// 触发事件流配置
const (
	LevelsStream   = "LEVELS"
	SubjectTrigger = "levels.triggered"
)

// NATSClient NATS JetStream客户端
type NATSClient struct {
	conn      *nats.Conn
	jetStream jetstream.JetStream
	natsURL   string
	ctx       context.Context
	cancel    context.CancelFunc
	consumers map[string]jetstream.Consumer // 消费者管理
	mu        sync.RWMutex                  // 保护consumers

	quietAfter string // HH:MM，为空表示不限制
}

// MessageHandler 通用消息处理函数类型
type MessageHandler func(data []byte) error

// NewNATSClient 创建新的NATS客户端，clientID用于标识连接
func NewNATSClient(natsURL, clientID string) (*NATSClient, error) {
	// 连接NATS
	nc, err := nats.Connect(natsURL,
		nats.Name(clientID),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // 无限重连
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS连接断开: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Println("NATS重新连接成功")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接NATS失败: %w", err)
	}

	// 创建JetStream上下文
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("创建JetStream失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	client := &NATSClient{
		conn:      nc,
		jetStream: js,
		natsURL:   natsURL,
		ctx:       ctx,
		cancel:    cancel,
		consumers: make(map[string]jetstream.Consumer),
	}

	// 初始化触发事件流
	if err := client.setupStreams(); err != nil {
		log.Printf("警告: 设置Streams失败: %v", err)
	}

	return client, nil
}

// SetQuietAfter 设置静默时刻（HH:MM）。该时刻之后触发事件只入库不发布，
// 下游规则引擎收盘后不再收到新信号。
func (c *NATSClient) SetQuietAfter(hhmm string) {
	c.quietAfter = hhmm
}

// setupStreams 设置触发事件Stream
func (c *NATSClient) setupStreams() error {
	streamConfig := jetstream.StreamConfig{
		Name:        LevelsStream,
		Subjects:    []string{"levels.*"},
		Description: "价格预警触发事件流",
		Retention:   jetstream.LimitsPolicy,
		MaxMsgs:     50000,
		MaxBytes:    50 * 1024 * 1024,   // 50MB
		MaxAge:      7 * 24 * time.Hour, // 保留7天
	}

	_, err := c.jetStream.CreateOrUpdateStream(c.ctx, streamConfig)
	if err != nil {
		return fmt.Errorf("创建/更新Stream %s 失败: %w", streamConfig.Name, err)
	}

	log.Printf("Stream %s 设置成功", streamConfig.Name)
	return nil
}

// Publish 发布消息到指定主题
func (c *NATSClient) Publish(subject string, data interface{}) error {
	var payload []byte
	var err error

	switch v := data.(type) {
	case []byte:
		payload = v
	case string:
		payload = []byte(v)
	default:
		payload, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("序列化数据失败: %w", err)
		}
	}

	_, err = c.jetStream.Publish(c.ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("发布消息到 %s 失败: %w", subject, err)
	}

	return nil
}

// PublishTrigger 发布预警触发事件。静默时段内事件已入库，这里只跳过发布。
func (c *NATSClient) PublishTrigger(event model.TriggerEvent) error {
	if c.inQuietWindow(event.TriggeredAt) {
		log.Printf("预警 %s 在静默时段触发，跳过发布", event.AlertUUID)
		return nil
	}
	return c.Publish(SubjectTrigger, event)
}

// inQuietWindow 判断指定时刻是否落在静默时段（quietAfter至当日结束）
func (c *NATSClient) inQuietWindow(t time.Time) bool {
	if c.quietAfter == "" {
		return false
	}
	cutoff, err := time.Parse("15:04", c.quietAfter)
	if err != nil {
		log.Printf("警告: quiet_after格式非法: %q", c.quietAfter)
		return false
	}
	return t.Hour()*60+t.Minute() >= cutoff.Hour()*60+cutoff.Minute()
}

// decodeTriggerEvent 解析触发事件消息体
func decodeTriggerEvent(data []byte) (model.TriggerEvent, error) {
	var event model.TriggerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return model.TriggerEvent{}, fmt.Errorf("解析触发事件失败: %w", err)
	}
	return event, nil
}

// SubscribeTriggers 订阅预警触发事件，下游规则引擎以拉取方式消费
func (c *NATSClient) SubscribeTriggers(consumerName string, handler func(event model.TriggerEvent) error) error {
	return c.Subscribe(LevelsStream, consumerName, SubjectTrigger, func(data []byte) error {
		event, err := decodeTriggerEvent(data)
		if err != nil {
			return err
		}
		return handler(event)
	})
}

// Subscribe 订阅指定主题的消息
func (c *NATSClient) Subscribe(streamName, consumerName, filterSubject string, handler MessageHandler) error {
	// 创建消费者配置
	consumerConfig := jetstream.ConsumerConfig{
		Name:          consumerName,
		Description:   fmt.Sprintf("%s 消费者", consumerName),
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	// 创建或获取消费者
	consumer, err := c.jetStream.CreateOrUpdateConsumer(c.ctx, streamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("创建消费者 %s 失败: %w", consumerName, err)
	}

	// 保存消费者引用
	c.mu.Lock()
	c.consumers[consumerName] = consumer
	c.mu.Unlock()

	// 开始消费消息
	go c.consumeMessages(consumer, consumerName, handler)

	log.Printf("已订阅 %s (Stream: %s, Consumer: %s)", filterSubject, streamName, consumerName)
	return nil
}

// consumeMessages 消费消息的通用逻辑
func (c *NATSClient) consumeMessages(consumer jetstream.Consumer, consumerName string, handler MessageHandler) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("消费者 %s 异常退出: %v", consumerName, r)
		}
	}()

	iter, err := consumer.Messages(jetstream.PullMaxMessages(10))
	if err != nil {
		log.Printf("获取 %s 消息迭代器失败: %v", consumerName, err)
		return
	}

	for {
		select {
		case <-c.ctx.Done():
			log.Printf("消费者 %s 收到停止信号", consumerName)
			return
		default:
			msg, err := iter.Next()
			if err != nil {
				if err == jetstream.ErrNoMessages {
					continue
				}
				log.Printf("获取 %s 消息失败: %v", consumerName, err)
				time.Sleep(1 * time.Second)
				continue
			}

			// 调用处理器
			if err := handler(msg.Data()); err != nil {
				log.Printf("消费者 %s 处理消息失败: %v", consumerName, err)
				msg.Nak() // 拒绝消息
			} else {
				msg.Ack() // 确认消息
			}
		}
	}
}

// Close 关闭连接
func (c *NATSClient) Close() error {
	log.Println("正在关闭NATS连接...")

	c.cancel() // 取消所有上下文

	// 等待所有消费者退出
	time.Sleep(1 * time.Second)

	// 清理消费者记录
	c.mu.Lock()
	c.consumers = make(map[string]jetstream.Consumer)
	c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}

	log.Println("NATS连接已关闭")
	return nil
}

// IsConnected 检查连接状态
func (c *NATSClient) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
