package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"LevelRadar/pkg/config"
	"LevelRadar/pkg/messaging"
	"LevelRadar/pkg/model"
)

func main() {
	log.Println("启动触发事件通知器...")

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v\n", err)
	}

	// 连接NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS.URL, cfg.NATS.ClientID+"-notifier")
	if err != nil {
		log.Fatalf("连接NATS失败: %v\n", err)
	}
	defer natsClient.Close()

	// 消费触发事件并输出通知日志
	err = natsClient.SubscribeTriggers("trigger-notifier", func(event model.TriggerEvent) error {
		log.Printf("预警触发通知: %s %s %s %.2f，触发价格 %.2f，用户 %s",
			event.Name, event.Instrument, event.Operator,
			event.TargetValue, event.TriggeredPrice, event.UserID)
		return nil
	})
	if err != nil {
		log.Fatalf("订阅触发事件失败: %v\n", err)
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("正在关闭触发事件通知器...")
}
