package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"LevelRadar/pkg/collector"
	"LevelRadar/pkg/config"
	"LevelRadar/pkg/engine"
	"LevelRadar/pkg/messaging"
	"LevelRadar/pkg/monitor"
	"LevelRadar/pkg/scheduler"
	"LevelRadar/pkg/store"
)

func main() {
	log.Println("启动预警触发引擎...")

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v\n", err)
	}

	// 初始化预警存储
	var alertStore store.AlertStore
	var pgStore *store.PostgresStore
	if cfg.Database.Driver == "memory" {
		alertStore = store.NewMemoryStore()
		log.Println("使用内存存储（开发模式）")
	} else {
		pgStore, err = store.NewPostgresStore(cfg)
		if err != nil {
			log.Fatalf("连接数据库失败: %v\n", err)
		}
		defer pgStore.Close()
		alertStore = pgStore
	}

	// 连接NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS.URL, cfg.NATS.ClientID)
	if err != nil {
		log.Fatalf("连接NATS失败: %v\n", err)
	}
	defer natsClient.Close()
	natsClient.SetQuietAfter(cfg.Engine.QuietAfter)

	// 创建行情客户端
	kiteClient := collector.NewKiteClient(
		cfg.DataSources.Kite.APIKey,
		cfg.DataSources.Kite.AccessToken,
		cfg.DataSources.Kite.BaseURL,
		cfg.DataSources.Kite.Timeout,
	)

	// 注册组件健康监控
	healthMonitor := monitor.NewMonitor(func(component, status, message string) {
		log.Printf("组件 %s 状态变为 %s: %s", component, status, message)
	})
	healthMonitor.RegisterComponent("price_source")
	healthMonitor.RegisterComponent("nats")
	if pgStore != nil {
		healthMonitor.RegisterComponent("database")
	}

	// 启动定时任务：过期清理和健康检查
	taskScheduler := scheduler.NewScheduler(alertStore, kiteClient, healthMonitor)
	taskScheduler.Start()
	defer taskScheduler.Stop()

	// 创建触发监控引擎
	triggerMonitor := engine.NewMonitor(alertStore, kiteClient, natsClient, cfg.Engine.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())

	// 等待中断信号后取消评估循环
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("正在关闭预警触发引擎...")
		cancel()
	}()

	triggerMonitor.Start(ctx)
}
