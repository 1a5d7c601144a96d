package main

import (
	"log"
	"os"

	"LevelRadar/pkg/api"
	"LevelRadar/pkg/collector"
	"LevelRadar/pkg/config"
	"LevelRadar/pkg/monitor"
	"LevelRadar/pkg/store"
)

func main() {
	log.Println("启动API服务器...")

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

	// 创建行情客户端
	kiteClient := collector.NewKiteClient(
		cfg.DataSources.Kite.APIKey,
		cfg.DataSources.Kite.AccessToken,
		cfg.DataSources.Kite.BaseURL,
		cfg.DataSources.Kite.Timeout,
	)

	// 组件健康监控
	healthMonitor := monitor.NewMonitor(func(component, status, message string) {
		log.Printf("组件 %s 状态变为 %s: %s", component, status, message)
	})
	if pgStore != nil {
		healthMonitor.RegisterComponent("database")
		healthMonitor.CheckComponent("database", pgStore.Ping)
	}

	// 创建并启动API服务器
	handlers := api.NewHandlers(alertStore, kiteClient, healthMonitor)
	server := api.NewServer(cfg.API.Port, cfg.API.ReadTimeout, cfg.API.WriteTimeout)
	server.SetupRoutes(handlers)
	server.Start()
}
