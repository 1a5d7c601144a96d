package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"app"`

	DataSources struct {
		Kite struct {
			APIKey      string        `yaml:"api_key"`
			AccessToken string        `yaml:"access_token"`
			BaseURL     string        `yaml:"base_url"`
			Timeout     time.Duration `yaml:"timeout"`
		} `yaml:"kite"`
	} `yaml:"data_sources"`

	Database struct {
		Driver   string `yaml:"driver"` // postgres 或 memory
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgres"`
	} `yaml:"database"`

	NATS struct {
		URL      string `yaml:"url"`
		ClientID string `yaml:"client_id"`
	} `yaml:"nats"`

	API struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"api"`

	Engine struct {
		PollInterval time.Duration `yaml:"poll_interval"` // 评估轮询周期
		QuietAfter   string        `yaml:"quiet_after"`   // HH:MM，此时刻后触发事件只入库不发布
	} `yaml:"engine"`
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析YAML
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 环境变量覆盖
	overrideFromEnv(&config)

	// 默认值
	if config.Engine.PollInterval <= 0 {
		config.Engine.PollInterval = time.Second
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "postgres"
	}

	return &config, nil
}

// overrideFromEnv 使用环境变量覆盖配置
func overrideFromEnv(config *Config) {
	// 应用配置
	if env := os.Getenv("APP_NAME"); env != "" {
		config.App.Name = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.App.Env = env
	}

	// Kite配置
	if env := os.Getenv("KITE_API_KEY"); env != "" {
		config.DataSources.Kite.APIKey = env
	}
	if env := os.Getenv("KITE_ACCESS_TOKEN"); env != "" {
		config.DataSources.Kite.AccessToken = env
	}
	if env := os.Getenv("KITE_BASE_URL"); env != "" {
		config.DataSources.Kite.BaseURL = env
	}

	// 数据库配置
	if env := os.Getenv("DB_DRIVER"); env != "" {
		config.Database.Driver = env
	}
	if env := os.Getenv("DB_HOST"); env != "" {
		config.Database.Postgres.Host = env
	}
	if env := os.Getenv("DB_PORT"); env != "" {
		var port int
		fmt.Sscanf(env, "%d", &port)
		if port > 0 {
			config.Database.Postgres.Port = port
		}
	}
	if env := os.Getenv("DB_USER"); env != "" {
		config.Database.Postgres.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		config.Database.Postgres.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		config.Database.Postgres.DBName = env
	}

	// NATS配置
	if env := os.Getenv("NATS_URL"); env != "" {
		config.NATS.URL = env
	}
	if env := os.Getenv("NATS_CLIENT_ID"); env != "" {
		config.NATS.ClientID = env
	}

	// API配置
	if env := os.Getenv("API_PORT"); env != "" {
		config.API.Port = env
	}
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev" // 默认开发环境
	}

	return fmt.Sprintf("configs/%s/app.yaml", env)
}
