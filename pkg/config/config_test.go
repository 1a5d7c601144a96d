package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testYAML = `
app:
  name: LevelRadar
  env: test

data_sources:
  kite:
    api_key: file-key
    base_url: "https://api.kite.trade"
    timeout: 5s

database:
  driver: postgres
  postgres:
    host: db.internal
    port: 5432
    user: radar
    dbname: levelradar
    sslmode: disable

nats:
  url: "nats://localhost:4222"
  client_id: levelradar

api:
  port: "8080"
  read_timeout: 5s
  write_timeout: 10s

engine:
  poll_interval: 2s
  quiet_after: "15:00"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, testYAML)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.App.Name != "LevelRadar" {
		t.Fatalf("app.name解析不正确: %s", cfg.App.Name)
	}
	if cfg.DataSources.Kite.APIKey != "file-key" {
		t.Fatalf("kite.api_key解析不正确")
	}
	if cfg.Database.Postgres.Host != "db.internal" {
		t.Fatalf("postgres.host解析不正确")
	}
	if cfg.DataSources.Kite.Timeout != 5*time.Second {
		t.Fatalf("kite.timeout解析不正确: %s", cfg.DataSources.Kite.Timeout)
	}
	if cfg.API.ReadTimeout != 5*time.Second || cfg.API.WriteTimeout != 10*time.Second {
		t.Fatalf("api超时解析不正确: read=%s write=%s", cfg.API.ReadTimeout, cfg.API.WriteTimeout)
	}
	if cfg.Engine.PollInterval != 2*time.Second {
		t.Fatalf("poll_interval解析不正确: %s", cfg.Engine.PollInterval)
	}
	if cfg.Engine.QuietAfter != "15:00" {
		t.Fatalf("quiet_after解析不正确: %s", cfg.Engine.QuietAfter)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, testYAML)

	t.Setenv("KITE_API_KEY", "env-key")
	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("API_PORT", "9090")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.DataSources.Kite.APIKey != "env-key" {
		t.Fatalf("环境变量应覆盖kite.api_key")
	}
	if cfg.Database.Postgres.Host != "override.internal" {
		t.Fatalf("环境变量应覆盖postgres.host")
	}
	if cfg.Database.Postgres.Port != 15432 {
		t.Fatalf("环境变量应覆盖postgres.port")
	}
	if cfg.API.Port != "9090" {
		t.Fatalf("环境变量应覆盖api.port")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: LevelRadar\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Engine.PollInterval != time.Second {
		t.Fatalf("poll_interval缺省应为1s, 实际%s", cfg.Engine.PollInterval)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver缺省应为postgres")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("配置文件不存在应返回错误")
	}
}
