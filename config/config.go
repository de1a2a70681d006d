// Package config 读取 YAML 配置并据此装配数据库、类型适配器、二级缓存与日志。
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"matrixsql/data/db"
	"matrixsql/data/orm/keygen"
	"matrixsql/errors"
	"matrixsql/logging"
	"matrixsql/usertype"
)

// 环境变量覆盖项
const (
	EnvDBDriver = "MATRIXSQL_DB_DRIVER"
	EnvDBDSN    = "MATRIXSQL_DB_DSN"
	EnvLogLevel = "MATRIXSQL_LOG_LEVEL"
)

// 缓存后端
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config 顶层配置
type Config struct {
	Database db.DBConfig                  `yaml:"database"`
	Types    map[string]map[string]string `yaml:"types"` // 类型名 -> 默认参数
	Cache    CacheConfig                  `yaml:"cache"`
	Keys     KeysConfig                   `yaml:"keys"`
	Logging  LoggingConfig                `yaml:"logging"`
}

// KeysConfig 雪花主键的节点编号，取值 0..31
type KeysConfig struct {
	DatacenterID int64 `yaml:"datacenter_id"`
	WorkerID     int64 `yaml:"worker_id"`
}

// CacheConfig 二级缓存配置
type CacheConfig struct {
	Backend string        `yaml:"backend"` // none | memory | redis
	Size    int           `yaml:"size"`    // memory 后端的最大条目数
	TTL     time.Duration `yaml:"ttl"`     // 0 表示不过期
	Redis   RedisConfig   `yaml:"redis"`
	Nats    NatsConfig    `yaml:"nats"`
}

// NatsConfig memory 后端的跨进程失效广播，URL 为空时不广播
type NatsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"` // 缺省 matrixsql.l2.evict，实际主题追加区域名
}

// RedisConfig redis 后端连接
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Prefix string `yaml:"prefix"`
}

// Default 返回默认配置：sqlite 内存库、无缓存、info 日志
func Default() *Config {
	return &Config{
		Database: db.DBConfig{Driver: "sqlite", DSN: ":memory:"},
		Cache:    CacheConfig{Backend: CacheNone, Size: 1024},
		Keys:     KeysConfig{DatacenterID: 1, WorkerID: 1},
		Logging:  LoggingConfig{Level: "info", Prefix: "[matrixsql]"},
	}
}

// Load 读取配置文件，随后应用环境变量覆盖并校验
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeConfiguration, "config: read "+path)
	}
	return Parse(data)
}

// Parse 解析 YAML 内容，未出现的键保留默认值
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeConfiguration, "config: parse yaml")
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv 使用环境变量覆盖驱动、DSN 与日志级别
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDBDriver); ok && v != "" {
		c.Database.Driver = v
	}
	if v, ok := lookup(EnvDBDSN); ok && v != "" {
		c.Database.DSN = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		return errors.NewError(errors.ErrCodeConfiguration, "config: database.driver is required")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return errors.WrapError(err, errors.ErrCodeConfiguration, "config: logging.level")
	}
	switch strings.ToLower(c.Cache.Backend) {
	case "", CacheNone:
	case CacheMemory:
		if c.Cache.Nats.Subject != "" && c.Cache.Nats.URL == "" {
			return errors.NewError(errors.ErrCodeConfiguration, "config: cache.nats.url is required when cache.nats.subject is set")
		}
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.NewError(errors.ErrCodeConfiguration, "config: cache.redis.addr is required for redis backend")
		}
	default:
		return errors.NewErrorf(errors.ErrCodeConfiguration, "config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return errors.NewError(errors.ErrCodeConfiguration, "config: cache.ttl must not be negative")
	}
	if _, err := keygen.New(c.Keys.DatacenterID, c.Keys.WorkerID); err != nil {
		return err
	}
	for name, params := range c.Types {
		for key := range params {
			if strings.TrimSpace(key) == "" {
				return errors.NewErrorf(errors.ErrCodeConfiguration, "config: types.%s has an empty parameter name", name)
			}
		}
	}
	return nil
}

// TypeParameters 返回类型名对应的默认参数，实现 usertype.Settings
func (c *Config) TypeParameters(name string) usertype.Parameters {
	params, ok := c.Types[name]
	if !ok {
		return nil
	}
	return usertype.Parameters(params)
}

var _ usertype.Settings = (*Config)(nil)
