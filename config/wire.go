package config

import (
	"os"
	"strings"

	"matrixsql/data/db/basic"
	"matrixsql/data/db/drivers"
	"matrixsql/data/orm/keygen"
	"matrixsql/data/orm/l2"
	"matrixsql/logging"
	"matrixsql/usertype"
	"matrixsql/usertype/columns"
)

// Logger 按 logging 配置创建日志器
func (c *Config) Logger() *logging.StdLogger {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.InfoLevel
	}
	return logging.NewStdLoggerTo(os.Stderr, c.Logging.Prefix).WithLevel(level)
}

// Registry 创建带内置列类型的注册表，types 段作为全局默认参数
func (c *Config) Registry() *usertype.Registry {
	r := usertype.NewRegistry().WithSettings(c)
	columns.RegisterAll(r)
	return r
}

// Region 按 cache 配置创建二级缓存区域，backend 为 none 时返回 nil。
// memory 后端配置了 nats.url 时，失效会广播给其他进程。
func (c *Config) Region(name string) (l2.Region, error) {
	switch strings.ToLower(c.Cache.Backend) {
	case CacheMemory:
		local := l2.NewMemoryRegion(name, c.Cache.Size, c.Cache.TTL)
		if c.Cache.Nats.URL == "" {
			return local, nil
		}
		subject := c.Cache.Nats.Subject
		if subject == "" {
			subject = l2.DefaultEvictSubject
		}
		if name != "" {
			subject += "." + name
		}
		region, err := l2.NewBroadcastRegion(local, l2.BroadcastConfig{URL: c.Cache.Nats.URL, Subject: subject})
		if err != nil {
			return nil, err
		}
		return region, nil
	case CacheRedis:
		prefix := c.Cache.Redis.Prefix
		if prefix == "" {
			prefix = l2.DefaultRedisPrefix
		}
		if name != "" {
			prefix += name + ":"
		}
		region, err := l2.NewRedisRegion(l2.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Username: c.Cache.Redis.Username,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Prefix:   prefix,
			TTL:      c.Cache.TTL,
		})
		if err != nil {
			return nil, err
		}
		return region, nil
	default:
		return nil, nil
	}
}

// KeyGenerator 按 keys 配置创建雪花主键生成器
func (c *Config) KeyGenerator() (*keygen.Generator, error) {
	return keygen.New(c.Keys.DatacenterID, c.Keys.WorkerID)
}

// OpenDatabase 按 database 配置打开数据库并注册所需驱动
func (c *Config) OpenDatabase() (*basic.DB, error) {
	return drivers.Open(c.Database)
}
