package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	Postgres struct {
		DSN         string `mapstructure:"dsn"`
		MaxOpen     int    `mapstructure:"max_open"`
		MaxIdle     int    `mapstructure:"max_idle"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"postgres"`
	Redis struct {
		Addr          string `mapstructure:"addr"`
		Password      string `mapstructure:"password"`
		DB            int    `mapstructure:"db"`
		PoolSize      int    `mapstructure:"pool_size"`
		JTIPrefix     string `mapstructure:"jti_prefix"`
		PingTimeoutMS int    `mapstructure:"ping_timeout_ms"`
		HeartbeatSec  int    `mapstructure:"heartbeat_sec"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers    []string `mapstructure:"brokers"`
		AuditTopic string   `mapstructure:"audit_topic"`
	} `mapstructure:"kafka"`
	Etcd struct {
		Endpoints []string `mapstructure:"endpoints"`
		TTL       int      `mapstructure:"ttl"`
	} `mapstructure:"etcd"`
	JWT struct {
		Secret        string `mapstructure:"secret"`
		ExpireSeconds int    `mapstructure:"expire_seconds"`
		Issuer        string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Cache struct {
		MenuTreeTTLSeconds int `mapstructure:"menu_tree_ttl_seconds"`
		RolePermTTLSeconds int `mapstructure:"role_perm_ttl_seconds"`
		TenantTTLSeconds   int `mapstructure:"tenant_ttl_seconds"`
		LocalTTLSeconds    int `mapstructure:"local_ttl_seconds"`
	} `mapstructure:"cache"`
	Tenant struct {
		// 免租户路径前缀（运维 / 健康检查 / 未认证登录）
		ExemptPrefixes []string `mapstructure:"exempt_prefixes"`
	} `mapstructure:"tenant"`
	AppMeta struct {
		Name    string `mapstructure:"name"`
		Version string `mapstructure:"version"`
		Env     string `mapstructure:"env"`
	} `mapstructure:"app_meta"`
	OTel struct {
		Endpoint     string  `mapstructure:"endpoint"`
		Insecure     bool    `mapstructure:"insecure"`
		SamplerRatio float64 `mapstructure:"sampler_ratio"`
		Enable       bool    `mapstructure:"enable"`
	} `mapstructure:"otel"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	// 默认值
	v.SetDefault("app_meta.name", "GoTenantAdmin")
	v.SetDefault("app_meta.version", "v1")
	v.SetDefault("app_meta.env", "dev")
	v.SetDefault("cache.menu_tree_ttl_seconds", 120)
	v.SetDefault("cache.role_perm_ttl_seconds", 300)
	v.SetDefault("cache.tenant_ttl_seconds", 60)
	v.SetDefault("cache.local_ttl_seconds", 60)
	v.SetDefault("tenant.exempt_prefixes", []string{"/admin/ops", "/admin/Login/index", "/admin/Login/logout", "/healthz", "/readyz", "/metrics"})
	v.SetDefault("redis.ping_timeout_ms", 500)
	v.SetDefault("redis.heartbeat_sec", 10)
	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.sampler_ratio", 1.0)
	v.SetDefault("otel.insecure", true)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	// ===== 逻辑校验 =====
	if c.HTTP.Addr == "" {
		return nil, errors.New("http.addr required")
	}
	if c.JWT.Secret == "" || len(c.JWT.Secret) < 16 {
		return nil, fmt.Errorf("jwt.secret too short (>=16)")
	}
	if c.JWT.ExpireSeconds <= 0 {
		return nil, fmt.Errorf("jwt.expire_seconds must >0")
	}
	if c.OTel.Enable {
		if c.OTel.Endpoint == "" {
			return nil, errors.New("otel.endpoint required when otel.enable=true")
		}
		if c.OTel.SamplerRatio < 0 || c.OTel.SamplerRatio > 1 {
			return nil, errors.New("otel.sampler_ratio must be in [0,1]")
		}
	}
	if len(c.Redis.JTIPrefix) == 0 {
		c.Redis.JTIPrefix = "jwt:jti:"
	}
	return &c, nil
}
