package http

import (
	"context"
	"sync"
	"time"

	"go-tenantadmin/internal/discovery/etcd"
	"go-tenantadmin/internal/metrics"
	"go-tenantadmin/internal/mq/kafka"
	redisrepo "go-tenantadmin/internal/repository/redis"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// HealthChecker liveness / readiness 聚合检查，readiness 结果短缓存防抖
type HealthChecker struct {
	db       *gorm.DB
	redis    *redisrepo.Client
	producer *kafka.Producer
	etcdCli  *etcd.Client

	cacheMu     sync.Mutex
	cacheResult map[string]interface{}
	cacheExpiry time.Time
	cacheTTL    time.Duration
}

func NewHealthChecker(db *gorm.DB, r *redisrepo.Client, p *kafka.Producer, e *etcd.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: r, producer: p, etcdCli: e, cacheTTL: 2 * time.Second}
}

// Liveness 进程存活，不看外部依赖
func (h *HealthChecker) Liveness() map[string]interface{} {
	return map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}
}

// InvalidateCache 供 ?refresh=1 强制重新探测
func (h *HealthChecker) InvalidateCache() {
	h.cacheMu.Lock()
	h.cacheExpiry = time.Time{}
	h.cacheMu.Unlock()
}

type depCheck struct {
	name    string
	gauge   prometheus.Gauge
	timeout time.Duration
	probe   func(ctx context.Context) error
}

func (h *HealthChecker) checks() []depCheck {
	return []depCheck{
		{"db", metrics.DBUp, 300 * time.Millisecond, func(ctx context.Context) error {
			if h.db == nil {
				return errNil
			}
			sqlDB, err := h.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{"redis", metrics.RedisUp, 250 * time.Millisecond, func(ctx context.Context) error {
			if h.redis == nil {
				return errNil
			}
			return h.redis.Ping(ctx)
		}},
		{"kafka", metrics.KafkaUp, 250 * time.Millisecond, func(ctx context.Context) error {
			if h.producer == nil {
				return errNil
			}
			return h.producer.WriteMessages(ctx)
		}},
		{"etcd", metrics.EtcdUp, 250 * time.Millisecond, func(ctx context.Context) error {
			if h.etcdCli == nil {
				return errNil
			}
			_, err := h.etcdCli.Get(ctx, "health")
			return err
		}},
	}
}

var errNil = nilDepError{}

type nilDepError struct{}

func (nilDepError) Error() string { return "nil" }

// Readiness 并发探测全部依赖；任一 down 返回 degraded / 503
func (h *HealthChecker) Readiness(ctx context.Context) (map[string]interface{}, int) {
	h.cacheMu.Lock()
	if time.Now().Before(h.cacheExpiry) && h.cacheResult != nil {
		res := h.cacheResult
		h.cacheMu.Unlock()
		return res, statusCode(res)
	}
	h.cacheMu.Unlock()

	res := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
		"detail": []map[string]interface{}{},
	}

	type depResult struct {
		name string
		up   bool
		err  string
		dur  time.Duration
	}
	checks := h.checks()
	results := make(chan depResult, len(checks))
	var wg sync.WaitGroup
	for _, chk := range checks {
		wg.Add(1)
		go func(chk depCheck) {
			defer wg.Done()
			start := time.Now()
			ctx2, cancel := context.WithTimeout(ctx, chk.timeout)
			err := chk.probe(ctx2)
			cancel()
			out := depResult{name: chk.name, up: err == nil, dur: time.Since(start)}
			if err != nil {
				out.err = err.Error()
			}
			metrics.DependencyCheckDuration.WithLabelValues(chk.name).Observe(out.dur.Seconds())
			if out.up {
				chk.gauge.Set(1)
			} else {
				chk.gauge.Set(0)
			}
			results <- out
		}(chk)
	}
	wg.Wait()
	close(results)

	upTotal := 0
	for r := range results {
		if r.up {
			res[r.name] = "up"
			upTotal++
		} else if r.err == "" {
			res[r.name] = "down"
		} else {
			res[r.name] = r.err
		}
		res["detail"] = append(res["detail"].([]map[string]interface{}), map[string]interface{}{
			"dep": r.name, "up": r.up, "error": r.err,
			"duration_ms": float64(r.dur.Microseconds()) / 1000.0,
		})
	}
	if upTotal < len(checks) {
		res["status"] = "degraded"
	}

	h.cacheMu.Lock()
	h.cacheResult = res
	h.cacheExpiry = time.Now().Add(h.cacheTTL)
	h.cacheMu.Unlock()

	return res, statusCode(res)
}

func statusCode(res map[string]interface{}) int {
	if res["status"] != "ok" {
		return 503
	}
	return 200
}
