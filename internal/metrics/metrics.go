package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency distribution",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"})
	RequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "method", "status"})
	Inflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "In-flight HTTP requests",
	})
	DBUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_up",
		Help: "Database connectivity (1=up,0=down)",
	})
	RedisUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redis_up",
		Help: "Redis connectivity (1=up,0=down)",
	})
	KafkaUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kafka_up",
		Help: "Kafka connectivity (1=up,0=down)",
	})
	EtcdUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "etcd_up",
		Help: "Etcd connectivity (1=up,0=down)",
	})
	DependencyCheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dependency_check_duration_seconds",
		Help:    "Latency of dependency health checks",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.4, 0.8, 1},
	}, []string{"dep"})

	// ===== 租户缓存失效 =====
	TenantCacheInvalidateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_cache_invalidate_total",
		Help: "Cache invalidations by scope (tenant/user/role)",
	}, []string{"scope"})
	TenantCacheInvalidateErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tenant_cache_invalidate_errors_total",
		Help: "Failed cache invalidations (mutation still committed)",
	})

	// ===== 菜单树 / 角色权限解析 =====
	MenuTreeBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "menu_tree_build_seconds",
		Help:    "Latency of user menu tree builds (cache miss path)",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})
	RolePermResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "role_permission_resolve_total",
		Help: "Role permission set resolutions by source",
	}, []string{"source"}) // cache | db

	// ===== 租户解析 =====
	TenantResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenant_resolve_total",
		Help: "Tenant resolutions by signal source",
	}, []string{"source"}) // header | principal | domain | exempt | none

	CacheNilHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_nil_sentinel_hit_total",
		Help: "Cache hits that returned the empty-result sentinel",
	})

	// ===== 审计消息 =====
	AuditEnqueue = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_enqueue_total",
		Help: "Audit messages enqueued to kafka sender",
	}, []string{"result"}) // ok | dropped
	AuditSendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_send_errors_total",
		Help: "Audit messages that failed to write to kafka",
	})
	AuditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audit_queue_depth",
		Help: "Pending audit messages in the async sender queue",
	})
	AuditBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_batch_size",
		Help:    "Audit kafka batch sizes",
		Buckets: []float64{1, 5, 10, 25, 50, 100},
	})
)
