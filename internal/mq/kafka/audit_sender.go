package kafka

import (
	"context"
	"sync"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-tenantadmin/internal/metrics"
)

// AuditSender 有界异步审计发送：租户/角色/菜单变更事件入队即返回，
// worker 聚合成批写 Kafka。队列满直接丢弃（审计不阻塞业务写路径），
// 丢弃与发送失败都有指标可见。
// 批量触发：达到 maxBatch 或首条消息等待超过 maxWait。

type AsyncMessage struct {
	Ctx       context.Context
	Key       []byte
	Value     []byte
	EnqueueAt time.Time
}

type AuditSender struct {
	producer *Producer
	logger   *zap.Logger
	queue    chan AsyncMessage
	workers  int
	wg       sync.WaitGroup
	stopCh   chan struct{}

	maxBatch int
	maxWait  time.Duration
}

func NewAuditSender(p *Producer, logger *zap.Logger, queueSize, workers, maxBatch int, maxWait time.Duration) *AuditSender {
	if queueSize <= 0 {
		queueSize = 4096
	}
	if workers <= 0 {
		workers = 1
	}
	if maxBatch <= 0 {
		maxBatch = 50
	}
	if maxWait <= 0 {
		maxWait = 50 * time.Millisecond
	}
	return &AuditSender{
		producer: p,
		logger:   logger,
		queue:    make(chan AsyncMessage, queueSize),
		workers:  workers,
		stopCh:   make(chan struct{}),
		maxBatch: maxBatch,
		maxWait:  maxWait,
	}
}

func (s *AuditSender) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.run()
	}
}

func (s *AuditSender) run() {
	defer s.wg.Done()
	batch := make([]AsyncMessage, 0, s.maxBatch)
	var timer *time.Timer
	var timerCh <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timerCh = nil
		}
	}

	flush := func() {
		if len(batch) == 0 {
			return
		}
		msgs := make([]kafkaGo.Message, 0, len(batch))
		for _, m := range batch {
			hs := s.producer.injectHeaders(m.Ctx, nil)
			msgs = append(msgs, kafkaGo.Message{Key: m.Key, Value: m.Value, Time: time.Now(), Headers: hs})
		}
		writeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := s.producer.Writer.WriteMessages(writeCtx, msgs...)
		cancel()
		if err != nil {
			metrics.AuditSendErrors.Add(float64(len(batch)))
			s.logger.Warn("audit batch send failed", zap.Int("batch", len(batch)), zap.Error(err))
		}
		metrics.AuditBatchSize.Observe(float64(len(batch)))
		batch = batch[:0]
		stopTimer()
	}

	// drain 停机时把队列存量并入批次发完，不无声丢弃
	drain := func() {
		for {
			select {
			case msg := <-s.queue:
				metrics.AuditQueueDepth.Dec()
				batch = append(batch, msg)
				if len(batch) >= s.maxBatch {
					flush()
				}
			default:
				flush()
				return
			}
		}
	}

	for {
		select {
		case <-s.stopCh:
			drain()
			return
		case msg := <-s.queue:
			metrics.AuditQueueDepth.Dec()
			batch = append(batch, msg)
			if len(batch) == 1 {
				if timer == nil {
					timer = time.NewTimer(s.maxWait)
				} else {
					stopTimer()
					timer.Reset(s.maxWait)
				}
				timerCh = timer.C
			}
			if len(batch) >= s.maxBatch {
				flush()
			}
		case <-timerCh:
			flush()
		}
	}
}

// Enqueue 非阻塞入队，满则丢弃
func (s *AuditSender) Enqueue(m AsyncMessage) {
	if m.EnqueueAt.IsZero() {
		m.EnqueueAt = time.Now()
	}
	select {
	case s.queue <- m:
		metrics.AuditEnqueue.WithLabelValues("ok").Inc()
		metrics.AuditQueueDepth.Inc()
	default:
		metrics.AuditEnqueue.WithLabelValues("dropped").Inc()
	}
}

// Close 停止 worker 并 flush 存量
func (s *AuditSender) Close(ctx context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	return nil
}
