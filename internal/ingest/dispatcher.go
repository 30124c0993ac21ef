package ingest

/*
Dispatcher — фоновая доставка ingest-триггеров.

Триггер после загрузки файла — best-effort побочный вызов: его сбой не
должен ронять саму загрузку. Вместо inline-вызова с проглатыванием
ошибки триггеры уходят в очередь; воркер выполняет их с таймаутом,
фиксирует исход (лог + метрики + сигнал в Redis + след жизненного
цикла) и никогда не трогает результат основной операции.

Остановка — по Drain Pattern: канал запирается, воркер дочитывает
очередь до конца.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/infra"
	"github.com/xela07ax/ragbase/internal/lifecycle"
	"go.uber.org/zap"
)

// TriggerJob — одно задание на (пере)ингестию источника.
type TriggerJob struct {
	AgentID  string
	SourceID string
	Token    string // пользовательский bearer; пустой → сервисный
	TraceID  string
}

// IngestTrigger — то, что диспетчеру нужно от клиента ингестии.
type IngestTrigger interface {
	TriggerIngest(ctx context.Context, token, agentID, sourceID string) error
}

type Dispatcher struct {
	ch       chan TriggerJob
	client   IngestTrigger
	rdb      *redis.Client
	recorder *lifecycle.Recorder
	metrics  *infra.Metrics
	logger   *zap.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
	isClosed int32
}

func NewDispatcher(
	client IngestTrigger,
	rdb *redis.Client,
	recorder *lifecycle.Recorder,
	metrics *infra.Metrics,
	logger *zap.Logger,
	buffer int,
	timeout time.Duration,
) *Dispatcher {
	if buffer <= 0 {
		buffer = 1000
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		ch:       make(chan TriggerJob, buffer),
		client:   client,
		rdb:      rdb,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger.Named("trigger-dispatcher"),
		timeout:  timeout,
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.worker()
}

// Stop запирает вход и дожидается, пока воркер доставит всё из очереди.
func (d *Dispatcher) Stop() {
	atomic.StoreInt32(&d.isClosed, 1)
	time.Sleep(10 * time.Millisecond)

	d.logger.Info("stopping dispatcher: draining queue...")
	close(d.ch)
	d.wg.Wait()
	d.logger.Info("dispatcher stopped gracefully")
}

// Enqueue ставит триггер в очередь. Никогда не блокируется: при
// переполнении задание сбрасывается с фиксацией в логе и метриках.
func (d *Dispatcher) Enqueue(job TriggerJob) {
	if atomic.LoadInt32(&d.isClosed) == 1 {
		d.logger.Warn("trigger dropped: dispatcher is stopping", zap.String("source_id", job.SourceID))
		return
	}

	select {
	case d.ch <- job:
		if d.metrics != nil {
			d.metrics.TriggerQueueFill.Set(float64(len(d.ch)))
		}
	default:
		d.logger.Error("trigger_queue_overflow",
			zap.String("agent_id", job.AgentID),
			zap.String("source_id", job.SourceID),
		)
		if d.metrics != nil {
			d.metrics.TriggerResults.WithLabelValues("dropped").Inc()
		}
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for job := range d.ch {
		d.deliver(job)
		if d.metrics != nil {
			d.metrics.TriggerQueueFill.Set(float64(len(d.ch)))
		}
	}
	d.logger.Info("dispatcher worker finished")
}

func (d *Dispatcher) deliver(job TriggerJob) {
	// Background: запрос, породивший задание, уже завершён
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	started := time.Now()
	err := d.client.TriggerIngest(ctx, job.Token, job.AgentID, job.SourceID)
	elapsed := time.Since(started)

	outcome := lifecycle.OutcomeOK
	detail := ""
	if err != nil {
		outcome = lifecycle.OutcomeFailed
		detail = err.Error()
		d.logger.Error("ingest trigger failed",
			zap.String("agent_id", job.AgentID),
			zap.String("source_id", job.SourceID),
			zap.Error(err))
	} else {
		d.logger.Info("ingest trigger delivered",
			zap.String("source_id", job.SourceID),
			zap.Duration("took", elapsed))
	}

	if d.metrics != nil {
		label := "ok"
		if err != nil {
			label = "failed"
		}
		d.metrics.TriggerResults.WithLabelValues(label).Inc()
	}

	if d.recorder != nil {
		d.recorder.Record(lifecycle.Event{
			TraceID:    job.TraceID,
			AgentID:    job.AgentID,
			SourceID:   job.SourceID,
			Action:     lifecycle.ActionIngestTrigger,
			Outcome:    outcome,
			Detail:     detail,
			DurationMs: elapsed.Milliseconds(),
		})
	}

	// Сигнал наблюдателям (draft-store и пр.). Недоставка не критична.
	if d.rdb != nil {
		status := string(domain.StatusProcessing)
		if err != nil {
			status = string(domain.StatusFailed)
		}
		payload := infra.SourceStatusPayload(job.SourceID, status)
		if perr := d.rdb.Publish(ctx, infra.RedisChanSourceStatus, payload).Err(); perr != nil {
			d.logger.Warn("source status signal failed", zap.Error(perr))
		}
	}
}
