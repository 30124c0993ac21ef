package lifecycle

/*
Recorder — неблокирующий сборщик следа жизненного цикла источников.

- Non-blocking: события уходят в буферизованный канал; запись в БД
  не влияет на Response Time обработчиков.
- Batching: накопление в памяти и пакетная вставка (Bulk Insert)
  по таймеру или при достижении лимита.
- Drain Pattern: при остановке канал запирается и воркер дочитывает
  остатки до финального flush — события при перезапуске не теряются.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически сохраняются события.
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз.
	WriteBatch(ctx context.Context, events []Event) error
}

const (
	bufferSize    = 10000
	batchSize     = 100
	flushInterval = 500 * time.Millisecond
)

type Recorder struct {
	ch       chan Event
	repo     StorageInterface
	logger   *zap.Logger
	wg       sync.WaitGroup
	isClosed int32 // Атомарный флаг (0 - открыт, 1 - закрыт)
}

func NewRecorder(repo StorageInterface, logger *zap.Logger) *Recorder {
	return &Recorder{
		ch:     make(chan Event, bufferSize),
		repo:   repo,
		logger: logger.With(zap.String("mod", "lifecycle")),
	}
}

func (rec *Recorder) Start() {
	rec.wg.Add(1)
	go rec.worker()
}

// Stop запирает вход в канал и ждет, пока воркер всё допишет.
func (rec *Recorder) Stop() {
	atomic.StoreInt32(&rec.isClosed, 1)

	// Крошечная пауза, чтобы текущие Record успели проскочить
	time.Sleep(10 * time.Millisecond)

	rec.logger.Info("stopping recorder: closing channel and flushing buffer...")
	close(rec.ch)
	rec.wg.Wait()
	rec.logger.Info("recorder stopped gracefully")
}

// Record ставит событие в очередь. При переполнении буфера событие
// сбрасывается в обычный лог (Load Shedding), но вызов не блокируется.
func (rec *Recorder) Record(event Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if atomic.LoadInt32(&rec.isClosed) == 1 {
		rec.logger.Warn("lifecycle event dropped: recorder is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case rec.ch <- event:
	default:
		rec.logger.Error("lifecycle_buffer_overflow",
			zap.String("agent_id", event.AgentID),
			zap.String("source_id", event.SourceID),
			zap.String("action", event.Action),
		)
	}
}

func (rec *Recorder) worker() {
	defer rec.wg.Done()

	batch := make([]Event, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст к этому моменту может быть закрыт
			if err := rec.repo.WriteBatch(context.Background(), batch); err != nil {
				rec.logger.Error("lifecycle flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case event, ok := <-rec.ch:
			if !ok {
				// Канал закрыт в Stop(): дочитали остатки, финальный flush.
				flush()
				rec.logger.Info("lifecycle worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
