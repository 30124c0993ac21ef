package draft

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/infra"
	"go.uber.org/zap"
)

// ListenStatusResilient — "живучая" подписка на сигналы смены статуса
// источников. Обрабатывает переподключения и разбор сигналов; при
// каждом успешном коннекте вызывает onResync, чтобы догнать сигналы,
// потерянные за время разрыва.
func ListenStatusResilient(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	onResync func() error, // Полная синхронизация при (пере)подключении
	onStatus func(sourceID, status string), // Обработка одного сигнала
) {
	for {
		pubsub := rdb.Subscribe(ctx, infra.RedisChanSourceStatus)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			logger.Error("failed to subscribe",
				zap.String("chan", infra.RedisChanSourceStatus), zap.Error(err))
			pubsub.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		if err := onResync(); err != nil {
			logger.Error("resync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				// Разбор формата "source_id:status"
				sourceID, status, found := strings.Cut(msg.Payload, ":")
				if !found || sourceID == "" {
					logger.Error("invalid signal format", zap.String("payload", msg.Payload))
					continue
				}

				onStatus(sourceID, status)
			}
		}

		pubsub.Close()
		time.Sleep(time.Second)
	}
}

// Listen привязывает черновик к каналу сигналов: полный Reload при
// каждом (пере)подключении, точечное обновление статуса на каждый
// сигнал. Блокирует до отмены ctx; запускается рядом со Store.
func (s *Store) Listen(ctx context.Context, rdb *redis.Client) {
	ListenStatusResilient(ctx, rdb, s.logger,
		func() error {
			s.mu.Lock()
			agentID := s.agentID
			s.mu.Unlock()
			return s.Reload(ctx, agentID)
		},
		s.applyStatusSignal,
	)
}

// applyStatusSignal обновляет статус файлового элемента по сигналу
// "source_id:status". Сигналы про чужие источники игнорируются.
func (s *Store) applyStatusSignal(sourceID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.SourceID == sourceID {
			f.Status = domain.SourceStatus(status)
			s.persist()
			return
		}
	}
}
