package infra

import "fmt"

const (
	// RedisNamespace — базовый префикс для изоляции данных проекта в Redis.
	RedisNamespace = "ragbase"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanSourceStatus — сигналы смены статуса источников знаний.
	// Формат payload: "source_id:status". Публикует диспетчер триггеров и
	// колбэк сервиса ингестии; слушает draft-store для обновления без поллинга.
	RedisChanSourceStatus = RedisNamespace + ":sources:status-signal"
)

// SourceStatusPayload собирает payload сигнала в каноническом формате.
func SourceStatusPayload(sourceID, status string) string {
	return fmt.Sprintf("%s:%s", sourceID, status)
}
