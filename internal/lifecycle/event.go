package lifecycle

import "time"

// Действия жизненного цикла источников знаний.
const (
	ActionTextCreate    = "text_create"
	ActionFileInit      = "file_init"
	ActionFileConfirm   = "file_confirm"
	ActionUpload        = "upload"
	ActionIngestTrigger = "ingest_trigger"
	ActionReingest      = "reingest"
	ActionCleanup       = "cleanup"
	ActionDelete        = "delete"
)

// Исходы.
const (
	OutcomeOK     = "SUCCESS"
	OutcomeFailed = "FAILED"
)

// Event — одна запись следа жизненного цикла источника. Пишется
// асинхронно пачками, чтобы задержки базы не влияли на Hot Path.
type Event struct {
	ID         string    `json:"id"`       // UUID события
	TraceID    string    `json:"trace_id"` // Сквозной ID запроса
	AgentID    string    `json:"agent_id"`
	SourceID   string    `json:"source_id"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail"` // текст ошибки либо пусто
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
