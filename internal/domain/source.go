package domain

import "time"

type SourceType string

const (
	SourceTypeFile    SourceType = "file"
	SourceTypeText    SourceType = "text"
	SourceTypeWebsite SourceType = "website"
	SourceTypeQA      SourceType = "qa"
)

// SourceStatus — явная машина состояний вместо произвольных строк.
type SourceStatus string

const (
	StatusUploadPending SourceStatus = "upload_pending" // строка создана, байты ещё не загружены
	StatusProcessing    SourceStatus = "processing"     // байты в хранилище, идёт ингестия
	StatusActive        SourceStatus = "active"         // чанки готовы к ретриву
	StatusFailed        SourceStatus = "failed"         // ингестия не удалась
	StatusDisabled      SourceStatus = "disabled"       // выключен оператором
)

// Таблица допустимых переходов. Файл: upload_pending → processing →
// {active, failed}. Текстовые источники создаются синхронно и попадают
// сразу в active/failed, минуя upload_pending.
var sourceTransitions = map[SourceStatus][]SourceStatus{
	StatusUploadPending: {StatusProcessing, StatusFailed},
	StatusProcessing:    {StatusActive, StatusFailed},
	StatusActive:        {StatusDisabled},
	StatusFailed:        {},
	StatusDisabled:      {StatusActive},
}

// CanTransition сообщает, разрешён ли переход. Запись, нарушающая
// таблицу, должна быть отвергнута или проигнорирована.
func CanTransition(from, to SourceStatus) bool {
	for _, next := range sourceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s SourceStatus) Valid() bool {
	switch s {
	case StatusUploadPending, StatusProcessing, StatusActive, StatusFailed, StatusDisabled:
		return true
	}
	return false
}

// Terminal — статус, после которого подсистема источник не трогает
// (кроме удаления).
func (s SourceStatus) Terminal() bool {
	return s == StatusActive || s == StatusFailed || s == StatusDisabled
}

// KnowledgeSource — единица обучающего материала, привязанная к агенту.
// Строки создаёт сервис ингестии (init/text), подтверждает Upload Relay,
// финальный статус проставляет асинхронный колбэк ингестии.
type KnowledgeSource struct {
	ID             string       `json:"id"`
	AgentID        string       `json:"agent_id"`
	Type           SourceType   `json:"type"`
	Name           string       `json:"name"`
	Content        string       `json:"content,omitempty"`
	FileURL        string       `json:"file_url,omitempty"`
	FileName       string       `json:"file_name,omitempty"`
	FileSize       int64        `json:"file_size,omitempty"`
	CharacterCount int          `json:"character_count,omitempty"`
	Status         SourceStatus `json:"status"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
