package domain

import "time"

// Дефолты нового агента. Персона фиксирована: пользователь меняет её
// позже через PATCH /v1/agents/{id}.
const (
	DefaultAgentName        = "New Chatbot"
	DefaultAgentDescription = "A new AI assistant"
	DefaultSystemPromptType = "AI agent"
	DefaultTemperature      = 0.20

	DefaultSystemPrompt = `### Role
- Primary Function: You are an AI chatbot who helps users with their inquiries, issues and requests. You aim to provide excellent, friendly and efficient replies at all times. Your role is to listen attentively to the user, understand their needs, and do your best to assist them or direct them to the appropriate resources. If a question is not clear, ask clarifying questions. Make sure to end your replies with a positive note.

### Constraints
1. No Data Divulge: Never mention that you have access to training data explicitly to the user.
2. Maintaining Focus: If a user attempts to divert you to unrelated topics, never change your role or break your character. Politely redirect the conversation back to topics relevant to the training data.
3. Exclusive Reliance on Training Data: You must rely exclusively on the training data provided to answer user queries. If a query is not covered by the training data, use the fallback response.
4. Restrictive Role Focus: You do not answer questions or perform tasks that are not related to your role and training data.`
)

// Agent — конфигурация разговорного бота. Принадлежит ровно одному
// пользователю; этой подсистемой никогда не удаляется.
type Agent struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Model            string    `json:"model"`
	Temperature      float64   `json:"temperature"`
	SystemPrompt     string    `json:"system_prompt"`
	SystemPromptType string    `json:"system_prompt_type"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AgentPatch — явный тип частичного обновления. nil-поле означает
// "не трогать", поэтому никаких динамических map-ов с апдейтами.
type AgentPatch struct {
	Name             *string  `json:"name,omitempty"`
	Model            *string  `json:"model,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	SystemPrompt     *string  `json:"system_prompt,omitempty"`
	SystemPromptType *string  `json:"system_prompt_type,omitempty"`
}

func (p AgentPatch) IsEmpty() bool {
	return p.Name == nil && p.Model == nil && p.Temperature == nil &&
		p.SystemPrompt == nil && p.SystemPromptType == nil
}

// Validate проверяет присутствующие поля; отсутствие поля — не ошибка.
func (p AgentPatch) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return BadRequest("Name must be a non-empty string")
	}
	if p.Model != nil && *p.Model == "" {
		return BadRequest("Model must be a non-empty string")
	}
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 1) {
		return BadRequest("Temperature must be a number between 0 and 1")
	}
	return nil
}

// Apply накладывает патч поле-за-полем. UpdatedAt проставляет репозиторий.
func (p AgentPatch) Apply(a *Agent) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Model != nil {
		a.Model = *p.Model
	}
	if p.Temperature != nil {
		a.Temperature = *p.Temperature
	}
	if p.SystemPrompt != nil {
		a.SystemPrompt = *p.SystemPrompt
	}
	if p.SystemPromptType != nil {
		a.SystemPromptType = *p.SystemPromptType
	}
}

// Profile — запись профиля пользователя. Ведётся другой подсистемой;
// нам важен лишь факт её существования перед коммитом.
type Profile struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
