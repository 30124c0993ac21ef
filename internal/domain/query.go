package domain

const DefaultTopK = 8

// Режимы применения пользовательского system prompt на стороне RAG-сервиса.
const (
	PromptModeMerge    = "merge"
	PromptModeReplace  = "replace"
	PromptModeCoreOnly = "core_only"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryRequest — вход Query Proxy. Опциональные числовые поля —
// указатели: отсутствие поля и ноль различаются при проксировании.
type QueryRequest struct {
	Messages         []ChatMessage `json:"messages"`
	TopK             int           `json:"top_k,omitempty"`
	Model            string        `json:"model,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	SystemPrompt     string        `json:"system_prompt,omitempty"`
	SystemPromptMode string        `json:"system_prompt_mode,omitempty"`
}

// Validate проверяет запрос до любого сетевого вызова.
func (r QueryRequest) Validate() error {
	if len(r.Messages) == 0 {
		return BadRequest("Messages are required")
	}
	if r.Messages[len(r.Messages)-1].Role != "user" {
		return BadRequest("Last message must be from user")
	}
	return nil
}

// RetrievedSource — один найденный фрагмент в ответе RAG-сервиса.
// Content заполняет прокси: preview > plain_preview > html > "".
type RetrievedSource struct {
	ChunkID      string         `json:"chunk_id"`
	Kind         string         `json:"kind"`
	Page         *int           `json:"page,omitempty"`
	Score        float64        `json:"score"`
	Preview      string         `json:"preview,omitempty"`
	HTML         string         `json:"html,omitempty"`
	PlainPreview string         `json:"plain_preview,omitempty"`
	ImageUID     string         `json:"image_uid,omitempty"`
	OrderIndex   *int           `json:"order_index,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Content      string         `json:"content"`
}

// DisplayContent — правило нормализации для отображения,
// не влияющее на ранжирование.
func (s RetrievedSource) DisplayContent() string {
	switch {
	case s.Preview != "":
		return s.Preview
	case s.PlainPreview != "":
		return s.PlainPreview
	case s.HTML != "":
		return s.HTML
	}
	return ""
}

type QueryResponse struct {
	Answer              string            `json:"answer"`
	Sources             []RetrievedSource `json:"sources"`
	UsedTopK            int               `json:"used_top_k"`
	ModelUsed           string            `json:"model_used"`
	ImgMixK             *int              `json:"img_mix_k,omitempty"`
	TemperatureUsed     *float64          `json:"temperature_used,omitempty"`
	MaxTokensUsed       *int              `json:"max_tokens_used,omitempty"`
	PromptModeUsed      string            `json:"prompt_mode_used,omitempty"`
	SystemMessagesCount *int              `json:"system_messages_count,omitempty"`
}
