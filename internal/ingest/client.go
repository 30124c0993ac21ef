package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/infra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client — HTTP-клиент сервиса ингестии/запросов. Все вызовы идут через
// общую цепочку надёжности: Rate Limiter → Circuit Breaker → Retry.
type Client struct {
	baseURL      string
	serviceToken string
	httpc        *http.Client
	limiter      *rate.Limiter
	cb           *gobreaker.CircuitBreaker
	attempts     uint
	logger       *zap.Logger
}

func NewClient(cfg infra.IngestConfig, metrics *infra.Metrics, logger *zap.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ingest-service",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("ingest circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if metrics != nil {
				if to == gobreaker.StateOpen {
					metrics.UpstreamBreakerState.Set(1)
				} else {
					metrics.UpstreamBreakerState.Set(0)
				}
			}
		},
	})

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		serviceToken: cfg.ServiceToken,
		httpc:        &http.Client{Timeout: cfg.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		cb:           cb,
		attempts:     attempts,
		logger:       logger.Named("ingest-client"),
	}
}

// bearer: предпочитаем пользовательский токен; если его нет — сервисный.
func (c *Client) bearer(userToken string) string {
	if userToken != "" {
		return userToken
	}
	return c.serviceToken
}

// do выполняет один логический вызов со всей цепочкой надёжности.
func (c *Client) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("ingest: base URL is not configured")
	}

	// 1. Rate Limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ingest: failed to encode request: %w", err)
		}
	}

	// 2. Circuit Breaker поверх ретраев
	_, err := c.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(c.attempts),
			retry.LastErrorOnly(true),
			retry.RetryIf(retryable),
			// Умный расчёт задержки: Retry-After от апстрима важнее бэкоффа
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				var tErr *ThrottleError
				if errors.As(err, &tErr) && tErr.RetryAfter > 0 {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		return nil, r.Do(func() error {
			return c.doOnce(ctx, token, method, path, payload, out)
		})
	})
	return err
}

// retryable: сетевые сбои, 5xx и троттлинг — да; остальные 4xx — нет.
func retryable(err error) bool {
	var tErr *ThrottleError
	if errors.As(err, &tErr) {
		return true
	}
	var uerr *domain.UpstreamError
	if errors.As(err, &uerr) {
		return uerr.Status >= 500
	}
	return true
}

func (c *Client) doOnce(ctx context.Context, token, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("ingest: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b := c.bearer(token); b != "" {
		req.Header.Set("Authorization", "Bearer "+b)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("ingest: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("ingest: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		uerr := &domain.UpstreamError{
			Status:  resp.StatusCode,
			Message: extractMessage(data, resp.StatusCode),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &ThrottleError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")), Cause: uerr}
		}
		return uerr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("ingest: failed to decode response: %w", err)
		}
	}
	return nil
}

// extractMessage достаёт текст ошибки из payload апстрима:
// detail → error → generic.
func extractMessage(data []byte, status int) string {
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// ===== Операции сервиса ингестии =====

type TextSourceResult struct {
	SourceID   string `json:"source_id"`
	Characters int    `json:"characters"`
}

// CreateTextSource создаёт текстовый источник и синхронно его ингестит.
func (c *Client) CreateTextSource(ctx context.Context, token, agentID, title, content string) (*TextSourceResult, error) {
	body := map[string]string{"title": title, "content": content}
	var res TextSourceResult
	if err := c.do(ctx, token, http.MethodPost, "/chats/"+agentID+"/sources:text", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// InitFileSource резервирует источник под файл (status=upload_pending).
func (c *Client) InitFileSource(ctx context.Context, token, agentID, name string) (string, error) {
	body := map[string]string{"name": name}
	var res struct {
		SourceID string `json:"source_id"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/chats/"+agentID+"/sources/init", body, &res); err != nil {
		return "", err
	}
	return res.SourceID, nil
}

type confirmPayload struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize *int64 `json:"file_size"`
}

// ConfirmFileSource фиксирует метаданные файла и запускает фоновую ингестию.
func (c *Client) ConfirmFileSource(ctx context.Context, token, agentID, sourceID, fileURL, fileName string, size int64) error {
	body := confirmPayload{FileURL: fileURL, FileName: fileName}
	if size > 0 {
		body.FileSize = &size
	}
	return c.do(ctx, token, http.MethodPatch, "/chats/"+agentID+"/sources/"+sourceID, body, nil)
}

// TriggerIngest запускает (пере)ингестию уже существующего источника.
func (c *Client) TriggerIngest(ctx context.Context, token, agentID, sourceID string) error {
	return c.do(ctx, token, http.MethodPost, "/chats/"+agentID+"/sources/"+sourceID+"/ingest", map[string]string{}, nil)
}

// QueryPayload — тело RAG-запроса. Опциональные поля с omitempty:
// отсутствие поля и null для апстрима не одно и то же.
type QueryPayload struct {
	Messages         []domain.ChatMessage `json:"messages"`
	TopK             int                  `json:"top_k"`
	Model            string               `json:"model,omitempty"`
	Temperature      *float64             `json:"temperature,omitempty"`
	MaxTokens        *int                 `json:"max_tokens,omitempty"`
	SystemPrompt     string               `json:"system_prompt,omitempty"`
	SystemPromptMode string               `json:"system_prompt_mode"`
}

// Query выполняет RAG-запрос от имени пользователя.
func (c *Client) Query(ctx context.Context, token, agentID string, payload QueryPayload) (*domain.QueryResponse, error) {
	var res domain.QueryResponse
	if err := c.do(ctx, token, http.MethodPost, "/rag/chats/"+agentID+"/query", payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
