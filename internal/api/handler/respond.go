package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xela07ax/ragbase/internal/domain"
	"go.uber.org/zap"
)

// respondJSON сериализует payload; ошибки энкодинга после записи
// заголовка чинить уже поздно — только логируем.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondError переводит доменную ошибку в HTTP-контракт
// {"error": "..."}. Внутренние детали наружу не уходят.
func respondError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := domain.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	}
	respondJSON(w, status, map[string]string{"error": domain.UserMessage(err)}, logger)
}
