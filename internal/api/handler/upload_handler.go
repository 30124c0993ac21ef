package handler

import (
	"io"
	"net/http"

	"github.com/xela07ax/ragbase/internal/api/service"
	"github.com/xela07ax/ragbase/internal/domain"
	"github.com/xela07ax/ragbase/internal/infra/auth"
	"go.uber.org/zap"
)

// Лимит multipart-формы в памяти; остальное уходит во временные файлы.
const maxUploadMemory = 32 << 20

type UploadHandler struct {
	upload *service.UploadService
	logger *zap.Logger
}

func NewUploadHandler(upload *service.UploadService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{upload: upload, logger: logger.Named("upload-handler")}
}

// Upload принимает байты файла для ранее инициализированного источника.
// POST /v1/uploads, multipart: file, agentId, sourceId
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, domain.BadRequest("Invalid multipart form"), h.logger)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, domain.BadRequest("file is required"), h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, domain.Internal("failed to read file", err), h.logger)
		return
	}

	ctx := r.Context()
	result, err := h.upload.Upload(ctx,
		auth.UserID(ctx),
		auth.BearerToken(ctx),
		r.FormValue("agentId"),
		r.FormValue("sourceId"),
		header.Filename,
		header.Header.Get("Content-Type"),
		data,
	)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, result, h.logger)
}
