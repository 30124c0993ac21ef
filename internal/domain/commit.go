package domain

// FileDescriptor описывает файл, заявленный клиентом на коммит.
// FileURL заполнен, если байты уже загружены вне основного протокола.
type FileDescriptor struct {
	Name    string `json:"name"`
	Size    int64  `json:"size,omitempty"`
	FileURL string `json:"file_url,omitempty"`
}

type TextDescriptor struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CommitRequest — вход оркестратора. Пустой AgentID означает режим
// создания; заполненный — режим переобучения (retrain).
// File оставлен для совместимости со старыми клиентами и сливается
// в общий список после Files.
type CommitRequest struct {
	AgentID     string           `json:"agentId,omitempty"`
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	File        *FileDescriptor  `json:"file,omitempty"`
	Files       []FileDescriptor `json:"files,omitempty"`
	Texts       []TextDescriptor `json:"texts,omitempty"`
}

// AllFiles сливает одиночное поле file в массив files.
func (r CommitRequest) AllFiles() []FileDescriptor {
	all := make([]FileDescriptor, 0, len(r.Files)+1)
	all = append(all, r.Files...)
	if r.File != nil && r.File.Name != "" {
		all = append(all, *r.File)
	}
	return all
}

type TextResult struct {
	SourceID   string `json:"source_id"`
	OK         bool   `json:"ok"`
	Characters int    `json:"characters,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FileResultStatus — исход обработки одного файлового элемента батча.
type FileResultStatus string

const (
	FileUploadPending FileResultStatus = "upload_pending" // клиент должен вызвать Upload Relay
	FileProcessing    FileResultStatus = "processing"     // подтверждён, ингестия запущена
	FileFailed        FileResultStatus = "failed"
	FileExisting      FileResultStatus = "existing" // переобучение существующего источника
)

type FileResult struct {
	Name     string           `json:"name"`
	SourceID string           `json:"source_id,omitempty"`
	Status   FileResultStatus `json:"status"`
	Error    string           `json:"error,omitempty"`
}

// CommitResult: по одному результату на каждый элемент входа.
// Частичные сбои не откатывают ничего — это batch с пер-элементным
// отчётом, а не транзакция.
type CommitResult struct {
	Agent *Agent       `json:"agent"`
	Files []FileResult `json:"files"`
	Texts []TextResult `json:"texts"`
	Note  string       `json:"note,omitempty"`
}
