package draft

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/xela07ax/ragbase/internal/domain"
	"go.uber.org/zap"
)

// SourceLister отдаёт персистентные источники агента для Reload.
type SourceLister interface {
	List(ctx context.Context, ownerID, agentID string) ([]*domain.KnowledgeSource, error)
}

// StagedFile — файл, подготовленный к коммиту, но ещё не закоммиченный.
// Payload не сериализуется: зеркало хранит только метаданные.
type StagedFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	FileURL  string `json:"file_url,omitempty"` // заполнен, если байты загружены заранее
	Selected bool   `json:"selected"`
	Payload  []byte `json:"-"`

	// Заполняется из персистентного источника при Reload
	SourceID string              `json:"source_id,omitempty"`
	Status   domain.SourceStatus `json:"status,omitempty"`
}

type TextSnippet struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Selected bool   `json:"selected"`
}

type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Summary — витринная проекция черновика: счётчики и размеры по
// типам. Только для отображения, решения по коммиту на ней не строят.
type Summary struct {
	Files      int   `json:"files"`
	FilesBytes int64 `json:"files_bytes"`
	Texts      int   `json:"texts"`
	TextsChars int   `json:"texts_chars"`
	HasWebsite bool  `json:"has_website"`
	HasNotion  bool  `json:"has_notion"`
	QAPairs    int   `json:"qa_pairs"`
}

// Store — черновик источников одного агента. Создаётся при входе в
// карточку агента и умирает при выходе; никакого глобального
// состояния. Все операции локальные и синхронные, единственный
// побочный эффект — best-effort снапшот в зеркало.
type Store struct {
	mu sync.Mutex

	ownerID string
	agentID string

	files   []*StagedFile
	texts   []*TextSnippet
	website string
	notion  string
	qaPairs []QAPair

	lister SourceLister
	mirror Mirror
	logger *zap.Logger
}

func NewStore(ownerID, agentID string, lister SourceLister, mirror Mirror, logger *zap.Logger) *Store {
	return &Store{
		ownerID: ownerID,
		agentID: agentID,
		lister:  lister,
		mirror:  mirror,
		logger:  logger.Named("draft-store"),
	}
}

// AddFile ставит файл в черновик; новые элементы выбраны по умолчанию.
func (s *Store) AddFile(name string, size int64, payload []byte) *StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &StagedFile{
		ID:       uuid.New().String(),
		Name:     name,
		Size:     size,
		Payload:  payload,
		Selected: true,
	}
	s.files = append(s.files, f)
	s.persist()
	return f
}

func (s *Store) RemoveFile(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.ID == id {
			s.files = append(s.files[:i], s.files[i+1:]...)
			s.persist()
			return true
		}
	}
	return false
}

func (s *Store) ToggleSelect(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f.ID == id {
			f.Selected = !f.Selected
			s.persist()
			return true
		}
	}
	return false
}

func (s *Store) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		f.Selected = true
	}
	s.persist()
}

func (s *Store) DeselectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		f.Selected = false
	}
	s.persist()
}

// RemoveSelected убирает выбранные файлы и возвращает их количество.
func (s *Store) RemoveSelected() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.files[:0]
	removed := 0
	for _, f := range s.files {
		if f.Selected {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	s.files = kept
	if removed > 0 {
		s.persist()
	}
	return removed
}

func (s *Store) AddTextSnippet(title, content string) *TextSnippet {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &TextSnippet{
		ID:       uuid.New().String(),
		Title:    title,
		Content:  content,
		Selected: true,
	}
	s.texts = append(s.texts, t)
	s.persist()
	return t
}

func (s *Store) RemoveTextSnippet(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.texts {
		if t.ID == id {
			s.texts = append(s.texts[:i], s.texts[i+1:]...)
			s.persist()
			return true
		}
	}
	return false
}

func (s *Store) ToggleTextSelect(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.texts {
		if t.ID == id {
			t.Selected = !t.Selected
			s.persist()
			return true
		}
	}
	return false
}

func (s *Store) SelectAllTexts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.texts {
		t.Selected = true
	}
	s.persist()
}

func (s *Store) DeselectAllTexts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.texts {
		t.Selected = false
	}
	s.persist()
}

// RemoveSelectedTexts убирает выбранные сниппеты и возвращает их
// количество.
func (s *Store) RemoveSelectedTexts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.texts[:0]
	removed := 0
	for _, t := range s.texts {
		if t.Selected {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.texts = kept
	if removed > 0 {
		s.persist()
	}
	return removed
}

// SetWebsite — singleton: повторный вызов замещает предыдущий URL.
func (s *Store) SetWebsite(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.website = url
	s.persist()
}

func (s *Store) SetNotion(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notion = url
	s.persist()
}

func (s *Store) SetQAPairs(pairs []QAPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qaPairs = append([]QAPair(nil), pairs...)
	s.persist()
}

// Reload синхронизирует черновик с персистентными источниками после
// смены агента или сигнала об изменении статуса. Локальные элементы,
// не связанные со строками базы (Payload, staged-тексты), сохраняются;
// файловые элементы пересобираются из базы.
func (s *Store) Reload(ctx context.Context, agentID string) error {
	sources, err := s.lister.List(ctx, s.ownerID, agentID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agentID != agentID {
		// Смена агента: несвязанное локальное состояние сбрасывается
		s.agentID = agentID
		s.files = nil
		s.texts = nil
		s.website = ""
		s.notion = ""
		s.qaPairs = nil
	}

	// Несохранённые локальные файлы (без SourceID) переживают Reload
	local := s.files[:0]
	for _, f := range s.files {
		if f.SourceID == "" {
			local = append(local, f)
		}
	}
	s.files = local

	for _, src := range sources {
		if src.Type != domain.SourceTypeFile {
			continue
		}
		name := src.FileName
		if name == "" {
			name = src.Name
		}
		s.files = append(s.files, &StagedFile{
			ID:       src.ID,
			Name:     name,
			Size:     src.FileSize,
			FileURL:  src.FileURL,
			Selected: true,
			SourceID: src.ID,
			Status:   src.Status,
		})
	}

	s.persist()
	return nil
}

// GetValidSources отдаёт выбранные элементы, пригодные к (ре)коммиту:
// файлы со статусом failed отфильтровываются.
func (s *Store) GetValidSources() ([]*StagedFile, []*TextSnippet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]*StagedFile, 0, len(s.files))
	for _, f := range s.files {
		if !f.Selected || f.Status == domain.StatusFailed {
			continue
		}
		files = append(files, f)
	}
	texts := make([]*TextSnippet, 0, len(s.texts))
	for _, t := range s.texts {
		if t.Selected {
			texts = append(texts, t)
		}
	}
	return files, texts
}

// SourcesSummary — чистая проекция, состояние не меняет.
func (s *Store) SourcesSummary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		Files:      len(s.files),
		Texts:      len(s.texts),
		HasWebsite: s.website != "",
		HasNotion:  s.notion != "",
		QAPairs:    len(s.qaPairs),
	}
	for _, f := range s.files {
		sum.FilesBytes += f.Size
	}
	for _, t := range s.texts {
		sum.TextsChars += len([]rune(t.Content))
	}
	return sum
}

func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.texts = nil
	s.website = ""
	s.notion = ""
	s.qaPairs = nil
	s.persist()
}

// persist пишет снапшот в зеркало под взятым мьютексом; сбой зеркала
// черновик не трогает.
func (s *Store) persist() {
	if s.mirror == nil {
		return
	}
	snap := Snapshot{
		OwnerID: s.ownerID,
		AgentID: s.agentID,
		Files:   s.files,
		Texts:   s.texts,
		Website: s.website,
		Notion:  s.notion,
		QAPairs: s.qaPairs,
	}
	if err := s.mirror.Save(snap); err != nil {
		s.logger.Warn("failed to mirror draft snapshot", zap.Error(err))
	}
}
