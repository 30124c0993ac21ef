package draft

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot — сериализуемое состояние черновика. Сырые байты файлов
// в снапшот не попадают (Payload помечен json:"-").
type Snapshot struct {
	OwnerID string         `json:"owner_id"`
	AgentID string         `json:"agent_id"`
	Files   []*StagedFile  `json:"files"`
	Texts   []*TextSnippet `json:"texts"`
	Website string         `json:"website,omitempty"`
	Notion  string         `json:"notion,omitempty"`
	QAPairs []QAPair       `json:"qa_pairs,omitempty"`
}

// Mirror — best-effort персистенция черновика. Сбой записи не должен
// ломать операции над самим черновиком.
type Mirror interface {
	Save(snap Snapshot) error
	Load(ownerID, agentID string) (*Snapshot, error)
}

// FileMirror кладёт снапшоты в JSON-файлы на диск, по файлу на пару
// владелец/агент.
type FileMirror struct {
	dir string
}

func NewFileMirror(dir string) (*FileMirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("draft: failed to create mirror dir: %w", err)
	}
	return &FileMirror{dir: dir}, nil
}

func (m *FileMirror) path(ownerID, agentID string) string {
	if agentID == "" {
		agentID = "new"
	}
	return filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", ownerID, agentID))
}

// Save пишет через временный файл с переименованием, чтобы читатель
// никогда не увидел полуснапшот.
func (m *FileMirror) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("draft: failed to marshal snapshot: %w", err)
	}

	target := m.path(snap.OwnerID, snap.AgentID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("draft: failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("draft: failed to finalize snapshot: %w", err)
	}
	return nil
}

// Load возвращает nil без ошибки, если снапшота ещё нет.
func (m *FileMirror) Load(ownerID, agentID string) (*Snapshot, error) {
	data, err := os.ReadFile(m.path(ownerID, agentID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("draft: failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("draft: failed to decode snapshot: %w", err)
	}
	return &snap, nil
}
