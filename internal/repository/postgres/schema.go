package postgres

import (
	"context"
	"fmt"
)

const schema = `
-- Агенты (чат-боты пользователей)
CREATE TABLE IF NOT EXISTS agents (
    id UUID PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    temperature DOUBLE PRECISION NOT NULL DEFAULT 0.20,
    system_prompt TEXT NOT NULL DEFAULT '',
    system_prompt_type TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Источники знаний агента
CREATE TABLE IF NOT EXISTS knowledge_sources (
    id UUID PRIMARY KEY,
    agent_id UUID NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
    type TEXT NOT NULL CHECK (type IN ('file', 'text', 'website', 'qa')),
    name TEXT NOT NULL,
    content TEXT,
    file_url TEXT,
    file_name TEXT,
    file_size BIGINT,
    character_count INTEGER,
    status TEXT NOT NULL CHECK (status IN ('upload_pending', 'processing', 'active', 'failed', 'disabled')),
    error_message TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Производные фрагменты (наполняет сервис ингестии; каскад — уровень базы)
CREATE TABLE IF NOT EXISTS source_chunks (
    id UUID PRIMARY KEY,
    source_id UUID NOT NULL REFERENCES knowledge_sources(id) ON DELETE CASCADE,
    chunk_index INTEGER NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Профили пользователей (precondition для коммита)
CREATE TABLE IF NOT EXISTS profiles (
    user_id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- След жизненного цикла источников (пишется пачками)
CREATE TABLE IF NOT EXISTS source_events (
    id UUID PRIMARY KEY,
    trace_id TEXT,
    agent_id TEXT,
    source_id TEXT,
    action TEXT NOT NULL,
    outcome TEXT NOT NULL,
    detail TEXT,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    timestamp TIMESTAMPTZ NOT NULL
);

-- Индексы
CREATE INDEX IF NOT EXISTS idx_agents_owner_updated ON agents(owner_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_sources_agent_created ON knowledge_sources(agent_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sources_agent_status ON knowledge_sources(agent_id, status);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON source_chunks(source_id);
CREATE INDEX IF NOT EXISTS idx_events_source ON source_events(source_id);
`

// EnsureSchema создаёт таблицы и индексы, если их ещё нет.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to ensure schema: %w", err)
	}
	return nil
}
