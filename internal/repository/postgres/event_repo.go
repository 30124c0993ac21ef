package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/xela07ax/ragbase/internal/lifecycle"
)

const eventColumns = `id, trace_id, agent_id, source_id, action, outcome, detail, duration_ms, timestamp`

// WriteBatch пакетно сохраняет события жизненного цикла источников.
func (r *Repo) WriteBatch(ctx context.Context, events []lifecycle.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице source_events
	numFields := 9
	placeholderStr := ""
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9)

		vals = append(vals,
			e.ID, e.TraceID, e.AgentID, e.SourceID,
			e.Action, e.Outcome, e.Detail, e.DurationMs, e.Timestamp,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO source_events (%s) VALUES %s",
		eventColumns, strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := r.pool.Exec(ctx, query, vals...)
	return err
}
