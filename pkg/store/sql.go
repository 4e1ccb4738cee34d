// Copyright 2025 The Agentcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Database drivers. Dialect selection happens at Open() time; only one
	// of these is ever used per process, but registering all three lets an
	// operator switch backend by changing a DSN, not a go.mod.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/agentcore/runtime/pkg/model"
)

// SQL is a database/sql-backed Gateway supporting sqlite, postgres, and
// mysql dialects, grounded on the same three-dialect-one-schema approach
// the teacher uses for its task store.
type SQL struct {
	db      *sql.DB
	dialect string
}

const schema = `
CREATE TABLE IF NOT EXISTS agent_specs (
	id TEXT PRIMARY KEY,
	creator_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	agent_id TEXT,
	status TEXT NOT NULL,
	last_message_at TIMESTAMP,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_threads_owner ON threads(owner_id);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, ordinal);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	status TEXT NOT NULL,
	tokens_in INTEGER NOT NULL DEFAULT 0,
	tokens_out INTEGER NOT NULL DEFAULT 0,
	cost_usd REAL NOT NULL DEFAULT 0,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_thread ON runs(thread_id);

CREATE TABLE IF NOT EXISTS steps (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	ordinal INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id, ordinal);

CREATE TABLE IF NOT EXISTS tool_calls (
	id TEXT PRIMARY KEY,
	step_id TEXT NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_toolcalls_step ON tool_calls(step_id);

CREATE TABLE IF NOT EXISTS metrics (
	id TEXT PRIMARY KEY,
	date TEXT NOT NULL,
	user_id TEXT NOT NULL,
	tokens_in INTEGER NOT NULL,
	tokens_out INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_user_date ON metrics(user_id, date);
`

// OpenSQL opens a dialect-appropriate *sql.DB and runs the idempotent
// schema migration. dialect is one of "sqlite", "postgres", "mysql".
func OpenSQL(dialect, dsn string) (*SQL, error) {
	driverName := dialect
	if dialect == "sqlite" {
		driverName = "sqlite3"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	s := &SQL{db: db, dialect: dialect}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

var _ Gateway = (*SQL)(nil)

func (s *SQL) UpsertAgentSpec(ctx context.Context, spec *model.AgentSpec) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.upsertSQL("agent_specs", "id", []string{"id", "creator_id", "created_at", "payload"}),
		spec.ID, spec.CreatorID, spec.CreatedAt, string(payload))
	return err
}

func (s *SQL) GetAgentSpec(ctx context.Context, id string) (*model.AgentSpec, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM agent_specs WHERE id = `+s.ph(1), id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "AgentSpec", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var out model.AgentSpec
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQL) DeleteAgentSpec(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM agent_specs WHERE id = `+s.ph(1), id)
	return err
}

func (s *SQL) ListAgentSpecs(ctx context.Context) ([]*model.AgentSpec, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM agent_specs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.AgentSpec
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var spec model.AgentSpec
		if err := json.Unmarshal([]byte(payload), &spec); err != nil {
			return nil, err
		}
		out = append(out, &spec)
	}
	return out, rows.Err()
}

func (s *SQL) UpsertThread(ctx context.Context, t *model.Thread) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.upsertSQL("threads", "id", []string{"id", "owner_id", "agent_id", "status", "last_message_at", "payload"}),
		t.ID, t.OwnerID, t.AgentID, string(t.Status), t.LastMessageAt, string(payload))
	return err
}

func (s *SQL) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM threads WHERE id = `+s.ph(1), id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "Thread", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var out model.Thread
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQL) ListThreads(ctx context.Context, q ThreadQuery) (*ThreadPage, error) {
	query := `SELECT payload FROM threads WHERE owner_id = ` + s.ph(1) + ` AND status != 'deleted'`
	args := []any{q.OwnerID}
	if q.AgentID != "" {
		query += ` AND agent_id = ` + s.ph(2)
		args = append(args, q.AgentID)
	}
	query += ` ORDER BY last_message_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all []*model.Thread
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var t model.Thread
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, err
		}
		all = append(all, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	total := len(all)
	lo, hi := q.Offset, q.Offset+q.Limit
	if q.Limit <= 0 {
		hi = total
	}
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}
	return &ThreadPage{Threads: all[lo:hi], Total: total}, nil
}

func (s *SQL) SoftDeleteThread(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE threads SET status = 'deleted' WHERE id = `+s.ph(1), id)
	return err
}

func (s *SQL) AppendMessage(ctx context.Context, m *model.Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO messages (id, thread_id, ordinal, payload) VALUES (`+s.ph(1)+`,`+s.ph(2)+`,`+s.ph(3)+`,`+s.ph(4)+`)`,
		m.ID, m.ThreadID, m.Ordinal, string(payload))
	return err
}

func (s *SQL) ListMessages(ctx context.Context, threadID string, limit int) ([]*model.Message, error) {
	query := `SELECT payload FROM messages WHERE thread_id = ` + s.ph(1) + ` ORDER BY ordinal`
	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all []*model.Message
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var m model.Message
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, err
		}
		all = append(all, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(all) {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// UpsertRun writes the monotone-counter preserving max(new, existing) for
// tokens/cost, matching spec.md §5's last-writer-wins-but-monotone rule.
func (s *SQL) UpsertRun(ctx context.Context, r *model.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existingIn, existingOut int64
	var existingCost float64
	err = tx.QueryRowContext(ctx, `SELECT tokens_in, tokens_out, cost_usd FROM runs WHERE id = `+s.ph(1), r.ID).
		Scan(&existingIn, &existingOut, &existingCost)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if r.Tokens.In < existingIn {
		r.Tokens.In = existingIn
	}
	if r.Tokens.Out < existingOut {
		r.Tokens.Out = existingOut
	}
	if r.CostUSD < existingCost {
		r.CostUSD = existingCost
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.upsertSQL("runs", "id", []string{"id", "thread_id", "status", "tokens_in", "tokens_out", "cost_usd", "payload"}),
		r.ID, r.ThreadID, string(r.Status), r.Tokens.In, r.Tokens.Out, r.CostUSD, string(payload))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQL) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = `+s.ph(1), id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "Run", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var out model.Run
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQL) ListRunsByThread(ctx context.Context, threadID string) ([]*model.Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM runs WHERE thread_id = `+s.ph(1), threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Run
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r model.Run
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQL) UpsertStep(ctx context.Context, st *model.Step) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.upsertSQL("steps", "id", []string{"id", "run_id", "ordinal", "payload"}),
		st.ID, st.RunID, st.Ordinal, string(payload))
	return err
}

func (s *SQL) ListStepsByRun(ctx context.Context, runID string) ([]*model.Step, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM steps WHERE run_id = `+s.ph(1)+` ORDER BY ordinal`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Step
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var st model.Step
		if err := json.Unmarshal([]byte(payload), &st); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *SQL) UpsertToolCall(ctx context.Context, tc *model.ToolCall) error {
	payload, err := json.Marshal(tc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.upsertSQL("tool_calls", "id", []string{"id", "step_id", "payload"}),
		tc.ID, tc.StepID, string(payload))
	return err
}

func (s *SQL) GetToolCall(ctx context.Context, id string) (*model.ToolCall, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM tool_calls WHERE id = `+s.ph(1), id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "ToolCall", ID: id}
	}
	if err != nil {
		return nil, err
	}
	var out model.ToolCall
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQL) ListToolCallsByStep(ctx context.Context, stepID string) ([]*model.ToolCall, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM tool_calls WHERE step_id = `+s.ph(1), stepID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.ToolCall
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var tc model.ToolCall
		if err := json.Unmarshal([]byte(payload), &tc); err != nil {
			return nil, err
		}
		out = append(out, &tc)
	}
	return out, rows.Err()
}

func (s *SQL) AppendMetric(ctx context.Context, m *model.Metric) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.upsertSQL("metrics", "id", []string{"id", "date", "user_id", "tokens_in", "tokens_out", "payload"}),
		m.ID, m.Date, m.UserID, m.Tokens.In, m.Tokens.Out, string(payload))
	return err
}

func (s *SQL) SumTokens(ctx context.Context, userID, date string) (model.TokenUsage, error) {
	var in, out sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(tokens_in), SUM(tokens_out) FROM metrics WHERE user_id = `+s.ph(1)+` AND date = `+s.ph(2),
		userID, date).Scan(&in, &out)
	if err != nil {
		return model.TokenUsage{}, err
	}
	return model.TokenUsage{In: in.Int64, Out: out.Int64}, nil
}

// ph returns the dialect-appropriate positional placeholder: postgres uses
// $N, mysql/sqlite use plain ?.
func (s *SQL) ph(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// upsertSQL builds an "INSERT ... ON CONFLICT/DUPLICATE KEY UPDATE" for the
// given table/columns, dialect-appropriate. cols[0] must be the primary key.
func (s *SQL) upsertSQL(table, pk string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = s.ph(i + 1)
	}
	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, join(cols, ","), join(placeholders, ","))

	switch s.dialect {
	case "postgres":
		set := make([]string, 0, len(cols)-1)
		for _, c := range cols {
			if c == pk {
				continue
			}
			set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
		return base + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", pk, join(set, ","))
	case "mysql":
		set := make([]string, 0, len(cols)-1)
		for _, c := range cols {
			if c == pk {
				continue
			}
			set = append(set, fmt.Sprintf("%s = VALUES(%s)", c, c))
		}
		return base + " ON DUPLICATE KEY UPDATE " + join(set, ",")
	default: // sqlite
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", table, join(cols, ","), join(placeholders, ","))
	}
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

// Close releases the underlying connection pool.
func (s *SQL) Close() error { return s.db.Close() }
