package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		image TEXT,
		external_id TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		tone TEXT,
		description TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agents_user ON agents(user_id);

	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		input TEXT NOT NULL,
		prompt TEXT,
		output TEXT NOT NULL,
		result INTEGER NOT NULL DEFAULT 0,
		chat_activity_id TEXT UNIQUE,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activities_agent_ts ON activities(agent_id, timestamp);

	CREATE TABLE IF NOT EXISTS chat_activities (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		input TEXT NOT NULL,
		prompt TEXT,
		output TEXT NOT NULL,
		approved INTEGER NOT NULL DEFAULT 0,
		rejected INTEGER NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_activities_agent_ts ON chat_activities(agent_id, timestamp);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// UpsertUser creates or refreshes a user keyed by external identity ID.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := time.Now()
	query := `
	INSERT INTO users (id, name, email, image, external_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(external_id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		image = excluded.image,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, nullable(user.Image),
		user.ExternalID, now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, image, external_id, created_at, updated_at
		 FROM users WHERE external_id = ?`, user.ExternalID)
	stored, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("load upserted user: %w", err)
	}
	return stored, nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, image, external_id, created_at, updated_at
		 FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// ListUsers returns a newest-first page of users plus the total count.
func (s *SQLiteStore) ListUsers(ctx context.Context, page Page) ([]*domain.User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, image, external_id, created_at, updated_at
		 FROM users ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer closeRows(rows, "users")

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return users, total, nil
}

// CreateAgent persists a new agent.
func (s *SQLiteStore) CreateAgent(ctx context.Context, agent *domain.Agent) error {
	query := `
	INSERT INTO agents (id, user_id, name, role, tone, description, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		agent.ID, agent.UserID, agent.Name, agent.Role,
		nullable(agent.Tone), nullable(agent.Description), agent.Status,
		agent.CreatedAt.UnixMilli(), agent.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, role, tone, description, status, created_at, updated_at
		 FROM agents WHERE id = ?`, id)
	agent, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent row: %w", err)
	}
	return agent, nil
}

// ListAgents returns all agents owned by a user, newest first.
func (s *SQLiteStore) ListAgents(ctx context.Context, userID string) ([]*domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, role, tone, description, status, created_at, updated_at
		 FROM agents WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer closeRows(rows, "agents")

	var agents []*domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

// UpdateAgent overwrites an agent's mutable fields.
func (s *SQLiteStore) UpdateAgent(ctx context.Context, agent *domain.Agent) error {
	query := `
	UPDATE agents SET name = ?, role = ?, tone = ?, description = ?, status = ?, updated_at = ?
	WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query,
		agent.Name, agent.Role, nullable(agent.Tone), nullable(agent.Description),
		agent.Status, time.Now().UnixMilli(), agent.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAgent removes an agent and cascades to its interaction records.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete agent: %w", err)
	}
	defer rollback(tx, "delete agent")

	result, err := tx.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE agent_id = ?`, id); err != nil {
		return fmt.Errorf("delete agent activities: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_activities WHERE agent_id = ?`, id); err != nil {
		return fmt.Errorf("delete agent chat activities: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete agent: %w", err)
	}
	return nil
}

// CreateActivity persists a rewrite interaction record.
func (s *SQLiteStore) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	query := `
	INSERT INTO activities (id, agent_id, input, prompt, output, result, chat_activity_id, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		activity.ID, activity.AgentID, activity.Input, nullable(activity.Prompt),
		activity.Output, boolToInt(activity.Result), nullable(activity.ChatActivityID),
		activity.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// GetActivity retrieves a rewrite interaction by ID.
func (s *SQLiteStore) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent_id, input, prompt, output, result, chat_activity_id, timestamp
		 FROM activities WHERE id = ?`, id)
	activity, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan activity row: %w", err)
	}
	return activity, nil
}

// MarkActivityApproved sets result=true on a rewrite interaction.
func (s *SQLiteStore) MarkActivityApproved(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE activities SET result = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark activity approved: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAgentActivities returns an agent's rewrite interactions in stable
// chronological order. Insertion order breaks timestamp ties so the context
// builder always sees the same sequence.
func (s *SQLiteStore) ListAgentActivities(ctx context.Context, agentID string) ([]*domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, input, prompt, output, result, chat_activity_id, timestamp
		 FROM activities WHERE agent_id = ? ORDER BY timestamp ASC, rowid ASC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("query agent activities: %w", err)
	}
	defer closeRows(rows, "agent activities")

	return collectActivities(rows)
}

// ListActivitiesPage returns a newest-first page of an agent's rewrite
// interactions plus the total count.
func (s *SQLiteStore) ListActivitiesPage(ctx context.Context, agentID string, page Page) ([]*domain.Activity, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE agent_id = ?`, agentID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, input, prompt, output, result, chat_activity_id, timestamp
		 FROM activities WHERE agent_id = ?
		 ORDER BY timestamp DESC, rowid DESC LIMIT ? OFFSET ?`,
		agentID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query activities page: %w", err)
	}
	defer closeRows(rows, "activities page")

	activities, err := collectActivities(rows)
	if err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}

// ListRewriteHistory returns a newest-first page of all rewrite interactions
// joined with agent and user details.
func (s *SQLiteStore) ListRewriteHistory(ctx context.Context, page Page) ([]*domain.HistoryEntry, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rewrite history: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.agent_id, a.input, a.prompt, a.output, a.result, a.chat_activity_id, a.timestamp,
		        ag.name, u.name, u.email, u.image
		 FROM activities a
		 JOIN agents ag ON ag.id = a.agent_id
		 JOIN users u ON u.id = ag.user_id
		 ORDER BY a.timestamp DESC, a.rowid DESC LIMIT ? OFFSET ?`,
		page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("query rewrite history: %w", err)
	}
	defer closeRows(rows, "rewrite history")

	var entries []*domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var prompt, chatID, userImage sql.NullString
		var result int
		var ts int64

		if err := rows.Scan(
			&entry.Activity.ID, &entry.Activity.AgentID, &entry.Activity.Input,
			&prompt, &entry.Activity.Output, &result, &chatID, &ts,
			&entry.AgentName, &entry.UserName, &entry.UserEmail, &userImage,
		); err != nil {
			return nil, 0, fmt.Errorf("scan rewrite history row: %w", err)
		}

		entry.Activity.Prompt = prompt.String
		entry.Activity.ChatActivityID = chatID.String
		entry.Activity.Result = result != 0
		entry.Activity.Timestamp = time.UnixMilli(ts)
		entry.UserImage = userImage.String
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate rewrite history: %w", err)
	}
	return entries, total, nil
}

// CreateChatActivity persists a chat interaction record.
func (s *SQLiteStore) CreateChatActivity(ctx context.Context, chat *domain.ChatActivity) error {
	query := `
	INSERT INTO chat_activities (id, agent_id, input, prompt, output, approved, rejected, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		chat.ID, chat.AgentID, chat.Input, nullable(chat.Prompt), chat.Output,
		boolToInt(chat.Approved), boolToInt(chat.Rejected), chat.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert chat activity: %w", err)
	}
	return nil
}

// GetChatActivity retrieves a chat interaction by ID.
func (s *SQLiteStore) GetChatActivity(ctx context.Context, id string) (*domain.ChatActivity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, agent_id, input, prompt, output, approved, rejected, timestamp
		 FROM chat_activities WHERE id = ?`, id)
	chat, err := scanChatActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chat activity row: %w", err)
	}
	return chat, nil
}

// ListChatActivities returns an agent's chat interactions in stable
// chronological order.
func (s *SQLiteStore) ListChatActivities(ctx context.Context, agentID string) ([]*domain.ChatActivity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_id, input, prompt, output, approved, rejected, timestamp
		 FROM chat_activities WHERE agent_id = ? ORDER BY timestamp ASC, rowid ASC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("query chat activities: %w", err)
	}
	defer closeRows(rows, "chat activities")

	var chats []*domain.ChatActivity
	for rows.Next() {
		chat, err := scanChatActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat activity row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat activities: %w", err)
	}
	return chats, nil
}

// ReconcileChatVerdict writes the chat verdict and its mirrored rewrite
// record in one transaction. Retries on SQLite lock conflicts with
// exponential backoff.
func (s *SQLiteStore) ReconcileChatVerdict(ctx context.Context, chat *domain.ChatActivity, mirrorID string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.reconcileChatVerdictOnce(ctx, chat, mirrorID)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("ReconcileChatVerdict hit SQLite lock, retrying",
			"chat_activity_id", chat.ID,
			"attempt", i+1,
			"delay", delay)
		time.Sleep(delay)
	}
	return err
}

func (s *SQLiteStore) reconcileChatVerdictOnce(ctx context.Context, chat *domain.ChatActivity, mirrorID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reconcile: %w", err)
	}
	defer rollback(tx, "reconcile chat verdict")

	result, err := tx.ExecContext(ctx,
		`UPDATE chat_activities SET approved = ?, rejected = ? WHERE id = ?`,
		boolToInt(chat.Approved), boolToInt(chat.Rejected), chat.ID)
	if err != nil {
		return fmt.Errorf("update chat verdict: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM activities WHERE chat_activity_id = ?`, chat.ID).Scan(&existingID)
	hasMirror := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("find mirrored activity: %w", err)
	}

	switch {
	case chat.Marked() && hasMirror:
		if _, err := tx.ExecContext(ctx,
			`UPDATE activities SET result = ? WHERE id = ?`,
			boolToInt(chat.Approved), existingID); err != nil {
			return fmt.Errorf("update mirrored activity: %w", err)
		}
	case chat.Marked() && !hasMirror:
		mirror := chat.Mirror(mirrorID)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO activities (id, agent_id, input, prompt, output, result, chat_activity_id, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			mirror.ID, mirror.AgentID, mirror.Input, nullable(mirror.Prompt),
			mirror.Output, boolToInt(mirror.Result), mirror.ChatActivityID,
			mirror.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("insert mirrored activity: %w", err)
		}
	case !chat.Marked() && hasMirror:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM activities WHERE id = ?`, existingID); err != nil {
			return fmt.Errorf("delete mirrored activity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reconcile: %w", err)
	}
	return nil
}

// CountActiveAgents counts a user's active agents.
func (s *SQLiteStore) CountActiveAgents(ctx context.Context, userID string, before *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM agents WHERE user_id = ? AND status = ?`
	args := []interface{}{userID, domain.AgentStatusActive}
	if before != nil {
		query += ` AND created_at < ?`
		args = append(args, before.UnixMilli())
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active agents: %w", err)
	}
	return count, nil
}

// CountActivities counts a user's rewrite interactions across all agents.
func (s *SQLiteStore) CountActivities(ctx context.Context, userID string, approvedOnly bool, before *time.Time) (int, error) {
	query := `
	SELECT COUNT(*) FROM activities a
	JOIN agents ag ON ag.id = a.agent_id
	WHERE ag.user_id = ?`
	args := []interface{}{userID}
	if approvedOnly {
		query += ` AND a.result = 1`
	}
	if before != nil {
		query += ` AND a.timestamp < ?`
		args = append(args, before.UnixMilli())
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var image sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(
		&user.ID, &user.Name, &user.Email, &image,
		&user.ExternalID, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	user.Image = image.String
	user.CreatedAt = time.UnixMilli(createdAt)
	user.UpdatedAt = time.UnixMilli(updatedAt)
	return &user, nil
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	var tone, description sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(
		&agent.ID, &agent.UserID, &agent.Name, &agent.Role,
		&tone, &description, &agent.Status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	agent.Tone = tone.String
	agent.Description = description.String
	agent.CreatedAt = time.UnixMilli(createdAt)
	agent.UpdatedAt = time.UnixMilli(updatedAt)
	return &agent, nil
}

func scanActivity(row rowScanner) (*domain.Activity, error) {
	var activity domain.Activity
	var prompt, chatID sql.NullString
	var result int
	var ts int64

	if err := row.Scan(
		&activity.ID, &activity.AgentID, &activity.Input, &prompt,
		&activity.Output, &result, &chatID, &ts,
	); err != nil {
		return nil, err
	}

	activity.Prompt = prompt.String
	activity.ChatActivityID = chatID.String
	activity.Result = result != 0
	activity.Timestamp = time.UnixMilli(ts)
	return &activity, nil
}

func scanChatActivity(row rowScanner) (*domain.ChatActivity, error) {
	var chat domain.ChatActivity
	var prompt sql.NullString
	var approved, rejected int
	var ts int64

	if err := row.Scan(
		&chat.ID, &chat.AgentID, &chat.Input, &prompt,
		&chat.Output, &approved, &rejected, &ts,
	); err != nil {
		return nil, err
	}

	chat.Prompt = prompt.String
	chat.Approved = approved != 0
	chat.Rejected = rejected != 0
	chat.Timestamp = time.UnixMilli(ts)
	return &chat, nil
}

func collectActivities(rows *sql.Rows) ([]*domain.Activity, error) {
	var activities []*domain.Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return activities, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

func rollback(tx *sql.Tx, what string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Warn("failed to rollback transaction", "op", what, "error", err)
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
