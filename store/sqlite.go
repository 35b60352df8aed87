package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vantagecrm/guru/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'member'
		)`,
		`CREATE TABLE IF NOT EXISTS contacts (
			contact_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			company TEXT,
			email TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS deals (
			deal_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			stage TEXT NOT NULL,
			value REAL NOT NULL DEFAULT 0,
			contact_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (contact_id) REFERENCES contacts(contact_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deals_updated ON deals(updated_at)`,
		`CREATE TABLE IF NOT EXISTS stage_transitions (
			transition_id TEXT PRIMARY KEY,
			deal_id TEXT NOT NULL,
			from_stage TEXT NOT NULL,
			to_stage TEXT NOT NULL,
			changed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (deal_id) REFERENCES deals(deal_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_changed ON stage_transitions(changed_at)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			done INTEGER NOT NULL DEFAULT 0,
			due_at DATETIME,
			contact_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (contact_id) REFERENCES contacts(contact_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(done, due_at)`,
		`CREATE TABLE IF NOT EXISTS interaction_logs (
			log_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			prompt TEXT NOT NULL,
			response TEXT NOT NULL,
			page TEXT NOT NULL,
			metadata TEXT,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			model TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user_day ON interaction_logs(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetProfile retrieves a user profile by ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, full_name, role FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.FullName, &p.Role)
	if err == sql.ErrNoRows {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile creates or replaces a user profile.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, p *domain.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, full_name, role) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET full_name = excluded.full_name, role = excluded.role`,
		p.UserID, p.FullName, p.Role)
	return err
}

// RecentDeals returns the most recently updated deals, newest first.
func (s *SQLiteStore) RecentDeals(ctx context.Context, limit int) ([]domain.Deal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT deal_id, title, stage, value, COALESCE(contact_id, ''), created_at, updated_at
		 FROM deals ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []domain.Deal
	for rows.Next() {
		var d domain.Deal
		if err := rows.Scan(&d.DealID, &d.Title, &d.Stage, &d.Value, &d.ContactID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// InsertDeal creates a deal row.
func (s *SQLiteStore) InsertDeal(ctx context.Context, d *domain.Deal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deals (deal_id, title, stage, value, contact_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?)`,
		d.DealID, d.Title, d.Stage, d.Value, d.ContactID, d.CreatedAt, d.UpdatedAt)
	return err
}

// RecentStageTransitions returns the latest stage changes, newest first.
func (s *SQLiteStore) RecentStageTransitions(ctx context.Context, limit int) ([]domain.StageTransition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT transition_id, deal_id, from_stage, to_stage, changed_at
		 FROM stage_transitions ORDER BY changed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage transitions: %w", err)
	}
	defer rows.Close()

	var transitions []domain.StageTransition
	for rows.Next() {
		var tr domain.StageTransition
		if err := rows.Scan(&tr.TransitionID, &tr.DealID, &tr.FromStage, &tr.ToStage, &tr.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage transition: %w", err)
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

// InsertStageTransition creates a stage transition row.
func (s *SQLiteStore) InsertStageTransition(ctx context.Context, tr *domain.StageTransition) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_transitions (transition_id, deal_id, from_stage, to_stage, changed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		tr.TransitionID, tr.DealID, tr.FromStage, tr.ToStage, tr.ChangedAt)
	return err
}

// OpenTasks returns incomplete tasks, soonest due date first, tasks
// without a due date last.
func (s *SQLiteStore) OpenTasks(ctx context.Context, limit int) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, title, done, due_at, COALESCE(contact_id, ''), created_at
		 FROM tasks WHERE done = 0
		 ORDER BY due_at IS NULL, due_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		var due sql.NullTime
		if err := rows.Scan(&t.TaskID, &t.Title, &t.Done, &due, &t.ContactID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if due.Valid {
			dueAt := due.Time
			t.DueAt = &dueAt
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// InsertTask creates a task row.
func (s *SQLiteStore) InsertTask(ctx context.Context, t *domain.Task) error {
	var due interface{}
	if t.DueAt != nil {
		due = *t.DueAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (task_id, title, done, due_at, contact_id, created_at)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''), ?)`,
		t.TaskID, t.Title, t.Done, due, t.ContactID, t.CreatedAt)
	return err
}

// RecentContacts returns the newest contacts first.
func (s *SQLiteStore) RecentContacts(ctx context.Context, limit int) ([]domain.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_id, name, COALESCE(company, ''), COALESCE(email, ''), created_at
		 FROM contacts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ContactID, &c.Name, &c.Company, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// InsertContact creates a contact row.
func (s *SQLiteStore) InsertContact(ctx context.Context, c *domain.Contact) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (contact_id, name, company, email, created_at)
		 VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)`,
		c.ContactID, c.Name, c.Company, c.Email, c.CreatedAt)
	return err
}

// InsertInteraction appends one interaction log row. This is the
// direct-insert fallback for the platform logInteraction RPC.
func (s *SQLiteStore) InsertInteraction(ctx context.Context, rec *domain.InteractionLog) error {
	metadata := string(rec.Metadata)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interaction_logs (log_id, user_id, prompt, response, page, metadata, tokens_used, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.LogID, rec.UserID, rec.Prompt, rec.Response, rec.Page, metadata, rec.TokensUsed, rec.Model, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}
	return nil
}

// CountInteractionsBetween counts a user's interactions in [from, to).
// This is the direct-count fallback for the platform dailyUsage RPC.
func (s *SQLiteStore) CountInteractionsBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interaction_logs WHERE user_id = ? AND created_at >= ? AND created_at < ?`,
		userID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}
