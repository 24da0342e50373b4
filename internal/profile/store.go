// Package profile persists search profiles, their condition lines and the
// actions they can be bound to.
package profile

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned for unknown profile and action ids
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when another profile already uses the name
	ErrDuplicateName = errors.New("a profile with this name already exists (names are case-insensitive)")
)

const timeLayout = time.RFC3339Nano

// Store keeps profiles in a sqlite database. Lines and groups belong to
// their profile and are deleted with it.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewStore opens (or creates) the profile database at path
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open profile database: %w", err)
	}
	// foreign_keys is a per-connection setting and :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create profile schema: %w", err)
	}

	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save inserts or replaces p together with all its lines and groups in one
// transaction. Missing ids are generated and written back into p.
func (s *Store) Save(ctx context.Context, p *models.Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	now := s.now().UTC()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	for i := range p.Lines {
		if p.Lines[i].ID == "" {
			p.Lines[i].ID = uuid.New().String()
		}
		if p.Lines[i].Group == "" {
			p.Lines[i].Group = models.GroupAnd
		}
		p.Lines[i].ProfileID = p.ID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var other string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM profiles WHERE name = ? COLLATE NOCASE AND id <> ?`, p.Name, p.ID).Scan(&other)
	switch {
	case err == nil:
		return fmt.Errorf("%q: %w", p.Name, ErrDuplicateName)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("failed to check profile name: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (id, name, entity_type, use_expression, expression, action_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			entity_type = excluded.entity_type,
			use_expression = excluded.use_expression,
			expression = excluded.expression,
			action_id = excluded.action_id,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.EntityType, p.UseExpression, p.Expression, nullString(p.ActionID),
		p.CreatedAt.UTC().Format(timeLayout), p.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile %q: %w", p.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_lines WHERE profile_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to replace lines: %w", err)
	}
	for i, line := range p.Lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profile_lines (id, profile_id, position, sequence, grp, field, subfield, operator, value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID, p.ID, i, line.Sequence, string(line.Group), line.Field, line.Subfield, string(line.Operator), line.Value,
		)
		if err != nil {
			return fmt.Errorf("failed to save line %s: %w", line.RecName(), err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_groups WHERE profile_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to replace groups: %w", err)
	}
	for _, g := range p.Groups {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO profile_groups (profile_id, group_name) VALUES (?, ?)`, p.ID, g)
		if err != nil {
			return fmt.Errorf("failed to save group %q: %w", g, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile %q: %w", p.Name, err)
	}

	s.logger.Debug("profile saved",
		zap.String("id", p.ID),
		zap.String("name", p.Name),
		zap.Int("lines", len(p.Lines)))
	return nil
}

// Get loads a profile with its lines and groups. Everything is read in one
// transaction so a concurrent Save is never seen half applied.
func (s *Store) Get(ctx context.Context, id string) (models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	profiles, err := loadProfiles(ctx, tx, `WHERE id = ?`, id)
	if err != nil {
		return models.Profile{}, err
	}
	if len(profiles) == 0 {
		return models.Profile{}, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return profiles[0], nil
}

// Find returns the profile whose id or name (case-insensitive) is key
func (s *Store) Find(ctx context.Context, key string) (models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	profiles, err := loadProfiles(ctx, tx, `WHERE id = ? OR name = ? COLLATE NOCASE`, key, key)
	if err != nil {
		return models.Profile{}, err
	}
	if len(profiles) == 0 {
		return models.Profile{}, fmt.Errorf("profile %q: %w", key, ErrNotFound)
	}
	return profiles[0], nil
}

// List returns every profile ordered by name
func (s *Store) List(ctx context.Context) ([]models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return loadProfiles(ctx, tx, "")
}

// ListVisible returns the profiles a user in userGroups may use
func (s *Store) ListVisible(ctx context.Context, userGroups []string) ([]models.Profile, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]models.Profile, 0, len(all))
	for _, p := range all {
		if p.VisibleTo(userGroups) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// Delete removes a profile; its lines and groups go with it
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	s.logger.Debug("profile deleted", zap.String("id", id))
	return nil
}

// SaveAction inserts or replaces an action, generating its id when missing
func (s *Store) SaveAction(ctx context.Context, a *models.Action) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return fmt.Errorf("action name cannot be empty")
	}
	if a.EntityType == "" {
		return fmt.Errorf("action %q has no entity type", a.Name)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Context == nil {
		a.Context = map[string]string{}
	}

	contextJSON, err := json.Marshal(a.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal action context: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO actions (id, name, entity_type, domain, context)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			entity_type = excluded.entity_type,
			domain = excluded.domain,
			context = excluded.context`,
		a.ID, a.Name, a.EntityType, a.Domain, string(contextJSON))
	if err != nil {
		return fmt.Errorf("failed to save action %q: %w", a.Name, err)
	}
	return nil
}

// GetAction returns an action by id
func (s *Store) GetAction(ctx context.Context, id string) (models.Action, error) {
	var a models.Action
	var contextJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, entity_type, domain, context FROM actions WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.EntityType, &a.Domain, &contextJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Action{}, fmt.Errorf("action %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Action{}, fmt.Errorf("failed to load action %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &a.Context); err != nil {
		return models.Action{}, fmt.Errorf("failed to parse context of action %s: %w", id, err)
	}
	return a, nil
}

// ListActions returns every action ordered by name
func (s *Store) ListActions(ctx context.Context) ([]models.Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, entity_type, domain, context FROM actions ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var actions []models.Action
	for rows.Next() {
		var a models.Action
		var contextJSON string
		if err := rows.Scan(&a.ID, &a.Name, &a.EntityType, &a.Domain, &contextJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(contextJSON), &a.Context); err != nil {
			return nil, fmt.Errorf("failed to parse context of action %s: %w", a.ID, err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// loadProfiles reads the profiles matching where, then their lines and groups,
// all through tx
func loadProfiles(ctx context.Context, tx *sql.Tx, where string, args ...any) ([]models.Profile, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, entity_type, use_expression, expression, action_id, created_at, updated_at
		FROM profiles `+where+`
		ORDER BY name COLLATE NOCASE, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}

	var profiles []models.Profile
	index := make(map[string]int)
	for rows.Next() {
		var p models.Profile
		var actionID sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.EntityType, &p.UseExpression, &p.Expression,
			&actionID, &createdAt, &updatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		p.ActionID = actionID.String
		p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		index[p.ID] = len(profiles)
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(profiles) == 0 {
		return profiles, nil
	}

	lineRows, err := tx.QueryContext(ctx, `
		SELECT id, profile_id, sequence, grp, field, subfield, operator, value
		FROM profile_lines
		ORDER BY profile_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer func() { _ = lineRows.Close() }()
	for lineRows.Next() {
		var l models.ConditionLine
		var group, op string
		if err := lineRows.Scan(&l.ID, &l.ProfileID, &l.Sequence, &group, &l.Field, &l.Subfield, &op, &l.Value); err != nil {
			return nil, err
		}
		l.Group = models.Group(group)
		l.Operator = models.Operator(op)
		if i, ok := index[l.ProfileID]; ok {
			profiles[i].Lines = append(profiles[i].Lines, l)
		}
	}
	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	groupRows, err := tx.QueryContext(ctx,
		`SELECT profile_id, group_name FROM profile_groups ORDER BY profile_id, group_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer func() { _ = groupRows.Close() }()
	for groupRows.Next() {
		var profileID, group string
		if err := groupRows.Scan(&profileID, &group); err != nil {
			return nil, err
		}
		if i, ok := index[profileID]; ok {
			profiles[i].Groups = append(profiles[i].Groups, group)
		}
	}
	return profiles, groupRows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
