// Package session runs one interactive search: the user picks a profile,
// optionally overrides its conditions, and confirms. The compiled filter is
// validated by executing it once against the backend.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/compiler"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/history"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"go.uber.org/zap"
)

// State of a session
type State int

const (
	Selecting State = iota
	Executing
	Opened
	Rejected
	Cancelled
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Executing:
		return "executing"
	case Opened:
		return "opened"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrFinished is returned when a finished session is used again
var ErrFinished = errors.New("search session is finished")

// Searcher executes a filter and returns the matching record ids
type Searcher interface {
	Search(ctx context.Context, entityType string, d domain.Domain) ([]int64, error)
}

// Recorder keeps a log of search attempts
type Recorder interface {
	Add(ctx context.Context, entry history.Entry) error
}

// DomainValidationError is returned when the backend rejects a filter
type DomainValidationError struct {
	Filter domain.Domain
	Err    error
}

func (e *DomainValidationError) Error() string {
	return fmt.Sprintf("invalid search filter %s: %v", e.Filter.String(), e.Err)
}

func (e *DomainValidationError) Unwrap() error { return e.Err }

// Config holds the collaborators of a session
type Config struct {
	Compiler *compiler.Compiler
	Catalog  catalog.Catalog
	Searcher Searcher
	// Actions supplies the context of bound actions; optional
	Actions compiler.ActionSource
	// History records every executed search; optional
	History Recorder
	Logger  *zap.Logger
}

// Session is one search run over a chosen profile. It is used by a single
// caller and is never persisted.
type Session struct {
	cfg     Config
	profile models.Profile
	label   string

	override  *compiler.Source
	state     State
	err       error
	attempted domain.Domain
	result    models.ResultDescriptor
}

// New starts a session for p in the Selecting state
func New(ctx context.Context, cfg Config, p models.Profile) (*Session, error) {
	if cfg.Compiler == nil || cfg.Catalog == nil || cfg.Searcher == nil {
		return nil, fmt.Errorf("search session needs a compiler, a catalog and a searcher")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	entity, err := cfg.Catalog.Entity(ctx, p.EntityType)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", p.Name, err)
	}

	return &Session{
		cfg:     cfg,
		profile: p,
		label:   entity.DisplayLabel(),
		state:   Selecting,
	}, nil
}

// State returns the current state
func (s *Session) State() State { return s.state }

// Profile returns the chosen profile
func (s *Session) Profile() models.Profile { return s.profile }

// Err returns the error of the last confirm, if any
func (s *Session) Err() error { return s.err }

// AttemptedFilter returns the last compiled filter, which after a rejection
// is the filter the backend refused
func (s *Session) AttemptedFilter() domain.Domain { return s.attempted }

// Result returns the descriptor of an opened session
func (s *Session) Result() (models.ResultDescriptor, bool) {
	return s.result, s.state == Opened
}

// Source returns the condition source a confirm would compile: the
// override when one is set, the profile's own otherwise
func (s *Session) Source() compiler.Source {
	if s.override != nil {
		return *s.override
	}
	return compiler.SourceOf(s.profile)
}

// SetOverrideLines replaces the profile's lines for this session only
func (s *Session) SetOverrideLines(lines []models.ConditionLine) error {
	if err := s.editable(); err != nil {
		return err
	}
	copied := make([]models.ConditionLine, len(lines))
	copy(copied, lines)
	s.override = &compiler.Source{Lines: copied}
	return nil
}

// SetOverrideExpression replaces the profile's conditions with a filter
// expression for this session only
func (s *Session) SetOverrideExpression(text string) error {
	if err := s.editable(); err != nil {
		return err
	}
	s.override = &compiler.Source{UseExpression: true, Expression: text}
	return nil
}

// ClearOverride goes back to the profile's own conditions
func (s *Session) ClearOverride() error {
	if err := s.editable(); err != nil {
		return err
	}
	s.override = nil
	return nil
}

// editable moves a rejected session back to Selecting
func (s *Session) editable() error {
	switch s.state {
	case Selecting:
		return nil
	case Rejected:
		s.state = Selecting
		return nil
	}
	return fmt.Errorf("cannot edit a session that is %s: %w", s.state, ErrFinished)
}

// Confirm compiles the effective conditions and executes them once.
//
// Compilation errors are returned unchanged and leave the session in
// Selecting; nothing is executed. A backend failure moves the session to
// Rejected and is returned as a *DomainValidationError; the session can be
// edited and confirmed again. On success the session is Opened and the
// result descriptor is returned.
func (s *Session) Confirm(ctx context.Context) (models.ResultDescriptor, error) {
	if err := s.editable(); err != nil {
		return models.ResultDescriptor{}, err
	}

	d, err := s.cfg.Compiler.Compile(ctx, s.profile, s.Source())
	if err != nil {
		s.err = err
		s.cfg.Logger.Debug("filter compilation failed",
			zap.String("profile", s.profile.Name),
			zap.Error(err))
		return models.ResultDescriptor{}, err
	}
	s.attempted = d

	filter, err := domain.Encode(d)
	if err != nil {
		s.err = err
		return models.ResultDescriptor{}, err
	}

	s.state = Executing
	start := time.Now()
	ids, err := s.cfg.Searcher.Search(ctx, s.profile.EntityType, d)
	elapsed := time.Since(start)
	if err != nil {
		s.state = Rejected
		s.err = &DomainValidationError{Filter: d, Err: err}
		s.cfg.Logger.Info("search rejected",
			zap.String("profile", s.profile.Name),
			zap.String("filter", d.String()),
			zap.Error(err))
		s.record(ctx, d, elapsed, 0, err)
		return models.ResultDescriptor{}, s.err
	}

	result, err := s.describe(ctx, filter, ids)
	if err != nil {
		s.state = Selecting
		s.err = err
		return models.ResultDescriptor{}, err
	}

	s.state = Opened
	s.err = nil
	s.result = result
	s.cfg.Logger.Info("search opened",
		zap.String("profile", s.profile.Name),
		zap.Int("records", len(ids)),
		zap.Duration("duration", elapsed))
	s.record(ctx, d, elapsed, len(ids), nil)
	return result, nil
}

// Cancel ends the session without a result
func (s *Session) Cancel() error {
	if err := s.editable(); err != nil {
		return err
	}
	s.state = Cancelled
	return nil
}

func (s *Session) describe(ctx context.Context, filter string, ids []int64) (models.ResultDescriptor, error) {
	result := models.ResultDescriptor{
		Name:        fmt.Sprintf("%s - %s", s.profile.Name, s.label),
		EntityType:  s.profile.EntityType,
		Filter:      filter,
		Context:     map[string]string{},
		Order:       "[]",
		SearchValue: "[]",
		RecordIDs:   ids,
	}

	if s.profile.ActionID != "" && s.cfg.Actions != nil {
		action, err := s.cfg.Actions.GetAction(ctx, s.profile.ActionID)
		if err != nil {
			return models.ResultDescriptor{}, fmt.Errorf("failed to load action %s: %w", s.profile.ActionID, err)
		}
		result.ActionID = action.ID
		for k, v := range action.Context {
			result.Context[k] = v
		}
	}
	return result, nil
}

func (s *Session) record(ctx context.Context, d domain.Domain, elapsed time.Duration, count int, searchErr error) {
	if s.cfg.History == nil {
		return
	}
	entry := history.Entry{
		ProfileID:   s.profile.ID,
		ProfileName: s.profile.Name,
		EntityType:  s.profile.EntityType,
		Filter:      d.String(),
		Duration:    elapsed,
		RecordCount: count,
		Success:     searchErr == nil,
	}
	if searchErr != nil {
		entry.ErrorMessage = searchErr.Error()
	}
	if err := s.cfg.History.Add(ctx, entry); err != nil {
		s.cfg.Logger.Warn("failed to record search history", zap.Error(err))
	}
}
