package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rebeliceyang/lazysearch/internal/catalog/catalogtest"
	"github.com/rebeliceyang/lazysearch/internal/coerce"
	"github.com/rebeliceyang/lazysearch/internal/compiler"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"github.com/rebeliceyang/lazysearch/internal/history"
	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	ids      []int64
	err      error
	calls    int
	entity   string
	received domain.Domain
}

func (s *stubSearcher) Search(_ context.Context, entityType string, d domain.Domain) ([]int64, error) {
	s.calls++
	s.entity = entityType
	s.received = d
	return s.ids, s.err
}

type memoryHistory struct {
	entries []history.Entry
}

func (m *memoryHistory) Add(_ context.Context, e history.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

type actionMap map[string]models.Action

func (m actionMap) GetAction(_ context.Context, id string) (models.Action, error) {
	a, ok := m[id]
	if !ok {
		return models.Action{}, errors.New("no such action")
	}
	return a, nil
}

func acmeProfile() models.Profile {
	return models.Profile{
		ID:         "p1",
		Name:       "Acme",
		EntityType: "party",
		Lines: []models.ConditionLine{
			{Group: models.GroupAnd, Field: "name", Operator: models.OpILike, Value: "%acme%"},
		},
	}
}

func newSession(t *testing.T, searcher Searcher, rec Recorder, actions compiler.ActionSource, p models.Profile) *Session {
	t.Helper()
	cat := catalogtest.New()
	s, err := New(context.Background(), Config{
		Compiler: compiler.New(cat, actions),
		Catalog:  cat,
		Searcher: searcher,
		Actions:  actions,
		History:  rec,
	}, p)
	require.NoError(t, err)
	return s
}

func TestConfirmOpensResult(t *testing.T) {
	searcher := &stubSearcher{ids: []int64{1, 2}}
	rec := &memoryHistory{}
	s := newSession(t, searcher, rec, nil, acmeProfile())
	assert.Equal(t, Selecting, s.State())

	result, err := s.Confirm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Opened, s.State())
	assert.Equal(t, 1, searcher.calls)
	assert.Equal(t, "party", searcher.entity)
	assert.Equal(t, `[[('name', 'ilike', '%acme%')]]`, searcher.received.String())

	assert.Equal(t, "Acme - party", result.Name)
	assert.Equal(t, "party", result.EntityType)
	assert.JSONEq(t, `[[["name", "ilike", "%acme%"]]]`, result.Filter)
	assert.Equal(t, map[string]string{}, result.Context)
	assert.Equal(t, "[]", result.Order)
	assert.Equal(t, "[]", result.SearchValue)
	assert.Equal(t, []int64{1, 2}, result.RecordIDs)
	assert.Empty(t, result.ActionID)

	got, ok := s.Result()
	assert.True(t, ok)
	assert.Equal(t, result, got)

	require.Len(t, rec.entries, 1)
	assert.True(t, rec.entries[0].Success)
	assert.Equal(t, 2, rec.entries[0].RecordCount)
	assert.Equal(t, "p1", rec.entries[0].ProfileID)

	// an opened session is finished
	_, err = s.Confirm(context.Background())
	assert.True(t, errors.Is(err, ErrFinished))
	assert.True(t, errors.Is(s.Cancel(), ErrFinished))
}

func TestConfirmRejectsBackendFailure(t *testing.T) {
	searcher := &stubSearcher{err: errors.New(`operator does not exist: integer ~~* unknown`)}
	rec := &memoryHistory{}
	s := newSession(t, searcher, rec, nil, acmeProfile())

	_, err := s.Confirm(context.Background())
	var dve *DomainValidationError
	require.True(t, errors.As(err, &dve))
	assert.Equal(t, Rejected, s.State())
	assert.Equal(t, `[[('name', 'ilike', '%acme%')]]`, dve.Filter.String())
	assert.Contains(t, err.Error(), `[[('name', 'ilike', '%acme%')]]`)
	assert.Equal(t, dve.Filter, s.AttemptedFilter())
	assert.Equal(t, err, s.Err())

	_, ok := s.Result()
	assert.False(t, ok)

	require.Len(t, rec.entries, 1)
	assert.False(t, rec.entries[0].Success)
	assert.Contains(t, rec.entries[0].ErrorMessage, "operator does not exist")

	// the user corrects the filter and tries again
	require.NoError(t, s.SetOverrideExpression("[('code', '=', 'ACME')]"))
	assert.Equal(t, Selecting, s.State())
	searcher.err = nil
	searcher.ids = []int64{7}

	result, err := s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Opened, s.State())
	assert.JSONEq(t, `[["code", "=", "ACME"]]`, result.Filter)
	assert.Nil(t, s.Err())
	assert.Equal(t, 2, searcher.calls)
}

func TestConfirmCompileErrorsDoNotExecute(t *testing.T) {
	searcher := &stubSearcher{}
	rec := &memoryHistory{}
	s := newSession(t, searcher, rec, nil, acmeProfile())

	require.NoError(t, s.SetOverrideLines([]models.ConditionLine{
		{Field: "employees", Operator: models.OpEqual, Value: "lots"},
	}))
	_, err := s.Confirm(context.Background())
	var vfe *coerce.ValueFormatError
	require.True(t, errors.As(err, &vfe))
	assert.Equal(t, Selecting, s.State())
	assert.Equal(t, 0, searcher.calls)
	assert.Empty(t, rec.entries)

	require.NoError(t, s.SetOverrideExpression("5"))
	_, err = s.Confirm(context.Background())
	var dfe *compiler.DomainFieldError
	require.True(t, errors.As(err, &dfe))
	assert.Equal(t, 0, searcher.calls)
}

func TestOverrideDoesNotTouchProfile(t *testing.T) {
	searcher := &stubSearcher{ids: []int64{}}
	p := acmeProfile()
	s := newSession(t, searcher, nil, nil, p)

	lines := []models.ConditionLine{{Field: "code", Operator: models.OpEqual, Value: "X"}}
	require.NoError(t, s.SetOverrideLines(lines))
	lines[0].Value = "changed"

	assert.Equal(t, "X", s.Source().Lines[0].Value)
	assert.Equal(t, p, s.Profile())

	require.NoError(t, s.ClearOverride())
	assert.Equal(t, compiler.SourceOf(p), s.Source())

	_, err := s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[[('name', 'ilike', '%acme%')]]`, searcher.received.String())
}

func TestEmptyProfileMatchesEverything(t *testing.T) {
	searcher := &stubSearcher{ids: []int64{1, 2, 3}}
	p := models.Profile{Name: "All", EntityType: "party"}
	s := newSession(t, searcher, nil, nil, p)

	result, err := s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Empty(t, searcher.received)
	assert.JSONEq(t, `[]`, result.Filter)
}

func TestBoundActionContext(t *testing.T) {
	actions := actionMap{
		"act": {ID: "act", Name: "Active parties", EntityType: "party",
			Domain: "[('active', '=', True)]", Context: map[string]string{"company": "1"}},
	}
	searcher := &stubSearcher{ids: []int64{3}}
	p := acmeProfile()
	p.ActionID = "act"
	s := newSession(t, searcher, nil, actions, p)

	result, err := s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "act", result.ActionID)
	assert.Equal(t, map[string]string{"company": "1"}, result.Context)
	assert.Equal(t, `[[('name', 'ilike', '%acme%')], ('active', '=', True)]`, searcher.received.String())
}

func TestCancel(t *testing.T) {
	searcher := &stubSearcher{}
	s := newSession(t, searcher, nil, nil, acmeProfile())

	require.NoError(t, s.Cancel())
	assert.Equal(t, Cancelled, s.State())
	assert.Equal(t, 0, searcher.calls)

	assert.Error(t, s.SetOverrideExpression("[]"))
	_, err := s.Confirm(context.Background())
	assert.True(t, errors.Is(err, ErrFinished))
}

func TestNewRejectsUnknownEntity(t *testing.T) {
	cat := catalogtest.New()
	_, err := New(context.Background(), Config{
		Compiler: compiler.New(cat, nil),
		Catalog:  cat,
		Searcher: &stubSearcher{},
	}, models.Profile{Name: "Invoices", EntityType: "invoice"})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Catalog: cat}, acmeProfile())
	assert.Error(t, err)
}

func TestConfirmRejectsNonFiniteValuesBeforeSearching(t *testing.T) {
	searcher := &stubSearcher{ids: []int64{1}}
	rec := &memoryHistory{}
	s := newSession(t, searcher, rec, nil, acmeProfile())

	for _, raw := range []string{"nan", "inf", "-Infinity"} {
		require.NoError(t, s.SetOverrideLines([]models.ConditionLine{
			{Field: "rating", Operator: models.OpEqual, Value: raw},
		}))
		_, err := s.Confirm(context.Background())
		var vfe *coerce.ValueFormatError
		require.True(t, errors.As(err, &vfe), "%s: got %v", raw, err)
		assert.Equal(t, "rating", vfe.Field)
		assert.Equal(t, Selecting, s.State())
	}
	assert.Equal(t, 0, searcher.calls)
	assert.Empty(t, rec.entries)

	require.NoError(t, s.SetOverrideLines([]models.ConditionLine{
		{Field: "rating", Operator: models.OpGreaterThan, Value: "2.5"},
	}))
	result, err := s.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Opened, s.State())
	assert.JSONEq(t, `[[["rating", ">", 2.5]]]`, result.Filter)
	assert.Len(t, rec.entries, 1)
}
