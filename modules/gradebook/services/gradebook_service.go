package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/book"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/grade"
	"github.com/overunder/overunder/modules/gradebook/domain/gradeval"
	"github.com/overunder/overunder/pkg/eventbus"
)

var ErrInvalidScore = errors.New("invalid score")

// ScoreUpdate describes one cell whose rendered state changed after an
// edit. TargetID is the element ID convention used by the editing surface:
// the student alias joined to the assignment's qualified name.
type ScoreUpdate struct {
	TargetID   string `json:"qname"`
	Display    string `json:"display"`
	Projection string `json:"projection"`
	Color      string `json:"color"`
}

// ScoreSavedEvent is published after every accepted edit.
type ScoreSavedEvent struct {
	Alias         string
	QualifiedName string
	Value         string
	Updates       []ScoreUpdate
}

// GradebookService serializes all access to the in-memory book. The book
// is the single source of truth between saves; the dirty flag tracks
// whether it has drifted from the file.
type GradebookService struct {
	mu        sync.Mutex
	repo      book.Repository
	book      *book.Book
	dirty     bool
	publisher eventbus.EventBus
	log       logrus.FieldLogger
}

func NewGradebookService(repo book.Repository, publisher eventbus.EventBus, log logrus.FieldLogger) *GradebookService {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &GradebookService{repo: repo, publisher: publisher, log: log}
}

// Load reads the book from its repository, replacing any in-memory state.
func (s *GradebookService) Load(ctx context.Context) error {
	b, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book = b
	s.dirty = false
	return nil
}

// SaveScore sets a cell unconditionally and persists the whole book at
// once. It returns updates for the cell's ancestors, whose displayed
// aggregates shifted with the edit.
func (s *GradebookService) SaveScore(ctx context.Context, alias, qualifiedName, value string) ([]ScoreUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, err := s.book.Grade(alias, qualifiedName)
	if err != nil {
		return nil, err
	}
	if err := cell.Set(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if err := s.repo.Save(ctx, s.book); err != nil {
		return nil, err
	}
	s.dirty = false

	updates := make([]ScoreUpdate, 0, len(cell.Ancestors()))
	for _, ancestor := range cell.Ancestors() {
		updates = append(updates, s.scoreUpdate(alias, ancestor))
	}
	s.publish(ScoreSavedEvent{Alias: alias, QualifiedName: qualifiedName, Value: value, Updates: updates})
	return updates, nil
}

// UpdateScore sets a cell in memory only. It reports false without
// touching anything when the entered value matches what the cell already
// displays, and returns the changed cell plus its ancestors otherwise.
func (s *GradebookService) UpdateScore(ctx context.Context, alias, qualifiedName, value string) ([]ScoreUpdate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, err := s.book.Grade(alias, qualifiedName)
	if err != nil {
		return nil, false, err
	}
	if cell.DisplayString() == value {
		return nil, false, nil
	}
	// Letter grades are not accepted on this path: the value must stand
	// alone, without a conversion scale.
	if _, _, err := gradeval.Parse(value, gradeval.Options{}); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if err := cell.Set(value); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	s.dirty = true

	updates := []ScoreUpdate{s.scoreUpdate(alias, cell)}
	for _, ancestor := range cell.Ancestors() {
		updates = append(updates, s.scoreUpdate(alias, ancestor))
	}
	s.publish(ScoreSavedEvent{Alias: alias, QualifiedName: qualifiedName, Value: value, Updates: updates})
	return updates, true, nil
}

func (s *GradebookService) scoreUpdate(alias string, g *grade.Grade) ScoreUpdate {
	return ScoreUpdate{
		TargetID:   alias + "__" + g.QualifiedName(),
		Display:    g.DisplayString(),
		Projection: g.ProjectionString(),
		Color:      g.Color(),
	}
}

func (s *GradebookService) publish(event ScoreSavedEvent) {
	if s.publisher != nil {
		s.publisher.Publish(&event)
	}
}

// AddAssignment creates a node and mirrors it into every student's tree.
func (s *GradebookService) AddAssignment(_ context.Context, qualifiedName, weightSpec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.book.AddAssignment(qualifiedName, weightSpec); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

func (s *GradebookService) MoveAssignmentUp(_ context.Context, qualifiedName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.book.MoveAssignmentUp(qualifiedName); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

func (s *GradebookService) MoveAssignmentDown(_ context.Context, qualifiedName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.book.MoveAssignmentDown(qualifiedName); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

func (s *GradebookService) RemoveAssignment(_ context.Context, qualifiedName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.book.RemoveAssignment(qualifiedName); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Save persists the book to its file.
func (s *GradebookService) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Save(ctx, s.book); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Reload discards in-memory state and rereads the file.
func (s *GradebookService) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// Backup writes a timestamped copy without touching the main file.
func (s *GradebookService) Backup(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Backup(ctx, s.book)
}

// WriteOnExit persists only if there are unsaved changes.
func (s *GradebookService) WriteOnExit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := s.repo.Save(ctx, s.book); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Dirty reports whether the book has unsaved changes.
func (s *GradebookService) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// WithBook runs fn with exclusive access to the book. The book must not
// escape fn.
func (s *GradebookService) WithBook(fn func(b *book.Book) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.book)
}
