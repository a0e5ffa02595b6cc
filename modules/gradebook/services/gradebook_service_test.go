package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/assignment"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/book"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/grade"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/student"
	"github.com/overunder/overunder/pkg/eventbus"
)

type fakeRepo struct {
	book    *book.Book
	saves   int
	backups int
}

func (r *fakeRepo) Load(context.Context) (*book.Book, error) { return r.book, nil }

func (r *fakeRepo) Save(context.Context, *book.Book) error {
	r.saves++
	return nil
}

func (r *fakeRepo) Backup(context.Context, *book.Book) (string, error) {
	r.backups++
	return "grades.csv.20260824120000.bak", nil
}

func buildBook(t *testing.T) *book.Book {
	t.Helper()
	course, err := assignment.New("CS101", "100%", false)
	require.NoError(t, err)
	homeworks, err := assignment.New("Homeworks", "100%", false)
	require.NoError(t, err)
	hw1, err := assignment.New("HW1", "10", false)
	require.NoError(t, err)
	hw2, err := assignment.New("HW2", "10", false)
	require.NoError(t, err)
	course.AddChild(homeworks)
	homeworks.AddChild(hw1)
	homeworks.AddChild(hw2)

	b := book.New(course)
	s, err := student.Parse("Lovelace, Ada <ada@example.edu>")
	require.NoError(t, err)
	var stack []*grade.Grade
	for _, a := range course.Traversal() {
		g, err := grade.New(a, "None")
		require.NoError(t, err)
		stack = stack[:a.Depth()]
		if len(stack) > 0 {
			stack[len(stack)-1].AddChild(g)
		}
		stack = append(stack, g)
	}
	require.NoError(t, b.Enroll(s, stack[0]))
	return b
}

func newService(t *testing.T) (*GradebookService, *fakeRepo, eventbus.EventBus) {
	t.Helper()
	repo := &fakeRepo{book: buildBook(t)}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	bus := eventbus.NewEventPublisher(log)
	svc := NewGradebookService(repo, bus, log)
	require.NoError(t, svc.Load(context.Background()))
	return svc, repo, bus
}

func TestSaveScore(t *testing.T) {
	svc, repo, bus := newService(t)

	var published *ScoreSavedEvent
	bus.Subscribe(func(e *ScoreSavedEvent) { published = e })

	updates, err := svc.SaveScore(context.Background(), "ada", "CS101__Homeworks__HW1", "9")
	require.NoError(t, err)

	require.Equal(t, 1, repo.saves, "a saved score is written through immediately")
	require.False(t, svc.Dirty())

	// Ancestors only: the edited cell keeps what the user typed.
	require.Len(t, updates, 2)
	require.Equal(t, "ada__CS101__Homeworks", updates[0].TargetID)
	require.Equal(t, "90.00%", updates[0].Display)
	require.Equal(t, "ada__CS101", updates[1].TargetID)
	require.Equal(t, "90.00%", updates[1].Display)

	require.NotNil(t, published)
	require.Equal(t, "ada", published.Alias)
	require.Equal(t, "9", published.Value)
}

func TestSaveScoreErrors(t *testing.T) {
	svc, repo, _ := newService(t)

	_, err := svc.SaveScore(context.Background(), "nobody", "CS101__Homeworks__HW1", "9")
	require.ErrorIs(t, err, book.ErrUnknownStudent)

	_, err = svc.SaveScore(context.Background(), "ada", "CS101__Homeworks__HW1", "garbage")
	require.ErrorIs(t, err, ErrInvalidScore)
	require.Zero(t, repo.saves, "rejected scores never touch the file")
}

func TestUpdateScore(t *testing.T) {
	svc, repo, _ := newService(t)

	updates, changed, err := svc.UpdateScore(context.Background(), "ada", "CS101__Homeworks__HW1", "9")
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, svc.Dirty(), "updates stay in memory until an explicit save")
	require.Zero(t, repo.saves)

	// The edited cell leads, then its ancestors.
	require.Len(t, updates, 3)
	require.Equal(t, "ada__CS101__Homeworks__HW1", updates[0].TargetID)
	require.Equal(t, "9", updates[0].Display)
	require.NotEmpty(t, updates[0].Projection)
	require.NotEmpty(t, updates[0].Color)
	require.Equal(t, "ada__CS101__Homeworks", updates[1].TargetID)
	require.Equal(t, "ada__CS101", updates[2].TargetID)
}

func TestUpdateScoreUnchangedValue(t *testing.T) {
	svc, _, _ := newService(t)

	updates, changed, err := svc.UpdateScore(context.Background(), "ada", "CS101__Homeworks__HW2", "None")
	require.NoError(t, err)
	require.False(t, changed)
	require.Empty(t, updates)
	require.False(t, svc.Dirty())
}

func TestUpdateScoreRejectsUnparseable(t *testing.T) {
	svc, _, _ := newService(t)

	_, _, err := svc.UpdateScore(context.Background(), "ada", "CS101__Homeworks__HW1", "garbage")
	require.ErrorIs(t, err, ErrInvalidScore)

	// Letter grades need a conversion scale, which this path does not
	// supply, so they are rejected too.
	_, _, err = svc.UpdateScore(context.Background(), "ada", "CS101__Homeworks__HW1", "B+")
	require.ErrorIs(t, err, ErrInvalidScore)
}

func TestTreeOperationsMarkDirty(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddAssignment(ctx, "CS101__Homeworks__HW3", "10"))
	require.True(t, svc.Dirty())
	require.NoError(t, svc.Save(ctx))
	require.False(t, svc.Dirty())

	require.NoError(t, svc.MoveAssignmentUp(ctx, "CS101__Homeworks__HW2"))
	require.True(t, svc.Dirty())
	require.NoError(t, svc.MoveAssignmentDown(ctx, "CS101__Homeworks__HW2"))
	require.NoError(t, svc.RemoveAssignment(ctx, "CS101__Homeworks__HW3"))
	require.True(t, svc.Dirty())
}

func TestWriteOnExit(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.WriteOnExit(ctx))
	require.Zero(t, repo.saves, "a clean book is not rewritten")

	_, changed, err := svc.UpdateScore(ctx, "ada", "CS101__Homeworks__HW1", "9")
	require.NoError(t, err)
	require.True(t, changed)

	require.NoError(t, svc.WriteOnExit(ctx))
	require.Equal(t, 1, repo.saves)
	require.False(t, svc.Dirty())
}

func TestBackup(t *testing.T) {
	svc, repo, _ := newService(t)
	path, err := svc.Backup(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, path)
	require.Equal(t, 1, repo.backups)
}

func TestReloadDropsUnsavedChanges(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, changed, err := svc.UpdateScore(ctx, "ada", "CS101__Homeworks__HW1", "9")
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, svc.Reload(ctx))
	require.False(t, svc.Dirty())
}
