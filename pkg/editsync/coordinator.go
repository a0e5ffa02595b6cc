package editsync

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// CommitMode selects when edits are submitted.
type CommitMode int

const (
	// CommitOnBlur submits an edit only when the cell loses focus.
	CommitOnBlur CommitMode = iota
	// CommitOnKeystroke submits on every keystroke. No debouncing is
	// performed; overlapping requests are expected and handled by the
	// registry, never suppressed.
	CommitOnKeystroke
)

func (m CommitMode) String() string {
	switch m {
	case CommitOnBlur:
		return "blur"
	case CommitOnKeystroke:
		return "keystroke"
	default:
		return fmt.Sprintf("CommitMode(%d)", int(m))
	}
}

// Renderer is the coordinator's view of the visual surface. Target
// resolution stays behind this interface so the protocol is testable without
// a real UI. SetValue applies only to editable cells and SetContent only to
// read-only display elements; both report whether the target existed.
type Renderer interface {
	Value(elementID string) (string, bool)
	SetValue(elementID, value string) bool
	SetContent(elementID, markup string) bool
	SetBusy(elementID string, busy bool)
}

// Authority is the remote collaborator that persists edits and computes the
// resulting cascade of recomputed values.
type Authority interface {
	SaveScore(ctx context.Context, subject, item, value string) (Cascade, error)
	CreateChild(ctx context.Context, qualifiedName, weightSpec string) error
}

// Formatter is a pure, synchronous transform applied to a cell's value
// before transmission (e.g. appending a percent marker unless the value is
// the "no value" sentinel).
type Formatter func(key Key, value string) string

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	Mode   CommitMode
	Format Formatter
	Logger logrus.FieldLogger
}

// Coordinator orchestrates the edit -> request -> response/failure ->
// visual-state lifecycle for single cells. Responses may resolve in any
// order relative to when their edits were made; the only guarantee is
// settlement counting: the busy indicator clears only once every issued
// request for a cell has resolved. Cascades are applied unconditionally in
// the order each response delivers them, so an older response can overwrite
// a newer one (known limitation of the protocol).
type Coordinator struct {
	registry  *Registry
	renderer  Renderer
	authority Authority
	mode      CommitMode
	format    Formatter
	log       logrus.FieldLogger
}

func NewCoordinator(registry *Registry, renderer Renderer, authority Authority, opts CoordinatorOptions) *Coordinator {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Coordinator{
		registry:  registry,
		renderer:  renderer,
		authority: authority,
		mode:      opts.Mode,
		format:    opts.Format,
		log:       log,
	}
}

func (c *Coordinator) Mode() CommitMode { return c.mode }

func (c *Coordinator) Registry() *Registry { return c.registry }

// HandleBlur submits the cell's edit when the coordinator commits on blur.
func (c *Coordinator) HandleBlur(ctx context.Context, elementID string) error {
	if c.mode != CommitOnBlur {
		return nil
	}
	return c.SubmitEdit(ctx, elementID)
}

// HandleKeystroke submits the cell's edit when the coordinator commits on
// every keystroke.
func (c *Coordinator) HandleKeystroke(ctx context.Context, elementID string) error {
	if c.mode != CommitOnKeystroke {
		return nil
	}
	return c.SubmitEdit(ctx, elementID)
}

// SubmitEdit runs one full save lifecycle for the cell identified by
// elementID. On failure the cell is left marked busy; a later successful
// submit on the same cell clears it. Failures are confined to the one cell:
// no other cell's registry entry or visual state is touched.
func (c *Coordinator) SubmitEdit(ctx context.Context, elementID string) error {
	key, err := DecodeKey(elementID)
	if err != nil {
		return err
	}
	value, ok := c.renderer.Value(elementID)
	if !ok {
		return fmt.Errorf("editsync: no editable cell %q", elementID)
	}
	if c.format != nil {
		value = c.format(key, value)
	}

	c.registry.Begin(key)
	c.renderer.SetBusy(elementID, true)

	cascade, err := c.authority.SaveScore(ctx, key.Subject, key.Item, value)
	if err != nil {
		c.registry.ResolveFailure(key)
		c.log.WithError(err).WithField("cell", elementID).
			Warn("score save failed; cell stays pending until a retry succeeds")
		return err
	}

	c.applyCascade(cascade)
	if c.registry.ResolveSuccess(key) {
		c.renderer.SetBusy(elementID, false)
	}
	return nil
}

// applyCascade overwrites each target's displayed state in order. Editable
// cells take a plain value, read-only cells take rendered markup; a target
// absent from the surface is skipped without aborting the rest.
func (c *Coordinator) applyCascade(cascade Cascade) {
	for _, entry := range cascade {
		if c.renderer.SetValue(entry.Target, entry.Value) {
			continue
		}
		if !c.renderer.SetContent(entry.Target, entry.Value) {
			c.log.WithField("target", entry.Target).Debug("cascade target not found")
		}
	}
}
