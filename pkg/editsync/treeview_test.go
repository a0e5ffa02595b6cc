package editsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	glyphs  map[string]string
	visible map[string]bool
}

func newFakeRows() *fakeRows {
	return &fakeRows{
		glyphs:  make(map[string]string),
		visible: make(map[string]bool),
	}
}

func (r *fakeRows) Glyph(expanderID string) (string, bool) {
	g, ok := r.glyphs[expanderID]
	return g, ok
}

func (r *fakeRows) SetGlyph(expanderID, glyph string) {
	r.glyphs[expanderID] = glyph
}

func (r *fakeRows) ShowGroup(tag string) {
	r.visible[tag] = true
}

func (r *fakeRows) HideGroup(tag string) {
	r.visible[tag] = false
}

func TestTreeView_ToggleCollapsesAndExpands(t *testing.T) {
	rows := newFakeRows()
	rows.glyphs["CS101__Homeworks-expander"] = GlyphExpanded
	rows.visible["CS101__Homeworks"] = true

	tv := NewTreeView(rows)

	tv.Toggle("CS101__Homeworks")
	require.Equal(t, GlyphCollapsed, rows.glyphs["CS101__Homeworks-expander"])
	require.False(t, rows.visible["CS101__Homeworks"])

	tv.Toggle("CS101__Homeworks")
	require.Equal(t, GlyphExpanded, rows.glyphs["CS101__Homeworks-expander"])
	require.True(t, rows.visible["CS101__Homeworks"], "double toggle restores the original state")
}

func TestTreeView_LeafWithoutExpanderIsNoOp(t *testing.T) {
	rows := newFakeRows()
	tv := NewTreeView(rows)

	tv.Toggle("CS101__Homeworks__HW1")
	require.Empty(t, rows.glyphs)
	require.Empty(t, rows.visible)
}

func TestTreeView_CollapsedParentDoesNotRewriteChildGlyphs(t *testing.T) {
	rows := newFakeRows()
	rows.glyphs["CS101-expander"] = GlyphExpanded
	rows.glyphs["CS101__Homeworks-expander"] = GlyphExpanded

	NewTreeView(rows).Toggle("CS101")

	require.Equal(t, GlyphCollapsed, rows.glyphs["CS101-expander"])
	require.Equal(t, GlyphExpanded, rows.glyphs["CS101__Homeworks-expander"],
		"descendant indicators keep their own state while hidden")
}
