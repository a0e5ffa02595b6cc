package editsync

// Expander glyphs and the element ID convention for tree toggle indicators.
// A node's expander element is its qualified name plus ExpanderSuffix.
const (
	GlyphExpanded  = "▾"
	GlyphCollapsed = "▸"
	ExpanderSuffix = "-expander"
)

// RowDisplay is the tree controller's view of the rendered table. Rows carry
// the qualified names of all their ancestors as grouping tags, so showing or
// hiding one tag covers every descendant row.
type RowDisplay interface {
	Glyph(expanderID string) (string, bool)
	SetGlyph(expanderID, glyph string)
	ShowGroup(tag string)
	HideGroup(tag string)
}

// TreeView toggles visibility of the descendant rows grouped under a tree
// node. Each node is a pure two-state toggle: hiding a parent's tag never
// rewrites the stored glyphs of its descendants, they simply become
// invisible along with it.
type TreeView struct {
	rows RowDisplay
}

func NewTreeView(rows RowDisplay) *TreeView {
	return &TreeView{rows: rows}
}

// Toggle flips the node between expanded and collapsed. Leaf nodes have no
// expander wired and toggling them is a no-op.
func (t *TreeView) Toggle(nodeKey string) {
	expanderID := nodeKey + ExpanderSuffix
	glyph, ok := t.rows.Glyph(expanderID)
	if !ok {
		return
	}
	if glyph == GlyphExpanded {
		t.rows.SetGlyph(expanderID, GlyphCollapsed)
		t.rows.HideGroup(nodeKey)
		return
	}
	t.rows.SetGlyph(expanderID, GlyphExpanded)
	t.rows.ShowGroup(nodeKey)
}
