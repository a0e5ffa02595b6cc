// Package grade models per-student grades mirroring the assignment tree.
// Interior nodes derive their value from their children; leaves hold the
// raw value string as entered.
package grade

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/assignment"
	"github.com/overunder/overunder/modules/gradebook/domain/colorscale"
	"github.com/overunder/overunder/modules/gradebook/domain/gradeval"
)

var ErrNotFound = errors.New("grade not found")

// UngradedColor is used for cells with no grade anywhere beneath them.
const UngradedColor = "#FFFFFF"

// letterBounds are the upper bounds of each letter grade, in ascending
// order. A ratio below a bound earns that letter; at or above the top it
// is an A.
var letterBounds = []struct {
	Letter string
	Bound  *big.Rat
}{
	{"F", big.NewRat(180, 300)},
	{"D", big.NewRat(195, 300)},
	{"D+", big.NewRat(210, 300)},
	{"C-", big.NewRat(220, 300)},
	{"C", big.NewRat(230, 300)},
	{"C+", big.NewRat(240, 300)},
	{"B-", big.NewRat(250, 300)},
	{"B", big.NewRat(260, 300)},
	{"B+", big.NewRat(270, 300)},
	{"A-", big.NewRat(285, 300)},
	{"A", big.NewRat(300, 300)},
}

var letterScale = func() map[string]*big.Rat {
	scale := make(map[string]*big.Rat, len(letterBounds))
	for _, entry := range letterBounds {
		scale[entry.Letter] = entry.Bound
	}
	return scale
}()

var defaultColorScale = func() *colorscale.Scale {
	scale, err := colorscale.New([]colorscale.Anchor{
		{Bound: big.NewRat(6, 10), HTML: "#F5C7C3"},
		{Bound: big.NewRat(8, 10), HTML: "#FCE8AF"},
		{Bound: big.NewRat(10, 10), HTML: "#B6E1CC"},
	})
	if err != nil {
		panic(err)
	}
	return scale
}()

// LetterScale maps each letter grade to its equivalent ratio.
func LetterScale() map[string]*big.Rat {
	return letterScale
}

// Letter names the letter grade for a ratio.
func Letter(ratio *big.Rat) string {
	for _, entry := range letterBounds {
		if ratio.Cmp(entry.Bound) < 0 {
			return entry.Letter
		}
	}
	return "A"
}

// Grade is one node of a student's grade tree.
type Grade struct {
	name       string
	assignment *assignment.Assignment
	raw        string

	parent   *Grade
	children []*Grade

	// cache, cleared whenever this node or a descendant changes
	hasGrade     bool
	percentGrade *big.Rat
	minCache     *big.Rat
	partialCache *big.Rat
	maxCache     *big.Rat
}

// New builds a detached grade node. The value string must parse; "None"
// marks the assignment as ungraded.
func New(a *assignment.Assignment, value string) (*Grade, error) {
	g := &Grade{name: a.Name(), assignment: a}
	if err := g.Set(value); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grade) parseOpts() gradeval.Options {
	return gradeval.Options{
		FullPoints:  g.assignment.Weight(),
		LetterScale: letterScale,
	}
}

func (g *Grade) Name() string                       { return g.name }
func (g *Grade) Assignment() *assignment.Assignment { return g.assignment }
func (g *Grade) Raw() string                        { return g.raw }
func (g *Grade) Parent() *Grade                     { return g.parent }
func (g *Grade) Children() []*Grade                 { return g.children }
func (g *Grade) IsLeaf() bool                       { return len(g.children) == 0 }
func (g *Grade) ExtraCredit() bool                  { return g.assignment.ExtraCredit() }
func (g *Grade) PercentWeight() *big.Rat            { return g.assignment.PercentWeight() }

// HasGrade reports whether any value has been entered at or below this node.
func (g *Grade) HasGrade() bool { return g.hasGrade }

func (g *Grade) Depth() int {
	depth := 0
	for curr := g.parent; curr != nil; curr = curr.parent {
		depth++
	}
	return depth
}

func (g *Grade) QualifiedName() string {
	names := []string{g.name}
	for curr := g.parent; curr != nil; curr = curr.parent {
		names = append([]string{curr.name}, names...)
	}
	return strings.Join(names, assignment.Delimiter)
}

func (g *Grade) Ancestors() []*Grade {
	var ancestors []*Grade
	for curr := g.parent; curr != nil; curr = curr.parent {
		ancestors = append(ancestors, curr)
	}
	return ancestors
}

func (g *Grade) Traversal() []*Grade {
	nodes := []*Grade{g}
	for _, child := range g.children {
		nodes = append(nodes, child.Traversal()...)
	}
	return nodes
}

func (g *Grade) indexOf(name string) (int, error) {
	for i, child := range g.children {
		if child.name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q has no child %q", ErrNotFound, g.QualifiedName(), name)
}

func (g *Grade) Get(qualifiedName string) (*Grade, error) {
	names := strings.Split(qualifiedName, assignment.Delimiter)
	if names[0] != g.name {
		return nil, fmt.Errorf("%w: %q is not rooted at %q", ErrNotFound, qualifiedName, g.name)
	}
	return g.get(names)
}

func (g *Grade) get(names []string) (*Grade, error) {
	if len(names) == 1 {
		return g, nil
	}
	index, err := g.indexOf(names[1])
	if err != nil {
		return nil, err
	}
	return g.children[index].get(names[1:])
}

func (g *Grade) AddChild(child *Grade) {
	g.children = append(g.children, child)
	child.parent = g
	child.propagate()
}

func (g *Grade) AddDescendant(qualifiedName string, node *Grade) error {
	names := strings.Split(qualifiedName, assignment.Delimiter)
	if names[0] != g.name || len(names) < 2 {
		return fmt.Errorf("%w: cannot attach %q under %q", ErrNotFound, qualifiedName, g.name)
	}
	parent, err := g.get(names[:len(names)-1])
	if err != nil {
		return err
	}
	parent.AddChild(node)
	return nil
}

func (g *Grade) MoveUp(qualifiedName string) error {
	node, err := g.Get(qualifiedName)
	if err != nil {
		return err
	}
	if node.parent == nil {
		return fmt.Errorf("%w: cannot move the root", ErrNotFound)
	}
	siblings := node.parent.children
	index, err := node.parent.indexOf(node.name)
	if err != nil {
		return err
	}
	if index > 0 {
		siblings[index-1], siblings[index] = siblings[index], siblings[index-1]
	}
	return nil
}

func (g *Grade) MoveDown(qualifiedName string) error {
	node, err := g.Get(qualifiedName)
	if err != nil {
		return err
	}
	if node.parent == nil {
		return fmt.Errorf("%w: cannot move the root", ErrNotFound)
	}
	siblings := node.parent.children
	index, err := node.parent.indexOf(node.name)
	if err != nil {
		return err
	}
	if index < len(siblings)-1 {
		siblings[index], siblings[index+1] = siblings[index+1], siblings[index]
	}
	return nil
}

func (g *Grade) Remove(qualifiedName string) (*Grade, error) {
	node, err := g.Get(qualifiedName)
	if err != nil {
		return nil, err
	}
	if node.parent == nil {
		return nil, fmt.Errorf("%w: cannot remove the root", ErrNotFound)
	}
	parent := node.parent
	index, err := parent.indexOf(node.name)
	if err != nil {
		return nil, err
	}
	parent.children = append(parent.children[:index], parent.children[index+1:]...)
	node.parent = nil
	parent.propagate()
	return node, nil
}

// Set replaces the value. Setting the same value is a no-op; an
// unparseable value is rejected without touching the node.
func (g *Grade) Set(value string) error {
	value = strings.TrimSpace(value)
	if g.raw == value && g.raw != "" {
		return nil
	}
	if _, _, err := gradeval.Parse(value, g.parseOpts()); err != nil {
		return err
	}
	g.raw = value
	g.propagate()
	return nil
}

// propagate recomputes this node's cached state and walks up the tree so
// every ancestor sees the change.
func (g *Grade) propagate() {
	g.minCache = nil
	g.partialCache = nil
	g.maxCache = nil
	if g.IsLeaf() {
		g.percentGrade, _, _ = gradeval.Parse(g.raw, g.parseOpts())
		g.hasGrade = g.percentGrade != nil
	} else {
		g.hasGrade = false
		for _, child := range g.children {
			if child.hasGrade {
				g.hasGrade = true
				break
			}
		}
	}
	if g.parent != nil {
		g.parent.propagate()
	}
}

// weighted computes the node's grade ratio. When defaultGrade is nil,
// ungraded subtrees are skipped entirely; otherwise they count as the
// given ratio. Extra credit children add score without adding weight.
func (g *Grade) weighted(defaultGrade *big.Rat) *big.Rat {
	if !g.IsLeaf() {
		totalGrade := new(big.Rat)
		totalWeight := new(big.Rat)
		for _, child := range g.children {
			if defaultGrade == nil && !child.hasGrade {
				continue
			}
			part := new(big.Rat).Mul(child.PercentWeight(), child.weighted(defaultGrade))
			totalGrade.Add(totalGrade, part)
			if !child.ExtraCredit() {
				totalWeight.Add(totalWeight, child.PercentWeight())
			}
		}
		if totalWeight.Sign() == 0 {
			return new(big.Rat)
		}
		return totalGrade.Quo(totalGrade, totalWeight)
	}
	if g.hasGrade {
		return g.percentGrade
	}
	if defaultGrade == nil {
		return new(big.Rat)
	}
	return defaultGrade
}

// Minimum is the grade if every ungraded assignment scores 0%.
func (g *Grade) Minimum() *big.Rat {
	if g.minCache == nil {
		g.minCache = g.weighted(new(big.Rat))
	}
	return g.minCache
}

// Partial is the grade counting only what has been graded so far.
func (g *Grade) Partial() *big.Rat {
	if g.partialCache == nil {
		g.partialCache = g.weighted(nil)
	}
	return g.partialCache
}

// Maximum is the grade if every ungraded assignment scores 100%.
func (g *Grade) Maximum() *big.Rat {
	if g.maxCache == nil {
		g.maxCache = g.weighted(big.NewRat(1, 1))
	}
	return g.maxCache
}

// DisplayString shows the raw value for leaves and the partial percentage
// for interior nodes.
func (g *Grade) DisplayString() string {
	if g.IsLeaf() {
		return g.raw
	}
	return gradeval.FormatPercent(g.Partial())
}

// ExportString is the value written back to the gradebook file. Interior
// nodes export their minimum so the file stands alone as a worst-case
// snapshot.
func (g *Grade) ExportString() string {
	if g.IsLeaf() {
		return g.raw
	}
	return gradeval.FormatPercent(g.Minimum())
}

// ProjectionString summarizes all three projections with letter grades.
func (g *Grade) ProjectionString() string {
	minimum := g.Minimum()
	partial := g.Partial()
	maximum := g.Maximum()
	return strings.Join([]string{
		fmt.Sprintf("Minimum: %s (%s)", gradeval.FormatPercent(minimum), Letter(minimum)),
		fmt.Sprintf("Partial: %s (%s)", gradeval.FormatPercent(partial), Letter(partial)),
		fmt.Sprintf("Maximum: %s (%s)", gradeval.FormatPercent(maximum), Letter(maximum)),
	}, "\n")
}

// Color maps the partial grade onto the cell color scale; ungraded cells
// stay white.
func (g *Grade) Color() string {
	if !g.hasGrade {
		return UngradedColor
	}
	return defaultColorScale.Color(g.Partial())
}

func (g *Grade) String() string {
	return fmt.Sprintf("%s: %s / %s / %s",
		g.assignment,
		gradeval.FormatPercent(g.Minimum()),
		gradeval.FormatPercent(g.Partial()),
		gradeval.FormatPercent(g.Maximum()),
	)
}
