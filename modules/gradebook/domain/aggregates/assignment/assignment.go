// Package assignment models the weighted assignment tree of a gradebook.
// Nodes are addressed by qualified name, the "__"-joined path of node names
// from the root down.
package assignment

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/overunder/overunder/modules/gradebook/domain/gradeval"
)

// Delimiter joins node names into qualified names.
const Delimiter = "__"

var ErrNotFound = errors.New("assignment not found")

// Assignment is a node in the weighted tree. Leaves are gradable items;
// interior nodes aggregate their children. An extra credit assignment
// contributes its score without contributing weight.
type Assignment struct {
	name        string
	weightSpec  string
	weight      *big.Rat
	weightKind  gradeval.Kind
	extraCredit bool

	parent   *Assignment
	children []*Assignment
}

// New builds a detached node from a weight specification such as "10",
// "25%", or "1/3".
func New(name, weightSpec string, extraCredit bool) (*Assignment, error) {
	weight, kind, err := gradeval.Parse(weightSpec, gradeval.Options{})
	if err != nil {
		return nil, fmt.Errorf("assignment %q: %w", name, err)
	}
	if weight == nil {
		return nil, fmt.Errorf("assignment %q: invalid weight %q", name, weightSpec)
	}
	return &Assignment{
		name:        name,
		weightSpec:  weightSpec,
		weight:      weight,
		weightKind:  kind,
		extraCredit: extraCredit,
	}, nil
}

func (a *Assignment) Name() string            { return a.name }
func (a *Assignment) WeightSpec() string      { return a.weightSpec }
func (a *Assignment) Weight() *big.Rat        { return a.weight }
func (a *Assignment) ExtraCredit() bool       { return a.extraCredit }
func (a *Assignment) Parent() *Assignment     { return a.parent }
func (a *Assignment) Children() []*Assignment { return a.children }
func (a *Assignment) IsLeaf() bool            { return len(a.children) == 0 }

func (a *Assignment) Depth() int {
	depth := 0
	for curr := a.parent; curr != nil; curr = curr.parent {
		depth++
	}
	return depth
}

func (a *Assignment) QualifiedName() string {
	names := []string{a.name}
	for curr := a.parent; curr != nil; curr = curr.parent {
		names = append([]string{curr.name}, names...)
	}
	return strings.Join(names, Delimiter)
}

// Ancestors returns the chain of parents, nearest first.
func (a *Assignment) Ancestors() []*Assignment {
	var ancestors []*Assignment
	for curr := a.parent; curr != nil; curr = curr.parent {
		ancestors = append(ancestors, curr)
	}
	return ancestors
}

// Traversal returns the node and all descendants in depth-first order,
// matching the column order of the gradebook file.
func (a *Assignment) Traversal() []*Assignment {
	nodes := []*Assignment{a}
	for _, child := range a.children {
		nodes = append(nodes, child.Traversal()...)
	}
	return nodes
}

func (a *Assignment) indexOf(name string) (int, error) {
	for i, child := range a.children {
		if child.name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q has no child %q", ErrNotFound, a.QualifiedName(), name)
}

// Get resolves a qualified name rooted at this node.
func (a *Assignment) Get(qualifiedName string) (*Assignment, error) {
	names := strings.Split(qualifiedName, Delimiter)
	if names[0] != a.name {
		return nil, fmt.Errorf("%w: %q is not rooted at %q", ErrNotFound, qualifiedName, a.name)
	}
	return a.get(names)
}

func (a *Assignment) get(names []string) (*Assignment, error) {
	if len(names) == 1 {
		return a, nil
	}
	index, err := a.indexOf(names[1])
	if err != nil {
		return nil, err
	}
	return a.children[index].get(names[1:])
}

func (a *Assignment) AddChild(child *Assignment) {
	a.children = append(a.children, child)
	child.parent = a
}

// AddDescendant attaches a node at the position named by qualifiedName; all
// path components except the last must already exist.
func (a *Assignment) AddDescendant(qualifiedName string, node *Assignment) error {
	names := strings.Split(qualifiedName, Delimiter)
	if names[0] != a.name || len(names) < 2 {
		return fmt.Errorf("%w: cannot attach %q under %q", ErrNotFound, qualifiedName, a.name)
	}
	parent, err := a.get(names[:len(names)-1])
	if err != nil {
		return err
	}
	parent.AddChild(node)
	return nil
}

// MoveUp swaps the named node with its nearest elder sibling. The first
// sibling stays put.
func (a *Assignment) MoveUp(qualifiedName string) error {
	node, err := a.Get(qualifiedName)
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

// MoveDown swaps the named node with its nearest younger sibling. The last
// sibling stays put.
func (a *Assignment) MoveDown(qualifiedName string) error {
	node, err := a.Get(qualifiedName)
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

// Remove detaches and returns the named node.
func (a *Assignment) Remove(qualifiedName string) (*Assignment, error) {
	node, err := a.Get(qualifiedName)
	if err != nil {
		return nil, err
	}
	if node.parent == nil {
		return nil, fmt.Errorf("%w: cannot remove the root", ErrNotFound)
	}
	index, err := node.parent.indexOf(node.name)
	if err != nil {
		return nil, err
	}
	siblings := node.parent.children
	node.parent.children = append(siblings[:index], siblings[index+1:]...)
	node.parent = nil
	return node, nil
}

// PercentWeight normalizes the weight against the node's siblings. Percent
// and fraction weights already are ratios; point weights are divided by the
// siblings' point total. The root always weighs 1.
func (a *Assignment) PercentWeight() *big.Rat {
	if a.parent == nil {
		return big.NewRat(1, 1)
	}
	if a.weightKind != gradeval.KindPoints {
		return a.weight
	}
	total := new(big.Rat)
	for _, sibling := range a.parent.children {
		total.Add(total, sibling.weight)
	}
	if total.Sign() == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).Quo(a.weight, total)
}

// WeightDisplay is the human-readable weight, e.g. "10pts" or "25%".
func (a *Assignment) WeightDisplay() string {
	if a.weightKind == gradeval.KindPoints {
		if a.weight.Cmp(big.NewRat(1, 1)) == 0 {
			return a.weightSpec + "pt"
		}
		return a.weightSpec + "pts"
	}
	return a.weightSpec
}

// WeightInfo is a multi-line summary shown alongside the heading.
func (a *Assignment) WeightInfo() string {
	var info []string
	if a.weightKind == gradeval.KindPercent {
		info = append(info, "Percentage weight: "+gradeval.FormatPercent(a.PercentWeight()))
	}
	if !a.IsLeaf() {
		total := new(big.Rat)
		for _, child := range a.children {
			total.Add(total, child.PercentWeight())
		}
		info = append(info, "Total child weight: "+gradeval.FormatPercent(total))
	}
	return strings.Join(info, "\n")
}

// String renders the node the way it appears in a column heading, without
// the indent prefix.
func (a *Assignment) String() string {
	extra := ""
	if a.extraCredit {
		extra = "*"
	}
	return fmt.Sprintf("%s%s (%s)", a.name, extra, a.weightSpec)
}

// Heading prefixes the node with its depth in "__" pairs, producing the
// exact column heading of the gradebook file.
func (a *Assignment) Heading() string {
	return strings.Repeat(Delimiter, a.Depth()) + a.String()
}
