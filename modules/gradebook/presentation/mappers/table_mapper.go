package mappers

import (
	"fmt"
	"strings"

	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/assignment"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/book"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/student"
	"github.com/overunder/overunder/modules/gradebook/presentation/viewmodels"
	"github.com/overunder/overunder/pkg/editsync"
)

// FilterAll selects every assignment or student.
const FilterAll = "all"

// BookToTable projects the book onto the grade table view. The assignment
// filter keeps columns whose qualified name starts with the filter; the
// student filter keeps a single alias.
func BookToTable(b *book.Book, assignmentFilter, studentFilter string) (*viewmodels.Table, error) {
	var columns []*assignment.Assignment
	for _, node := range b.Assignments().Traversal() {
		if assignmentFilter == FilterAll || strings.HasPrefix(node.QualifiedName(), assignmentFilter) {
			columns = append(columns, node)
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no assignments match filter %q", assignmentFilter)
	}

	var roster []student.Student
	for _, s := range b.Students() {
		if studentFilter == FilterAll || s.Alias() == studentFilter {
			roster = append(roster, s)
		}
	}

	table := &viewmodels.Table{
		AssignmentFilter: assignmentFilter,
		StudentFilter:    studentFilter,
		MinDepth:         columns[0].Depth(),
		Headers:          make([]viewmodels.AssignmentHeader, 0, len(columns)),
		Rows:             make([]viewmodels.StudentRow, 0, len(roster)),
	}
	for _, node := range columns {
		table.Headers = append(table.Headers, headerFor(node))
	}

	for _, s := range roster {
		row := viewmodels.StudentRow{
			Alias: s.Alias(),
			Name:  fmt.Sprintf("%s, %s", s.LastName, s.FirstName),
			Email: s.Email,
			Cells: make([]viewmodels.Cell, 0, len(columns)),
		}
		for _, node := range columns {
			cell, err := b.Grade(s.Alias(), node.QualifiedName())
			if err != nil {
				return nil, err
			}
			row.Cells = append(row.Cells, viewmodels.Cell{
				ElementID:  editsync.EncodeKey(s.Alias(), node.QualifiedName()),
				Display:    cell.DisplayString(),
				Projection: cell.ProjectionString(),
				Color:      cell.Color(),
				Editable:   node.IsLeaf(),
			})
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func headerFor(node *assignment.Assignment) viewmodels.AssignmentHeader {
	header := viewmodels.AssignmentHeader{
		QualifiedName: node.QualifiedName(),
		Name:          node.Name(),
		Depth:         node.Depth(),
		Heading:       node.Heading(),
		WeightDisplay: node.WeightDisplay(),
		WeightInfo:    node.WeightInfo(),
		ExtraCredit:   node.ExtraCredit(),
		Leaf:          node.IsLeaf(),
	}
	if !node.IsLeaf() {
		header.ExpanderID = node.QualifiedName() + editsync.ExpanderSuffix
	}
	for _, ancestor := range node.Ancestors() {
		header.Tags = append(header.Tags, ancestor.QualifiedName())
	}
	return header
}
