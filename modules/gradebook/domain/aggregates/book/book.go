// Package book is the gradebook aggregate root: one assignment tree, a
// roster, and a grade tree per student.
package book

import (
	"errors"
	"fmt"
	"strings"

	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/assignment"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/grade"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/student"
)

var (
	ErrUnknownStudent = errors.New("unknown student")
	ErrDuplicateAlias = errors.New("duplicate student alias")
)

// Book keeps the roster in file order so exports are stable.
type Book struct {
	assignments *assignment.Assignment
	order       []string
	students    map[string]student.Student
	grades      map[string]*grade.Grade
}

func New(assignments *assignment.Assignment) *Book {
	return &Book{
		assignments: assignments,
		students:    make(map[string]student.Student),
		grades:      make(map[string]*grade.Grade),
	}
}

// Enroll adds a student with their grade tree root.
func (b *Book) Enroll(s student.Student, grades *grade.Grade) error {
	alias := s.Alias()
	if _, exists := b.students[alias]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateAlias, alias)
	}
	b.order = append(b.order, alias)
	b.students[alias] = s
	b.grades[alias] = grades
	return nil
}

func (b *Book) Assignments() *assignment.Assignment { return b.assignments }

// Students returns the roster in file order.
func (b *Book) Students() []student.Student {
	roster := make([]student.Student, 0, len(b.order))
	for _, alias := range b.order {
		roster = append(roster, b.students[alias])
	}
	return roster
}

func (b *Book) Student(alias string) (student.Student, error) {
	s, ok := b.students[alias]
	if !ok {
		return student.Student{}, fmt.Errorf("%w: %q", ErrUnknownStudent, alias)
	}
	return s, nil
}

// Grades returns the root of a student's grade tree.
func (b *Book) Grades(alias string) (*grade.Grade, error) {
	root, ok := b.grades[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStudent, alias)
	}
	return root, nil
}

// Grade resolves a single cell by alias and qualified assignment name.
func (b *Book) Grade(alias, qualifiedName string) (*grade.Grade, error) {
	root, err := b.Grades(alias)
	if err != nil {
		return nil, err
	}
	return root.Get(qualifiedName)
}

// SetGrade writes a value into one cell and lets the change propagate up
// the student's tree.
func (b *Book) SetGrade(alias, qualifiedName, value string) error {
	cell, err := b.Grade(alias, qualifiedName)
	if err != nil {
		return err
	}
	return cell.Set(value)
}

// AddAssignment grafts a new node onto the assignment tree and mirrors it,
// ungraded, into every student's grade tree.
func (b *Book) AddAssignment(qualifiedName, weightSpec string) error {
	name := qualifiedName
	if i := strings.LastIndex(qualifiedName, assignment.Delimiter); i >= 0 {
		name = qualifiedName[i+len(assignment.Delimiter):]
	}
	node, err := assignment.New(name, weightSpec, false)
	if err != nil {
		return err
	}
	if err := b.assignments.AddDescendant(qualifiedName, node); err != nil {
		return err
	}
	for _, alias := range b.order {
		cell, err := grade.New(node, "None")
		if err != nil {
			return err
		}
		if err := b.grades[alias].AddDescendant(qualifiedName, cell); err != nil {
			return err
		}
	}
	return nil
}

// MoveAssignmentUp swaps the assignment with its nearest elder sibling in
// the assignment tree and every grade tree.
func (b *Book) MoveAssignmentUp(qualifiedName string) error {
	if err := b.assignments.MoveUp(qualifiedName); err != nil {
		return err
	}
	for _, alias := range b.order {
		if err := b.grades[alias].MoveUp(qualifiedName); err != nil {
			return err
		}
	}
	return nil
}

// MoveAssignmentDown swaps the assignment with its nearest younger sibling
// in the assignment tree and every grade tree.
func (b *Book) MoveAssignmentDown(qualifiedName string) error {
	if err := b.assignments.MoveDown(qualifiedName); err != nil {
		return err
	}
	for _, alias := range b.order {
		if err := b.grades[alias].MoveDown(qualifiedName); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAssignment deletes the assignment and its grades everywhere.
func (b *Book) RemoveAssignment(qualifiedName string) error {
	if _, err := b.assignments.Remove(qualifiedName); err != nil {
		return err
	}
	for _, alias := range b.order {
		if _, err := b.grades[alias].Remove(qualifiedName); err != nil {
			return err
		}
	}
	return nil
}
