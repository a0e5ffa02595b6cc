// Package persistence stores gradebooks as tab-separated files. The first
// row holds "Student" plus one indented heading per assignment; every other
// row holds a roster entry plus one value per assignment column.
package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/assignment"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/book"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/grade"
	"github.com/overunder/overunder/modules/gradebook/domain/aggregates/student"
)

const backupTimeLayout = "20060102150405"

var (
	// Runs of two or more spaces count as column separators, so files
	// edited by hand still load.
	multiSpaceRe = regexp.MustCompile(`  +`)
	headingRe    = regexp.MustCompile(`^((?:__)*)([^*]*)(\*?) \(([^)]*)\)$`)
)

type CSVBookRepository struct {
	path string
}

func NewCSVBookRepository(path string) *CSVBookRepository {
	return &CSVBookRepository{path: path}
}

func (r *CSVBookRepository) Path() string { return r.path }

func (r *CSVBookRepository) Load(_ context.Context) (*book.Book, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("persistence: reading %s: %w", r.path, err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("persistence: %s has no heading row", r.path)
	}

	headings := strings.Split(normalize(lines[0]), "\t")
	assignments, err := parseAssignments(headings[1:])
	if err != nil {
		return nil, fmt.Errorf("persistence: %s: %w", r.path, err)
	}
	columns := assignments.Traversal()

	b := book.New(assignments)
	for lineNo, line := range lines[1:] {
		line = normalize(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(columns)+1 {
			return nil, fmt.Errorf("persistence: %s line %d: got %d columns, want %d",
				r.path, lineNo+2, len(fields), len(columns)+1)
		}
		s, err := student.Parse(fields[0])
		if err != nil {
			return nil, fmt.Errorf("persistence: %s line %d: %w", r.path, lineNo+2, err)
		}
		grades, err := parseGrades(columns, fields[1:])
		if err != nil {
			return nil, fmt.Errorf("persistence: %s line %d: %w", r.path, lineNo+2, err)
		}
		if err := b.Enroll(s, grades); err != nil {
			return nil, fmt.Errorf("persistence: %s line %d: %w", r.path, lineNo+2, err)
		}
	}
	return b, nil
}

func (r *CSVBookRepository) Save(_ context.Context, b *book.Book) error {
	if err := os.WriteFile(r.path, marshal(b), 0o644); err != nil {
		return fmt.Errorf("persistence: writing %s: %w", r.path, err)
	}
	return nil
}

// Backup writes a timestamped sibling of the grades file and returns its
// path.
func (r *CSVBookRepository) Backup(_ context.Context, b *book.Book) (string, error) {
	name := fmt.Sprintf("%s.%s.bak", filepath.Base(r.path), time.Now().Format(backupTimeLayout))
	backupPath := filepath.Join(filepath.Dir(r.path), name)
	if err := os.WriteFile(backupPath, marshal(b), 0o644); err != nil {
		return "", fmt.Errorf("persistence: writing backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

func normalize(line string) string {
	return multiSpaceRe.ReplaceAllString(strings.TrimSpace(line), "\t")
}

func parseAssignments(headings []string) (*assignment.Assignment, error) {
	var stack []*assignment.Assignment
	for _, heading := range headings {
		match := headingRe.FindStringSubmatch(heading)
		if match == nil {
			return nil, fmt.Errorf("invalid heading %q", heading)
		}
		depth := len(match[1]) / 2
		if depth > len(stack) {
			return nil, fmt.Errorf("heading %q skips a level", heading)
		}
		node, err := assignment.New(match[2], match[4], match[3] == "*")
		if err != nil {
			return nil, err
		}
		stack = stack[:depth]
		if len(stack) > 0 {
			stack[len(stack)-1].AddChild(node)
		}
		stack = append(stack, node)
	}
	if len(stack) == 0 {
		return nil, fmt.Errorf("no assignment headings")
	}
	return stack[0], nil
}

func parseGrades(columns []*assignment.Assignment, values []string) (*grade.Grade, error) {
	var stack []*grade.Grade
	for i, column := range columns {
		node, err := grade.New(column, values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", column.QualifiedName(), err)
		}
		stack = stack[:column.Depth()]
		if len(stack) > 0 {
			stack[len(stack)-1].AddChild(node)
		}
		stack = append(stack, node)
	}
	return stack[0], nil
}

func marshal(b *book.Book) []byte {
	var sb strings.Builder
	sb.WriteString("Student")
	for _, node := range b.Assignments().Traversal() {
		sb.WriteByte('\t')
		sb.WriteString(node.Heading())
	}
	sb.WriteByte('\n')
	for _, s := range b.Students() {
		root, err := b.Grades(s.Alias())
		if err != nil {
			continue
		}
		sb.WriteString(s.String())
		for _, node := range root.Traversal() {
			sb.WriteByte('\t')
			sb.WriteString(node.ExportString())
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}
