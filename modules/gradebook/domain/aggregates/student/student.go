// Package student holds the roster entry value object.
package student

import (
	"fmt"
	"regexp"
	"strings"
)

var lineRe = regexp.MustCompile(`^([^,]*), (.*) <([^>]*)>$`)

// Student identifies one roster entry. The alias, the local part of the
// email address, keys the student everywhere else in the gradebook.
type Student struct {
	FirstName string
	LastName  string
	Email     string
}

// Parse reads the roster format "Last, First <email>".
func Parse(line string) (Student, error) {
	match := lineRe.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return Student{}, fmt.Errorf("student: invalid roster line %q", line)
	}
	return Student{
		FirstName: match[2],
		LastName:  match[1],
		Email:     match[3],
	}, nil
}

// Alias is the email local part.
func (s Student) Alias() string {
	alias, _, _ := strings.Cut(s.Email, "@")
	return alias
}

func (s Student) String() string {
	return fmt.Sprintf("%s, %s <%s>", s.LastName, s.FirstName, s.Email)
}
