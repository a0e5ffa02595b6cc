package editsync

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the subject and item halves of a cell element ID.
// Subjects (student aliases) never contain it; items are hierarchical
// qualified names and may, so decoding splits on the first occurrence only.
const Delimiter = "__"

var ErrMalformedID = errors.New("editsync: element id missing delimiter")

// Key identifies one editable cell as a (subject, item) pair.
type Key struct {
	Subject string
	Item    string
}

func EncodeKey(subject, item string) string {
	return subject + Delimiter + item
}

// DecodeKey recovers the Key from a rendered element ID. The render layer
// guarantees the delimiter is present; its absence is an invariant violation
// and reported as a wrapped ErrMalformedID rather than silently truncated.
func DecodeKey(elementID string) (Key, error) {
	i := strings.Index(elementID, Delimiter)
	if i < 0 {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedID, elementID)
	}
	return Key{
		Subject: elementID[:i],
		Item:    elementID[i+len(Delimiter):],
	}, nil
}

func (k Key) ElementID() string {
	return EncodeKey(k.Subject, k.Item)
}

func (k Key) String() string {
	return k.ElementID()
}
