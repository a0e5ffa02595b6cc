package editsync

import "encoding/json"

// CascadeEntry is one (target, rendered value) pair returned by the authority
// after a mutating request. Targets are opaque element identifiers chosen by
// the authority; they are not re-derived through the cell key codec.
type CascadeEntry struct {
	Target string
	Value  string
}

// Cascade is the ordered sequence of updates produced by one save. Entries
// target cells beyond the one edited (rollup propagation) and are applied in
// the order received.
type Cascade []CascadeEntry

// The wire shape is a JSON array of [target, value] pairs.

func (e CascadeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Target, e.Value})
}

func (e *CascadeEntry) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	e.Target = pair[0]
	e.Value = pair[1]
	return nil
}
