package viewmodels

// AssignmentHeader is one column of the grade table. Interior columns get
// an expander element; Tags carry the qualified names of all ancestors so
// collapsing any one of them hides this column.
type AssignmentHeader struct {
	QualifiedName string   `json:"qualifiedName"`
	Name          string   `json:"name"`
	Depth         int      `json:"depth"`
	Heading       string   `json:"heading"`
	WeightDisplay string   `json:"weightDisplay"`
	WeightInfo    string   `json:"weightInfo"`
	ExtraCredit   bool     `json:"extraCredit"`
	Leaf          bool     `json:"leaf"`
	ExpanderID    string   `json:"expanderId,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// Cell is one grade cell. Leaf cells are editable inputs; interior cells
// are read-only aggregates.
type Cell struct {
	ElementID  string `json:"elementId"`
	Display    string `json:"display"`
	Projection string `json:"projection"`
	Color      string `json:"color"`
	Editable   bool   `json:"editable"`
}

type StudentRow struct {
	Alias string `json:"alias"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Cells []Cell `json:"cells"`
}

type Table struct {
	AssignmentFilter string             `json:"assignmentFilter"`
	StudentFilter    string             `json:"studentFilter"`
	MinDepth         int                `json:"minDepth"`
	Headers          []AssignmentHeader `json:"headers"`
	Rows             []StudentRow       `json:"rows"`
}
