package catalog

import "slices"

// Field names a queryable attribute. Each store accepts the subset of fields
// that exist on its entity and rejects the rest, so a typo or a wrong-entity
// field fails at the store boundary instead of silently matching nothing.
type Field string

const (
	FieldPath           Field = "path"
	FieldName           Field = "name"
	FieldType           Field = "type"
	FieldCamera         Field = "camera"
	FieldStatus         Field = "status"
	FieldClassification Field = "classification"
	FieldHasSubject     Field = "has_subject"
	FieldGroupName      Field = "group_name"

	FieldFaceID         Field = "face_id"
	FieldMediaPath      Field = "media_path"
	FieldSubjectInImage Field = "subject_in_image"
	FieldSubjectInFace  Field = "subject_in_face"
	FieldHidden         Field = "hidden"

	FieldSelection   Field = "selection"
	FieldHasNewItems Field = "has_new_items"
)

// Op is a condition comparator.
type Op int

const (
	// OpEq matches records whose field equals the value
	OpEq Op = iota
	// OpIn matches records whose field equals any of the values
	OpIn
)

// Cond is one field comparison. Value is set for OpEq, Values for OpIn.
type Cond struct {
	Field  Field
	Op     Op
	Value  any
	Values []any
}

// Query is a typed predicate over a store. The zero value matches everything.
// Builder methods return modified copies, so a partially built query can be
// shared and extended without aliasing.
type Query struct {
	Conds  []Cond
	Sort   Field
	Desc   bool
	Limit  int
	Offset int
}

// NewQuery returns an empty query matching all records.
func NewQuery() Query {
	return Query{}
}

// Eq adds an equality condition.
func (q Query) Eq(f Field, v any) Query {
	q.Conds = append(slices.Clone(q.Conds), Cond{Field: f, Op: OpEq, Value: v})
	return q
}

// In adds a set-membership condition.
func (q Query) In(f Field, vs ...any) Query {
	q.Conds = append(slices.Clone(q.Conds), Cond{Field: f, Op: OpIn, Values: vs})
	return q
}

// OrderBy sorts results by the given field.
func (q Query) OrderBy(f Field, desc bool) Query {
	q.Sort = f
	q.Desc = desc
	return q
}

// WithLimit caps the number of returned records. Zero means no cap.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// WithOffset skips the first n records, for pagination.
func (q Query) WithOffset(n int) Query {
	q.Offset = n
	return q
}

// Matches reports whether a field value satisfies the condition.
func (c Cond) Matches(v any) bool {
	switch c.Op {
	case OpEq:
		return v == c.Value
	case OpIn:
		for _, want := range c.Values {
			if v == want {
				return true
			}
		}
	}
	return false
}
