package sqlstore

import (
	"fmt"
	"strings"

	"github.com/tomasmach/photo-triage/internal/catalog"
)

// Column maps per entity. A query naming a field outside its store's map
// fails loudly instead of matching nothing.
var (
	mediaColumns = map[catalog.Field]string{
		catalog.FieldPath:           "path",
		catalog.FieldName:           "name",
		catalog.FieldType:           "type",
		catalog.FieldCamera:         "camera",
		catalog.FieldStatus:         "status",
		catalog.FieldClassification: "classification",
		catalog.FieldHasSubject:     "has_subject",
		catalog.FieldGroupName:      "group_name",
	}

	faceColumns = map[catalog.Field]string{
		catalog.FieldFaceID:         "face_id",
		catalog.FieldMediaPath:      "media_path",
		catalog.FieldSubjectInImage: "subject_in_image",
		catalog.FieldSubjectInFace:  "subject_in_face",
		catalog.FieldHidden:         "hidden",
	}

	groupColumns = map[catalog.Field]string{
		catalog.FieldGroupName:   "name",
		catalog.FieldSelection:   "selection",
		catalog.FieldHasSubject:  "has_subject",
		catalog.FieldHasNewItems: "has_new_items",
	}
)

// buildWhere renders the query conditions as a WHERE clause with
// ? placeholders. Returns an empty string for a match-all query.
func buildWhere(q catalog.Query, columns map[catalog.Field]string) (string, []any, error) {
	var clauses []string
	var args []any

	for _, c := range q.Conds {
		col, ok := columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("field %q cannot be queried on this store", c.Field)
		}

		switch c.Op {
		case catalog.OpEq:
			clauses = append(clauses, col+" = ?")
			args = append(args, c.Value)
		case catalog.OpIn:
			if len(c.Values) == 0 {
				// Membership in the empty set matches nothing.
				clauses = append(clauses, "1 = 0")
				continue
			}
			clauses = append(clauses, col+" IN ("+placeholders(len(c.Values))+")")
			args = append(args, c.Values...)
		default:
			return "", nil, fmt.Errorf("unsupported operator %d", c.Op)
		}
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// buildTail renders ORDER BY / LIMIT / OFFSET.
func buildTail(q catalog.Query, columns map[catalog.Field]string, d dialect) (string, error) {
	var sb strings.Builder

	if q.Sort != "" {
		col, ok := columns[q.Sort]
		if !ok {
			return "", fmt.Errorf("field %q cannot be sorted on this store", q.Sort)
		}
		sb.WriteString(" ORDER BY " + col)
		if q.Desc {
			sb.WriteString(" DESC")
		}
	}

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	} else if q.Offset > 0 {
		sb.WriteString(d.offsetNoLimit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}
	return sb.String(), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
