package sqlstore

import (
	"strconv"
	"strings"
)

// dialect holds everything that differs between the supported databases:
// the driver, placeholder style, upsert syntax and which embedded
// migration set to run.
type dialect struct {
	name   string
	driver string

	// rebind converts ? placeholders to the dialect's native style.
	rebind func(string) string

	// offsetNoLimit is appended when a query has an offset but no limit;
	// MySQL refuses OFFSET without LIMIT.
	offsetNoLimit string

	upsertMedia string
	upsertGroup string
}

var postgresDialect = dialect{
	name:          "postgres",
	driver:        "postgres",
	rebind:        rebindPositional,
	offsetNoLimit: " LIMIT ALL",
	upsertMedia: `
		INSERT INTO media_items (path, name, size, type, camera, location, taken_at, classification, has_subject, status, group_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			name = EXCLUDED.name,
			size = EXCLUDED.size,
			type = EXCLUDED.type,
			camera = EXCLUDED.camera,
			location = EXCLUDED.location,
			taken_at = EXCLUDED.taken_at,
			classification = EXCLUDED.classification,
			has_subject = EXCLUDED.has_subject,
			status = EXCLUDED.status,
			group_name = EXCLUDED.group_name
	`,
	upsertGroup: `
		INSERT INTO groups (name, thumbnail, selection, has_subject, has_new_items)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			thumbnail = EXCLUDED.thumbnail,
			selection = EXCLUDED.selection,
			has_subject = EXCLUDED.has_subject,
			has_new_items = EXCLUDED.has_new_items
	`,
}

var mysqlDialect = dialect{
	name:          "mysql",
	driver:        "mysql",
	rebind:        func(q string) string { return q },
	offsetNoLimit: " LIMIT 18446744073709551615",
	upsertMedia: `
		INSERT INTO media_items (path, name, size, type, camera, location, taken_at, classification, has_subject, status, group_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			size = VALUES(size),
			type = VALUES(type),
			camera = VALUES(camera),
			location = VALUES(location),
			taken_at = VALUES(taken_at),
			classification = VALUES(classification),
			has_subject = VALUES(has_subject),
			status = VALUES(status),
			group_name = VALUES(group_name)
	`,
	upsertGroup: `
		INSERT INTO groups (name, thumbnail, selection, has_subject, has_new_items)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			thumbnail = VALUES(thumbnail),
			selection = VALUES(selection),
			has_subject = VALUES(has_subject),
			has_new_items = VALUES(has_new_items)
	`,
}

// rebindPositional rewrites ? placeholders as $1, $2, ... for PostgreSQL.
// None of the statements in this package contain a literal question mark.
func rebindPositional(query string) string {
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
