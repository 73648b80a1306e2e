package postgres

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/pokedex/internal/core"
)

// TableName is the single table holding every record.
const TableName = "pokemon_data"

// idLockKey is the pg_advisory_xact_lock key serializing id assignment.
const idLockKey int64 = 0x706f6b65646578

var insertColumns = []string{
	"id", "name", "type_1", "type_2", "total", "hp", "attack", "defense",
	"sp_atk", "sp_def", "speed", "generation", "legendary",
}

var selectList = strings.Join(quoteColumns(insertColumns), ", ")

const createTableSQL = `CREATE TABLE IF NOT EXISTS pokemon_data (
	id         INTEGER PRIMARY KEY,
	name       TEXT    NOT NULL,
	type_1     TEXT    NOT NULL,
	type_2     TEXT,
	total      INTEGER NOT NULL,
	hp         INTEGER NOT NULL,
	attack     INTEGER NOT NULL,
	defense    INTEGER NOT NULL,
	sp_atk     INTEGER NOT NULL,
	sp_def     INTEGER NOT NULL,
	speed      INTEGER NOT NULL,
	generation INTEGER NOT NULL DEFAULT 2,
	legendary  BOOLEAN NOT NULL
)`

// quoteIdentifier safely quotes a PostgreSQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdentifier(c)
	}
	return out
}

// escapeLike escapes LIKE metacharacters so the keyword matches literally
// under ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// buildListSQL renders a listing query and its arguments.
func buildListSQL(q core.ListQuery) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)

	fmt.Fprintf(&sb, "SELECT %s FROM %s", selectList, TableName)

	if q.Search != nil {
		args = append(args, "%"+escapeLike(q.Search.Keyword)+"%")
		fmt.Fprintf(&sb, ` WHERE %s::text ILIKE $%d ESCAPE '\'`, quoteIdentifier(q.Search.Column.Name), len(args))
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY id %s", dir)

	args = append(args, q.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	args = append(args, q.Offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	return sb.String(), args
}

// buildPatchSQL renders an UPDATE that touches only the supplied columns.
// The id is always the last argument.
func buildPatchSQL(id int64, assignments []core.Assignment) (string, []any) {
	sets := make([]string, len(assignments))
	args := make([]any, 0, len(assignments)+1)
	for i, a := range assignments {
		args = append(args, a.Value)
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(a.Column), len(args))
	}
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		TableName, strings.Join(sets, ", "), len(args), selectList)
	return sql, args
}

// rowValues returns the insert values for one record in insertColumns order.
func rowValues(id int64, f core.Fields) []any {
	return []any{
		id, f.Name, f.Type1, f.Type2, f.Total, f.HP, f.Attack, f.Defense,
		f.SpAtk, f.SpDef, f.Speed, f.Generation, f.Legendary,
	}
}
