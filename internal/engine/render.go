package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lib/pq"
)

// rowKeywords start statements that produce a result set.
var rowKeywords = map[string]bool{
	"SELECT": true, "WITH": true, "VALUES": true, "TABLE": true,
	"SHOW": true, "EXPLAIN": true, "PRAGMA": true,
}

// runStatement executes one statement and appends its psql-style rendering to out.
func runStatement(ctx context.Context, conn *sql.Conn, stmt string, out *syncBuffer) {
	keyword := leadingKeyword(stmt)

	if rowKeywords[keyword] || containsWord(stmt, "RETURNING") {
		rows, err := conn.QueryContext(ctx, stmt)
		if err != nil {
			writeError(out, err)
			return
		}
		defer rows.Close()

		if err := writeRows(out, rows); err != nil {
			writeError(out, err)
		}
		return
	}

	res, err := conn.ExecContext(ctx, stmt)
	if err != nil {
		writeError(out, err)
		return
	}
	fmt.Fprintln(out, commandTag(stmt, keyword, res))
}

func writeError(out *syncBuffer, err error) {
	msg := err.Error()
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg = pqErr.Message
	}
	fmt.Fprintf(out, "ERROR:  %s\n", msg)
}

// writeRows renders an aligned table followed by a "(N rows)" footer.
func writeRows(out *syncBuffer, rows *sql.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var table [][]string
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}

		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		table = append(table, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(cols) == 0 {
		fmt.Fprintln(out, "SELECT 0")
		return nil
	}

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = utf8.RuneCountInString(c)
	}
	for _, row := range table {
		for i, cell := range row {
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(formatLine(cols, widths))
	seps := make([]string, len(cols))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w+2)
	}
	sb.WriteString(strings.Join(seps, "+"))
	sb.WriteString("\n")
	for _, row := range table {
		sb.WriteString(formatLine(row, widths))
	}

	noun := "rows"
	if len(table) == 1 {
		noun = "row"
	}
	fmt.Fprintf(&sb, "(%d %s)\n\n", len(table), noun)

	_, err = out.Write([]byte(sb.String()))
	return err
}

func formatLine(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := widths[i] - utf8.RuneCountInString(cell)
		parts[i] = " " + cell + strings.Repeat(" ", pad) + " "
	}
	return strings.TrimRight(strings.Join(parts, "|"), " ") + "\n"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case bool:
		if x {
			return "t"
		}
		return "f"
	default:
		return fmt.Sprint(x)
	}
}

// commandTag mimics the status line psql prints after a non-query statement.
func commandTag(stmt, keyword string, res sql.Result) string {
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}

	switch keyword {
	case "INSERT":
		return fmt.Sprintf("INSERT 0 %d", affected)
	case "UPDATE", "DELETE", "MERGE":
		return fmt.Sprintf("%s %d", keyword, affected)
	}

	words := strings.Fields(strings.ToUpper(stripComments(stmt)))
	switch {
	case len(words) >= 2 && (keyword == "CREATE" || keyword == "DROP" || keyword == "ALTER"):
		if (words[1] == "OR" || words[1] == "TEMP" || words[1] == "TEMPORARY" || words[1] == "UNIQUE") && len(words) >= 3 {
			if words[1] == "OR" && len(words) >= 4 {
				return keyword + " " + words[3]
			}
			return keyword + " " + words[2]
		}
		return keyword + " " + words[1]
	case keyword == "":
		return "OK"
	default:
		return keyword
	}
}

// leadingKeyword returns the first word of stmt, uppercased, ignoring comments.
func leadingKeyword(stmt string) string {
	fields := strings.Fields(stripComments(stmt))
	if len(fields) == 0 {
		return ""
	}
	word := strings.ToUpper(fields[0])
	if i := strings.IndexAny(word, "(;"); i >= 0 {
		word = word[:i]
	}
	return word
}

func stripComments(stmt string) string {
	var sb strings.Builder
	for i := 0; i < len(stmt); i++ {
		switch {
		case stmt[i] == '-' && i+1 < len(stmt) && stmt[i+1] == '-':
			end := strings.IndexByte(stmt[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end
			sb.WriteByte('\n')
		case stmt[i] == '/' && i+1 < len(stmt) && stmt[i+1] == '*':
			i = blockCommentEnd(stmt, i) - 1
			sb.WriteByte(' ')
		case stmt[i] == '\'' || stmt[i] == '"':
			end := quotedEnd(stmt, i, stmt[i])
			sb.WriteString(stmt[i:end])
			i = end - 1
		default:
			sb.WriteByte(stmt[i])
		}
	}
	return sb.String()
}

func containsWord(stmt, word string) bool {
	for _, f := range strings.Fields(strings.ToUpper(stripComments(stmt))) {
		if strings.Trim(f, "(),;") == word {
			return true
		}
	}
	return false
}
