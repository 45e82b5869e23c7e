package store

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tableNameRe = regexp.MustCompile(`CREATE TABLE IF NOT EXISTS (\w+)`)
	columnDefRe = regexp.MustCompile(`^(\w+) (?:VARCHAR\((\d+)\)|TEXT|INTEGER|BOOLEAN)`)
	primaryRe   = regexp.MustCompile(`PRIMARY KEY \(([^)]+)\)`)
)

// InnoDB rejects indexes wider than 3072 bytes. Under utf8mb4 a VARCHAR(n)
// key part costs 4n bytes plus a 2-byte length prefix; numeric parts are
// counted at 8 bytes, which overshoots and keeps the check conservative.
func TestPrimaryKeysFitMySQLIndexLimit(t *testing.T) {
	const limit = 3072
	for _, ddl := range schema {
		name := tableNameRe.FindStringSubmatch(ddl)
		require.NotNil(t, name)
		table := name[1]

		widths := map[string]int{}
		for _, line := range strings.Split(ddl, "\n") {
			m := columnDefRe.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			width := 8
			if m[2] != "" {
				chars, err := strconv.Atoi(m[2])
				require.NoError(t, err)
				width = chars*4 + 2
			}
			widths[m[1]] = width
		}

		pk := primaryRe.FindStringSubmatch(ddl)
		require.NotNil(t, pk, "table %s has no primary key", table)
		var total int
		for _, col := range strings.Split(pk[1], ",") {
			col = strings.TrimSpace(col)
			width, ok := widths[col]
			require.True(t, ok, "table %s: key column %s has no sized definition", table, col)
			total += width
		}
		assert.LessOrEqual(t, total, limit, "table %s primary key is %d bytes", table, total)
	}
}
