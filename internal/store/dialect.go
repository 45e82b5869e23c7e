package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Dialect selects the SQL syntax differences between the supported engines.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
	MySQL
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	}
	return "sqlite"
}

// driverName is the database/sql registration name for the dialect.
func (d Dialect) driverName() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	}
	return "sqlite3"
}

// parseURL maps a connection url onto a dialect and its driver DSN.
func parseURL(urlstr string) (Dialect, string, error) {
	u, err := url.Parse(urlstr)
	if err != nil {
		return 0, "", fmt.Errorf("error parsing database url: %w", err)
	}
	switch u.Scheme {
	case "sqlite", "file":
		dsn := u.Host + u.Path
		if u.Opaque != "" {
			dsn = u.Opaque
		}
		if dsn == "" {
			return 0, "", fmt.Errorf("missing file path in database url")
		}
		return SQLite, dsn, nil
	case "postgres", "postgresql":
		return Postgres, urlstr, nil
	case "mysql":
		var auth string
		if u.User != nil {
			auth = u.User.Username()
			if password, ok := u.User.Password(); ok {
				auth += ":" + password
			}
			auth += "@"
		}
		return MySQL, fmt.Sprintf("%stcp(%s)%s?parseTime=true", auth, u.Host, u.Path), nil
	}
	return 0, "", fmt.Errorf("unsupported database scheme: %s", u.Scheme)
}

// rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var sb strings.Builder
	var n int
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// upsert builds an insert statement that updates every non-key column when a
// row with the same unique key already exists.
func (d Dialect) upsert(table string, columns []string, keys []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ","), placeholders)
	keyset := make(map[string]bool, len(keys))
	for _, key := range keys {
		keyset[key] = true
	}
	var updates []string
	for _, column := range columns {
		if keyset[column] {
			continue
		}
		if d == MySQL {
			updates = append(updates, fmt.Sprintf("%s=VALUES(%s)", column, column))
		} else {
			updates = append(updates, fmt.Sprintf("%s=excluded.%s", column, column))
		}
	}
	if len(updates) == 0 {
		if d == MySQL {
			return strings.Replace(insert, "INSERT", "INSERT IGNORE", 1)
		}
		return fmt.Sprintf("%s ON CONFLICT (%s) DO NOTHING", insert, strings.Join(keys, ","))
	}
	if d == MySQL {
		return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s", insert, strings.Join(updates, ","))
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s", insert, strings.Join(keys, ","), strings.Join(updates, ","))
}
