package database

import (
	"database/sql"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteDriverName is go-sqlite3 with LOWER/UPPER replaced by Unicode-aware
// versions. The builtins only fold ASCII, so "Žilina" would never match "žilina".
const SQLiteDriverName = "sqlite3_bazar"

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("lower", strings.ToLower, true); err != nil {
				return err
			}
			return conn.RegisterFunc("upper", strings.ToUpper, true)
		},
	})
}

// OpenSQLite returns a GORM dialector for dsn on the Unicode-aware driver.
func OpenSQLite(dsn string) gorm.Dialector {
	return sqlite.New(sqlite.Config{DriverName: SQLiteDriverName, DSN: dsn})
}
