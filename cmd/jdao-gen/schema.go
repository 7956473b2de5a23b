package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Column is one column of a live table.
type Column struct {
	Name     string
	DBType   string
	NotNull  bool
	PK       bool
	Auto     bool
	Comment  string
	Default  string
	Position int
}

// fetchTables lists the user tables visible through db.
func fetchTables(ctx context.Context, db *sql.DB, driver string) ([]string, error) {
	var q string
	switch driver {
	case "sqlite3":
		q = "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	case "mysql":
		q = "SHOW TABLES"
	case "postgres", "pgx":
		q = "SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = 'public' ORDER BY tablename"
	case "sqlserver", "mssql":
		q = "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// fetchColumns reads the column list of table in ordinal order.
func fetchColumns(ctx context.Context, db *sql.DB, driver, table string) ([]Column, error) {
	var (
		cols []Column
		err  error
	)
	switch driver {
	case "sqlite3":
		cols, err = sqliteColumns(ctx, db, table)
	case "mysql":
		cols, err = mysqlColumns(ctx, db, table)
	case "postgres", "pgx":
		cols, err = postgresColumns(ctx, db, table)
	case "sqlserver", "mssql":
		cols, err = sqlserverColumns(ctx, db, table)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found or has no columns", table)
	}
	return cols, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid       int
			name      string
			dataType  string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		c := Column{
			Name:     name,
			DBType:   dataType,
			NotNull:  notnull == 1,
			PK:       pk == 1,
			Default:  dfltValue.String,
			Position: cid,
		}
		// an INTEGER primary key aliases the rowid
		c.Auto = c.PK && strings.EqualFold(strings.TrimSpace(dataType), "INTEGER")
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func mysqlColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SHOW FULL COLUMNS FROM `%s`", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for i := 0; rows.Next(); i++ {
		var (
			field      string
			typ        string
			collation  sql.NullString
			null       string
			key        string
			defaultVal sql.NullString
			extra      string
			privileges string
			comment    string
		)
		if err := rows.Scan(&field, &typ, &collation, &null, &key, &defaultVal, &extra, &privileges, &comment); err != nil {
			return nil, err
		}
		cols = append(cols, Column{
			Name:     field,
			DBType:   typ,
			NotNull:  null == "NO",
			PK:       key == "PRI",
			Auto:     strings.Contains(strings.ToLower(extra), "auto_increment"),
			Comment:  comment,
			Default:  defaultVal.String,
			Position: i,
		})
	}
	return cols, rows.Err()
}

const postgresColumnsSQL = `
SELECT
	c.column_name,
	c.data_type,
	c.is_nullable,
	CASE WHEN tc.constraint_type = 'PRIMARY KEY' THEN 'YES' ELSE 'NO' END AS is_pk,
	COALESCE(d.description, '') AS comment,
	COALESCE(c.column_default, '') AS column_default
FROM information_schema.columns c
LEFT JOIN information_schema.key_column_usage kcu
	ON c.table_name = kcu.table_name
	AND c.column_name = kcu.column_name
	AND c.table_schema = kcu.table_schema
LEFT JOIN information_schema.table_constraints tc
	ON kcu.constraint_name = tc.constraint_name
	AND kcu.table_schema = tc.table_schema
	AND tc.constraint_type = 'PRIMARY KEY'
LEFT JOIN pg_catalog.pg_stat_user_tables t ON c.table_name = t.relname
LEFT JOIN pg_catalog.pg_description d ON t.relid = d.objoid AND c.ordinal_position = d.objsubid
WHERE c.table_name = $1 AND c.table_schema = 'public'
ORDER BY c.ordinal_position`

func postgresColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, postgresColumnsSQL, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for i := 0; rows.Next(); i++ {
		var name, dataType, isNullable, isPK, comment, dflt string
		if err := rows.Scan(&name, &dataType, &isNullable, &isPK, &comment, &dflt); err != nil {
			return nil, err
		}
		c := Column{
			Name:     name,
			DBType:   dataType,
			NotNull:  isNullable == "NO",
			PK:       isPK == "YES",
			Comment:  comment,
			Default:  dflt,
			Position: i,
		}
		c.Auto = c.PK && strings.Contains(strings.ToLower(dflt), "nextval")
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

const sqlserverColumnsSQL = `
SELECT
	c.COLUMN_NAME,
	c.DATA_TYPE,
	c.IS_NULLABLE,
	CASE WHEN k.COLUMN_NAME IS NULL THEN 0 ELSE 1 END AS is_pk,
	COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') AS is_identity,
	COALESCE(c.COLUMN_DEFAULT, '') AS column_default
FROM INFORMATION_SCHEMA.COLUMNS c
LEFT JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
	ON k.TABLE_NAME = c.TABLE_NAME
	AND k.COLUMN_NAME = c.COLUMN_NAME
	AND OBJECTPROPERTY(OBJECT_ID(k.CONSTRAINT_SCHEMA + '.' + k.CONSTRAINT_NAME), 'IsPrimaryKey') = 1
WHERE c.TABLE_NAME = @p1
ORDER BY c.ORDINAL_POSITION`

func sqlserverColumns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, sqlserverColumnsSQL, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []Column
	for i := 0; rows.Next(); i++ {
		var (
			name, dataType, isNullable, dflt string
			isPK                             int
			identity                         sql.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &isNullable, &isPK, &identity, &dflt); err != nil {
			return nil, err
		}
		cols = append(cols, Column{
			Name:     name,
			DBType:   dataType,
			NotNull:  isNullable == "NO",
			PK:       isPK == 1,
			Auto:     identity.Int64 == 1,
			Default:  dflt,
			Position: i,
		})
	}
	return cols, rows.Err()
}
