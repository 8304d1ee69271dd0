package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strings"

	chstore "weighted-oracle/internal/storage/clickhouse"
)

var databaseName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouseMigrations creates the database named in dsn, applies the
// embedded files not yet listed in its schema_migrations table and returns a
// connection to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, db); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}
	if err := applyClickhouse(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func ensureDatabase(ctx context.Context, dsn, db string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS `"+db+"`"); err != nil {
		return fmt.Errorf("create database %s: %w", db, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn) error {
	if err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name        String,
			applied_at  DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree()
		ORDER BY name
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := sqlFiles(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}

	for _, file := range files {
		var seen uint64
		if err := conn.QueryRow(ctx,
			`SELECT count() FROM schema_migrations WHERE name = ?`, file,
		).Scan(&seen); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if seen > 0 {
			continue
		}

		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		stmts, err := SplitStatements(string(data))
		if err != nil {
			return fmt.Errorf("split migration %s: %w", file, err)
		}
		// No transactions here: statements must be idempotent so a partly
		// applied file can simply run again.
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
		if err := conn.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, file); err != nil {
			return fmt.Errorf("record migration %s: %w", file, err)
		}
	}
	return nil
}

// SplitStatements breaks a migration into single statements for the native
// protocol, which runs one per Exec. Only -- comments are understood; a
// semicolon inside a string literal is an error.
func SplitStatements(input string) ([]string, error) {
	var (
		stmts   []string
		current strings.Builder
		quoted  bool
	)
	for _, line := range strings.Split(input, "\n") {
		if t := strings.TrimSpace(line); !quoted && (t == "" || strings.HasPrefix(t, "--")) {
			continue
		}
		for i := 0; i < len(line); i++ {
			c := line[i]
			switch {
			case c == '\'' && quoted && i+1 < len(line) && line[i+1] == '\'':
				current.WriteString("''")
				i++
				continue
			case c == '\'':
				quoted = !quoted
			case c == ';' && quoted:
				return nil, fmt.Errorf("semicolon inside string literal: %q", strings.TrimSpace(line))
			case c == ';':
				if stmt := strings.TrimSpace(current.String()); stmt != "" {
					stmts = append(stmts, stmt)
				}
				current.Reset()
				continue
			}
			current.WriteByte(c)
		}
		current.WriteByte('\n')
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	if !databaseName.MatchString(db) {
		return "", fmt.Errorf("invalid clickhouse database name %q", db)
	}
	return db, nil
}
