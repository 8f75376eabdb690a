package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQL implements Store backed by a MySQL/MariaDB database
type MySQL struct {
	db *sql.DB
}

// NewMySQL opens a MySQL-backed preference store using the given DSN,
// e.g. "user:pass@tcp(host:3306)/relaycheck".
func NewMySQL(dsn string) (*MySQL, error) {
	if dsn == "" {
		return nil, errors.New("mysql preference store requires a dsn")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	m := &MySQL{db: db}
	if err := m.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return m, nil
}

func (m *MySQL) ensureSchema() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS prefs (
			` + "`key`" + ` VARCHAR(255) PRIMARY KEY,
			value TINYINT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create prefs table: %w", err)
	}
	return nil
}

// GetBool retrieves a stored boolean
func (m *MySQL) GetBool(ctx context.Context, key string) (bool, error) {
	var value int
	err := m.db.QueryRowContext(ctx, "SELECT value FROM prefs WHERE `key` = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return value != 0, nil
}

// SetBool stores a boolean value
func (m *MySQL) SetBool(ctx context.Context, key string, value bool) error {
	v := 0
	if value {
		v = 1
	}
	_, err := m.db.ExecContext(ctx,
		"INSERT INTO prefs (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		key, v)
	return err
}

// Delete removes a stored value
func (m *MySQL) Delete(ctx context.Context, key string) error {
	_, err := m.db.ExecContext(ctx, "DELETE FROM prefs WHERE `key` = ?", key)
	return err
}

// Keys returns all stored keys with the given prefix
func (m *MySQL) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		"SELECT `key` FROM prefs WHERE `key` LIKE ? ORDER BY `key`", prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database
func (m *MySQL) Close() error {
	return m.db.Close()
}
