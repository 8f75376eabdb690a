// Package fts maintains a local SQLite FTS4 index over message text for
// client-side search. It is independent of the reputation checker and owns
// its own database file.
package fts

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Doc is one indexable message
type Doc struct {
	ID       int64 // message id, used as the FTS rowid
	Account  int64
	Folder   int64
	Time     int64 // received time, unix milliseconds
	Address  string
	Subject  string
	Keywords []string
	Text     string
	Notes    string
}

// Query selects documents by full-text match plus optional metadata bounds
type Query struct {
	Text    string
	Account *int64
	Folder  *int64
	After   *int64
	Before  *int64
}

// Index is a SQLite FTS4 backed message index
type Index struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (creating if necessary) the index at the given path
func Open(path string, logger *slog.Logger) (*Index, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open fts database: %w", err)
	}

	x := &Index{db: db, path: path, logger: logger}
	if err := x.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return x, nil
}

func (x *Index) ensureSchema() error {
	// account/folder/time are filter columns, not searchable text
	_, err := x.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS message USING fts4(
			account,
			folder,
			time,
			address,
			subject,
			keyword,
			text,
			notes,
			notindexed=account,
			notindexed=folder,
			notindexed=time,
			tokenize=unicode61 "remove_diacritics=2"
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create fts table: %w", err)
	}

	_, err = x.db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS message_terms USING fts4aux(message)`)
	if err != nil {
		return fmt.Errorf("failed to create fts terms table: %w", err)
	}

	return nil
}

// Insert adds a document to the index, replacing any previous entry with
// the same id.
func (x *Index) Insert(ctx context.Context, doc Doc) error {
	if err := x.Delete(ctx, doc.ID); err != nil {
		return err
	}

	_, err := x.db.ExecContext(ctx, `
		INSERT INTO message (rowid, account, folder, time, address, subject, keyword, text, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.Account,
		doc.Folder,
		doc.Time,
		Normalize(doc.Address),
		Normalize(doc.Subject),
		Normalize(strings.Join(doc.Keywords, ", ")),
		Normalize(doc.Text),
		Normalize(doc.Notes),
	)
	if err != nil {
		return fmt.Errorf("failed to index message %d: %w", doc.ID, err)
	}

	x.logger.Debug("fts insert", "id", doc.ID)
	return nil
}

// Delete removes a document from the index
func (x *Index) Delete(ctx context.Context, id int64) error {
	_, err := x.db.ExecContext(ctx, "DELETE FROM message WHERE rowid = ?", id)
	return err
}

// DeleteAll empties the index
func (x *Index) DeleteAll(ctx context.Context) error {
	_, err := x.db.ExecContext(ctx, "DELETE FROM message")
	return err
}

// Search returns the ids of matching documents, most recent first
func (x *Index) Search(ctx context.Context, query Query) ([]int64, error) {
	var where strings.Builder
	var args []interface{}

	if query.Account != nil {
		where.WriteString("account = ? AND ")
		args = append(args, *query.Account)
	}
	if query.Folder != nil {
		where.WriteString("folder = ? AND ")
		args = append(args, *query.Folder)
	}
	if query.After != nil {
		where.WriteString("time > ? AND ")
		args = append(args, *query.After)
	}
	if query.Before != nil {
		where.WriteString("time < ? AND ")
		args = append(args, *query.Before)
	}

	where.WriteString("message MATCH ?")
	args = append(args, BuildMatch(query.Text))

	rows, err := x.db.QueryContext(ctx,
		"SELECT rowid FROM message WHERE "+where.String()+" ORDER BY time DESC, rowid DESC",
		args...)
	if err != nil {
		return nil, fmt.Errorf("fts search failed: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Suggest returns up to max indexed terms matching the given LIKE pattern,
// most frequent first.
func (x *Index) Suggest(ctx context.Context, pattern string, max int) ([]string, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT term FROM message_terms
		WHERE term LIKE ?
		GROUP BY term
		ORDER BY SUM(occurrences) DESC
		LIMIT ?`,
		pattern, max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

// Optimize merges the FTS b-trees into a single segment
func (x *Index) Optimize(ctx context.Context) error {
	_, err := x.db.ExecContext(ctx, "INSERT INTO message (message) VALUES ('optimize')")
	return err
}

// Size returns the index file size in bytes
func (x *Index) Size() (int64, error) {
	info, err := os.Stat(x.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the database
func (x *Index) Close() error {
	return x.db.Close()
}
