package localstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Favorites exposes the favorited-title set through the interface the
// cache expects. It shares the Store's connection.
type Favorites struct {
	store *Store
}

// Favorites returns the favorite set backed by this store.
func (s *Store) Favorites() *Favorites {
	return &Favorites{store: s}
}

// Toggle flips the favorite state of a title and reports the new
// state.
func (f *Favorites) Toggle(title string) (bool, error) {
	ctx := context.Background()

	var exists int
	err := f.store.conn.QueryRowContext(ctx,
		"SELECT 1 FROM favorites WHERE title = ?", title).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = f.store.conn.ExecContext(ctx,
			"INSERT INTO favorites (title, added_at) VALUES (?, ?)",
			title, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return false, fmt.Errorf("failed to add favorite: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to check favorite: %w", err)
	default:
		_, err = f.store.conn.ExecContext(ctx,
			"DELETE FROM favorites WHERE title = ?", title)
		if err != nil {
			return false, fmt.Errorf("failed to remove favorite: %w", err)
		}
		return false, nil
	}
}

// IsFavorite reports whether the title is favorited.
func (f *Favorites) IsFavorite(title string) (bool, error) {
	var exists int
	err := f.store.conn.QueryRow(
		"SELECT 1 FROM favorites WHERE title = ?", title).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return true, nil
}

// List returns all favorited titles, sorted ascending.
func (f *Favorites) List() ([]string, error) {
	rows, err := f.store.conn.Query(
		"SELECT title FROM favorites ORDER BY title ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorites: %w", err)
	}
	return titles, nil
}
