package database

import "database/sql"

// Story is one published story recorded in the local index.
type Story struct {
	ID         int64
	Slug       string
	Kind       string // "quiz" or "summary"
	Title      string
	HTMLURL    string
	JSONURL    *string
	SlideCount int
	CreatedAt  *string
}

// Stats contains aggregate index statistics.
type Stats struct {
	TotalStories int
	Quizzes      int
	Summaries    int
}

// InsertStory records a published story.
func (db *DB) InsertStory(slug, kind, title, htmlURL string, jsonURL *string, slideCount int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO stories (slug, kind, title, html_url, json_url, slide_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		slug, kind, title, htmlURL, jsonURL, slideCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetStory returns the story with the given slug, or nil when absent.
func (db *DB) GetStory(slug string) (*Story, error) {
	row := db.conn.QueryRow(
		`SELECT id, slug, kind, title, html_url, json_url, slide_count, created_at
		FROM stories WHERE slug = ?`, slug,
	)

	var s Story
	if err := row.Scan(&s.ID, &s.Slug, &s.Kind, &s.Title, &s.HTMLURL,
		&s.JSONURL, &s.SlideCount, &s.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// GetAllStories returns all recorded stories, newest first.
func (db *DB) GetAllStories() ([]Story, error) {
	rows, err := db.conn.Query(
		`SELECT id, slug, kind, title, html_url, json_url, slide_count, created_at
		FROM stories ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stories []Story
	for rows.Next() {
		var s Story
		if err := rows.Scan(&s.ID, &s.Slug, &s.Kind, &s.Title, &s.HTMLURL,
			&s.JSONURL, &s.SlideCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}

// GetStats returns aggregate index statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM stories", &s.TotalStories},
		{"SELECT COUNT(*) FROM stories WHERE kind = 'quiz'", &s.Quizzes},
		{"SELECT COUNT(*) FROM stories WHERE kind = 'summary'", &s.Summaries},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
