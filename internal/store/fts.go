package store

import "strings"

// SanitizeFTSQuery makes a free-text user query safe to pass as an FTS5
// MATCH argument. FTS5's query syntax treats unbalanced double quotes,
// bare operators (AND/OR/NOT/NEAR), and leading hyphens as syntax errors
// rather than literal text; wrapping the whole query as a single quoted
// phrase makes every character literal except an embedded double quote,
// which is escaped by doubling per FTS5's quoting rule.
func SanitizeFTSQuery(query string) string {
	escaped := strings.ReplaceAll(query, `"`, `""`)
	return `"` + escaped + `"`
}

// FTSMatch is one row from a full-text search against an FTS5 table.
type FTSMatch struct {
	DocumentID string
	PanelID    string // set only for panel_fts matches
	Snippet    string
}

// SearchTranscriptFTS returns documents whose transcript text matches
// query, most relevant first.
func (s *Store) SearchTranscriptFTS(query string, limit int) ([]FTSMatch, error) {
	return s.searchFTS("transcript_fts", query, limit, false)
}

// SearchNotesFTS returns documents whose notes match query.
func (s *Store) SearchNotesFTS(query string, limit int) ([]FTSMatch, error) {
	return s.searchFTS("notes_fts", query, limit, false)
}

// SearchPanelFTS returns documents whose AI panel text matches query.
func (s *Store) SearchPanelFTS(query string, limit int) ([]FTSMatch, error) {
	return s.searchFTS("panel_fts", query, limit, true)
}

func (s *Store) searchFTS(table, query string, limit int, withPanelID bool) ([]FTSMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // a negative SQLite LIMIT returns every match
	}

	cols := "document_id"
	if withPanelID {
		cols = "document_id, panel_id"
	}
	sql := "SELECT " + cols + ", " + sprintfSnippet(table) + " FROM " + table +
		" WHERE " + table + " MATCH ? ORDER BY rank LIMIT ?"

	rows, err := s.db.Query(sql, SanitizeFTSQuery(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FTSMatch
	for rows.Next() {
		m := FTSMatch{}
		var scanErr error
		if withPanelID {
			scanErr = rows.Scan(&m.DocumentID, &m.PanelID, &m.Snippet)
		} else {
			scanErr = rows.Scan(&m.DocumentID, &m.Snippet)
		}
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func sprintfSnippet(table string) string {
	return "snippet(" + table + ", -1, '[', ']', '...', 12)"
}
