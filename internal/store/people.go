package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	grerrors "github.com/grans-cli/grans/internal/errors"
	"github.com/grans-cli/grans/internal/model"
)

// UpsertPerson inserts or replaces a person row. Used by bulk people sync.
func (s *Store) UpsertPerson(p *model.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO people (id, name, email, company, job_title) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, company=excluded.company, job_title=excluded.job_title
	`, p.ID, p.Name, p.Email, p.Company, p.JobTitle)
	if err != nil {
		return grerrors.StoreIOError("failed to upsert person", err)
	}
	return nil
}

// GetPerson fetches a person by ID.
func (s *Store) GetPerson(id string) (*model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &model.Person{}
	err := s.db.QueryRow(`SELECT id, name, email, company, job_title FROM people WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Email, &p.Company, &p.JobTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, grerrors.NotFoundError(fmt.Sprintf("person %s not found", id))
	}
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read person", err)
	}
	return p, nil
}

// ListPeople returns every known person, ordered by name.
func (s *Store) ListPeople() ([]*model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, email, company, job_title FROM people ORDER BY name ASC`)
	if err != nil {
		return nil, grerrors.StoreIOError("failed to list people", err)
	}
	defer rows.Close()

	var out []*model.Person
	for rows.Next() {
		p := &model.Person{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Company, &p.JobTitle); err != nil {
			return nil, grerrors.StoreIOError("failed to scan person row", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertCalendarEvent inserts or replaces a calendar event row.
func (s *Store) UpsertCalendarEvent(ev *model.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attendeesJSON, err := json.Marshal(ev.Attendees)
	if err != nil {
		return grerrors.InternalError("failed to marshal calendar attendees", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO calendar_events (id, summary, start_time, end_time, calendar_id, attendees_json) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET summary=excluded.summary, start_time=excluded.start_time, end_time=excluded.end_time, calendar_id=excluded.calendar_id, attendees_json=excluded.attendees_json
	`, ev.ID, ev.Summary, formatTime(ev.StartTime), formatTime(ev.EndTime), ev.CalendarID, string(attendeesJSON))
	if err != nil {
		return grerrors.StoreIOError("failed to upsert calendar event", err)
	}
	return nil
}

// GetCalendarEvent fetches a calendar event by ID.
func (s *Store) GetCalendarEvent(id string) (*model.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev := &model.CalendarEvent{}
	var startTime, endTime, attendeesJSON string
	err := s.db.QueryRow(`SELECT id, summary, start_time, end_time, calendar_id, attendees_json FROM calendar_events WHERE id = ?`, id).
		Scan(&ev.ID, &ev.Summary, &startTime, &endTime, &ev.CalendarID, &attendeesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, grerrors.NotFoundError(fmt.Sprintf("calendar event %s not found", id))
	}
	if err != nil {
		return nil, grerrors.StoreIOError("failed to read calendar event", err)
	}
	if ev.StartTime, err = parseTime(startTime); err != nil {
		return nil, grerrors.InternalError("failed to parse calendar start_time", err)
	}
	if ev.EndTime, err = parseTime(endTime); err != nil {
		return nil, grerrors.InternalError("failed to parse calendar end_time", err)
	}
	if err := json.Unmarshal([]byte(attendeesJSON), &ev.Attendees); err != nil {
		return nil, grerrors.InternalError("failed to parse calendar attendees", err)
	}
	return ev, nil
}
