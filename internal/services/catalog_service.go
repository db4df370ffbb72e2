package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"ms-discovery/internal/classifier"
	"ms-discovery/internal/models"
)

var ErrEventNotFound = errors.New("event not found")

// EventSource lists events from the system of record.
type EventSource interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
}

// CatalogService keeps a local copy of the backend's events.
type CatalogService struct {
	DB *sql.DB
}

func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{DB: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertEventQuery = `
	INSERT INTO events_catalog (
		event_id, name, organization_id, registration_start_on, close_on,
		created_at, posted_on, event_date, participations_count, fee, synced_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	ON CONFLICT (event_id) DO UPDATE SET
		name = EXCLUDED.name,
		organization_id = EXCLUDED.organization_id,
		registration_start_on = EXCLUDED.registration_start_on,
		close_on = EXCLUDED.close_on,
		created_at = EXCLUDED.created_at,
		posted_on = EXCLUDED.posted_on,
		event_date = EXCLUDED.event_date,
		participations_count = EXCLUDED.participations_count,
		fee = EXCLUDED.fee,
		cached_status = CASE
			WHEN events_catalog.registration_start_on IS DISTINCT FROM EXCLUDED.registration_start_on
			  OR events_catalog.close_on IS DISTINCT FROM EXCLUDED.close_on
			THEN NULL ELSE events_catalog.cached_status END,
		synced_at = NOW()
`

// UpsertEvent inserts or replaces an event.
func (s *CatalogService) UpsertEvent(ctx context.Context, e classifier.Event) error {
	return upsertEvent(ctx, s.DB, e)
}

func upsertEvent(ctx context.Context, db execer, e classifier.Event) error {
	if e.ID == "" {
		return errors.New("event id is required")
	}
	_, err := db.ExecContext(ctx, upsertEventQuery,
		e.ID, e.Name, e.OrganizationID, timeArg(e.RegistrationStartOn), timeArg(e.CloseOn),
		timeArg(e.CreatedAt), timeArg(e.PostedOn), timeArg(e.EventDate), e.ParticipationsCount, e.Fee,
	)
	if err != nil {
		return fmt.Errorf("error upserting event %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEvent removes an event. Deleting an unknown event is not an error.
func (s *CatalogService) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM events_catalog WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("error deleting event %s: %w", eventID, err)
	}
	return nil
}

const selectEventColumns = `
	SELECT event_id, name, organization_id, registration_start_on, close_on,
	       created_at, posted_on, event_date, participations_count, fee, cached_status
	FROM events_catalog
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (classifier.Event, error) {
	var (
		e                                  classifier.Event
		start, closeOn, created, posted, d sql.NullTime
		cached                             sql.NullString
	)
	err := row.Scan(&e.ID, &e.Name, &e.OrganizationID, &start, &closeOn,
		&created, &posted, &d, &e.ParticipationsCount, &e.Fee, &cached)
	if err != nil {
		return classifier.Event{}, err
	}
	e.RegistrationStartOn = nullTime(start)
	e.CloseOn = nullTime(closeOn)
	e.CreatedAt = nullTime(created)
	e.PostedOn = nullTime(posted)
	e.EventDate = nullTime(d)
	if cached.Valid {
		e.CachedStatus, _ = classifier.ParseStatus(cached.String)
	}
	return e, nil
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// GetEvent returns one event or ErrEventNotFound.
func (s *CatalogService) GetEvent(ctx context.Context, eventID string) (classifier.Event, error) {
	row := s.DB.QueryRowContext(ctx, selectEventColumns+` WHERE event_id = $1`, eventID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return classifier.Event{}, ErrEventNotFound
	}
	if err != nil {
		return classifier.Event{}, fmt.Errorf("error getting event %s: %w", eventID, err)
	}
	return e, nil
}

// ListEvents returns the catalog newest first, the order the backend lists events in.
func (s *CatalogService) ListEvents(ctx context.Context) ([]classifier.Event, error) {
	return s.queryEvents(ctx, selectEventColumns+`
		ORDER BY COALESCE(created_at, posted_on, event_date) DESC NULLS LAST, event_id`)
}

// GetEventsByIDs returns the catalog events among ids, in listing order.
// Unknown ids are skipped.
func (s *CatalogService) GetEventsByIDs(ctx context.Context, ids []string) ([]classifier.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryEvents(ctx, selectEventColumns+`
		WHERE event_id = ANY($1)
		ORDER BY COALESCE(created_at, posted_on, event_date) DESC NULLS LAST, event_id`, pq.Array(ids))
}

func (s *CatalogService) queryEvents(ctx context.Context, query string, args ...any) ([]classifier.Event, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	var events []classifier.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}

// UpdateCachedStatus records the status computed by the status worker. An
// upsert that moves the registration window clears it again.
func (s *CatalogService) UpdateCachedStatus(ctx context.Context, eventID string, status classifier.Status, at time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE events_catalog SET cached_status = $2, status_updated_at = $3 WHERE event_id = $1`,
		eventID, string(status), at)
	if err != nil {
		return fmt.Errorf("error updating status of event %s: %w", eventID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// SyncFromBackend replaces the catalog with the events source lists. Events
// missing from a non-empty listing are removed. An empty listing leaves the
// catalog untouched.
func (s *CatalogService) SyncFromBackend(ctx context.Context, source EventSource) (int, error) {
	remote, err := source.ListEvents(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing events from backend: %w", err)
	}
	if len(remote) == 0 {
		log.Println("Backend returned no events, keeping existing catalog")
		return 0, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(remote))
	for _, raw := range remote {
		e := raw.ToClassifier()
		if e.ID == "" {
			log.Printf("Skipping backend event without id: %q", raw.Name)
			continue
		}
		if err := upsertEvent(ctx, tx, e); err != nil {
			return 0, err
		}
		ids = append(ids, e.ID)
	}
	if len(ids) == 0 {
		log.Println("Backend returned no usable events, keeping existing catalog")
		return 0, nil
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM events_catalog WHERE NOT (event_id = ANY($1))`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("error pruning catalog: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit catalog sync: %w", err)
	}

	pruned, _ := res.RowsAffected()
	log.Printf("Catalog synced: %d events upserted, %d removed", len(ids), pruned)
	return len(ids), nil
}
