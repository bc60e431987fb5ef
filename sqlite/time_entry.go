// Package sqlite implements repo interfaces
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"pomosync"
)

const (
	SelectAllEntries = "SELECT id, user_id, project_id, task_id, idempotency_key, started_at, ended_at, duration_ms, notes, tags, is_running, created_at, updated_at FROM time_entries"
)

type timeEntryEntity struct {
	ID             string
	UserID         string
	ProjectID      string
	TaskID         string
	IdempotencyKey string
	StartedAt      int64
	EndedAt        int64
	DurationMS     int64
	Notes          string
	Tags           string
	IsRunning      bool
	CreatedAt      int64
	UpdatedAt      int64
}

type timeEntryRepo struct {
	dbGetter txStdLib.DBGetter
	l        log.Logger
}

func NewTimeEntryRepo(dbGetter txStdLib.DBGetter, logger log.Logger) *timeEntryRepo {
	return &timeEntryRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

var _ pomosync.TimeEntryRepo = (*timeEntryRepo)(nil)

// InsertEntry is idempotent on (user, idempotency key): a second session
// reporting the same work phase gets the already-stored row back.
func (r *timeEntryRepo) InsertEntry(ctx context.Context, entry pomosync.TimeEntryRecord) (pomosync.ExistingTimeEntryRecord, error) {
	if entry.UserID == "" || entry.ProjectID == "" {
		return pomosync.ExistingTimeEntryRecord{}, fmt.Errorf("provide required fields 'UserID' and 'ProjectID'")
	}

	db := r.dbGetter(ctx)
	existingRecord := pomosync.ExistingTimeEntryRecord{
		TimeEntryRecord: entry,
		ExistingRecord:  pomosync.NewExistingRecord[pomosync.EntryID](uuid.NewString()),
	}
	e := mapToTimeEntryEntity(existingRecord)

	args := []any{
		e.ID,
		e.UserID,
		e.ProjectID,
		e.TaskID,
		e.IdempotencyKey,
		e.StartedAt,
		e.EndedAt,
		e.DurationMS,
		e.Notes,
		e.Tags,
		e.IsRunning,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO time_entries (id, user_id, project_id, task_id, idempotency_key, started_at, ended_at, duration_ms, notes, tags, is_running, created_at, updated_at) VALUES " +
		generateParameters(len(args)) + " ON CONFLICT(user_id, idempotency_key) DO NOTHING"
	r.l.Debug("creating time entry", "query", query, "args", args)
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return pomosync.ExistingTimeEntryRecord{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.l.Debug("time entry already recorded", "userID", entry.UserID, "key", entry.IdempotencyKey)
		return r.getEntryByKey(ctx, entry.UserID, entry.IdempotencyKey)
	}

	return existingRecord, nil
}

func (r *timeEntryRepo) GetEntry(ctx context.Context, id pomosync.EntryID) (pomosync.ExistingTimeEntryRecord, error) {
	if id == "" {
		return pomosync.ExistingTimeEntryRecord{}, fmt.Errorf("provide id")
	}

	db := r.dbGetter(ctx)
	row := db.QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE id=?", SelectAllEntries), id,
	)

	return extractTimeEntry(row)
}

func (r *timeEntryRepo) getEntryByKey(ctx context.Context, userID pomosync.UserID, key string) (pomosync.ExistingTimeEntryRecord, error) {
	db := r.dbGetter(ctx)
	row := db.QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE user_id=? AND idempotency_key=?", SelectAllEntries), userID, key,
	)

	return extractTimeEntry(row)
}

func (r *timeEntryRepo) GetEntriesByUser(ctx context.Context, id pomosync.UserID) ([]pomosync.ExistingTimeEntryRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("provide id")
	}

	db := r.dbGetter(ctx)
	query := fmt.Sprintf("%s WHERE user_id=? ORDER BY started_at DESC", SelectAllEntries)
	r.l.Debug("getting time entries by user", "query", query, "userID", id)
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint

	var entries []pomosync.ExistingTimeEntryRecord
	for rows.Next() {
		entry, err := extractTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *timeEntryRepo) DeleteEntry(ctx context.Context, id pomosync.EntryID) (pomosync.ExistingTimeEntryRecord, error) {
	existing, err := r.GetEntry(ctx, id)
	if err != nil {
		return pomosync.ExistingTimeEntryRecord{}, err
	}

	db := r.dbGetter(ctx)
	query := "DELETE FROM time_entries WHERE id = ?"
	r.l.Debug("deleting time entry", "query", query, "id", id)
	if _, err := db.ExecContext(ctx, query, id); err != nil {
		return pomosync.ExistingTimeEntryRecord{}, err
	}

	return existing, nil
}

func extractTimeEntry(s Scannable) (pomosync.ExistingTimeEntryRecord, error) {
	var e timeEntryEntity
	if err := s.Scan(&e.ID, &e.UserID, &e.ProjectID, &e.TaskID, &e.IdempotencyKey, &e.StartedAt, &e.EndedAt, &e.DurationMS, &e.Notes, &e.Tags, &e.IsRunning, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pomosync.ExistingTimeEntryRecord{}, ErrNotFound
		}
		return pomosync.ExistingTimeEntryRecord{}, err
	}

	return mapToExistingTimeEntryRecord(e), nil
}

func mapToTimeEntryEntity(entry pomosync.ExistingTimeEntryRecord) timeEntryEntity {
	return timeEntryEntity{
		ID:             string(entry.ID),
		UserID:         string(entry.UserID),
		ProjectID:      string(entry.ProjectID),
		TaskID:         string(entry.TaskID),
		IdempotencyKey: entry.IdempotencyKey,
		StartedAt:      entry.StartedAt.UnixMilli(),
		EndedAt:        entry.EndedAt.UnixMilli(),
		DurationMS:     entry.Duration.Milliseconds(),
		Notes:          entry.Notes,
		Tags:           joinTags(entry.Tags),
		IsRunning:      entry.IsRunning,
		CreatedAt:      entry.CreatedAt.Unix(),
		UpdatedAt:      entry.UpdatedAt.Unix(),
	}
}

func mapToExistingTimeEntryRecord(e timeEntryEntity) pomosync.ExistingTimeEntryRecord {
	return pomosync.ExistingTimeEntryRecord{
		ExistingRecord: pomosync.ExistingRecord[pomosync.EntryID]{
			ID:        pomosync.EntryID(e.ID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		TimeEntryRecord: pomosync.TimeEntryRecord{
			UserID:         pomosync.UserID(e.UserID),
			ProjectID:      pomosync.ProjectID(e.ProjectID),
			TaskID:         pomosync.TaskID(e.TaskID),
			IdempotencyKey: e.IdempotencyKey,
			StartedAt:      time.UnixMilli(e.StartedAt),
			EndedAt:        time.UnixMilli(e.EndedAt),
			Duration:       time.Duration(e.DurationMS) * time.Millisecond,
			Notes:          e.Notes,
			Tags:           splitTags(e.Tags),
			IsRunning:      e.IsRunning,
		},
	}
}
