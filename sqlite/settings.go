package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"

	"pomosync"
)

const (
	SelectAllSettings = "SELECT user_id, work_minutes, break_minutes, repetitions, project_id, task_id, notes, tags, created_at, updated_at FROM timer_settings"
)

type timerSettingsEntity struct {
	UserID       string
	WorkMinutes  int
	BreakMinutes int
	Repetitions  int
	ProjectID    string
	TaskID       string
	Notes        string
	Tags         string
	CreatedAt    int64
	UpdatedAt    int64
}

type timerSettingsRepo struct {
	dbGetter txStdLib.DBGetter
	l        log.Logger
}

func NewTimerSettingsRepo(dbGetter txStdLib.DBGetter, logger log.Logger) *timerSettingsRepo {
	return &timerSettingsRepo{
		dbGetter: dbGetter,
		l:        logger,
	}
}

var _ pomosync.TimerSettingsRepo = (*timerSettingsRepo)(nil)

func (r *timerSettingsRepo) UpsertSettings(ctx context.Context, settings pomosync.TimerSettingsRecord) (pomosync.ExistingTimerSettingsRecord, error) {
	if settings.UserID == "" {
		return pomosync.ExistingTimerSettingsRecord{}, fmt.Errorf("provide required field 'UserID'")
	}

	db := r.dbGetter(ctx)
	existingRecord := pomosync.ExistingTimerSettingsRecord{
		TimerSettingsRecord: settings,
		ExistingRecord:      pomosync.NewExistingRecord[pomosync.UserID](string(settings.UserID)),
	}
	e := mapToTimerSettingsEntity(existingRecord)

	args := []any{
		e.UserID,
		e.WorkMinutes,
		e.BreakMinutes,
		e.Repetitions,
		e.ProjectID,
		e.TaskID,
		e.Notes,
		e.Tags,
		e.CreatedAt,
		e.UpdatedAt,
	}
	query := "INSERT INTO timer_settings (user_id, work_minutes, break_minutes, repetitions, project_id, task_id, notes, tags, created_at, updated_at) VALUES " +
		generateParameters(len(args)) +
		" ON CONFLICT(user_id) DO UPDATE SET work_minutes=excluded.work_minutes, break_minutes=excluded.break_minutes, repetitions=excluded.repetitions, project_id=excluded.project_id, task_id=excluded.task_id, notes=excluded.notes, tags=excluded.tags, updated_at=excluded.updated_at"
	r.l.Debug("upserting timer settings", "query", query, "args", args)
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return pomosync.ExistingTimerSettingsRecord{}, err
	}

	return existingRecord, nil
}

func (r *timerSettingsRepo) GetSettings(ctx context.Context, id pomosync.UserID) (pomosync.ExistingTimerSettingsRecord, error) {
	if id == "" {
		return pomosync.ExistingTimerSettingsRecord{}, fmt.Errorf("provide id")
	}

	db := r.dbGetter(ctx)
	row := db.QueryRowContext(
		ctx,
		fmt.Sprintf("%s WHERE user_id=?", SelectAllSettings), id,
	)

	return extractTimerSettings(row)
}

func (r *timerSettingsRepo) DeleteSettings(ctx context.Context, id pomosync.UserID) (pomosync.ExistingTimerSettingsRecord, error) {
	existing, err := r.GetSettings(ctx, id)
	if err != nil {
		return pomosync.ExistingTimerSettingsRecord{}, err
	}

	db := r.dbGetter(ctx)
	query := "DELETE FROM timer_settings WHERE user_id = ?"
	r.l.Debug("deleting timer settings", "query", query, "user_id", id)
	if _, err := db.ExecContext(ctx, query, id); err != nil {
		return pomosync.ExistingTimerSettingsRecord{}, err
	}

	return existing, nil
}

func extractTimerSettings(s Scannable) (pomosync.ExistingTimerSettingsRecord, error) {
	var e timerSettingsEntity
	if err := s.Scan(&e.UserID, &e.WorkMinutes, &e.BreakMinutes, &e.Repetitions, &e.ProjectID, &e.TaskID, &e.Notes, &e.Tags, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pomosync.ExistingTimerSettingsRecord{}, ErrNotFound
		}
		return pomosync.ExistingTimerSettingsRecord{}, err
	}

	return mapToExistingTimerSettingsRecord(e), nil
}

func mapToTimerSettingsEntity(settings pomosync.ExistingTimerSettingsRecord) timerSettingsEntity {
	return timerSettingsEntity{
		UserID:       string(settings.UserID),
		WorkMinutes:  settings.WorkMinutes,
		BreakMinutes: settings.BreakMinutes,
		Repetitions:  settings.Repetitions,
		ProjectID:    string(settings.ProjectID),
		TaskID:       string(settings.TaskID),
		Notes:        settings.Notes,
		Tags:         joinTags(settings.Tags),
		CreatedAt:    settings.CreatedAt.Unix(),
		UpdatedAt:    settings.UpdatedAt.Unix(),
	}
}

func mapToExistingTimerSettingsRecord(e timerSettingsEntity) pomosync.ExistingTimerSettingsRecord {
	return pomosync.ExistingTimerSettingsRecord{
		ExistingRecord: pomosync.ExistingRecord[pomosync.UserID]{
			ID:        pomosync.UserID(e.UserID),
			CreatedAt: time.Unix(e.CreatedAt, 0),
			UpdatedAt: time.Unix(e.UpdatedAt, 0),
		},
		TimerSettingsRecord: pomosync.TimerSettingsRecord{
			UserID:       pomosync.UserID(e.UserID),
			WorkMinutes:  e.WorkMinutes,
			BreakMinutes: e.BreakMinutes,
			Repetitions:  e.Repetitions,
			ProjectID:    pomosync.ProjectID(e.ProjectID),
			TaskID:       pomosync.TaskID(e.TaskID),
			Notes:        e.Notes,
			Tags:         splitTags(e.Tags),
		},
	}
}
