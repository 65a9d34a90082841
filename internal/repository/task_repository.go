package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"remindcal/internal/model"
)

// TaskRepository handles CRUD and date queries for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Insert appends a new task. A duplicate id fails with model.ErrConstraint.
func (r *TaskRepository) Insert(ctx context.Context, task model.Task) error {
	if task.RepeatFrequency == "" {
		task.RepeatFrequency = model.RepeatNone
	}
	row := newTaskRow(task)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return classify(err, fmt.Sprintf("insert task %q", task.ID))
	}
	return nil
}

// Update overwrites every mutable column of the task with the same id.
// Unknown ids return model.ErrItemNotFound.
func (r *TaskRepository) Update(ctx context.Context, task model.Task) error {
	row := newTaskRow(task)
	res := r.db.WithContext(ctx).Model(&taskRow{}).Where("id = ?", task.ID).Updates(map[string]any{
		"title":            row.Title,
		"description":      row.Description,
		"start_date":       row.StartDate,
		"start_time":       row.StartTime,
		"repeat_frequency": row.RepeatFrequency,
		"notification_id":  row.NotificationID,
		"updated_at":       row.UpdatedAt,
	})
	if res.Error != nil {
		return classify(res.Error, fmt.Sprintf("update task %q", task.ID))
	}
	if res.RowsAffected == 0 {
		return model.WrapError(model.ErrCodeNotFound, fmt.Sprintf("update task %q", task.ID), nil)
	}
	return nil
}

// Delete removes the task; a missing id is not an error.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&taskRow{}).Error; err != nil {
		return classify(err, fmt.Sprintf("delete task %q", id))
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var row taskRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, classify(err, fmt.Sprintf("find task %q", id))
	}
	task, err := toTask(row)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetAll lists every task by start date then start time, all-day first.
func (r *TaskRepository) GetAll(ctx context.Context) ([]model.Task, error) {
	var rows []taskRow
	if err := r.db.WithContext(ctx).Order("start_date ASC, start_time ASC").Find(&rows).Error; err != nil {
		return nil, classify(err, "list tasks")
	}
	return mapTasks(rows)
}

// GetByDate lists tasks starting on date (YYYY-MM-DD) by start time.
func (r *TaskRepository) GetByDate(ctx context.Context, date string) ([]model.Task, error) {
	var rows []taskRow
	if err := r.db.WithContext(ctx).Where("start_date = ?", date).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, classify(err, fmt.Sprintf("list tasks on %s", date))
	}
	return mapTasks(rows)
}

// DeleteExpired removes non-repeating tasks that started before date+clock.
// A task without a start time on date itself counts as expired.
func (r *TaskRepository) DeleteExpired(ctx context.Context, date, clock string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("repeat_frequency = ?", string(model.RepeatNone)).
		Where("(start_date < ? OR (start_date = ? AND (start_time IS NULL OR start_time < ?)))", date, date, clock).
		Delete(&taskRow{})
	if res.Error != nil {
		return 0, classify(res.Error, "delete expired tasks")
	}
	return res.RowsAffected, nil
}

func mapTasks(rows []taskRow) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		task, err := toTask(row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
