package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskboard-dev/taskboard/backend/internal/domain"
)

func (r *Repository) CreateTask(task *domain.Task) error {
	query := `
		INSERT INTO tasks (title, description, status, priority, assigned_to, created_by, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{task.Title, task.Description, task.Status, task.Priority, task.AssignedTo, task.CreatedBy, task.Deadline}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetTaskByID(id int64) (*domain.Task, error) {
	query := `
		SELECT title, description, status, priority, assigned_to, created_by, deadline, created_at, version
		FROM tasks WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	task := &domain.Task{
		ID: id,
	}

	dst := []any{&task.Title, &task.Description, &task.Status, &task.Priority, &task.AssignedTo, &task.CreatedBy, &task.Deadline, &task.CreatedAt, &task.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return task, nil
}

// GetTaskForUser 查询某个任务，但是只有创建者或者被指派人能够查到，
// 权限不足和任务不存在对调用方来说都是 sql.ErrNoRows。
func (r *Repository) GetTaskForUser(id int64, userID int64, email string) (*domain.Task, error) {
	query := `
		SELECT title, description, status, priority, assigned_to, created_by, deadline, created_at, version
		FROM tasks WHERE id = $1 AND (created_by = $2 OR assigned_to = $3)
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	task := &domain.Task{
		ID: id,
	}

	dst := []any{&task.Title, &task.Description, &task.Status, &task.Priority, &task.AssignedTo, &task.CreatedBy, &task.Deadline, &task.CreatedAt, &task.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id, userID, email).Scan(dst...); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *Repository) queryTasks(query string, args ...any) ([]*domain.Task, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task := &domain.Task{}

		var creatorID sql.NullInt64
		var creatorName, creatorEmail sql.NullString

		dst := []any{
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Priority,
			&task.AssignedTo,
			&task.CreatedBy,
			&task.Deadline,
			&task.CreatedAt,
			&task.Version,
			&creatorID,
			&creatorName,
			&creatorEmail,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if creatorID.Valid {
			task.Creator = &domain.UserSummary{
				ID:    creatorID.Int64,
				Name:  creatorName.String,
				Email: creatorEmail.String,
			}
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// GetTasksForUser 返回当前用户创建的或者被指派给当前用户的所有任务。
func (r *Repository) GetTasksForUser(userID int64, email string) ([]*domain.Task, error) {
	query := `
		SELECT
			t.id, t.title, t.description, t.status, t.priority, t.assigned_to,
			t.created_by, t.deadline, t.created_at, t.version,
			u.id, u.name, u.email
		FROM tasks t
		LEFT JOIN users u ON t.created_by = u.id
		WHERE t.created_by = $1 OR t.assigned_to = $2
	`

	return r.queryTasks(query, userID, email)
}

func (r *Repository) GetTasksAssignedTo(email string) ([]*domain.Task, error) {
	query := `
		SELECT
			t.id, t.title, t.description, t.status, t.priority, t.assigned_to,
			t.created_by, t.deadline, t.created_at, t.version,
			u.id, u.name, u.email
		FROM tasks t
		LEFT JOIN users u ON t.created_by = u.id
		WHERE t.assigned_to = $1
	`

	return r.queryTasks(query, email)
}

// GetAllTasks 返回所有任务，assignedTo 非空时按被指派人的邮箱精确过滤，按创建时间倒序排列。
func (r *Repository) GetAllTasks(assignedTo string) ([]*domain.Task, error) {
	query := `
		SELECT
			t.id, t.title, t.description, t.status, t.priority, t.assigned_to,
			t.created_by, t.deadline, t.created_at, t.version,
			u.id, u.name, u.email
		FROM tasks t
		LEFT JOIN users u ON t.created_by = u.id
		WHERE $1::text = '' OR t.assigned_to = $1
		ORDER BY t.created_at DESC
	`

	return r.queryTasks(query, assignedTo)
}

func (r *Repository) UpdateTask(task *domain.Task) error {
	query := `
		UPDATE tasks
		SET
			title = $1,
			description = $2,
			status = $3,
			priority = $4,
			assigned_to = $5,
			created_by = $6,
			deadline = $7,
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{task.Title, task.Description, task.Status, task.Priority, task.AssignedTo, task.CreatedBy, task.Deadline, task.ID, task.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&task.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteTask(id int64) error {
	query := `
		DELETE FROM tasks WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// GetTaskStats 按去除首尾空格并转大写后的状态分组计数。
func (r *Repository) GetTaskStats() (map[string]int, error) {
	query := `
		SELECT UPPER(TRIM(status)), COUNT(*) FROM tasks
		GROUP BY UPPER(TRIM(status))
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int

		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
