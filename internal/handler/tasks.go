package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/taskboard-dev/taskboard/backend/internal/domain"
)

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtxKey).(*Principal)

	var req struct {
		Title       string     `json:"title" validate:"required"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		Priority    string     `json:"priority" validate:"omitempty,oneof=Low Medium High"`
		Email       string     `json:"email" validate:"omitempty,email"`
		Deadline    *time.Time `json:"deadline"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 状态逐词规范化为首字母大写，缺省为 Pending
	status := domain.TaskStatusPending
	if req.Status != "" {
		status = domain.NormalizeStatus(req.Status)
		if !domain.ValidStatus(status) {
			h.errorResponse(w, r, http.StatusBadRequest, "无效的任务状态")
			return
		}
	}

	priority := domain.TaskPriorityLow
	if req.Priority != "" {
		priority = domain.TaskPriority(req.Priority)
	}

	// createdBy 始终取自认证身份，请求体中无法指定；
	// assignedTo 只保存原始邮箱字符串，不检查对应用户是否存在
	task := &domain.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		AssignedTo:  req.Email,
		CreatedBy:   principal.ID,
		Deadline:    req.Deadline,
	}

	if err := h.store.CreateTask(task); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 被指派人的邮箱如果对应一个已注册用户，则尽力发送通知邮件
	if task.AssignedTo != "" {
		if assignee, err := h.store.GetUserByEmail(task.AssignedTo); err == nil {
			mailMessage := domain.MailMessage{
				Type: "task_assigned",
				To:   assignee.Email,
				Data: domain.TaskAssignedMailData{
					Name:         assignee.Name,
					Title:        task.Title,
					Description:  task.Description,
					Priority:     string(task.Priority),
					CreatorEmail: principal.Email,
				},
			}
			if err := h.publishMail(mailMessage); err != nil {
				slog.Error("无法发送任务指派通知邮件", "email", assignee.Email, "error", err)
			}
		}
	}

	h.successResponse(w, r, http.StatusCreated, "任务创建成功", task)
}

// GetMyTasks 返回当前用户创建的或者被指派给当前用户的任务。
func (h *Handler) GetMyTasks(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtxKey).(*Principal)

	tasks, err := h.store.GetTasksForUser(principal.ID, principal.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取任务列表成功", tasks)
}

// GetAssignedTasks 只返回被指派给当前用户的任务。
func (h *Handler) GetAssignedTasks(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtxKey).(*Principal)

	tasks, err := h.store.GetTasksAssignedTo(principal.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取任务列表成功", tasks)
}

// GetAllTasks 返回所有任务，可按被指派人过滤，只允许管理员调用。
func (h *Handler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.GetAllTasks(r.URL.Query().Get("assignedTo"))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取任务列表成功", tasks)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtxKey).(*Principal)

	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, http.StatusNotFound, "任务不存在")
		return
	}

	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Status      *string    `json:"status"`
		Priority    *string    `json:"priority" validate:"omitempty,oneof=Low Medium High"`
		Email       *string    `json:"email" validate:"omitempty,email"`
		CreatedBy   *int64     `json:"createdBy"`
		Deadline    *time.Time `json:"deadline"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 管理员可以整体替换任务的任意字段，包括已完成的任务
	if principal.Role == domain.RoleAdmin {
		task, err := h.store.GetTaskByID(taskID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, http.StatusNotFound, "任务不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		if req.Title != nil {
			task.Title = *req.Title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Status != nil {
			// 管理员写入的状态不做规范化和校验，统计接口会丢弃规范集合之外的拼写
			task.Status = domain.TaskStatus(*req.Status)
		}
		if req.Priority != nil {
			task.Priority = domain.TaskPriority(*req.Priority)
		}
		if req.Email != nil {
			task.AssignedTo = *req.Email
		}
		if req.CreatedBy != nil {
			task.CreatedBy = *req.CreatedBy
		}
		if req.Deadline != nil {
			task.Deadline = req.Deadline
		}

		if err := h.store.UpdateTask(task); err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, http.StatusBadRequest, "更新任务失败，请重试")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		h.successResponse(w, r, http.StatusOK, "任务更新成功", task)
		return
	}

	// 非管理员必须是创建者或者被指派人，权限不足和任务不存在返回同一个错误
	task, err := h.store.GetTaskForUser(taskID, principal.ID, principal.Email)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusNotFound, "任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if task.IsCompleted() {
		h.errorResponse(w, r, http.StatusBadRequest, "无法更新已完成的任务")
		return
	}

	// 非管理员只能更新状态字段，请求体中的其他字段会被忽略
	if req.Status != nil {
		status := domain.NormalizeStatus(*req.Status)
		if !domain.ValidStatus(status) {
			h.errorResponse(w, r, http.StatusBadRequest, "无效的任务状态")
			return
		}
		task.Status = status
	}

	if err := h.store.UpdateTask(task); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusBadRequest, "更新任务失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, http.StatusOK, "任务更新成功", task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, r, http.StatusNotFound, "任务不存在")
		return
	}

	if err := h.store.DeleteTask(taskID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, http.StatusNotFound, "任务不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, http.StatusOK, "任务删除成功", nil)
}

// GetTaskStats 按状态统计任务数量，固定返回四个桶，没有对应任务的桶计数为零。
func (h *Handler) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.GetTaskStats()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	stats := make([]domain.TaskStatusCount, 0, len(domain.StatsBuckets))
	for _, bucket := range domain.StatsBuckets {
		stats = append(stats, domain.TaskStatusCount{
			Status: bucket,
			Count:  counts[bucket],
		})
	}

	h.successResponse(w, r, http.StatusOK, "获取任务统计成功", stats)
}
