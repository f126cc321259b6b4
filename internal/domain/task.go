package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusWorking    TaskStatus = "Working"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// Task 的 assignedTo 字段只是一个宽松的邮箱匹配键，不是外键。
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssignedTo  string       `json:"assignedTo"`
	CreatedBy   int64        `json:"createdBy"`
	Creator     *UserSummary `json:"creator,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	Version     int32        `json:"-"`
}

var statusCaser = cases.Title(language.English)

// NormalizeStatus 将状态逐词转换为首字母大写的形式，例如 "in progress" -> "In Progress"。
func NormalizeStatus(s string) TaskStatus {
	return TaskStatus(statusCaser.String(strings.ToLower(strings.TrimSpace(s))))
}

// ValidStatus 检查状态是否属于规范集合。
func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusWorking, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// IsCompleted 判断任务是否已完成，历史数据中存在 "complete" 和 "completed" 两种拼写。
func (t *Task) IsCompleted() bool {
	switch strings.ToLower(strings.TrimSpace(string(t.Status))) {
	case "complete", "completed":
		return true
	default:
		return false
	}
}

type TaskStatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// StatsBuckets 是统计接口固定返回的四个桶，其余拼写的状态会被统计但不会被上报。
var StatsBuckets = []string{"PENDING", "WORKING", "IN PROGRESS", "COMPLETED"}
