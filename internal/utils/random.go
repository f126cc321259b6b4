package utils

import (
	"fmt"
	"math/rand"

	"github.com/taskboard-dev/taskboard/backend/internal/domain"
)

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var taskVerbs = []string{
	"整理", "检查", "更新", "修复", "部署", "评审", "归档", "迁移", "测试", "撰写",
}
var taskObjects = []string{
	"周报", "接口文档", "值班表", "服务器配置", "数据备份", "前端页面", "数据库索引", "监控告警", "发布流程", "用户反馈",
}

var taskStatuses = []domain.TaskStatus{
	domain.TaskStatusPending,
	domain.TaskStatusWorking,
	domain.TaskStatusInProgress,
	domain.TaskStatusCompleted,
}
var taskPriorities = []domain.TaskPriority{
	domain.TaskPriorityLow,
	domain.TaskPriorityMedium,
	domain.TaskPriorityHigh,
}

// GenerateRandomTask 生成一个随机的演示任务，创建者和被指派人由调用方指定。
func GenerateRandomTask(createdBy int64, assignedTo string) *domain.Task {
	verb := taskVerbs[rand.Intn(len(taskVerbs))]
	object := taskObjects[rand.Intn(len(taskObjects))]

	return &domain.Task{
		Title:       verb + object,
		Description: fmt.Sprintf("演示任务：%s%s", verb, object),
		Status:      taskStatuses[rand.Intn(len(taskStatuses))],
		Priority:    taskPriorities[rand.Intn(len(taskPriorities))],
		AssignedTo:  assignedTo,
		CreatedBy:   createdBy,
	}
}
