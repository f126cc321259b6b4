package handler

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/taskboard-dev/taskboard/backend/internal/domain"
)

// fakeStore 是内存版的 Store 实现，语义与 repository 保持一致：
// 查不到返回 sql.ErrNoRows，更新使用乐观版本号。
type fakeStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextTaskID int64
	users      map[int64]*domain.User
	tasks      map[int64]*domain.Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[int64]*domain.User),
		tasks: make(map[int64]*domain.Task),
	}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	return &c
}

func (s *fakeStore) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now()
	user.Version = 1
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *fakeStore) GetUserByID(id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyUser(user), nil
}

func (s *fakeStore) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) CheckEmailIfExists(email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) UpdateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok || stored.Version != user.Version {
		return sql.ErrNoRows
	}
	user.Version++
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *fakeStore) deleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *fakeStore) CreateTask(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTaskID++
	task.ID = s.nextTaskID
	// 时间戳加上偏移保证排序测试的确定性
	task.CreatedAt = time.Now().Add(time.Duration(s.nextTaskID) * time.Second)
	task.Version = 1
	s.tasks[task.ID] = copyTask(task)
	return nil
}

func (s *fakeStore) joinCreator(task *domain.Task) *domain.Task {
	c := copyTask(task)
	if creator, ok := s.users[task.CreatedBy]; ok {
		c.Creator = creator.Summary()
	}
	return c
}

func (s *fakeStore) GetTaskByID(id int64) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyTask(task), nil
}

func (s *fakeStore) GetTaskForUser(id int64, userID int64, email string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || (task.CreatedBy != userID && task.AssignedTo != email) {
		return nil, sql.ErrNoRows
	}
	return copyTask(task), nil
}

func (s *fakeStore) GetTasksForUser(userID int64, email string) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if task.CreatedBy == userID || task.AssignedTo == email {
			tasks = append(tasks, s.joinCreator(task))
		}
	}
	return tasks, nil
}

func (s *fakeStore) GetTasksAssignedTo(email string) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if task.AssignedTo == email {
			tasks = append(tasks, s.joinCreator(task))
		}
	}
	return tasks, nil
}

func (s *fakeStore) GetAllTasks(assignedTo string) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if assignedTo == "" || task.AssignedTo == assignedTo {
			tasks = append(tasks, s.joinCreator(task))
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *fakeStore) UpdateTask(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[task.ID]
	if !ok || stored.Version != task.Version {
		return sql.ErrNoRows
	}
	task.Version++
	s.tasks[task.ID] = copyTask(task)
	return nil
}

func (s *fakeStore) DeleteTask(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.tasks, id)
	return nil
}

func (s *fakeStore) GetTaskStats() (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]int)
	for _, task := range s.tasks {
		key := normalizeStatsKey(string(task.Status))
		stats[key]++
	}
	return stats, nil
}

// fakePublisher 记录发布到消息队列中的消息。
type fakePublisher struct {
	mu        sync.Mutex
	published []amqp.Publishing
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
	return nil
}

func (p *fakePublisher) messages() []amqp.Publishing {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]amqp.Publishing(nil), p.published...)
}
