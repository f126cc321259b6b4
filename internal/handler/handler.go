package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/taskboard-dev/taskboard/backend/internal/config"
	"github.com/taskboard-dev/taskboard/backend/internal/domain"
)

// Store 是 handler 依赖的存储接口，由 repository.Repository 实现。
type Store interface {
	CreateUser(user *domain.User) error
	GetUserByID(id int64) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	CheckEmailIfExists(email string) (bool, error)
	UpdateUser(user *domain.User) error

	CreateTask(task *domain.Task) error
	GetTaskByID(id int64) (*domain.Task, error)
	GetTaskForUser(id int64, userID int64, email string) (*domain.Task, error)
	GetTasksForUser(userID int64, email string) ([]*domain.Task, error)
	GetTasksAssignedTo(email string) ([]*domain.Task, error)
	GetAllTasks(assignedTo string) ([]*domain.Task, error)
	UpdateTask(task *domain.Task) error
	DeleteTask(id int64) error
	GetTaskStats() (map[string]int, error)
}

// MailPublisher 抽象了邮件消息队列的发布端，由 amqp.Channel 实现。
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange string, key string, mandatory bool, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	store       Store
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store Store, mailCh MailPublisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		store:       store,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/api", func(r chi.Router) {
		// 认证相关
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Route("/reset-password", func(r chi.Router) {
				r.Post("/require", h.RequireResetPassword)
				r.Post("/confirm", h.ConfirmResetPassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(h.auth)
				r.Get("/profile", h.Profile)
				// register 和 create-user 历史上是两个入口，行为一致，共用一个 handler
				r.With(h.requireRole(domain.RoleAdmin)).Post("/register", h.CreateUser)
				r.With(h.requireRole(domain.RoleAdmin)).Post("/create-user", h.CreateUser)
			})
		})

		// 以下 API 必须要在登录后才允许调用
		r.Route("/tasks", func(r chi.Router) {
			r.Use(h.auth)
			r.Post("/", h.CreateTask)
			r.Get("/", h.GetMyTasks)
			r.Get("/my-tasks", h.GetAssignedTasks)
			r.Get("/assigned", h.GetAssignedTasks)
			r.With(h.requireRole(domain.RoleAdmin)).Get("/all", h.GetAllTasks)
			r.With(h.requireRole(domain.RoleAdmin)).Get("/stats", h.GetTaskStats)
			r.Put("/{id}", h.UpdateTask)
			r.With(h.requireRole(domain.RoleAdmin)).Delete("/{id}", h.DeleteTask)
		})
	})
}
