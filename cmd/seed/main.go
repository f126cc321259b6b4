package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/taskboard-dev/taskboard/backend/internal/config"
	"github.com/taskboard-dev/taskboard/backend/internal/domain"
	"github.com/taskboard-dev/taskboard/backend/internal/repository"
	"github.com/taskboard-dev/taskboard/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入演示账户, 2: 插入随机任务)")
	flag.IntVar(&n, "n", 5, "要插入的任务数量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository 并确保业务表存在
	repo := repository.NewRepository(cfg, dbpool)

	if err := repo.Migrate(context.Background()); err != nil {
		logger.Error("无法初始化数据库表", "error", err)
		return
	}

	// 执行操作
	switch op {
	case 1:
		seedDemoUsers(logger, repo, cfg)
	case 2:
		seedRandomTasks(logger, repo, n)
	default:
		logger.Error("未指定操作")
	}
}

// seedDemoUsers 确保演示用的管理员和普通用户存在，两个账户共用配置中的演示密码。
func seedDemoUsers(logger *slog.Logger, repo *repository.Repository, cfg *config.Config) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.User.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("无法生成密码哈希", slog.String("error", err.Error()))
		return
	}

	users := []*domain.User{
		{
			Name:         "Admin User",
			Email:        "admin@example.com",
			PasswordHash: string(passwordHash),
			Role:         domain.RoleAdmin,
		},
		{
			Name:         "Regular User",
			Email:        "user@example.com",
			PasswordHash: string(passwordHash),
			Role:         domain.RoleUser,
		},
	}

	for _, user := range users {
		if err := repo.CreateUser(user); err != nil {
			var pgErr *pgconn.PgError
			switch {
			case errors.As(err, &pgErr) && pgErr.ConstraintName == "users_email_key":
				logger.Info("演示账户已存在", slog.String("email", user.Email))
			default:
				logger.Error("无法创建演示账户", slog.String("email", user.Email), slog.String("error", err.Error()))
			}
			continue
		}
		logger.Info("演示账户创建成功", slog.String("email", user.Email), slog.String("role", string(user.Role)))
	}
}

// seedRandomTasks 以演示管理员的身份插入 n 个随机任务，一半指派给演示普通用户。
func seedRandomTasks(logger *slog.Logger, repo *repository.Repository, n int) {
	if n <= 0 {
		logger.Error("请输入合法的任务数量")
		return
	}

	admin, err := repo.GetUserByEmail("admin@example.com")
	if err != nil {
		logger.Error("演示管理员不存在，请先执行 -op 1", slog.String("error", err.Error()))
		return
	}

	cnt := 0
	for i := 0; i < n; i++ {
		assignedTo := ""
		if i%2 == 0 {
			assignedTo = "user@example.com"
		}

		task := utils.GenerateRandomTask(admin.ID, assignedTo)
		if err := repo.CreateTask(task); err != nil {
			logger.Error("无法创建随机任务", slog.String("error", err.Error()))
			continue
		}
		cnt++
	}

	logger.Info("随机任务插入完成", slog.Int("count", cnt))
}
