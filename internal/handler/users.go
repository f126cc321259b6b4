package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/taskboard-dev/taskboard/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// CreateUser 只允许管理员调用，同时挂载在 /register 和 /create-user 两个入口上。
// 创建成功后不签发令牌，新用户需要自行登录。
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"required,oneof=admin user"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 检查邮箱是否已被占用
	exists, err := h.store.CheckEmailIfExists(req.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if exists {
		h.errorResponse(w, r, http.StatusBadRequest, "邮箱已存在")
		return
	}

	// 对密码进行哈希
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 插入用户到数据库中
	user := &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.Role(req.Role),
	}

	if err := h.store.CreateUser(user); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "users_email_key":
				// 预检查和插入之间存在并发窗口，唯一约束兜底
				h.errorResponse(w, r, http.StatusBadRequest, "邮箱已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// 通知邮件尽力而为，用户已经创建成功，发布失败不影响请求结果
	mailMessage := domain.MailMessage{
		Type: "new_account",
		To:   user.Email,
		Data: domain.NewAccountMailData{
			Name:  user.Name,
			Email: user.Email,
			Role:  string(user.Role),
		},
	}
	if err := h.publishMail(mailMessage); err != nil {
		slog.Error("无法发送新账户通知邮件", "email", user.Email, "error", err)
	}

	h.successResponse(w, r, http.StatusCreated, "用户创建成功", user)
}

// Profile 返回当前用户的最新记录，密码哈希不会被序列化。
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	principal := r.Context().Value(PrincipalCtxKey).(*Principal)

	user, err := h.store.GetUserByID(principal.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, http.StatusOK, "获取个人信息成功", user)
}
