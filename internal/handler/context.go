package handler

import (
	"github.com/taskboard-dev/taskboard/backend/internal/domain"
)

type ContextKey string

var (
	PrincipalCtxKey ContextKey = "principal"
)

// Principal 是每个请求的认证身份，字段来自认证中间件重新查询到的用户记录，
// 而不是直接信任令牌中的内容。
type Principal struct {
	ID    int64
	Email string
	Role  domain.Role
}
