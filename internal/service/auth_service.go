package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"go-tenantadmin/internal/domain/apperr"
	"go-tenantadmin/internal/domain/model"
	"go-tenantadmin/internal/repository/dao"
	redisrepo "go-tenantadmin/internal/repository/redis"
	"go-tenantadmin/internal/security/jwt"
	"go-tenantadmin/internal/tenant"
	"go-tenantadmin/pkg/crypto"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService 登录发 token、登出吊销 JTI。登录在租户解析之前发生：
// 用户名跨租户可能重名，由可选的租户头消歧；token 内携带归属租户，
// 之后的请求以它作为 principal 信号。
type AuthService struct {
	Users     *dao.UserDAO
	UserRoles *dao.UserRoleDAO
	Tenants   *dao.TenantDAO
	JWT       *jwt.Manager
	Redis     *redisrepo.Client
	jtiPrefix string
	now       func() time.Time
}

func NewAuthService(u *dao.UserDAO, ur *dao.UserRoleDAO, t *dao.TenantDAO, j *jwt.Manager, r *redisrepo.Client, jtiPrefix string) *AuthService {
	if jtiPrefix == "" {
		jtiPrefix = "jwt:jti:"
	}
	return &AuthService{Users: u, UserRoles: ur, Tenants: t, JWT: j, Redis: r, jtiPrefix: jtiPrefix, now: time.Now}
}

type LoginResult struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	TenantID string `json:"tenant_id"`
}

// Login tenantHint 为空时要求用户名全局唯一命中，否则必须带租户头消歧
func (s *AuthService) Login(ctx context.Context, username, password, tenantHint string) (*LoginResult, error) {
	candidates, err := s.Users.FindByUsernameGlobal(ctx, username)
	if err != nil {
		return nil, err
	}
	var user *model.User
	if tenantHint != "" {
		for i := range candidates {
			if candidates[i].TenantID == tenantHint {
				user = &candidates[i]
				break
			}
		}
	} else if len(candidates) == 1 {
		user = &candidates[0]
	} else if len(candidates) > 1 {
		return nil, ErrInvalidCredentials
	}
	if user == nil || !crypto.VerifyPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if user.Status != 1 {
		return nil, errors.New("user disabled")
	}
	// 归属租户必须可用才放行登录
	t, err := s.Tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.IsActive {
		return nil, apperr.ErrTenantDisabled
	}
	if !t.SubscriptionActive(s.now()) {
		return nil, apperr.ErrSubscriptionExpired
	}

	roleIDs, err := s.UserRoles.ValidRoleIDs(ctx, user.ID, s.now())
	if err != nil {
		return nil, err
	}
	jti := uuid.NewString()
	token, err := s.JWT.Generate(user.ID, user.TenantID, roleIDs, user.IsSuperuser, jti)
	if err != nil {
		return nil, err
	}
	if s.Redis != nil {
		_ = s.Redis.SetTTL(ctx, s.jtiPrefix+jti, 1, s.JWT.ExpireDuration())
	}
	return &LoginResult{Token: token, UserID: user.ID, TenantID: user.TenantID}, nil
}

// Refresh 换发新 token 并吊销旧 JTI。重新校验用户与租户状态、
// 重算有效角色，停用或过期的主体在这里被拦下而不是等旧 token 自然过期。
func (s *AuthService) Refresh(ctx context.Context, userID int64, tenantID, oldJTI string) (*LoginResult, error) {
	t, err := s.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.IsActive {
		return nil, apperr.ErrTenantDisabled
	}
	if !t.SubscriptionActive(s.now()) {
		return nil, apperr.ErrSubscriptionExpired
	}
	user, err := s.Users.FindByID(tenant.With(ctx, t), userID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != 1 {
		return nil, ErrInvalidCredentials
	}
	roleIDs, err := s.UserRoles.ValidRoleIDs(ctx, user.ID, s.now())
	if err != nil {
		return nil, err
	}
	jti := uuid.NewString()
	token, err := s.JWT.Generate(user.ID, user.TenantID, roleIDs, user.IsSuperuser, jti)
	if err != nil {
		return nil, err
	}
	if s.Redis != nil {
		_ = s.Redis.SetTTL(ctx, s.jtiPrefix+jti, 1, s.JWT.ExpireDuration())
		_ = s.Redis.Client.Del(ctx, s.jtiPrefix+oldJTI).Err()
	}
	return &LoginResult{Token: token, UserID: user.ID, TenantID: user.TenantID}, nil
}

// GetUser 当前租户作用域内取用户
func (s *AuthService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.Users.FindByID(ctx, id)
}

// Logout 删除 JTI 使 token 立即失效
func (s *AuthService) Logout(ctx context.Context, jti string) error {
	if jti == "" || s.Redis == nil {
		return nil
	}
	return s.Redis.Client.Del(ctx, s.jtiPrefix+jti).Err()
}

// JTIAlive token 吊销检查；未接 Redis 时视为有效（仅凭签名与过期时间）
func (s *AuthService) JTIAlive(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	if s.Redis == nil {
		return true
	}
	return s.Redis.Get(ctx, s.jtiPrefix+jti) != ""
}
