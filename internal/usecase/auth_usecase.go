package usecase

import (
	"context"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// 平文パスワードからハッシュへ
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// ハッシュと平文の照合
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// アクセストークン発行の約束（実装はcmd/api側）
type TokenIssuer interface {
	Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error)
}

type AuthUsecase struct {
	users    repo.UserRepository
	hasher   PasswordHasher
	verifier PasswordVerifier
	issuer   TokenIssuer
	clock    Clock
}

func NewAuthUsecase(
	users repo.UserRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer TokenIssuer,
	clock Clock,
) *AuthUsecase {
	return &AuthUsecase{
		users:    users,
		hasher:   hasher,
		verifier: verifier,
		issuer:   issuer,
		clock:    clock,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
}

type RegisterOutput struct {
	User model.User `json:"user"`
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        model.User `json:"user"`
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (RegisterOutput, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return RegisterOutput{}, NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if len(in.Password) < 12 {
		return RegisterOutput{}, NewHTTPError(http.StatusBadRequest, "password too short")
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return RegisterOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	now := u.clock.Now()
	user := model.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.users.Create(ctx, &user); err != nil {
		if err == repo.ErrDuplicate {
			return RegisterOutput{}, NewHTTPError(http.StatusConflict, "email already exists")
		}
		return RegisterOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	user.PasswordHash = ""
	return RegisterOutput{User: user}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err == repo.ErrNotFound {
		//存在有無は漏らさない
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !user.IsActive {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	if !u.verifier.Verify(in.Password, user.PasswordHash) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	now := u.clock.Now()
	token, expiresAt, err := u.issuer.Issue(user.ID, user.Role, now)
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	//最終ログインはbest-effort
	user.LastLoginAt = &now
	_ = u.users.Update(ctx, &user)

	user.PasswordHash = ""
	return LoginOutput{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost: cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
