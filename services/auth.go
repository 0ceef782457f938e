package services

import (
	"Ashray/apperr"
	"Ashray/identity"
	"Ashray/models"
	"Ashray/role"
	"Ashray/util"
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// IdentityProvider is the user pool. *identity.Cognito satisfies it.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, name, phone string) (*identity.SignUpResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	ResendConfirmationCode(ctx context.Context, email string) error
	SignIn(ctx context.Context, email, password string) (*identity.Tokens, error)
	ForgotPassword(ctx context.Context, email string) error
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
	SignOut(ctx context.Context, accessToken string) error
}

var _ IdentityProvider = (*identity.Cognito)(nil)

type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisteredUser struct {
	UserID primitive.ObjectID `json:"userId"`
	Email  string             `json:"email"`
	Name   string             `json:"name"`
	Role   string             `json:"role"`
}

type LoginResult struct {
	identity.Tokens
	User *models.User `json:"data"`
}

type AuthService struct {
	idp   IdentityProvider
	users UserRepository
	log   *zap.Logger
	now   func() time.Time
}

func NewAuthService(idp IdentityProvider, users UserRepository, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{idp: idp, users: users, log: log, now: time.Now}
}

/*
 * Only self-registrable roles are accepted
 * Reject an email that already has a profile before touching the user pool
 * Sign up in the pool, then mirror the account as a local profile
 */
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisteredUser, error) {
	if !role.In(in.Role, role.SelfRegistrable...) {
		return nil, apperr.Validation(util.INVALID_ROLE)
	}
	name := util.StripHTML(in.Name)
	email := models.NormalizeEmail(in.Email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict(util.USER_ALREADY_EXISTS)
	}

	probe := models.NewUser("pending", name, email, in.Role)
	if err := probe.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	signed, err := s.idp.SignUp(ctx, email, in.Password, name, in.Phone)
	if err != nil {
		s.log.Warn("sign up rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	u := models.NewUser(signed.UserSub, name, email, in.Role)
	u.Phone = strings.TrimSpace(in.Phone)
	u.EmailVerified = signed.Confirmed
	if err := s.users.Create(ctx, u); err != nil {
		s.log.Error("profile create failed after sign up", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	s.log.Info("user registered", zap.String("id", u.ID.Hex()), zap.String("role", u.Role))
	return &RegisteredUser{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

/*
 * Authenticate against the user pool
 * Load the local profile and refuse disabled accounts
 * Record the login time, best effort
 */
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := models.NormalizeEmail(in.Email)
	tokens, err := s.idp.SignIn(ctx, email, in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.UserNotFound(util.USER_NOT_FOUND)
	}
	if !u.IsActive {
		return nil, apperr.Forbidden(util.ACCOUNT_DISABLED)
	}
	at := s.now()
	if err := s.users.TouchLastLogin(ctx, u.ID, at); err != nil {
		s.log.Warn("last login update failed", zap.String("id", u.ID.Hex()), zap.Error(err))
	} else {
		u.LastLogin = &at
	}
	return &LoginResult{Tokens: *tokens, User: u}, nil
}

// VerifyEmail confirms the sign-up code and marks the local profile verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" {
		return apperr.Validation("Please provide email and verification code")
	}
	if err := s.idp.ConfirmSignUp(ctx, email, code); err != nil {
		return err
	}
	if err := s.users.SetEmailVerified(ctx, email); err != nil {
		s.log.Warn("email verified flag not saved", zap.String("email", email), zap.Error(err))
	}
	return nil
}

func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperr.Validation("Please provide email")
	}
	return s.idp.ResendConfirmationCode(ctx, email)
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperr.Validation("Please provide email")
	}
	return s.idp.ForgotPassword(ctx, email)
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" || newPassword == "" {
		return apperr.Validation("Please provide email, code, and new password")
	}
	return s.idp.ConfirmForgotPassword(ctx, email, code, newPassword)
}

// Logout revokes the pool session when an access token is supplied.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	return s.idp.SignOut(ctx, strings.TrimSpace(accessToken))
}
