package services

import (
	"Ashray/apperr"
	"Ashray/identity"
	"Ashray/models"
	"Ashray/role"
	"Ashray/util"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) SignUp(ctx context.Context, email, password, name, phone string) (*identity.SignUpResult, error) {
	args := m.Called(ctx, email, password, name, phone)
	res, _ := args.Get(0).(*identity.SignUpResult)
	return res, args.Error(1)
}

func (m *mockIdentity) ConfirmSignUp(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *mockIdentity) ResendConfirmationCode(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockIdentity) SignIn(ctx context.Context, email, password string) (*identity.Tokens, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*identity.Tokens)
	return res, args.Error(1)
}

func (m *mockIdentity) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockIdentity) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	return m.Called(ctx, email, code, newPassword).Error(0)
}

func (m *mockIdentity) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

func TestRegister(t *testing.T) {
	idp := &mockIdentity{}
	users := newFakeUsers()
	svc := NewAuthService(idp, users, nil)

	idp.On("SignUp", mock.Anything, "asha@example.com", "Secret#123", "Asha", "9876543210").
		Return(&identity.SignUpResult{UserSub: "sub-1", Email: "asha@example.com"}, nil).Once()

	out, err := svc.Register(context.Background(), RegisterInput{
		Name: "Asha", Email: " Asha@Example.com ", Password: "Secret#123", Role: role.Patient, Phone: "9876543210",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", out.Email)
	assert.Equal(t, role.Patient, out.Role)

	stored, _ := users.FindByEmail(context.Background(), "asha@example.com")
	require.NotNil(t, stored)
	assert.Equal(t, "sub-1", stored.CognitoUserID)
	assert.False(t, stored.EmailVerified)
	idp.AssertExpectations(t)

	_, err = svc.Register(context.Background(), RegisterInput{Name: "Asha", Email: "asha@example.com", Password: "x", Role: role.Patient})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	idp.AssertNumberOfCalls(t, "SignUp", 1)
}

func TestRegister_RejectsAdminRole(t *testing.T) {
	idp := &mockIdentity{}
	svc := NewAuthService(idp, newFakeUsers(), nil)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Root", Email: "root@example.com", Password: "x", Role: role.Admin})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, util.INVALID_ROLE, err.(*apperr.Error).Message)
	idp.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_PoolErrorPassesThrough(t *testing.T) {
	idp := &mockIdentity{}
	svc := NewAuthService(idp, newFakeUsers(), nil)
	idp.On("SignUp", mock.Anything, "dup@example.com", "Secret#123", "Dup", "").
		Return(nil, apperr.Conflict(util.USER_ALREADY_EXISTS))

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Dup", Email: "dup@example.com", Password: "Secret#123", Role: role.Caregiver})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestLogin(t *testing.T) {
	u := models.NewUser("sub-2", "Meera", "meera@example.com", role.Pharmacy)
	u.ID = principal(role.Pharmacy).UserID()
	users := newFakeUsers(u)
	idp := &mockIdentity{}
	svc := NewAuthService(idp, users, nil)
	idp.On("SignIn", mock.Anything, "meera@example.com", "pw").
		Return(&identity.Tokens{IDToken: "id", AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600}, nil)

	res, err := svc.Login(context.Background(), LoginInput{Email: "MEERA@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "id", res.IDToken)
	assert.Equal(t, u.ID, res.User.ID)
	assert.NotNil(t, res.User.LastLogin)

	u.IsActive = false
	_, err = svc.Login(context.Background(), LoginInput{Email: "meera@example.com", Password: "pw"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestLogin_MissingProfile(t *testing.T) {
	idp := &mockIdentity{}
	svc := NewAuthService(idp, newFakeUsers(), nil)
	idp.On("SignIn", mock.Anything, "ghost@example.com", "pw").Return(&identity.Tokens{IDToken: "id"}, nil)

	_, err := svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "pw"})
	assert.True(t, apperr.Is(err, apperr.KindUserNotFound))
}

func TestLogin_BadCredentials(t *testing.T) {
	idp := &mockIdentity{}
	svc := NewAuthService(idp, newFakeUsers(), nil)
	idp.On("SignIn", mock.Anything, "a@example.com", "wrong").Return(nil, apperr.Auth(util.INVALID_CREDENTIALS))

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "wrong"})
	assert.True(t, apperr.Is(err, apperr.KindAuth))
}

func TestVerifyEmailAndPasswordFlows(t *testing.T) {
	u := models.NewUser("sub-3", "Kiran", "kiran@example.com", role.Patient)
	users := newFakeUsers()
	require.NoError(t, users.Create(context.Background(), u))
	idp := &mockIdentity{}
	svc := NewAuthService(idp, users, nil)

	idp.On("ConfirmSignUp", mock.Anything, "kiran@example.com", "123456").Return(nil)
	require.NoError(t, svc.VerifyEmail(context.Background(), "kiran@example.com", "123456"))
	assert.True(t, u.EmailVerified)

	assert.True(t, apperr.Is(svc.VerifyEmail(context.Background(), "", "1"), apperr.KindValidation))
	assert.True(t, apperr.Is(svc.ResendCode(context.Background(), " "), apperr.KindValidation))
	assert.True(t, apperr.Is(svc.ForgotPassword(context.Background(), ""), apperr.KindValidation))
	assert.True(t, apperr.Is(svc.ResetPassword(context.Background(), "kiran@example.com", "1", ""), apperr.KindValidation))

	idp.On("ConfirmForgotPassword", mock.Anything, "kiran@example.com", "654321", "NewSecret#1").Return(nil)
	require.NoError(t, svc.ResetPassword(context.Background(), "kiran@example.com", "654321", "NewSecret#1"))

	idp.On("SignOut", mock.Anything, "access").Return(nil)
	require.NoError(t, svc.Logout(context.Background(), " access "))
	idp.AssertExpectations(t)
}
