package identity

import (
	"Ashray/apperr"
	"Ashray/util"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/nyaruka/phonenumbers"
)

// cognitoAPI is the slice of the Cognito client the app uses.
type cognitoAPI interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, in *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	ForgotPassword(ctx context.Context, in *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, in *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

type CognitoOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ClientID        string
	ClientSecret    string
	PhoneRegion     string
}

// Cognito wraps the user pool's public (app client) API.
type Cognito struct {
	api          cognitoAPI
	clientID     string
	clientSecret string
	phoneRegion  string
}

type SignUpResult struct {
	UserSub   string
	Email     string
	Confirmed bool
}

type Tokens struct {
	IDToken      string `json:"token"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int32  `json:"expiresIn"`
}

func NewCognito(ctx context.Context, opts CognitoOptions) (*Cognito, error) {
	loaders := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken,
		)))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("cognito: load config: %w", err)
	}
	return newCognito(cip.NewFromConfig(awsCfg), opts), nil
}

func newCognito(api cognitoAPI, opts CognitoOptions) *Cognito {
	region := opts.PhoneRegion
	if region == "" {
		region = "IN"
	}
	return &Cognito{api: api, clientID: opts.ClientID, clientSecret: opts.ClientSecret, phoneRegion: region}
}

// SecretHash is base64(HMAC-SHA256(clientSecret, username+clientID)).
func SecretHash(clientSecret, username, clientID string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Cognito) secretHash(username string) *string {
	if c.clientSecret == "" {
		return nil
	}
	return aws.String(SecretHash(c.clientSecret, username, c.clientID))
}

// FormatPhone normalises a phone number to E.164, assuming region when no country code is given.
func FormatPhone(phone, region string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(phone), region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", errors.New("not a possible phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

/*
* Trim the email and use it as the username
* Only standard attributes are sent (email, name, phone_number)
* Phone is converted to E.164 before it leaves the process
 */
func (c *Cognito) SignUp(ctx context.Context, email, password, name, phone string) (*SignUpResult, error) {
	username := strings.TrimSpace(email)
	attrs := []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(username)},
		{Name: aws.String("name"), Value: aws.String(strings.TrimSpace(name))},
	}
	if strings.TrimSpace(phone) != "" {
		e164, err := FormatPhone(phone, c.phoneRegion)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, util.INVALID_PHONE, err)
		}
		attrs = append(attrs, types.AttributeType{Name: aws.String("phone_number"), Value: aws.String(e164)})
	}
	out, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(c.clientID),
		Username:       aws.String(username),
		Password:       aws.String(password),
		SecretHash:     c.secretHash(username),
		UserAttributes: attrs,
	})
	if err != nil {
		return nil, mapCognitoError(err)
	}
	return &SignUpResult{UserSub: aws.ToString(out.UserSub), Email: username, Confirmed: out.UserConfirmed}, nil
}

func (c *Cognito) ConfirmSignUp(ctx context.Context, email, code string) error {
	username := strings.TrimSpace(email)
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(strings.TrimSpace(code)),
		SecretHash:       c.secretHash(username),
	})
	return mapCognitoError(err)
}

func (c *Cognito) ResendConfirmationCode(ctx context.Context, email string) error {
	username := strings.TrimSpace(email)
	_, err := c.api.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
		ClientId:   aws.String(c.clientID),
		Username:   aws.String(username),
		SecretHash: c.secretHash(username),
	})
	return mapCognitoError(err)
}

// SignIn runs the USER_PASSWORD_AUTH flow.
func (c *Cognito) SignIn(ctx context.Context, email, password string) (*Tokens, error) {
	username := strings.TrimSpace(email)
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if h := c.secretHash(username); h != nil {
		params["SECRET_HASH"] = *h
	}
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, mapCognitoError(err)
	}
	if out.AuthenticationResult == nil {
		return nil, apperr.Auth(util.INVALID_CREDENTIALS)
	}
	r := out.AuthenticationResult
	return &Tokens{
		IDToken:      aws.ToString(r.IdToken),
		AccessToken:  aws.ToString(r.AccessToken),
		RefreshToken: aws.ToString(r.RefreshToken),
		ExpiresIn:    r.ExpiresIn,
	}, nil
}

func (c *Cognito) ForgotPassword(ctx context.Context, email string) error {
	username := strings.TrimSpace(email)
	_, err := c.api.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId:   aws.String(c.clientID),
		Username:   aws.String(username),
		SecretHash: c.secretHash(username),
	})
	return mapCognitoError(err)
}

func (c *Cognito) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	username := strings.TrimSpace(email)
	_, err := c.api.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(strings.TrimSpace(code)),
		Password:         aws.String(newPassword),
		SecretHash:       c.secretHash(username),
	})
	return mapCognitoError(err)
}

// SignOut revokes every token issued for the access token's user. An empty token is a no-op.
func (c *Cognito) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	_, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(accessToken)})
	return mapCognitoError(err)
}

func mapCognitoError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return apperr.Wrap(apperr.KindInternal, util.SERVER_ERROR, err)
	}
	switch apiErr.ErrorCode() {
	case "UserNotConfirmedException":
		return apperr.Wrap(apperr.KindAuth, util.USER_NOT_CONFIRMED, err)
	case "NotAuthorizedException":
		return apperr.Wrap(apperr.KindAuth, util.INVALID_CREDENTIALS, err)
	case "UserNotFoundException":
		return apperr.Wrap(apperr.KindUserNotFound, util.USER_NOT_FOUND, err)
	case "UsernameExistsException", "AliasExistsException":
		return apperr.Wrap(apperr.KindConflict, util.USER_ALREADY_EXISTS, err)
	case "CodeMismatchException":
		return apperr.Wrap(apperr.KindValidation, util.INVALID_VERIFICATION_CODE, err)
	case "ExpiredCodeException":
		return apperr.Wrap(apperr.KindValidation, util.VERIFICATION_CODE_EXPIRED, err)
	case "InvalidPasswordException":
		return apperr.Wrap(apperr.KindValidation, util.INVALID_PASSWORD, err)
	case "LimitExceededException", "TooManyRequestsException", "TooManyFailedAttemptsException":
		return apperr.Wrap(apperr.KindValidation, util.TOO_MANY_REQUESTS, err)
	case "InvalidParameterException":
		return apperr.Wrap(apperr.KindValidation, apiErr.ErrorMessage(), err)
	default:
		return apperr.Wrap(apperr.KindInternal, util.SERVER_ERROR, err)
	}
}
