// Package identity verifies bearer tokens and talks to the Cognito user pool.
package identity

import (
	"Ashray/apperr"
	"Ashray/models"
	"Ashray/role"
	"Ashray/util"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal is the authenticated caller.
type Principal struct {
	User *models.User
	Role string
}

func (p *Principal) UserID() primitive.ObjectID {
	if p == nil || p.User == nil {
		return primitive.NilObjectID
	}
	return p.User.ID
}

func (p *Principal) Is(roles ...string) bool {
	return p != nil && role.In(p.Role, roles...)
}

// Authorize fails with Forbidden unless the principal holds one of the roles.
func Authorize(p *Principal, allowed ...string) error {
	if p == nil {
		return apperr.Auth(util.NOT_AUTHORIZED_NO_TOKEN)
	}
	if !role.In(p.Role, allowed...) {
		return apperr.Forbidden(fmt.Sprintf("User role %s is not authorized to access this route", p.Role))
	}
	return nil
}

// UserLookup resolves verified token subjects to user records. Both methods return
// (nil, nil) when no user matches.
type UserLookup interface {
	FindByCognitoIDOrEmail(ctx context.Context, sub, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type KeySource interface {
	Key(ctx context.Context, kid string) (interface{}, error)
}

type VerifierOptions struct {
	Issuer       string
	Audience     string
	LegacySecret string
}

type Verifier struct {
	opts  VerifierOptions
	keys  KeySource
	users UserLookup
}

func NewVerifier(opts VerifierOptions, keys KeySource, users UserLookup) *Verifier {
	return &Verifier{opts: opts, keys: keys, users: users}
}

type cognitoClaims struct {
	Email           string `json:"email"`
	CognitoUsername string `json:"cognito:username"`
	TokenUse        string `json:"token_use"`
	jwt.RegisteredClaims
}

var errNotIDToken = errors.New("token_use is not id")

// Validate runs after the registered claims pass; only ID tokens are accepted.
func (c *cognitoClaims) Validate() error {
	if c.TokenUse != "id" {
		return errNotIDToken
	}
	return nil
}

type legacyClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

func (v *Verifier) cognitoEnabled() bool {
	return v.opts.Issuer != "" && v.opts.Audience != "" && v.keys != nil
}

/*
* Try the Cognito ID token first (RS256 against the pool's key set)
* Fall back to the legacy HS256 token when a secret is configured
* Expiry on either path wins over a generic invalid-token answer
* Resolve the subject to a stored user
 */
func (v *Verifier) Verify(ctx context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Auth(util.NOT_AUTHORIZED_NO_TOKEN)
	}
	if !v.cognitoEnabled() && v.opts.LegacySecret == "" {
		return nil, apperr.Auth(util.AUTH_NOT_CONFIGURED)
	}

	var cognitoErr error
	if v.cognitoEnabled() {
		claims, err := v.parseCognito(ctx, token)
		if err == nil {
			return v.resolveCognito(ctx, claims)
		}
		cognitoErr = err
	}

	if v.opts.LegacySecret == "" {
		return nil, classify(cognitoErr)
	}
	claims, err := v.parseLegacy(token)
	if err != nil {
		if errors.Is(cognitoErr, jwt.ErrTokenExpired) {
			return nil, classify(cognitoErr)
		}
		return nil, classify(err)
	}
	return v.resolveLegacy(ctx, claims)
}

func (v *Verifier) parseCognito(ctx context.Context, token string) (*cognitoClaims, error) {
	claims := &cognitoClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header has no kid")
		}
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.opts.Issuer),
		jwt.WithAudience(v.opts.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) parseLegacy(token string) (*legacyClaims, error) {
	claims := &legacyClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(v.opts.LegacySecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *Verifier) resolveCognito(ctx context.Context, claims *cognitoClaims) (*Principal, error) {
	email := claims.Email
	if email == "" {
		email = claims.CognitoUsername
	}
	user, err := v.users.FindByCognitoIDOrEmail(ctx, claims.Subject, models.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return principalFor(user)
}

func (v *Verifier) resolveLegacy(ctx context.Context, claims *legacyClaims) (*Principal, error) {
	id, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		return nil, apperr.TokenInvalid(util.INVALID_TOKEN)
	}
	user, err := v.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return principalFor(user)
}

func principalFor(user *models.User) (*Principal, error) {
	if user == nil {
		return nil, apperr.UserNotFound(util.USER_NOT_FOUND)
	}
	if !user.IsActive {
		return nil, apperr.Forbidden(util.ACCOUNT_DISABLED)
	}
	return &Principal{User: user, Role: user.Role}, nil
}

func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperr.Wrap(apperr.KindTokenExpired, util.TOKEN_EXPIRED, err)
	}
	return apperr.Wrap(apperr.KindTokenInvalid, util.INVALID_TOKEN, err)
}

// SignLegacyToken issues an HS256 token carrying the user id. Used by tooling and tests.
func SignLegacyToken(secret string, userID primitive.ObjectID, claims jwt.RegisteredClaims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, legacyClaims{ID: userID.Hex(), RegisteredClaims: claims})
	return tok.SignedString([]byte(secret))
}
