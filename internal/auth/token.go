package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/propoza/internal/actorcontext"
)

var (
	ErrMissingSecret = errors.New("auth secret not configured")
	ErrInvalidToken  = errors.New("invalid_token")
)

const tokenTTL = 24 * time.Hour

// Tokens issues and verifies signed bearer tokens carrying the actor
// identity.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) (*Tokens, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Tokens{secret: []byte(secret)}, nil
}

func (t *Tokens) Issue(actor actorcontext.Actor, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      actor.ID.String(),
		"role":     string(actor.Role),
		"username": actor.Username,
		"exp":      now.Add(tokenTTL).Unix(),
		"iat":      now.Unix(),
	})
	return token.SignedString(t.secret)
}

func (t *Tokens) Verify(raw string) (actorcontext.Actor, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return actorcontext.Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return actorcontext.Actor{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	id, err := snowflake.ParseString(sub)
	if err != nil {
		return actorcontext.Actor{}, ErrInvalidToken
	}

	role, _ := claims["role"].(string)
	switch actorcontext.Role(role) {
	case actorcontext.RoleStaff, actorcontext.RoleCustomer:
	default:
		return actorcontext.Actor{}, ErrInvalidToken
	}

	username, _ := claims["username"].(string)

	return actorcontext.Actor{
		ID:       id,
		Role:     actorcontext.Role(role),
		Username: username,
	}, nil
}
