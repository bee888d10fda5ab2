package mapper

import (
	"taskboard/internal/auth"
	"taskboard/internal/models"
)

type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func DecodeCredentials(body []byte) (*Credentials, error) {
	var in Credentials
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

type RefreshInput struct {
	Refresh string `json:"refresh" validate:"required"`
}

func DecodeRefresh(body []byte) (string, error) {
	var in RefreshInput
	if err := decode(body, &in); err != nil {
		return "", err
	}
	return in.Refresh, nil
}

// TokenView is the login response: the token pair plus the identity claims
// so clients need not decode the access token.
type TokenView struct {
	Access   string      `json:"access"`
	Refresh  string      `json:"refresh"`
	ID       int         `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

func ToTokenView(pair *auth.TokenPair) TokenView {
	return TokenView{
		Access:   pair.Access,
		Refresh:  pair.Refresh,
		ID:       pair.Claims.UserID,
		Username: pair.Claims.Username,
		Role:     pair.Claims.Role,
	}
}
