package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tagging-ai/tagboard/pkg/models"
)

// Credentials identify a user by email or username.
type Credentials struct {
	Identifier string
	Password   string
}

// Registration is the sign-up form.
type Registration struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the adapted login response.
type LoginResult struct {
	Token     string
	TokenType string
	User      models.User
}

type wireLogin struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        struct {
		ID       string `json:"id"`
		LegacyID string `json:"_id"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Fullname string `json:"fullname"`
	} `json:"user"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	payload := map[string]string{"password": creds.Password}
	if strings.Contains(creds.Identifier, "@") {
		payload["email"] = creds.Identifier
	} else {
		payload["username"] = creds.Identifier
	}

	req, err := jsonRequest(http.MethodPost, c.paths.Login, payload, false)
	if err != nil {
		return LoginResult{}, err
	}

	var w wireLogin
	if err := c.doJSON(ctx, req, &w); err != nil {
		return LoginResult{}, err
	}
	if w.AccessToken == "" {
		return LoginResult{}, fmt.Errorf("%w: login response without access_token", ErrMalformedResponse)
	}

	return LoginResult{
		Token:     w.AccessToken,
		TokenType: firstNonEmpty(w.TokenType, "bearer"),
		User: models.User{
			ID:       firstNonEmpty(w.User.ID, w.User.LegacyID),
			Email:    w.User.Email,
			Username: w.User.Username,
			Fullname: w.User.Fullname,
		},
	}, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	req, err := jsonRequest(http.MethodPost, c.paths.Register, reg, false)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, req, nil)
}
