package api

import (
	"context"
	"net/http"
)

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponseDTO struct {
	Token string `json:"token"`
}

// IssueToken exchanges credentials for a bearer token. It needs no token
// itself.
func (c *Client) IssueToken(ctx context.Context, email, password string) (string, error) {
	var resp loginResponseDTO
	if err := c.do(ctx, http.MethodPost, "/Authentication/Login", false, LoginRequestDTO{
		Email:    email,
		Password: password,
	}, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}
