package users

import "github.com/matt-dz/streamhub/internal/user"

type LoginResponse struct {
	User         user.Profile `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}
