package dto

// LoginResponse carries the issued access token and the authenticated user.
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"` // always "Bearer"
	ExpiresIn   int64        `json:"expiresIn"` // seconds
	User        UserResponse `json:"user"`
}
