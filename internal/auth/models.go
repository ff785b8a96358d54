package auth

import (
	"github.com/google/uuid"
)

// DevAuthRequest - тело POST /v1/auth/dev, user_id необязателен
type DevAuthRequest struct {
	UserID string `json:"user_id"`
}

// DevAuthResponse - ответ на dev-авторизацию
type DevAuthResponse struct {
	AccessToken    string    `json:"access_token"`
	TokenType      string    `json:"token_type"`
	ExpiresIn      int64     `json:"expires_in"`
	OwnerUserID    string    `json:"owner_user_id"`
	OwnerProfileID uuid.UUID `json:"owner_profile_id"`
}

// ErrorResponse - формат ошибки
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
