package dto

import "time"

type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
	Password string `json:"password" form:"password" validate:"notblank,max=72"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	Author    string    `json:"author"`
	ExpiresAt time.Time `json:"expiresAt"`
}
