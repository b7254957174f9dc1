package domain

import "time"

// Actor is a staff account allowed to sign in to the panel.
type Actor struct {
	ID           string `json:"id" yaml:"id"`
	Email        string `json:"email" yaml:"email"`
	DisplayName  string `json:"displayName,omitempty" yaml:"name"`
	PasswordHash string `json:"-" yaml:"password_hash"`
}

// Author is the byline stored on articles written by the actor.
func (a Actor) Author() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Email
}

type Credentials struct {
	Email      string
	Password   string
	RemoteAddr string
}

type Session struct {
	Token     string    `json:"token"`
	ActorID   string    `json:"actorId"`
	Author    string    `json:"author"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
