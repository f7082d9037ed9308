package models

import (
	"errors"
	"strings"
	"time"
)

var _ Model = (*Credential)(nil)

// Credential is a saved login for one server. Only one credential per server is active at a time.
type Credential struct {
	id          string
	server      string
	username    string
	accessToken string
	tokenType   string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewCredential creates a [Credential] with creation and update timestamps set to now.
func NewCredential(server, username, accessToken, tokenType string) *Credential {
	now := time.Now().UTC()
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &Credential{
		server:      strings.TrimRight(server, "/"),
		username:    username,
		accessToken: accessToken,
		tokenType:   tokenType,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (c *Credential) ID() string           { return c.id }
func (c *Credential) Server() string       { return c.server }
func (c *Credential) Username() string     { return c.username }
func (c *Credential) AccessToken() string  { return c.accessToken }
func (c *Credential) TokenType() string    { return c.tokenType }
func (c *Credential) CreatedAt() time.Time { return c.createdAt }
func (c *Credential) UpdatedAt() time.Time { return c.updatedAt }

func (c *Credential) SetID(id string)             { c.id = id }
func (c *Credential) SetAccessToken(token string) { c.accessToken = token }
func (c *Credential) SetCreatedAt(t time.Time)    { c.createdAt = t }
func (c *Credential) SetUpdatedAt(t time.Time)    { c.updatedAt = t }

// Validate checks that the credential can authenticate requests.
func (c *Credential) Validate() error {
	if c.server == "" {
		return errors.New("server is required")
	}
	if c.username == "" {
		return errors.New("username is required")
	}
	if c.accessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}
