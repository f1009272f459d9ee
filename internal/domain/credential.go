package domain

import "strings"

// Credential is the bearer token pair issued at sign-in. The client treats
// both tokens as opaque; only the access token's exp claim is read locally.
type Credential struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh,omitempty"`
}

func (c *Credential) Empty() bool {
	return c == nil || strings.TrimSpace(c.AccessToken) == ""
}

func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
