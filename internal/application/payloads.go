package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/crew/internal/domain"
)

var errInvalidPayload = errors.New("invalid response from server")

type signInPayload struct {
	Tokens *struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
}

type principalPayload struct {
	ID       json.RawMessage `json:"id"`
	LegacyID json.RawMessage `json:"_id"`
	Name     string          `json:"name"`
	FullName string          `json:"full_name"`
	Role     string          `json:"role"`
	Phone    string          `json:"phone"`
	Mobile   string          `json:"mobile"`
	Email    string          `json:"email"`
}

// decodeSignIn accepts both {"tokens":{...},"user":{...}} and the flat
// {"access":...,"refresh":...,"user":{...}} shape.
func decodeSignIn(role domain.Role, payload json.RawMessage) (domain.Credential, *domain.Principal, error) {
	var parsed signInPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return domain.Credential{}, nil, fmt.Errorf("%w: %v", errInvalidPayload, err)
	}

	credential := domain.Credential{AccessToken: parsed.Access, RefreshToken: parsed.Refresh}
	if parsed.Tokens != nil {
		credential = domain.Credential{AccessToken: parsed.Tokens.Access, RefreshToken: parsed.Tokens.Refresh}
	}
	if credential.Empty() {
		return domain.Credential{}, nil, fmt.Errorf("%w: sign-in response has no access token", errInvalidPayload)
	}

	if isNullJSON(parsed.User) {
		return credential, nil, nil
	}
	principal, err := decodePrincipal(role, parsed.User)
	if err != nil {
		return domain.Credential{}, nil, err
	}
	return credential, &principal, nil
}

// decodeProfile accepts a bare user object or one wrapped in {"user": ...}.
func decodeProfile(role domain.Role, payload json.RawMessage) (domain.Principal, error) {
	var envelope struct {
		User json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && !isNullJSON(envelope.User) {
		return decodePrincipal(role, envelope.User)
	}
	return decodePrincipal(role, payload)
}

func decodePrincipal(role domain.Role, raw json.RawMessage) (domain.Principal, error) {
	var parsed principalPayload
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.Principal{}, fmt.Errorf("%w: decode user: %v", errInvalidPayload, err)
	}

	id := rawID(parsed.ID)
	if id == "" {
		id = rawID(parsed.LegacyID)
	}
	if id == "" {
		return domain.Principal{}, fmt.Errorf("%w: user has no id", errInvalidPayload)
	}

	principalRole := role
	if strings.TrimSpace(parsed.Role) != "" {
		parsedRole, err := domain.ParseRole(parsed.Role)
		if err != nil || parsedRole != role {
			return domain.Principal{}, fmt.Errorf("this account cannot sign in as %s", role.Label())
		}
	}

	name := strings.TrimSpace(parsed.Name)
	if name == "" {
		name = strings.TrimSpace(parsed.FullName)
	}
	phone := strings.TrimSpace(parsed.Phone)
	if phone == "" {
		phone = strings.TrimSpace(parsed.Mobile)
	}

	return domain.Principal{
		ID:    id,
		Name:  name,
		Role:  principalRole,
		Phone: phone,
		Email: strings.TrimSpace(parsed.Email),
	}, nil
}

func rawID(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if isNullJSON(trimmed) {
		return ""
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err == nil {
		return number.String()
	}
	return ""
}

// decodeCollection reads a list that is either a bare array or wrapped
// under key, "results" or "data".
func decodeCollection(payload json.RawMessage, key string, target any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return domain.ErrEmptyPayload
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, target); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		return nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	for _, candidate := range []string{key, "results", "data"} {
		if items, ok := envelope[candidate]; ok && !isNullJSON(items) {
			if err := json.Unmarshal(items, target); err != nil {
				return fmt.Errorf("%w: %s: %v", errInvalidPayload, candidate, err)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: no %q list in response", errInvalidPayload, key)
}

// decodeItem reads an object that is either bare or wrapped under key.
func decodeItem(payload json.RawMessage, key string, target any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	if inner, ok := envelope[key]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
		payload = inner
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	return nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
