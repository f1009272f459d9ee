package application

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/crew/internal/domain"
)

func TestDecodeSignInShapes(t *testing.T) {
	t.Parallel()

	credential, principal, err := decodeSignIn(domain.RoleUser, json.RawMessage(`{"access":"a","refresh":"r","user":{"id":12,"name":"Asha"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Credential{AccessToken: "a", RefreshToken: "r"}, credential)
	require.NotNil(t, principal)
	assert.Equal(t, "12", principal.ID)

	credential, principal, err = decodeSignIn(domain.RoleUser, json.RawMessage(`{"tokens":{"access":"b"}}`))
	require.NoError(t, err)
	assert.Equal(t, "b", credential.AccessToken)
	assert.Nil(t, principal)

	_, _, err = decodeSignIn(domain.RoleUser, json.RawMessage(`{"tokens":{}}`))
	require.ErrorIs(t, err, errInvalidPayload)

	_, _, err = decodeSignIn(domain.RoleUser, json.RawMessage(`{"access":"a","user":{"name":"no id"}}`))
	require.ErrorIs(t, err, errInvalidPayload)
}

func TestDecodePrincipalAcceptsWorkerAsUserRole(t *testing.T) {
	t.Parallel()

	principal, err := decodePrincipal(domain.RoleUser, json.RawMessage(`{"id":"u1","role":"worker","email":" a@b.c "}`))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, principal.Role)
	assert.Equal(t, "a@b.c", principal.Email)
}

func TestDecodeCollectionRejectsUnknownEnvelope(t *testing.T) {
	t.Parallel()

	var works []domain.Work
	err := decodeCollection(json.RawMessage(`{"items":[]}`), "works", &works)
	require.ErrorIs(t, err, errInvalidPayload)
}
