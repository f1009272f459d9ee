package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginNamespace(t *testing.T) {
	t.Parallel()

	got, err := OriginNamespace("https://API.crew.example:8443/api/v1")
	require.NoError(t, err)
	assert.Equal(t, "https_api.crew.example_8443", got)

	got, err = OriginNamespace("http://127.0.0.1:8000")
	require.NoError(t, err)
	assert.Equal(t, "http_127.0.0.1_8000", got)

	_, err = OriginNamespace("localhost")
	require.Error(t, err)
}
