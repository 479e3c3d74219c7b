package archive

import (
	"context"
	"testing"

	"github.com/meghashyamc/coursefetch/config"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutEndpointIsDisabled(t *testing.T) {
	assert := require.New(t)
	t.Setenv("MINIO_ENDPOINT", "")

	cfg, err := config.Load("test")
	assert.NoError(err)

	archive, err := New(context.Background(), nil, cfg)
	assert.NoError(err)
	assert.Nil(archive)
}

func TestObjectKey(t *testing.T) {
	require.Equal(t, "12345.pdf", ObjectKey("12345"))
}
