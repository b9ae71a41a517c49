package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()

	signer, err := NewSigner("demo-cloud", "123456", "secret")
	require.NoError(t, err)
	signer.now = func() time.Time { return time.Unix(1_772_000_000, 0) }
	return signer
}

func TestSigner_Sign(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t)

	got, err := signer.Sign(SignRequest{})
	require.NoError(t, err)
	assert.Equal(t, DefaultFolder, got.Folder)
	assert.Equal(t, int64(1_772_000_000), got.Timestamp)
	assert.Equal(t, "123456", got.APIKey)
	assert.Equal(t, "demo-cloud", got.CloudName)
	assert.NotEmpty(t, got.Signature)
	assert.NotContains(t, got.Signature, "secret")

	again, err := signer.Sign(SignRequest{Folder: "/products/"})
	require.NoError(t, err)
	assert.Equal(t, got.Signature, again.Signature)

	other, err := signer.Sign(SignRequest{Folder: "banners"})
	require.NoError(t, err)
	assert.NotEqual(t, got.Signature, other.Signature)
}

func TestSigner_RejectsTraversal(t *testing.T) {
	t.Parallel()

	_, err := newTestSigner(t).Sign(SignRequest{Folder: "../private"})
	assert.Error(t, err)
}
