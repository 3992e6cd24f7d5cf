package keygen

import (
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/ssh"
)

func TestGenerateRSAKeyPair(t *testing.T) {
	t.Parallel()
	keyPair, err := GenerateRSAKeyPair(2048)
	require.NoError(t, err)

	block, _ := pem.Decode(keyPair.PrivateKey)
	require.NotNil(t, block)
	assert.Equal(t, "RSA PRIVATE KEY", block.Type)

	// The two halves belong together.
	signer, err := ssh.ParsePrivateKey(keyPair.PrivateKey)
	require.NoError(t, err)
	pub, _, _, _, err := ssh.ParseAuthorizedKey(keyPair.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey().Marshal(), pub.Marshal())
}

func TestGenerateRSAKeyPair_InvalidBits(t *testing.T) {
	t.Parallel()
	_, err := GenerateRSAKeyPair(-1)
	require.Error(t, err)
}

func TestPublicKeyFromPrivate(t *testing.T) {
	t.Parallel()
	keyPair, err := GenerateRSAKeyPair(2048)
	require.NoError(t, err)

	pub, err := PublicKeyFromPrivate(keyPair.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, keyPair.PublicKey, pub)
}

func TestPublicKeyFromPrivate_InvalidInput(t *testing.T) {
	t.Parallel()
	_, err := PublicKeyFromPrivate([]byte("not a key"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse private key")
}
