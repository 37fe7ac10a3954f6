package encodex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64_RoundTrip(t *testing.T) {
	in := "TXN-42-20250115-0042"
	enc := Base64Encode(in)
	dec, err := Base64Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, in, dec)
}

func TestBase64Decode_Invalid(t *testing.T) {
	_, err := Base64Decode("%%%not-base64%%%")
	assert.Error(t, err)
}

func TestBase64_RoundTripAllTokens(t *testing.T) {
	for _, in := range []string{
		"TXN-MULTI-20250115-9999",
		"TXN-UNKNOWN-20250115-0000",
	} {
		dec, err := Base64Decode(Base64Encode(in))
		require.NoError(t, err)
		assert.Equal(t, in, dec)
	}
}
