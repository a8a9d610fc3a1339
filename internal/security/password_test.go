package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	digest, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	require.True(t, VerifyPassword("correct horse battery staple", digest))
	require.False(t, VerifyPassword("correct horse battery stable", digest))
	require.False(t, VerifyPassword("", digest))
}

func TestHashPasswordSaltsEachDigest(t *testing.T) {
	first, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)
	second, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, VerifyPassword("hunter2hunter2", first))
	require.True(t, VerifyPassword("hunter2hunter2", second))
}

func TestHashPasswordWithCustomParams(t *testing.T) {
	digest, err := HashPasswordWithParams("longenough1", Argon2Params{
		Time:    1,
		Memory:  8 * 1024,
		Threads: 1,
	})
	require.NoError(t, err)
	require.True(t, VerifyPassword("longenough1", digest))
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	cases := []string{
		"",
		"not a digest",
		"$argon2id$v=19$t=3,m=65536,p=2",
		"$argon2id$v=19$t=3,m=65536,p=2$!!!$!!!",
		"$bcrypt$v=19$t=3,m=65536,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$t=3,m=65536,p=2$c2FsdA$aGFzaA",
	}

	for _, digest := range cases {
		require.False(t, VerifyPassword("whatever", []byte(digest)), "digest %q", digest)
	}
}
