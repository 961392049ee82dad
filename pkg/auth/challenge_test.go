package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallenges(t *testing.T) {
	cs := ParseChallenges([]string{
		`Basic realm="corp proxy", Digest realm="corp", qop="auth,auth-int", nonce="a\"b", stale=FALSE`,
		`NTLM`,
	})
	require.Len(t, cs, 3)

	assert.Equal(t, "basic", cs[0].Scheme)
	assert.Equal(t, "corp proxy", cs[0].Params["realm"])

	assert.Equal(t, "digest", cs[1].Scheme)
	assert.Equal(t, "corp", cs[1].Params["realm"])
	assert.Equal(t, "auth,auth-int", cs[1].Params["qop"])
	assert.Equal(t, `a"b`, cs[1].Params["nonce"])
	assert.Equal(t, "FALSE", cs[1].Params["stale"])

	assert.Equal(t, "ntlm", cs[2].Scheme)
	assert.Empty(t, cs[2].Params)
}

func TestParseChallengesMalformed(t *testing.T) {
	cs := ParseChallenges([]string{`, ,Digest Realm="unterminated`, `=`, ``})
	require.Len(t, cs, 1)
	assert.Equal(t, "unterminated", cs[0].Params["realm"])
}
