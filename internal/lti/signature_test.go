package lti

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func launchParams() map[string]string {
	return map[string]string{
		"oauth_consumer_key":     "course-key",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1700000000",
		"oauth_nonce":            "abc123",
		"oauth_version":          "1.0",
		"resource_link_id":       "placement-1",
		"user_id":                "42",
		"roles":                  "Learner",
		"lis_person_name_full":   "Ada Lovelace",
	}
}

func TestValidateSignatureRoundTrip(t *testing.T) {
	params := launchParams()
	url := "https://tool.example.com/lti/launch"
	secret := "s3cret"

	params["oauth_signature"] = SignParams(params, "POST", url, secret)

	require.True(t, ValidateSignature(params, "POST", url, secret))
}

func TestValidateSignatureRejectsTamperedParams(t *testing.T) {
	url := "https://tool.example.com/lti/launch"
	secret := "s3cret"

	signed := launchParams()
	signed["oauth_signature"] = SignParams(signed, "POST", url, secret)

	for key := range launchParams() {
		tampered := map[string]string{}
		for k, v := range signed {
			tampered[k] = v
		}
		tampered[key] = tampered[key] + "x"

		require.False(t, ValidateSignature(tampered, "POST", url, secret), "mutated %s must fail", key)
	}
}

func TestValidateSignatureRejectsWrongSecret(t *testing.T) {
	params := launchParams()
	url := "https://tool.example.com/lti/launch"

	params["oauth_signature"] = SignParams(params, "POST", url, "s3cret")

	require.False(t, ValidateSignature(params, "POST", url, "s3creT"))
}

func TestValidateSignatureRejectsWrongURL(t *testing.T) {
	params := launchParams()
	secret := "s3cret"

	params["oauth_signature"] = SignParams(params, "POST", "https://tool.example.com/lti/launch", secret)

	// A proxy-prefix mismatch is indistinguishable from a forgery.
	require.False(t, ValidateSignature(params, "POST", "https://tool.example.com/prefix/lti/launch", secret))
}

func TestValidateSignatureRejectsMissingSignature(t *testing.T) {
	require.False(t, ValidateSignature(launchParams(), "POST", "https://tool.example.com/lti/launch", "s3cret"))
}

func TestValidateSignatureHandlesReservedCharacters(t *testing.T) {
	params := launchParams()
	params["lis_person_name_full"] = "Ada & Grace + Émilie ~ 100%"
	params["custom_note"] = "a=b&c=d"
	url := "https://tool.example.com/lti/launch"
	secret := "sec&ret="

	params["oauth_signature"] = SignParams(params, "POST", url, secret)

	require.True(t, ValidateSignature(params, "POST", url, secret))
}

func TestPercentEncode(t *testing.T) {
	require.Equal(t, "abcXYZ012-._~", percentEncode("abcXYZ012-._~"))
	require.Equal(t, "a%20b%26c%3Dd", percentEncode("a b&c=d"))
	require.Equal(t, "%C3%A9", percentEncode("é"))
}
