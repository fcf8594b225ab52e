package decrypt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaintext_PassesThrough(t *testing.T) {
	p := Plaintext{}
	out, err := p.Decrypt(context.Background(), []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
}

func TestBuild_NoKeysReturnsPlaintext(t *testing.T) {
	d, err := Build("", "", nil, "", 0)
	require.NoError(t, err)
	_, ok := d.(Plaintext)
	assert.True(t, ok)
}

func TestBuild_KeyWithoutKidFails(t *testing.T) {
	_, err := Build("00112233445566778899aabbccddeeff", "", nil, "mp4decrypt", 0)
	assert.Error(t, err)
}

func TestNormalizeKey_RejectsBadLength(t *testing.T) {
	_, err := normalizeKey("abcd")
	assert.Error(t, err)
}

func TestNormalizeKey_StripsHexPrefix(t *testing.T) {
	got, err := normalizeKey("0x00112233445566778899AABBCCDDEEFF")
	require.NoError(t, err)
	assert.Equal(t, "00112233445566778899aabbccddeeff", got)
}

func TestNormalizeKID_StripsHyphensAndLowercases(t *testing.T) {
	assert.Equal(t, "12345678123412341234123456789abc", normalizeKID("12345678-1234-1234-1234-123456789ABC"))
}

func TestNew_MissingExecutableFails(t *testing.T) {
	_, err := New(map[string]string{"abc": "00112233445566778899aabbccddeeff"}, "definitely-not-a-real-binary-xyz", 0)
	assert.Error(t, err)
}

func TestSortedKIDs_DeterministicAcrossMultipleKeys(t *testing.T) {
	m := &Mp4Decrypt{keyMap: map[string]string{
		"bbbb": "00112233445566778899aabbccddeeff",
		"aaaa": "112233445566778899aabbccddeeff0",
		"cccc": "2233445566778899aabbccddeeff0112",
	}}
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, m.sortedKIDs())
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, m.sortedKIDs())
}
