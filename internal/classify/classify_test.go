package classify

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_Categories(t *testing.T) {
	text := `The dropper (payload.exe) contacted evil.example.com and 10.0.0.5,
then ran cleanup.PS1 via "run.bat". Sample hash d41d8cd98f00b204e9800998ecf8427e.
Reports went to ops@victim.org; nothing else matters.`

	got := Text(text)
	want := Result{
		File:    []string{"cleanup.PS1", "payload.exe", "run.bat"},
		Hash:    []string{"d41d8cd98f00b204e9800998ecf8427e"},
		Network: []string{"10.0.0.5", "evil.example.com", "ops@victim.org;"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Text() mismatch (-want +got):\n%s", diff)
	}
}

func TestText_Deduplicates(t *testing.T) {
	got := Text("evil.dll evil.dll [evil.dll] EVIL.DLL")
	assert.Equal(t, []string{"EVIL.DLL", "evil.dll"}, got.File)
	assert.Empty(t, got.Hash)
	assert.Empty(t, got.Network)
}

func TestToken_FileRuleWinsOverHashAndNetwork(t *testing.T) {
	// 28 hex characters plus ".EXE" is 32 characters long.
	token := strings.Repeat("ab", 14) + ".EXE"
	require.Len(t, token, 32)

	cat, value, ok := Token(token)
	require.True(t, ok)
	assert.Equal(t, CategoryFile, cat)
	assert.Equal(t, token, value)
}

func TestToken_HashLowercased(t *testing.T) {
	upper := strings.Repeat("ABCDEF0123", 4)
	require.Len(t, upper, 40)

	cat, value, ok := Token(upper)
	require.True(t, ok)
	assert.Equal(t, CategoryHash, cat)
	assert.Equal(t, strings.ToLower(upper), value)

	got := Text(upper)
	assert.Equal(t, []string{strings.ToLower(upper)}, got.Hash)
}

func TestToken_HashLengths(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"md5", strings.Repeat("a", 32), true},
		{"sha1", strings.Repeat("b", 40), true},
		{"sha256", strings.Repeat("c", 64), true},
		{"too short", strings.Repeat("a", 31), false},
		{"between", strings.Repeat("a", 48), false},
		{"non hex", strings.Repeat("g", 32), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, _, ok := Token(tt.token)
			assert.Equal(t, tt.want, ok && cat == CategoryHash)
		})
	}
}

func TestToken_Discarded(t *testing.T) {
	for _, raw := range []string{"hello", "...", "()", `""`, "12345"} {
		_, _, ok := Token(raw)
		assert.Falsef(t, ok, "token %q should not be classified", raw)
	}
}

func TestToken_BorderStripping(t *testing.T) {
	cat, value, ok := Token(`("evil.com"),`)
	require.True(t, ok)
	assert.Equal(t, CategoryNetwork, cat)
	assert.Equal(t, "evil.com", value)
}

func TestText_MutuallyExclusive(t *testing.T) {
	got := Text("a.exe b.dll 0123456789abcdef0123456789abcdef host.local x@y mail.ps1")
	seen := map[string]Category{}
	for _, c := range []Category{CategoryFile, CategoryHash, CategoryNetwork} {
		for _, v := range got.Values(c) {
			prev, dup := seen[v]
			assert.Falsef(t, dup, "%q in both %s and %s", v, prev, c)
			seen[v] = c
		}
	}
	assert.Len(t, seen, 6)
}

func TestText_Empty(t *testing.T) {
	assert.True(t, Text("").Empty())
	assert.True(t, Text("   \n\t nothing here   ").Empty())
}
