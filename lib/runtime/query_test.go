package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexQueryPath(t *testing.T) {
	cases := []struct {
		path string
		want []Token
	}{
		{".", []Token{{Kind: TokenSelf}}},
		{"..", []Token{{Kind: TokenParent}}},
		{"//", []Token{{Kind: TokenDescendants}}},
		{"/problem", []Token{{Kind: TokenChild}, {Kind: TokenTag, Value: "problem"}}},
		{"@title", []Token{{Kind: TokenAttribute, Value: "title"}}},
		{
			".//problem/@due",
			[]Token{
				{Kind: TokenSelf},
				{Kind: TokenDescendants},
				{Kind: TokenTag, Value: "problem"},
				{Kind: TokenChild},
				{Kind: TokenAttribute, Value: "due"},
			},
		},
		{
			"../html",
			[]Token{
				{Kind: TokenParent},
				{Kind: TokenChild},
				{Kind: TokenTag, Value: "html"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			got, err := LexQueryPath(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLexQueryPathRejectsBadInput(t *testing.T) {
	for _, path := range []string{"@", "problem[0]", "a b", "?"} {
		_, err := LexQueryPath(path)
		assert.ErrorIs(t, err, ErrBadPath, "path %q", path)
	}
}

func TestLexQueryPathEmpty(t *testing.T) {
	got, err := LexQueryPath("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
