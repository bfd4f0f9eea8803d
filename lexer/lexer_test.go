package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeIdentifiersAndNumbers(t *testing.T) {
	toks, err := Tokenize("name CA 12 3.5")
	require.NoError(t, err)
	require.Len(t, toks, 5) // 4 tokens + EOF
	assert.Equal(t, Ident, toks[0].Kind)
	assert.Equal(t, "name", toks[0].Text)
	assert.Equal(t, Ident, toks[1].Kind)
	assert.Equal(t, "CA", toks[1].Text)
	assert.Equal(t, Number, toks[2].Kind)
	assert.Equal(t, "12", toks[2].Text)
	assert.Equal(t, Number, toks[3].Kind)
	assert.Equal(t, "3.5", toks[3].Text)
	assert.Equal(t, EOF, toks[4].Kind)
}

func TestTokenizeBangIsStandalonePunct(t *testing.T) {
	toks, err := Tokenize("!water")
	require.NoError(t, err)
	require.Len(t, toks, 3) // "!", "water", EOF
	assert.Equal(t, Punct, toks[0].Kind)
	assert.Equal(t, "!", toks[0].Text)
	assert.Equal(t, Ident, toks[1].Kind)
	assert.Equal(t, "water", toks[1].Text)
}

func TestTokenizeBangNotEqualStillGreedy(t *testing.T) {
	toks, err := Tokenize("beta != 0")
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, Punct, toks[1].Kind)
	assert.Equal(t, "!=", toks[1].Text)
}

func TestTokenizeQuotedLiterals(t *testing.T) {
	toks, err := Tokenize(`"CA.*" 'ALA' ` + "`MIEIK`")
	require.NoError(t, err)
	require.Len(t, toks, 4)
	assert.Equal(t, DoubleQuoted, toks[0].Kind)
	assert.Equal(t, "CA.*", toks[0].Value)
	assert.Equal(t, SingleQuoted, toks[1].Kind)
	assert.Equal(t, "ALA", toks[1].Value)
	assert.Equal(t, Backtick, toks[2].Kind)
	assert.Equal(t, "MIEIK", toks[2].Value)
}

func TestTokenizeUnterminatedQuoteIsError(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	require.Error(t, err)
	var lexErr *Error
	assert.ErrorAs(t, err, &lexErr)
}

func TestTokenizeRejectsUnrecognizedCharacter(t *testing.T) {
	_, err := Tokenize("name ~ CA")
	require.Error(t, err)
	var lexErr *Error
	assert.ErrorAs(t, err, &lexErr)
}
