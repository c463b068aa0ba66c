package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  []string
	}{
		{text: "", out: []string{}},
		{text: "Hello, โลก!", out: []string{"hello", "โลก"}},
		{text: "Gdańsk", out: []string{"gdansk"}},
		{text: "STOP!! spamming...", out: []string{"stop", "spamming"}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, TokenizeText(fix.text))
	}
}

func TestTokenizeIdentifier(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		ident string
		out   []string
	}{
		{ident: "", out: []string{}},
		{ident: "some-user.name", out: []string{"some", "user", "name"}},
		{ident: "@a-b-c", out: []string{}},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, TokenizeIdentifier(fix.ident))
	}
}

func TestSlugify(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("", Slugify(""))
	assert.Equal("spamword", Slugify("S p-a.m_W o r d"))
	assert.Equal("abc123", Slugify("A b C 1!2@3"))
}

func TestNormalizeToken(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		tok string
		out string
	}{
		{tok: "hello", out: "hello"},
		{tok: "h3ll0", out: "hello"},
		{tok: "SP4MS", out: "spam"},
		{tok: "$cammer", out: "scammer"},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, NormalizeToken(fix.tok))
	}
}
