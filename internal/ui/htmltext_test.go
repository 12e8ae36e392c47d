package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainTextLeavesMarkdownAlone(t *testing.T) {
	for _, in := range []string{
		"**bold** and `code`",
		"a < b and c > d",
		"Use Vec<T> for lists",
	} {
		assert.Equal(t, in, PlainText(in))
	}
}

func TestPlainTextFromHTML(t *testing.T) {
	in := `<p>Hello   <b>world</b></p><script>alert(1)</script><ul><li>one</li><li>two</li></ul><p>bye</p>`
	assert.Equal(t, "Hello world\n- one\n- two\nbye", PlainText(in))
}

func TestPlainTextLineBreaks(t *testing.T) {
	assert.Equal(t, "first\nsecond", PlainText("first<br>second"))
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b c", truncateWords("a b c", 3))
	assert.Equal(t, "a b...", truncateWords("a b c d", 2))
}
