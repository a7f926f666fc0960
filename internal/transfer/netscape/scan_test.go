package netscape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	doc := `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<TITLE>Bookmarks</TITLE>
<dl><p>
    <DT><h3 ADD_DATE="1">Tools &amp; Stuff</H3>
    <DL><p>
        <DT><A HREF="https://a.example/?x=1&amp;y=2" ADD_DATE="1700000000">A &lt;one&gt;</a>
        <DD>  First &quot;desc&quot;
        <DT><a href='https://b.example' add_date=notanumber>B</A>
        <DT><A	HREF=https://c.example>  C  </A>
        <DD>   
    </DL><p>
    <DT><H3></H3>
</DL>`

	tokens := Scan(doc)

	want := []Token{
		{Kind: OpenList},
		{Kind: FolderHeading, Text: "Tools & Stuff"},
		{Kind: OpenList},
		{Kind: Anchor, Text: "A <one>", Href: "https://a.example/?x=1&y=2"},
		{Kind: Description, Text: `First "desc"`},
		{Kind: Anchor, Text: "B", Href: "https://b.example"},
		{Kind: Anchor, Text: "C", Href: "https://c.example"},
		{Kind: CloseList},
		{Kind: CloseList},
	}

	require.Len(t, tokens, len(want))
	for i := range want {
		assert.Equal(t, want[i].Kind, tokens[i].Kind, "token %d", i)
		assert.Equal(t, want[i].Text, tokens[i].Text, "token %d", i)
		assert.Equal(t, want[i].Href, tokens[i].Href, "token %d", i)
	}

	require.NotNil(t, tokens[3].AddDate)
	assert.True(t, tokens[3].AddDate.Equal(time.Unix(1700000000, 0)))
	assert.Nil(t, tokens[5].AddDate)
	assert.Nil(t, tokens[6].AddDate)
}

func TestScanUnterminated(t *testing.T) {
	assert.Empty(t, Scan("<DL"))
	assert.Equal(t, []Token{{Kind: OpenList}}, Scan("<DL><H3>never closed"))
	assert.Equal(t, []Token{{Kind: Description, Text: "tail text"}}, Scan("<DD>tail text"))
}

func TestScanIgnoresLookalikeTags(t *testing.T) {
	tokens := Scan(`<DLX><ADDRESS x="1"></ADDRESS><DDX>text<H3X>n</H3>`)
	assert.Empty(t, tokens)
}

func TestTokenKindString(t *testing.T) {
	assert.Equal(t, "anchor", Anchor.String())
	assert.Equal(t, "unknown", TokenKind(42).String())
}
