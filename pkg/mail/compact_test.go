package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "inter-tag whitespace removed",
			in:   "<div>   <p>Hi</p>   </div>",
			want: "<div><p>Hi</p></div>",
		},
		{
			name: "comment removed and text whitespace collapsed",
			in:   "<!-- note --><p>  Hello   World  </p>",
			want: "<p> Hello World </p>",
		},
		{
			name: "multi-line comment removed",
			in:   "<html>\n<!--\n  header\n  block\n-->\n<body>x</body>\n</html>\n",
			want: "<html><body>x</body></html>",
		},
		{
			name: "comments are matched non-greedily",
			in:   "<!-- a --><b>keep</b><!-- c -->",
			want: "<b>keep</b>",
		},
		{
			name: "tabs and carriage returns collapse",
			in:   "<td>\t\r\n  a\t b </td>",
			want: "<td> a b </td>",
		},
		{
			name: "leading and trailing whitespace trimmed",
			in:   "\n\n   <p>x</p>   \n",
			want: "<p>x</p>",
		},
		{
			name: "comment spliced together by a removal is removed too",
			in:   "<!<!-- x -->-- y --><p>z</p>",
			want: "<p>z</p>",
		},
		{
			name: "unterminated comment left alone",
			in:   "<p>a</p> <!-- open",
			want: "<p>a</p><!-- open",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "unicode spaces collapse between text and tags",
			in:   "<p>a\u00a0\u00a0 b</p>\u2003 <div>x</div>",
			want: "<p>a b</p><div>x</div>",
		},
		{
			name: "unicode spaces trimmed at the ends",
			in:   "\u3000\u00a0<p>x</p>\u2028\x1f",
			want: "<p>x</p>",
		},
		{
			name: "zero width space is not white space",
			in:   "<p>a\u200bb</p>",
			want: "<p>a\u200bb</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompactHTML(tt.in))
		})
	}
}

func TestCompactHTMLIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"<div>   <p>Hi</p>   </div>",
		"<!-- note --><p>  Hello   World  </p>",
		"<!<!-- x -->-- y -->",
		"<!<!<!-- a -->-- b -->-- c -->",
		"a <!-- x --> b",
		"> \n <",
		"<p>  </p>  ",
		"<!---->-->",
		"<table>\n\t<tr>\n\t\t<td> 1 </td>\n\t</tr>\n</table>",
		"text only\n\nwith\tbreaks",
		" <p>x</p> ",
	}

	for _, in := range inputs {
		once := CompactHTML(in)
		assert.Equal(t, once, CompactHTML(once), "input %q", in)
	}
}
