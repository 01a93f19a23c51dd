package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<div class="box content" id="wrap">
  <table id="outer">
    <tr class="giai8 row"><td>Giải <b>tám</b></td><td>66</td></tr>
    <tr><td>x</td><td><table id="inner"><tr><td>99</td></tr></table></td></tr>
  </table>
  <script>var x = "1234";</script>
</div>
</body></html>`

func TestChildrenDirectOnly(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	outer := doc.FindFirst("#outer")
	require.NotNil(t, outer)

	tbody := outer.FirstChild("tbody")
	require.NotNil(t, tbody)
	rows := tbody.Children("tr")
	require.Len(t, rows, 2)

	assert.Len(t, rows[0].Children("td", "th"), 2)
	assert.Len(t, rows[1].Children(), 2)
	assert.Nil(t, rows[0].FirstChild("th"))

	assert.False(t, rows[0].Contains("table"))
	assert.True(t, rows[1].Contains("table"))
	assert.True(t, outer.Contains("table"))
}

func TestClassesAndAttr(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	row := doc.FindFirst("tr.giai8")
	require.NotNil(t, row)
	assert.Equal(t, "tr", row.Tag())
	assert.Equal(t, []string{"giai8", "row"}, row.Classes())
	assert.True(t, row.HasClass("row"))
	assert.False(t, row.HasClass("giai"))

	wrap := doc.FindFirst(".box")
	id, ok := wrap.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "wrap", id)
	_, ok = wrap.Attr("title")
	assert.False(t, ok)
}

func TestText(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	assert.Equal(t, "Giải tám 66", doc.FindFirst("tr.giai8").Text())
	assert.NotContains(t, doc.FindFirst("#wrap").Text(), "1234")

	// 分解形式的声调被规范化为合成形式
	decomposed, err := ParseString("<p>Giải</p>")
	require.NoError(t, err)
	assert.Equal(t, "Giải", decomposed.FindFirst("p").Text())
}

func TestFindAndXPath(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	assert.Len(t, doc.Find("table"), 2)
	assert.Empty(t, doc.Find(".missing"))
	assert.Nil(t, doc.FindFirst(".missing"))

	tables, err := doc.XPath(`//*[contains(concat(' ', normalize-space(@class), ' '), ' content ')]//table`)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	id, _ := tables[0].Attr("id")
	assert.Equal(t, "outer", id)

	_, err = doc.XPath("//[")
	assert.Error(t, err)
}
