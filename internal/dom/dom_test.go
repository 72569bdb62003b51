package dom

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html/atom"
)

const sample = `<!DOCTYPE html><html><body>
<div id="wrap"><table id="orders" class="grid">
<thead><tr><th id="name" th-edit>Name</th><th id="qty">Qty</th></tr></thead>
<tbody><tr id="r1"><td> Alice </td><td>3</td></tr></tbody>
</table></div></body></html>`

func TestGetElementByID(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(sample)
	require.NoError(t, err)

	table := doc.GetElementByID("orders")
	require.NotNil(t, table)
	require.True(t, table.Is(atom.Table))
	require.Equal(t, "table", table.Tag())

	wrap := doc.GetElementByID("wrap")
	require.NotNil(t, wrap)
	require.False(t, wrap.Is(atom.Table))

	require.Nil(t, doc.GetElementByID("missing"))
	require.Nil(t, doc.GetElementByID(""))
}

func TestAttributesAndClasses(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(sample)
	require.NoError(t, err)
	th := doc.GetElementByID("name")

	require.True(t, th.HasAttr("th-edit"))
	require.Equal(t, "fallback", th.AttrOr("data-default", "fallback"))

	th.SetAttr("data-value", "a")
	th.SetAttr("data-value", "b")
	v, ok := th.Attr("data-value")
	require.True(t, ok)
	require.Equal(t, "b", v)
	th.RemoveAttr("data-value")
	require.False(t, th.HasAttr("data-value"))

	table := doc.GetElementByID("orders")
	table.AddClass("modified")
	table.AddClass("modified")
	require.Equal(t, []string{"grid", "modified"}, table.Classes())
	table.RemoveClass("grid")
	require.Equal(t, []string{"modified"}, table.Classes())
	table.ToggleClass("modified", false)
	require.False(t, table.HasAttr("class"))
}

func TestStyleProperties(t *testing.T) {
	t.Parallel()

	el := NewElement("td")
	el.SetStyle("color", "red")
	el.SetStyle("background-color", "#ffffff")
	el.SetStyle("color", "blue")
	require.Equal(t, "blue", el.Style("color"))
	require.Equal(t, "color: blue; background-color: #ffffff", el.AttrOr("style", ""))

	el.RemoveStyle("color")
	el.RemoveStyle("background-color")
	require.False(t, el.HasAttr("style"))
}

func TestTreeEditing(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(sample)
	require.NoError(t, err)

	table := doc.GetElementByID("orders")
	rows := table.FindAll(atom.Tr)
	require.Len(t, rows, 2)

	cells := rows[1].ChildrenByTag(atom.Td)
	require.Len(t, cells, 2)
	require.Equal(t, "Alice", cells[0].Text())

	cells[0].SetText("Bob")
	require.Equal(t, "Bob", cells[0].Text())

	tbody := table.FirstChildByTag(atom.Tbody)
	require.NotNil(t, tbody)

	tr := doc.CreateElement("tr")
	tr.SetAttr("id", "r0")
	tbody.PrependChild(tr)
	require.Equal(t, "r0", tbody.Children()[0].ID())
	require.True(t, tbody.Children()[0].Parent().Same(tbody))

	tr.Remove()
	require.False(t, tr.Attached())
	require.Len(t, tbody.Children(), 1)

	span := NewElement("span")
	span.AddClass("validation-message")
	cells[1].AppendChild(span)
	require.True(t, cells[1].FindByClass("validation-message").Same(span))
	require.Contains(t, doc.String(), `<span class="validation-message"></span>`)
}
