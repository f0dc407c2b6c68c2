package lua

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	lua "github.com/yuin/gopher-lua"
)

const luaSelectionTypeName = "html_selection"

// HTMLModule exposes goquery to scripts as the global "html".
type HTMLModule struct{}

func NewHTMLModule() *HTMLModule {
	return &HTMLModule{}
}

func (h *HTMLModule) Name() string {
	return "html"
}

func (h *HTMLModule) Register(L *lua.LState) error {
	L.NewTypeMetatable(luaSelectionTypeName)

	htmlTable := L.NewTable()
	L.SetFuncs(htmlTable, map[string]lua.LGFunction{
		"parse":      h.htmlParse,
		"select":     h.htmlSelect,
		"select_one": h.htmlSelectOne,
		"text":       h.htmlText,
		"attr":       h.htmlAttr,
		"html":       h.htmlHTML,
		"meta":       h.htmlMeta,
	})

	L.SetGlobal("html", htmlTable)
	return nil
}

func (h *HTMLModule) push(L *lua.LState, sel *goquery.Selection) {
	ud := L.NewUserData()
	ud.Value = sel
	L.SetMetatable(ud, L.GetTypeMetatable(luaSelectionTypeName))
	L.Push(ud)
}

func (h *HTMLModule) selection(L *lua.LState, n int) *goquery.Selection {
	ud := L.CheckUserData(n)
	switch v := ud.Value.(type) {
	case *goquery.Document:
		return v.Selection
	case *goquery.Selection:
		return v
	}
	L.ArgError(n, "expected html document or element")
	return nil
}

func (h *HTMLModule) htmlParse(L *lua.LState) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(L.CheckString(1)))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(fmt.Sprintf("failed to parse HTML: %s", err.Error())))
		return 2
	}

	h.push(L, doc.Selection)
	return 1
}

func (h *HTMLModule) htmlSelect(L *lua.LState) int {
	found := h.selection(L, 1).Find(L.CheckString(2))

	elements := L.NewTable()
	found.Each(func(_ int, s *goquery.Selection) {
		ud := L.NewUserData()
		ud.Value = s
		L.SetMetatable(ud, L.GetTypeMetatable(luaSelectionTypeName))
		elements.Append(ud)
	})

	L.Push(elements)
	return 1
}

func (h *HTMLModule) htmlSelectOne(L *lua.LState) int {
	found := h.selection(L, 1).Find(L.CheckString(2)).First()
	if found.Length() == 0 {
		L.Push(lua.LNil)
		return 1
	}

	h.push(L, found)
	return 1
}

func (h *HTMLModule) htmlText(L *lua.LState) int {
	L.Push(lua.LString(strings.TrimSpace(h.selection(L, 1).Text())))
	return 1
}

func (h *HTMLModule) htmlAttr(L *lua.LState) int {
	value, exists := h.selection(L, 1).Attr(L.CheckString(2))
	if !exists {
		L.Push(lua.LNil)
		return 1
	}

	L.Push(lua.LString(value))
	return 1
}

func (h *HTMLModule) htmlHTML(L *lua.LState) int {
	content, err := h.selection(L, 1).Html()
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(fmt.Sprintf("failed to get HTML: %s", err.Error())))
		return 2
	}

	L.Push(lua.LString(content))
	return 1
}

// htmlMeta returns the content of a <meta> tag matched by property or name.
func (h *HTMLModule) htmlMeta(L *lua.LState) int {
	content := MetaContent(h.selection(L, 1), L.CheckString(2))
	if content == "" {
		L.Push(lua.LNil)
		return 1
	}

	L.Push(lua.LString(content))
	return 1
}

// MetaContent looks up a meta tag by its property or name attribute.
func MetaContent(sel *goquery.Selection, key string) string {
	var content string
	sel.Find("meta").EachWithBreak(func(_ int, m *goquery.Selection) bool {
		prop, _ := m.Attr("property")
		name, _ := m.Attr("name")
		if strings.EqualFold(prop, key) || strings.EqualFold(name, key) {
			content = strings.TrimSpace(m.AttrOr("content", ""))
			return content == ""
		}
		return true
	})
	return content
}
