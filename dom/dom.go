package dom

// dom 把 golang.org/x/net/html 的节点树包装成只读视图，显式区分"直接子节点"与"全部后代"两类查询，
// 行和单元格的遍历只允许走 Children，避免嵌套表格被重复统计

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// 文档树中一个节点的只读视图，不持有父节点引用
type Node struct {
	n *html.Node
}

/*
输入一个UTF-8编码的读取器，输出文档根节点和一个错误

该方法用于解析HTML文档，字符集转换由采集器在解析之前完成
*/
func Parse(r io.Reader) (*Node, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Node{n: root}, nil
}

// 解析内存中的HTML字符串
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

// 将已有的html.Node包装为视图，空节点返回nil
func Wrap(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{n: n}
}

// 返回小写的元素名，非元素节点返回空串
func (n *Node) Tag() string {
	if n.n.Type != html.ElementNode {
		return ""
	}
	return n.n.Data
}

// 获取属性值，第二个返回值表示属性是否存在
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// 将class属性按空白切分
func (n *Node) Classes() []string {
	v, _ := n.Attr("class")
	return strings.Fields(v)
}

// 判断节点是否带有指定的class，按完整的class名比较而不是子串
func (n *Node) HasClass(class string) bool {
	for _, c := range n.Classes() {
		if c == class {
			return true
		}
	}
	return false
}

/*
输入可选的元素名列表，输出直接子元素列表

该方法只遍历直接子节点，按文档顺序返回元素节点；传入元素名时只保留名称匹配的子元素，孙节点永远不会被访问
*/
func (n *Node) Children(tags ...string) []*Node {
	var out []*Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if len(tags) > 0 && !oneOf(c.Data, tags) {
			continue
		}
		out = append(out, &Node{n: c})
	}
	return out
}

// 返回第一个名称匹配的直接子元素，不存在时返回nil
func (n *Node) FirstChild(tags ...string) *Node {
	children := n.Children(tags...)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

/*
输入一个CSS选择器，输出匹配的后代节点列表

该方法基于goquery在全部后代中查找，结果按文档顺序排列，非法选择器不匹配任何节点
*/
func (n *Node) Find(selector string) []*Node {
	sel := goquery.NewDocumentFromNode(n.n).Find(selector)
	return wrapAll(sel.Nodes)
}

// 返回CSS选择器的第一个匹配，不存在时返回nil
func (n *Node) FindFirst(selector string) *Node {
	sel := goquery.NewDocumentFromNode(n.n).Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return Wrap(sel.Get(0))
}

/*
输入一个XPath表达式，输出匹配的元素节点列表和一个错误

该方法基于htmlquery执行查询，表达式非法时返回错误而不是空结果
*/
func (n *Node) XPath(expr string) ([]*Node, error) {
	nodes, err := htmlquery.QueryAll(n.n, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	out := make([]*Node, 0, len(nodes))
	for _, m := range nodes {
		if m.Type == html.ElementNode {
			out = append(out, &Node{n: m})
		}
	}
	return out, nil
}

// 判断后代中（不含自身）是否存在指定名称的元素
func (n *Node) Contains(tag string) bool {
	var walk func(*html.Node) bool
	walk = func(p *html.Node) bool {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag {
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(n.n)
}

/*
无输入，输出节点的扁平化文本

所有文本节点以单个空格拼接并折叠连续空白，最后做NFC规范化，使关键字比较不受页面越南语声调编码方式的影响；script和style的内容被忽略
*/
func (n *Node) Text() string {
	var parts []string
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		switch p.Type {
		case html.TextNode:
			parts = append(parts, p.Data)
			return
		case html.ElementNode:
			if p.Data == "script" || p.Data == "style" {
				return
			}
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n.n)
	return norm.NFC.String(strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
}

func wrapAll(nodes []*html.Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, m := range nodes {
		out = append(out, &Node{n: m})
	}
	return out
}

func oneOf(s string, list []string) bool {
	for _, v := range list {
		if s == v {
			return true
		}
	}
	return false
}
