package minhngoc

import (
	"strings"

	"github.com/dszqbsm/xoso/dom"
)

// 结果表格的定位结果，一次查找即到达终态，组件内部不重试
type LocateOutcome int

const (
	NotSearched LocateOutcome = iota
	FoundPrimary
	FoundFallback
	NotFound
)

func (o LocateOutcome) String() string {
	switch o {
	case FoundPrimary:
		return "primary"
	case FoundFallback:
		return "fallback"
	case NotFound:
		return "not_found"
	}
	return "not_searched"
}

// 表格的视图，不持有文档树
type Table struct {
	*dom.Node
}

/*
无输入，输出表格的全部数据行

只取表格的直接tr子节点，以及直接子节点thead/tbody/tfoot下的直接tr子节点，按文档顺序返回，嵌套表格中的行永远不会出现在这里
*/
func (t Table) Rows() []*dom.Node {
	var rows []*dom.Node
	for _, c := range t.Children() {
		switch c.Tag() {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			rows = append(rows, c.Children("tr")...)
		}
	}
	return rows
}

// 行中的单元格，只取直接的td/th子节点
func Cells(row *dom.Node) []*dom.Node {
	return row.Children("td", "th")
}

// 主内容区：class列表中带有content的任意元素
const contentXPath = `//*[contains(concat(' ', normalize-space(@class), ' '), ' content ')]`

/*
输入文档树、地区专用的主选择器和锚点短语，输出表格和定位结果

先用主选择器查找，取第一个匹配；找不到时扫描主内容区下的全部表格，
返回第一个扁平化文本包含任一锚点短语的表格；页面没有主内容区时不做回退扫描；仍找不到时返回NotFound，调用方应将其视为"本次零结果"而不是错误
*/
func Locate(doc *dom.Node, primary string, anchors []string) (Table, LocateOutcome) {
	if primary != "" {
		if n := doc.FindFirst(primary); n != nil && n.Tag() == "table" {
			return Table{n}, FoundPrimary
		}
	}

	if len(anchors) == 0 {
		return Table{}, NotFound
	}

	for _, n := range candidateTables(doc) {
		text := n.Text()
		for _, a := range anchors {
			if strings.Contains(text, a) {
				return Table{n}, FoundFallback
			}
		}
	}

	return Table{}, NotFound
}

// 主内容区下的全部表格，按文档顺序排列
func candidateTables(doc *dom.Node) []*dom.Node {
	tables, err := doc.XPath(contentXPath + "//table")
	if err != nil {
		return nil
	}
	return tables
}
