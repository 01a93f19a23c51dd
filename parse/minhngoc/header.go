package minhngoc

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dszqbsm/xoso/dom"
	"github.com/dszqbsm/xoso/spider"
)

// 奖级通用关键字，表头中带有它的单元格不是省份
const prizeKeyword = "giải"

// 表头中常见的非省份标记
var reservedMarkers = []string{"tỉnh", "ngày", "thứ"}

// 兜底扫描时最多检查的行数
const headerScanRows = 5

/*
输入一个表格，输出按列顺序排列的省份列表

主路径读取第一个thead行；得到的省份少于2个时，扫描前几行，取第一个满足条件的行作为表头：
单元格多于一个，且第一个单元格既不以数字开头也不包含"Giải"。兜底也找不到时返回主路径的结果（可能为空）
*/
func ResolveProvinces(t Table) []spider.Province {
	primary := headerProvinces(t)
	if len(primary) >= 2 {
		return primary
	}

	if row := scanHeaderRow(t); row != nil {
		if fallback := provincesFromRow(row); len(fallback) > 0 {
			return fallback
		}
	}

	return primary
}

func headerProvinces(t Table) []spider.Province {
	for _, thead := range t.Children("thead") {
		if row := thead.FirstChild("tr"); row != nil {
			return provincesFromRow(row)
		}
	}
	return nil
}

func scanHeaderRow(t Table) *dom.Node {
	rows := t.Rows()
	if len(rows) > headerScanRows {
		rows = rows[:headerScanRows]
	}
	for _, row := range rows {
		cells := Cells(row)
		if len(cells) <= 1 {
			continue
		}
		first := cells[0].Text()
		if startsWithDigit(first) || containsFold(first, prizeKeyword) {
			continue
		}
		return row
	}
	return nil
}

// 第0列是奖级标签列，从第1列开始才可能是省份
func provincesFromRow(row *dom.Node) []spider.Province {
	var provinces []spider.Province
	for i, cell := range Cells(row) {
		if i == 0 {
			continue
		}
		name := cell.Text()
		if !isProvinceName(name) {
			continue
		}
		provinces = append(provinces, spider.Province{Name: name, ColumnIndex: i})
	}
	return provinces
}

func isProvinceName(name string) bool {
	if utf8.RuneCountInString(name) <= 2 {
		return false
	}
	if containsFold(name, prizeKeyword) {
		return false
	}
	for _, m := range reservedMarkers {
		if containsFold(name, m) {
			return false
		}
	}
	return true
}

func startsWithDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsDigit(r)
}

// 忽略大小写的子串判断，关键字需为小写
func containsFold(s, lowerSub string) bool {
	return strings.Contains(strings.ToLower(s), lowerSub)
}
