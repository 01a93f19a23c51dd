package minhngoc

import (
	"strings"

	"github.com/dszqbsm/xoso/dom"
	"github.com/dszqbsm/xoso/spider"
)

// 行的分类结果
type RowKind int

const (
	Unclassified RowKind = iota
	Skip
	Special
	First
	Second
	Third
	Fourth
	Fifth
	Sixth
	Seventh
	Eighth
)

var rowKindNames = map[RowKind]string{
	Unclassified: "unclassified",
	Skip:         "skip",
	Special:      "special",
	First:        "first",
	Second:       "second",
	Third:        "third",
	Fourth:       "fourth",
	Fifth:        "fifth",
	Sixth:        "sixth",
	Seventh:      "seventh",
	Eighth:       "eighth",
}

func (k RowKind) String() string {
	return rowKindNames[k]
}

// 是否对应某个具体奖级（含特别奖）
func (k RowKind) IsPrize() bool {
	return k >= Special && k <= Eighth
}

// 对应的奖级，特别奖和非奖级行返回false
func (k RowKind) Tier() (spider.Tier, bool) {
	if k < First || k > Eighth {
		return 0, false
	}
	return spider.Tier(k - First + 1), true
}

type rowKeyword struct {
	phrase string
	kind   RowKind
}

// 第一个单元格的关键字表，按顺序匹配，先命中者生效；全部为小写
var labelKeywords = []rowKeyword{
	{"giải tám", Eighth},
	{"giải bảy", Seventh},
	{"giải sáu", Sixth},
	{"giải năm", Fifth},
	{"giải tư", Fourth},
	{"giải ba", Third},
	{"giải nhì", Second},
	{"giải nhất", First},
	{"giải đặc biệt", Special},
}

// 简写标签只做整格相等比较，避免G1误命中G10之类的文本
var labelCodes = map[string]RowKind{
	"g8": Eighth,
	"g7": Seventh,
	"g6": Sixth,
	"g5": Fifth,
	"g4": Fourth,
	"g3": Third,
	"g2": Second,
	"g1": First,
	"đb": Special,
	"db": Special,
}

// 行class中的奖级标记，按完整class名比较
var classMarkers = []rowKeyword{
	{"giai8", Eighth},
	{"giai_tam", Eighth},
	{"giai7", Seventh},
	{"giai_bay", Seventh},
	{"giai6", Sixth},
	{"giai_sau", Sixth},
	{"giai5", Fifth},
	{"giai_nam", Fifth},
	{"giai4", Fourth},
	{"giai_tu", Fourth},
	{"giai3", Third},
	{"giai_ba", Third},
	{"giai2", Second},
	{"giai_nhi", Second},
	{"giai1", First},
	{"giai_nhat", First},
	{"giaidb", Special},
	{"giai_dacbiet", Special},
}

/*
输入表格中的一行，输出行的分类

判定顺序（先命中者生效）：
 1. 行内含有嵌套表格，或行内没有任何单元格 -> Skip
 2. 第一个直接单元格的文本匹配关键字表或简写标签 -> 对应奖级
 3. 行自身class中的奖级标记 -> 对应奖级
 4. 其他 -> Unclassified

class只是辅助信号，第一个单元格明确写出的奖级优先于class
*/
func ClassifyRow(row *dom.Node) RowKind {
	if row.Contains("table") {
		return Skip
	}

	first := row.FirstChild("td", "th")
	if first == nil {
		return Skip
	}

	if kind, ok := labelKind(first.Text()); ok {
		return kind
	}

	for _, m := range classMarkers {
		if row.HasClass(m.phrase) {
			return m.kind
		}
	}

	return Unclassified
}

func labelKind(label string) (RowKind, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return Unclassified, false
	}
	for _, k := range labelKeywords {
		if strings.Contains(label, k.phrase) {
			return k.kind, true
		}
	}
	if kind, ok := labelCodes[label]; ok {
		return kind, true
	}
	return Unclassified, false
}
