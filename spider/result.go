package spider

// 定义了开奖结果的统一数据模型：地区、省份、奖级以及每个省份每个开奖日期的一条规范化记录

import (
	"fmt"
	"strings"
)

// 开奖地区，三个地区的页面结构各不相同
type Region string

const (
	North   Region = "north"
	Central Region = "central"
	South   Region = "south"
)

// 按抓取顺序排列的全部地区
var Regions = []Region{North, Central, South}

/*
输入一个字符串，输出一个地区和一个错误

该方法用于解析外部传入的地区名称，忽略大小写和首尾空白，未知地区返回错误
*/
func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case North, Central, South:
		return r, nil
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// 奖级，从一等奖到八等奖；特别奖单独存放在Prizes.Special中
type Tier int

const (
	First Tier = iota + 1
	Second
	Third
	Fourth
	Fifth
	Sixth
	Seventh
	Eighth
)

// 按一等奖到八等奖排列的全部奖级
var Tiers = []Tier{First, Second, Third, Fourth, Fifth, Sixth, Seventh, Eighth}

var tierNames = map[Tier]string{
	First:   "first",
	Second:  "second",
	Third:   "third",
	Fourth:  "fourth",
	Fifth:   "fifth",
	Sixth:   "sixth",
	Seventh: "seventh",
	Eighth:  "eighth",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// 表头中解析出的省份，ColumnIndex记录其所在的表头列（从1开始），组装时按省份顺序对应单元格
type Province struct {
	Name        string `json:"name"`
	ColumnIndex int    `json:"column_index"`
}

// 某个省份的全部奖级号码，列表顺序即文档顺序
type Prizes struct {
	Special string   `json:"special"`
	First   []string `json:"first"`
	Second  []string `json:"second"`
	Third   []string `json:"third"`
	Fourth  []string `json:"fourth"`
	Fifth   []string `json:"fifth"`
	Sixth   []string `json:"sixth"`
	Seventh []string `json:"seventh"`
	Eighth  []string `json:"eighth"`
}

// 创建一个所有奖级都为空列表的Prizes，序列化时输出[]而不是null
func NewPrizes() Prizes {
	p := Prizes{}
	p.Normalize()
	return p
}

// 将为nil的奖级列表替换为空列表，反序列化null之后需要调用
func (p *Prizes) Normalize() {
	for _, t := range Tiers {
		if l := p.list(t); *l == nil {
			*l = []string{}
		}
	}
}

func (p *Prizes) list(t Tier) *[]string {
	switch t {
	case First:
		return &p.First
	case Second:
		return &p.Second
	case Third:
		return &p.Third
	case Fourth:
		return &p.Fourth
	case Fifth:
		return &p.Fifth
	case Sixth:
		return &p.Sixth
	case Seventh:
		return &p.Seventh
	case Eighth:
		return &p.Eighth
	}
	panic(fmt.Sprintf("spider: invalid tier %d", int(t)))
}

// 获取指定奖级的号码列表
func (p *Prizes) Get(t Tier) []string {
	return *p.list(t)
}

// 将号码按顺序追加到指定奖级
func (p *Prizes) Append(t Tier, tokens ...string) {
	l := p.list(t)
	*l = append(*l, tokens...)
}

// 一个省份在一个开奖日期的规范化结果
type Result struct {
	Region   Region `json:"region"`
	Province string `json:"province"`
	Date     string `json:"date"` // YYYY-MM-DD
	Prizes   Prizes `json:"prizes"`
}

// 创建一个奖级全部为空的结果
func NewResult(region Region, province, date string) *Result {
	return &Result{
		Region:   region,
		Province: province,
		Date:     date,
		Prizes:   NewPrizes(),
	}
}

// 结果的唯一键，持久化时以(region, province, date)做upsert
func (r *Result) Key() string {
	return string(r.Region) + "/" + r.Province + "/" + r.Date
}
