package minhngoc

import (
	"strings"

	"github.com/dszqbsm/xoso/spider"
)

// 北部只有一个省份，结果统一记在河内名下
const NorthProvince = "Hà Nội"

// 北部表格中每个奖级单元格的class
var northTierSelectors = []struct {
	tier     spider.Tier
	selector string
}{
	{spider.First, ".giai_nhat"},
	{spider.Second, ".giai_nhi"},
	{spider.Third, ".giai_ba"},
	{spider.Fourth, ".giai_tu"},
	{spider.Fifth, ".giai_nam"},
	{spider.Sixth, ".giai_sau"},
	{spider.Seventh, ".giai_bay"},
}

const northSpecialSelector = ".giai_dacbiet"

/*
输入北部的结果表格和开奖日期，输出唯一省份的结果

特别奖取.giai_dacbiet单元格去掉首尾空白后的原文，一到七等奖各用一个专门的查询取出单元格并分词
*/
func assembleNorth(t Table, date string) *spider.Result {
	res := spider.NewResult(spider.North, NorthProvince, date)
	res.Prizes.Special = joinedText(t, northSpecialSelector)
	for _, q := range northTierSelectors {
		res.Prizes.Append(q.tier, Tokenize(joinedText(t, q.selector))...)
	}
	return res
}

func joinedText(t Table, selector string) string {
	var parts []string
	for _, n := range t.Find(selector) {
		if text := n.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

/*
输入多省份表格、省份列表和开奖日期，输出每个省份一条结果

先按表头顺序为每个省份预分配一条空结果，然后逐行分类；对具体奖级的行，从第1列开始遍历单元格，
第j列归属第j-1个省份，j超过省份数的列直接丢弃。Skip和Unclassified行不产生任何数据
*/
func assembleMulti(t Table, region spider.Region, provinces []spider.Province, date string) []*spider.Result {
	results := make([]*spider.Result, len(provinces))
	for i, p := range provinces {
		results[i] = spider.NewResult(region, p.Name, date)
	}

	if len(provinces) == 0 {
		return results
	}

	for _, row := range t.Rows() {
		kind := ClassifyRow(row)
		if !kind.IsPrize() {
			continue
		}
		for j, cell := range Cells(row) {
			if j == 0 || j > len(results) {
				continue
			}
			res := results[j-1]
			text := cell.Text()
			if kind == Special {
				res.Prizes.Special = SpecialPrize(text)
				continue
			}
			tier, _ := kind.Tier()
			res.Prizes.Append(tier, Tokenize(text)...)
		}
	}

	return results
}
