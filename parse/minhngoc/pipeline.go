package minhngoc

// 解析minhngoc.net.vn三个地区的开奖结果页：定位结果表格、解析表头省份、逐行归类奖级、分词并组装结果。
// 解析器不持有可变状态，同一个实例可以被多个地区的抓取并发使用

import (
	"strings"
	"time"

	"github.com/dszqbsm/xoso/dom"
	"github.com/dszqbsm/xoso/spider"
	"go.uber.org/zap"
)

// 开奖日期所在的标题
const titleSelector = ".box_kqxs .title"

// 各地区结果表格的主选择器
var primarySelectors = map[spider.Region]string{
	spider.North:   ".box_kqxs .content table.bkqmienbac",
	spider.Central: ".box_kqxs .content table.bkqmientrung",
	spider.South:   ".box_kqxs .content table.bkqmiennam",
}

// 兜底查找时的锚点短语：八等奖标签或胡志明市
var fallbackAnchors = []string{"Giải tám", "TP.HCM"}

// 一次解析的完整产出
type Extraction struct {
	Region     spider.Region
	Date       string // YYYY-MM-DD
	DateParsed bool   // false表示日期来自当前时间的兜底
	Outcome    LocateOutcome
	Provinces  []spider.Province
	Results    []*spider.Result
}

type Parser struct {
	options
}

/*
输入一个或多个配置，输出一个解析器实例
*/
func NewParser(opts ...Option) Parser {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return Parser{options: options}
}

/*
输入文档树和地区，输出本次解析的结果

北部走单表格策略，只使用固定的主选择器；中部和南部走多列策略，主选择器找不到时使用锚点兜底。
表格不存在时返回零条结果而不是错误，省份全为空奖级也是合法输出
*/
func (p Parser) Parse(doc *dom.Node, region spider.Region) Extraction {
	ex := Extraction{Region: region, Outcome: NotSearched}
	ex.Date, ex.DateParsed = ResolveDate(titleText(doc), p.now())

	primary, ok := primarySelectors[region]
	if !ok {
		p.logger.Warn("unknown region", zap.String("region", string(region)))
		ex.Outcome = NotFound
		return ex
	}

	if region == spider.North {
		t, outcome := Locate(doc, primary, nil)
		ex.Outcome = outcome
		if outcome == NotFound {
			p.logger.Debug("result table not found", zap.String("region", string(region)))
			return ex
		}
		ex.Provinces = []spider.Province{{Name: NorthProvince, ColumnIndex: 1}}
		ex.Results = []*spider.Result{assembleNorth(t, ex.Date)}
		return ex
	}

	t, outcome := Locate(doc, primary, fallbackAnchors)
	ex.Outcome = outcome
	switch outcome {
	case NotFound:
		p.logger.Debug("result table not found", zap.String("region", string(region)))
		return ex
	case FoundFallback:
		p.logger.Debug("result table found by fallback", zap.String("region", string(region)))
	}

	ex.Provinces = ResolveProvinces(t)
	if len(ex.Provinces) == 0 {
		p.logger.Debug("no provinces in header", zap.String("region", string(region)))
	}
	ex.Results = assembleMulti(t, region, ex.Provinces, ex.Date)
	return ex
}

func (p Parser) now() time.Time {
	if p.clock == nil {
		return time.Now()
	}
	return p.clock()
}

func titleText(doc *dom.Node) string {
	var parts []string
	for _, n := range doc.Find(titleSelector) {
		parts = append(parts, n.Text())
	}
	return strings.Join(parts, " ")
}
