package spider

import (
	"fmt"
	"strings"
	"time"
)

// 默认的数据源站点
const DefaultBaseURL = "https://www.minhngoc.net.vn"

var regionPaths = map[Region]string{
	North:   "xo-so-mien-bac",
	Central: "xo-so-mien-trung",
	South:   "xo-so-mien-nam",
}

/*
输入站点地址、地区和开奖日期，输出页面URL和一个错误

日期为零值时返回当日最新结果页/xo-so-mien-xxx.html，否则返回历史页/xo-so-mien-xxx/ngay-dd-mm-yyyy.html，三个地区共六种模板
*/
func PageURL(base string, region Region, date time.Time) (string, error) {
	path, ok := regionPaths[region]
	if !ok {
		return "", fmt.Errorf("unknown region %q", region)
	}
	base = strings.TrimRight(base, "/")
	if date.IsZero() {
		return fmt.Sprintf("%s/%s.html", base, path), nil
	}
	return fmt.Sprintf("%s/%s/ngay-%02d-%02d-%d.html", base, path, date.Day(), int(date.Month()), date.Year()), nil
}
