package minhngoc

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// 越南时间，开奖日期以当地日期为准
var Vietnam = time.FixedZone("ICT", 7*60*60)

var dateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)

/*
输入一段自由文本和当前时间，输出规范化日期YYYY-MM-DD以及是否真正解析成功

取第一个能构成合法日历日期的 日/月/年 片段；一个都没有时退回到当前时间在越南时区的日期，parsed为false。
该函数对任何输入都返回合法日期，不会报错，需要严格日期的调用方应比对parsed或目标日期
*/
func ResolveDate(text string, now time.Time) (date string, parsed bool) {
	for _, m := range dateRe.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if !validDate(year, month, day) {
			continue
		}
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
	}
	return now.In(Vietnam).Format("2006-01-02"), false
}

// 用time.Date回绕来判断日期是否合法，例如31/02会回绕到3月
func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}
