package minhngoc

import (
	"strings"
	"unicode"
)

// 连字符及页面中常见的各种破折号都视为号码分隔符
var hyphenReplacer = strings.NewReplacer(
	"-", " ",
	"‐", " ",
	"‑", " ",
	"‒", " ",
	"–", " ",
	"—", " ",
	"−", " ",
)

/*
输入单元格原始文本，输出纯数字号码列表

先把连字符替换为空格，再按空白切分，只保留完全由十进制数字组成的片段，顺序与原文一致
*/
func Tokenize(text string) []string {
	fields := strings.Fields(hyphenReplacer.Replace(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if isDigits(f) {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

/*
输入特别奖单元格文本，输出特别奖号码

取第一个数字号码；一个都没有时原样保留去掉首尾空白的文本，特别奖不会被静默丢弃
*/
func SpecialPrize(text string) string {
	if tokens := Tokenize(text); len(tokens) > 0 {
		return tokens[0]
	}
	return strings.TrimSpace(text)
}

// 只接受ASCII数字，全角数字等不算
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
