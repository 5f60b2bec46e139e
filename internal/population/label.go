package population

import (
	"strings"
	"unicode"
)

func isNumRune(r rune) bool { return (r >= '0' && r <= '9') || r == '-' }

// InsertSpace：把驼峰与数字串拆成以空格分隔的行政区名
// 例："HaNoi" -> "Ha Noi"，"Quan1" -> "Quan 1"，"Phuong12" -> "Phuong 12"。
// 约束：大写字母前插入空格；数字（及 '-'）连续时不插入；仅去掉开头多出的空格。
func InsertSpace(word string) string {
	var b strings.Builder
	b.Grow(len(word) + 8)
	var last rune
	for _, r := range word {
		switch {
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		case isNumRune(r):
			if last == 0 || !isNumRune(last) {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
		last = r
	}
	return strings.TrimPrefix(b.String(), " ")
}

// Label：行政级别前缀（如 "Quan"/"Phuong"）与名称拼接后再拆分
func Label(title, name string) string { return InsertSpace(title + name) }
