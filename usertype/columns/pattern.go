package columns

import (
	"fmt"
	"strconv"
	"strings"

	"matrixsql/usertype"
)

// valueKind 决定模式中允许出现的字段
type valueKind int

const (
	kindDate valueKind = iota
	kindTime
	kindDateTime
)

func (k valueKind) String() string {
	switch k {
	case kindDate:
		return "date"
	case kindTime:
		return "time"
	default:
		return "date-time"
	}
}

type field int

const (
	fieldYear field = iota
	fieldMonth
	fieldDay
	fieldHour
	fieldMinute
	fieldSecond
	fieldFraction
)

var fieldNames = [...]string{"year", "month", "day", "hour", "minute", "second", "fraction"}

type segment struct {
	field field
	start int
	width int
}

// layout 编译后的定宽纯数字日期模式，例如 yyyyMMdd、HHmmss、yyyyMMddHHmmssSSS。
//
// 支持的字母：y/u 年（2 或 4 位）、M 月、d 日、H 时、m 分、s 秒（均为 2 位）、S 秒的小数部分（1-9 位）。
// 两位年份表示 2000-2099。数值列无法保存分隔符，因此模式中不允许出现任何非字母字符。
type layout struct {
	text     string
	segments []segment
	width    int
}

// civilFields 模式与具体日期类型之间的中间表示
type civilFields struct {
	year, month, day            int
	hour, minute, second, nanos int
}

func compileLayout(text string, kind valueKind, maxWidth int) (*layout, error) {
	if text == "" {
		return nil, usertype.NewConfigurationError("empty %s pattern", kind)
	}

	l := &layout{text: text}
	seen := map[field]bool{}
	for i := 0; i < len(text); {
		c := text[i]
		j := i
		for j < len(text) && text[j] == c {
			j++
		}
		run := j - i

		f, ok := letterField(c)
		if !ok {
			return nil, usertype.NewConfigurationError("%s pattern %q: unsupported character %q, only digit fields are allowed", kind, text, string(c))
		}
		if !fieldAllowed(f, kind) {
			return nil, usertype.NewConfigurationError("%s pattern %q: %s field is not part of a %s", kind, text, fieldNames[f], kind)
		}
		if seen[f] {
			return nil, usertype.NewConfigurationError("%s pattern %q: %s field repeated", kind, text, fieldNames[f])
		}
		if !widthAllowed(f, run) {
			return nil, usertype.NewConfigurationError("%s pattern %q: %s field cannot be %d digits wide", kind, text, fieldNames[f], run)
		}
		seen[f] = true

		l.segments = append(l.segments, segment{field: f, start: i, width: run})
		i = j
	}
	l.width = len(text)

	for _, f := range requiredFields(kind) {
		if !seen[f] {
			return nil, usertype.NewConfigurationError("%s pattern %q: missing %s field", kind, text, fieldNames[f])
		}
	}
	if l.width > maxWidth {
		return nil, usertype.NewConfigurationError("%s pattern %q: %d digits do not fit the column", kind, text, l.width)
	}
	return l, nil
}

func letterField(c byte) (field, bool) {
	switch c {
	case 'y', 'u':
		return fieldYear, true
	case 'M':
		return fieldMonth, true
	case 'd':
		return fieldDay, true
	case 'H':
		return fieldHour, true
	case 'm':
		return fieldMinute, true
	case 's':
		return fieldSecond, true
	case 'S':
		return fieldFraction, true
	default:
		return 0, false
	}
}

func fieldAllowed(f field, kind valueKind) bool {
	switch kind {
	case kindDate:
		return f <= fieldDay
	case kindTime:
		return f >= fieldHour
	default:
		return true
	}
}

func widthAllowed(f field, width int) bool {
	switch f {
	case fieldYear:
		return width == 2 || width == 4
	case fieldFraction:
		return width >= 1 && width <= 9
	default:
		return width == 2
	}
}

func requiredFields(kind valueKind) []field {
	switch kind {
	case kindDate, kindDateTime:
		return []field{fieldYear, fieldMonth, fieldDay}
	default:
		return []field{fieldHour}
	}
}

// format 按模式输出定宽数字文本，前导零保留
func (l *layout) format(v civilFields) (string, error) {
	var sb strings.Builder
	sb.Grow(l.width)
	for _, seg := range l.segments {
		n := l.valueOf(seg, v)
		if seg.field == fieldYear && seg.width == 2 {
			if v.year < 2000 || v.year > 2099 {
				return "", l.formatError(fmt.Sprintf("%04d", v.year), strconv.Itoa(v.year))
			}
			n = v.year - 2000
		}
		digits := strconv.Itoa(n)
		if n < 0 || len(digits) > seg.width {
			return "", l.formatError(digits, digits)
		}
		sb.WriteString(strings.Repeat("0", seg.width-len(digits)))
		sb.WriteString(digits)
	}
	return sb.String(), nil
}

func (l *layout) valueOf(seg segment, v civilFields) int {
	switch seg.field {
	case fieldYear:
		return v.year
	case fieldMonth:
		return v.month
	case fieldDay:
		return v.day
	case fieldHour:
		return v.hour
	case fieldMinute:
		return v.minute
	case fieldSecond:
		return v.second
	default:
		scale := 1
		for i := seg.width; i < 9; i++ {
			scale *= 10
		}
		return v.nanos / scale
	}
}

// pad 将数值列的值还原为定宽文本，位数不足模式宽度时左侧补零
func (l *layout) pad(n int64) (string, error) {
	digits := strconv.FormatInt(n, 10)
	if n < 0 || len(digits) > l.width {
		return "", l.formatError(digits, digits)
	}
	return strings.Repeat("0", l.width-len(digits)) + digits, nil
}

// parse 解析定宽数字文本，月份、日期与时间分量逐项校验
func (l *layout) parse(s string) (civilFields, error) {
	if len(s) != l.width {
		return civilFields{}, l.formatError(s, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return civilFields{}, l.formatError(s, s[i:i+1])
		}
	}

	var v civilFields
	for _, seg := range l.segments {
		sub := s[seg.start : seg.start+seg.width]
		n, _ := strconv.Atoi(sub)
		switch seg.field {
		case fieldYear:
			if seg.width == 2 {
				n += 2000
			}
			v.year = n
		case fieldMonth:
			if n < 1 || n > 12 {
				return civilFields{}, l.formatError(s, sub)
			}
			v.month = n
		case fieldDay:
			if n < 1 || n > 31 {
				return civilFields{}, l.formatError(s, sub)
			}
			v.day = n
		case fieldHour:
			if n > 23 {
				return civilFields{}, l.formatError(s, sub)
			}
			v.hour = n
		case fieldMinute:
			if n > 59 {
				return civilFields{}, l.formatError(s, sub)
			}
			v.minute = n
		case fieldSecond:
			if n > 59 {
				return civilFields{}, l.formatError(s, sub)
			}
			v.second = n
		case fieldFraction:
			for i := seg.width; i < 9; i++ {
				n *= 10
			}
			v.nanos = n
		}
	}
	return v, nil
}

// daySubstring 返回日字段在 s 中的片段，用于报告 2 月 30 日这类组合错误
func (l *layout) daySubstring(s string) string {
	for _, seg := range l.segments {
		if seg.field == fieldDay && len(s) >= seg.start+seg.width {
			return s[seg.start : seg.start+seg.width]
		}
	}
	return s
}

func (l *layout) formatError(input, substring string) error {
	return usertype.NewFormatError(input, substring, fmt.Sprintf("digits matching pattern %q", l.text), nil)
}
