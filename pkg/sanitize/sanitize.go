package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict 不允许任何标签；script/style 的内容一并丢弃
var strict = bluemonday.StrictPolicy()

// PlainText 去除所有 HTML 后还原实体并去掉首尾空白
// 用于组织名、姓名等纯文本字段，存储值不含转义实体
func PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
