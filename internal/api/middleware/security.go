package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders 安全响应头
// 接口只返回 JSON 与下载文件：禁止嵌入、禁止缓存（响应中含 Token 与排班信息）
// baseURL 为 https 时附加 HSTS
func SecurityHeaders(baseURL string) gin.HandlerFunc {
	hsts := strings.HasPrefix(strings.ToLower(baseURL), "https://")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		if hsts {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
