package auth

// 用于确保只有持有管理令牌的调用方可以触发抓取等管理接口

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const bearerScheme = "Bearer "

/*
输入一个管理令牌，输出一个http中间件

请求必须携带Authorization: Bearer <token>头且令牌一致，否则返回401；令牌为空时不做校验
*/
func NewAuthWrapper(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 获取Authorization请求头，必须以Bearer开头
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerScheme) {
				unauthorized(w, "no auth token provided")
				return
			}

			// 常量时间比较，避免按耗时猜测令牌
			got := strings.TrimPrefix(header, bearerScheme)
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				unauthorized(w, "auth token invalid")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message":"` + message + `"}`))
}
