package middleware

import (
	"log"
	"net/http"
	"runtime"
)

// Recover turns a panic in any handler into a 500 and logs the stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := make([]byte, 8*1024)
				stack = stack[:runtime.Stack(stack, false)]
				log.Printf("panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, stack)
				deny(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
