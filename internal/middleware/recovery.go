package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"

	"merch-inventory-dashboard/pkg/apierror"
)

// Recovery is a middleware that recovers from panics. API clients get the
// JSON error envelope, browsers get a plain error page. Mount it after
// RequestID so the panic log carries the request id.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				Log(r.Context(), "http").WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"panic": err,
					"stack": string(debug.Stack()),
				}).Error("recovered from panic")

				if strings.HasPrefix(r.URL.Path, "/api/") {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write(apierror.InternalError("internal server error").ToJSON())
					return
				}
				http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
