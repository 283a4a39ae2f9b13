// Package edge is the request envelope shared by every integration handler:
// CORS pre-flight, JSON success and error bodies, and the top-level panic
// supervisor.
package edge

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
)

const (
	AllowOriginHeader  = "Access-Control-Allow-Origin"
	AllowHeadersHeader = "Access-Control-Allow-Headers"

	AllowOrigin  = "*"
	AllowHeaders = "authorization, x-client-info, apikey, content-type"
)

// CORS attaches the permissive cross-origin headers to every response and
// answers pre-flight requests before anything else runs.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(AllowOriginHeader, AllowOrigin)
		c.Header(AllowHeadersHeader, AllowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Responder lets a handler write a protocol-specific response instead of
// the JSON body.
type Responder interface {
	Respond(c *gin.Context)
}

// HandlerFunc is integration logic. It returns the success body or an error.
type HandlerFunc func(c *gin.Context) (any, error)

// Handle adapts fn to gin: success is 200 JSON (or the Responder's own
// output), failure is the {error} envelope with the status from apperr.
func Handle(fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := fn(c)
		if err != nil {
			Fail(c, err)
			return
		}
		if r, ok := out.(Responder); ok {
			r.Respond(c)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// Fail writes the error envelope and aborts the chain.
func Fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log := Logger(c)
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("handler failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

// Recovery converts a panic anywhere in the chain into a 500 envelope.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// NoRoute answers unknown paths.
func NoRoute(c *gin.Context) {
	Fail(c, apperr.New(apperr.CodeNotFound, fmt.Sprintf("route %s not found", c.Request.URL.Path)))
}

// NoMethod answers known paths called with an unsupported method.
func NoMethod(c *gin.Context) {
	Fail(c, apperr.New(apperr.CodeMethod, fmt.Sprintf("method %s not allowed", c.Request.Method)))
}

const loggerKey = "edge_logger"

// WithLogger stores the logger on the context for handlers and Fail.
func WithLogger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(loggerKey, l)
		c.Next()
	}
}

// Logger returns the request logger, or a no-op logger.
func Logger(c *gin.Context) zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return l
		}
	}
	return zerolog.Nop()
}

type statusJSON struct {
	status int
	body   any
}

func (s statusJSON) Respond(c *gin.Context) { c.JSON(s.status, s.body) }

// JSON returns a Responder writing body with a status other than 200.
func JSON(status int, body any) Responder {
	return statusJSON{status: status, body: body}
}

type redirect struct{ location string }

func (r redirect) Respond(c *gin.Context) { c.Redirect(http.StatusFound, r.location) }

// Redirect returns a Responder issuing a 302 to location.
func Redirect(location string) Responder {
	return redirect{location: location}
}
