package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication: health checks
// and the readiness probe.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper returns true for requests whose path should skip
// authentication. Pass it as the Skipper on JWTConfig so health checks
// stay reachable without a bearer token.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
