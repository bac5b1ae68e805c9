package v1

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// sessionKeyToken is the cookie-session key holding the opaque session token.
// The cookie carries nothing else: session state lives server-side.
const sessionKeyToken = "token"

// CookieOptions builds the session cookie attributes. A zero ttl yields a
// browser-session cookie with no Max-Age.
func CookieOptions(ttl time.Duration, secure bool) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionMiddleware installs a cookie session named name, signed with secret.
// The signature stays valid for opts.MaxAge seconds; zero means it never
// expires and the server-side session alone decides.
func SessionMiddleware(name, secret string, opts sessions.Options) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	if codec, ok := store.(interface{ MaxAge(int) }); ok {
		codec.MaxAge(max(opts.MaxAge, 0))
	}
	store.Options(opts)
	return sessions.Sessions(name, store)
}

// readToken returns the session token carried by the request cookie, or "".
// A cookie with a bad signature decodes to an empty session.
func readToken(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(sessionKeyToken).(string)
	return token
}

// bindToken points the response cookie at token.
func bindToken(c *gin.Context, token string, opts sessions.Options) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(opts)
	session.Set(sessionKeyToken, token)
	return session.Save()
}

// clearToken expires the response cookie.
func clearToken(c *gin.Context, opts sessions.Options) error {
	session := sessions.Default(c)
	session.Clear()
	opts.MaxAge = -1
	session.Options(opts)
	return session.Save()
}
