package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

func CreateCookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// RequireUser authenticates the request from the access cookie, rotating the
// pair from the refresh cookie when the access token has expired.
func (t *TokenService) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return t.require(next, "")
}

func (t *TokenService) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return t.require(next, "admin")
}

func (t *TokenService) require(next echo.HandlerFunc, role string) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := t.authenticate(c)
		if err != nil {
			return err
		}
		if role != "" {
			got, _ := claims["role"].(string)
			if got != role {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
		}
		if err := setUserContext(c, claims); err != nil {
			return err
		}
		return next(c)
	}
}

func (t *TokenService) authenticate(c echo.Context) (jwt.MapClaims, error) {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		claims, perr := t.ParseAccess(ck.Value)
		if perr == nil {
			return claims, nil
		}
		if !errors.Is(perr, jwt.ErrTokenExpired) {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
	}

	rf, err := c.Cookie(RefreshCookie)
	if err != nil || rf.Value == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	newAccess, newRefresh, claims, err := t.Rotate(c.Request().Context(), rf.Value)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token")
	}

	c.SetCookie(CreateCookie(AccessCookie, newAccess, "/", time.Now().Add(AccessTTL)))
	c.SetCookie(CreateCookie(RefreshCookie, newRefresh, "/", time.Now().Add(RefreshTTL)))
	return claims, nil
}

func setUserContext(c echo.Context, claims jwt.MapClaims) error {
	sub, ok := claims["sub"].(float64)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	role, _ := claims["role"].(string)
	c.Set("userID", uint(sub))
	c.Set("role", role)
	return nil
}

// UserID reads the authenticated user id placed in the context by the
// middleware.
func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}
