package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pascaldekloe/jwt"
	"github.com/priyankishorems/rampgate/api/handlers"
	"github.com/priyankishorems/rampgate/internal/moonpay"
	"github.com/tomasen/realip"
	"golang.org/x/time/rate"
)

func IPRateLimit(h *handlers.Handlers) echo.MiddlewareFunc {

	type client struct {
		limiter  *rate.Limiter
		lastseen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	// background routine to remove old entries from the map
	go func() {
		for {
			time.Sleep(time.Minute)

			mu.Lock()

			for ip, client := range clients {
				if time.Since(client.lastseen) > 3*time.Minute {
					delete(clients, ip)
				}
			}

			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {

			if h.Config.RateLimiter.Enabled {
				ip := realip.FromRequest(c.Request())

				mu.Lock()

				_, found := clients[ip]
				if !found {
					clients[ip] = &client{limiter: rate.NewLimiter(rate.Limit(h.Config.RateLimiter.Rps), h.Config.RateLimiter.Burst)}
				}

				clients[ip].lastseen = time.Now()

				if !clients[ip].limiter.Allow() {
					mu.Unlock()
					h.Utils.RateLimitExceededResponse(c)
					return nil
				}

				mu.Unlock()
			}

			return next(c)
		}
	}
}

// Authenticate requires an HS256 bearer token signed with the configured JWT
// secret. It is a pass-through when no secret is configured.
func Authenticate(h *handlers.Handlers) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if h.Config.JWT.Secret == "" {
				return next(c)
			}

			h.Utils.AddHeaderIfMissing(c.Response().Writer, "Vary", "Authorization")

			authorizationHeader := c.Request().Header.Get("Authorization")
			if authorizationHeader == "" {
				h.Utils.UserUnAuthorizedResponse(c, fmt.Errorf("authorization header not found"))
				return nil
			}

			headerParts := strings.Split(authorizationHeader, " ")
			if len(headerParts) != 2 || headerParts[0] != "Bearer" {
				h.Utils.UserUnAuthorizedResponse(c, fmt.Errorf("invalid authorization header"))
				return nil
			}

			claims, err := jwt.HMACCheck([]byte(headerParts[1]), []byte(h.Config.JWT.Secret))
			if err != nil {
				h.Utils.UserUnAuthorizedResponse(c, err)
				return nil
			}

			if !claims.Valid(time.Now()) {
				h.Utils.UserUnAuthorizedResponse(c, fmt.Errorf("token expired or not yet valid"))
				return nil
			}

			if claims.Issuer != h.Config.JWT.Issuer {
				h.Utils.UserUnAuthorizedResponse(c, fmt.Errorf("unexpected token issuer %q", claims.Issuer))
				return nil
			}

			c.Set("subject", claims.Subject)
			return next(c)
		}
	}
}

// VerifyMoonpaySignature checks the webhook signature header when a webhook
// secret is configured and restores the body for the handler.
func VerifyMoonpaySignature(h *handlers.Handlers) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			secret := h.Config.Moonpay.WebhookSecret
			if secret == "" {
				return next(c)
			}

			body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
			if err != nil {
				return c.String(http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			header := c.Request().Header.Get(moonpay.SignatureHeader)
			if err := moonpay.VerifySignature(header, body, secret, time.Now()); err != nil {
				c.Logger().Warnf("moonpay webhook rejected: %v", err)
				return c.String(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			}

			return next(c)
		}
	}
}
