package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/priyankishorems/rampgate/api/handlers"
)

func SetupRoutes(h *handlers.Handlers) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods: []string{echo.GET, echo.POST},
	}))
	e.Use(IPRateLimit(h))
	e.Pre(middleware.RemoveTrailingSlash())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		c.Logger().Error(err)
		e.DefaultHTTPErrorHandler(err, c)
	}

	e.HideBanner = true

	e.GET("/", h.HomeFunc)

	api := e.Group("/api")
	{
		txns := api.Group("/transactions", Authenticate(h))
		txns.POST("", h.CreateTransactionHandler)
		txns.GET("/:id", h.GetTransactionHandler)

		api.GET("/users/:userId/transactions", h.ListUserTransactionsHandler, Authenticate(h))

		api.POST("/webhook/moonpay", h.MoonpayWebhookHandler, VerifyMoonpaySignature(h))
	}

	return e
}
