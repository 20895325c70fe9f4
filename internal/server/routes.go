package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterRoutes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debugw("request",
				"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"https://*", "http://*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type"},
		MaxAge:       300,
	}))

	e.GET("/api/health", s.healthHandler)

	var assetGroup = e.Group("/api/assets")
	assetGroup.GET("", s.ListAssets)
	assetGroup.GET("/:slug", s.GetAsset)
	assetGroup.POST("/:slug/deliveries", s.CreateDelivery)

	var tagGroup = e.Group("/api/tags")
	tagGroup.GET("", s.ListTags)
	tagGroup.GET("/:slug", s.GetTag)

	e.GET("/api/provider/:id", s.LookupProvider)

	var deliveryGroup = e.Group("/api/deliveries")
	deliveryGroup.GET("", s.ListDeliveries)
	deliveryGroup.GET("/:id", s.GetDelivery)

	e.GET("/api/events", s.StreamEvents)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/", s.Browse)
	e.GET("/:slug", s.Browse)

	return e
}
