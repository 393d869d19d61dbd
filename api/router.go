package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/cargobooking/config"
	_ "github.com/Domenick1991/cargobooking/docs"
	"github.com/Domenick1991/cargobooking/internal/metrics"
	"github.com/Domenick1991/cargobooking/internal/service/booking"
	"github.com/Domenick1991/cargobooking/internal/service/flights"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(cfg config.HTTPConfig, bookingSvc booking.BookingUseCase, flightSvc flights.FlightUseCase, checker HealthChecker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(RequestID())
	r.Use(RequestLogger())

	r.GET("/health", NewHealthHandler(checker).get)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.Swagger {
		r.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))
	}

	limited := r.Group("/", RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	NewBookingHandler(bookingSvc).Register(limited.Group("/bookings"))
	NewFlightHandler(flightSvc).Register(limited.Group("/flights"))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "Route not found", Code: "NOT_FOUND"})
	})
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
