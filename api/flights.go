package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/cargobooking/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/route", h.route)
	router.GET("/:id", h.get)
}

func (h *FlightHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

// route godoc
// @Summary  Direct flights and one transit pair for a day
// @Tags     flights
// @Produce  json
// @Param    origin         query string true "origin airport"
// @Param    destination    query string true "destination airport"
// @Param    departure_date query string true "YYYY-MM-DD"
// @Success  200 {object} domain.Route
// @Failure  400 {object} errorResponse
// @Router   /flights/route [get]
func (h *FlightHandler) route(c *gin.Context) {
	route, err := h.service.FindRoute(c.Request.Context(), c.Query("origin"), c.Query("destination"), c.Query("departure_date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}
