package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/Domenick1991/cargobooking/internal/domain"
	"github.com/Domenick1991/cargobooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Pieces      int      `json:"pieces"`
	WeightKg    int      `json:"weight_kg"`
	FlightIDs   []string `json:"flightIds"`
}

type transitionRequest struct {
	Location   string         `json:"location"`
	FlightInfo map[string]any `json:"flightInfo"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("", h.list)
	router.GET("/:ref_id", h.history)
	for _, action := range domain.Actions {
		router.POST("/:ref_id/"+string(action), h.transition(action))
	}
}

// create godoc
// @Summary  Create a booking
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    booking body createBookingRequest true "new booking"
// @Success  201 {object} domain.Booking
// @Failure  400 {object} errorResponse
// @Router   /bookings [post]
func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		Origin:      req.Origin,
		Destination: req.Destination,
		Pieces:      req.Pieces,
		WeightKg:    req.WeightKg,
		FlightIDs:   req.FlightIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// history godoc
// @Summary  Booking with its event history
// @Tags     bookings
// @Produce  json
// @Param    ref_id path string true "booking reference"
// @Success  200 {object} domain.BookingView
// @Failure  404 {object} errorResponse
// @Router   /bookings/{ref_id} [get]
func (h *BookingHandler) history(c *gin.Context) {
	view, err := h.service.GetHistory(c.Request.Context(), c.Param("ref_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// transition godoc
// @Summary  Move a booking through its lifecycle
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    ref_id path string true "booking reference"
// @Param    action path string true "lifecycle action" Enums(depart, arrive, deliver, cancel)
// @Param    event body transitionRequest false "event details"
// @Success  200 {object} domain.Booking
// @Failure  400 {object} errorResponse
// @Failure  404 {object} errorResponse
// @Failure  409 {object} errorResponse
// @Router   /bookings/{ref_id}/{action} [post]
func (h *BookingHandler) transition(action domain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transitionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				badRequest(c, "invalid request body")
				return
			}
		}

		updated, err := h.service.Transition(c.Request.Context(), c.Param("ref_id"), action, domain.TransitionPayload{
			Location:   req.Location,
			FlightInfo: req.FlightInfo,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// list godoc
// @Summary  Page through bookings, newest first
// @Tags     bookings
// @Produce  json
// @Param    limit query int false "page size"
// @Param    skip  query int false "offset"
// @Success  200 {object} domain.BookingPage
// @Router   /bookings [get]
func (h *BookingHandler) list(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, "limit must be an integer")
		return
	}
	skip, err := queryInt(c, "skip")
	if err != nil {
		badRequest(c, "skip must be an integer")
		return
	}

	page, err := h.service.ListBookings(c.Request.Context(), limit, skip)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
