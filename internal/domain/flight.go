package domain

import "time"

type Flight struct {
	ID            int64     `json:"id"`
	FlightID      string    `json:"flightId"`
	FlightNumber  string    `json:"flightNumber"`
	AirlineName   string    `json:"airlineName"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departureTime"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type TransitRoute struct {
	First  Flight `json:"first"`
	Second Flight `json:"second"`
}

type Route struct {
	DirectFlights []Flight      `json:"directFlights"`
	TransitRoute  *TransitRoute `json:"transitRoute"`
}
