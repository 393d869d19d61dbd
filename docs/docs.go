// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/bookings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["bookings"],
                "summary": "Page through bookings, newest first",
                "parameters": [
                    {"type": "integer", "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "skip", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BookingPage"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bookings"],
                "summary": "Create a booking",
                "parameters": [
                    {"description": "new booking", "name": "booking", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.createBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Booking"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/bookings/{ref_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["bookings"],
                "summary": "Booking with its event history",
                "parameters": [
                    {"type": "string", "description": "booking reference", "name": "ref_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BookingView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/bookings/{ref_id}/{action}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bookings"],
                "summary": "Move a booking through its lifecycle",
                "parameters": [
                    {"type": "string", "description": "booking reference", "name": "ref_id", "in": "path", "required": true},
                    {"enum": ["depart", "arrive", "deliver", "cancel"], "type": "string", "description": "lifecycle action", "name": "action", "in": "path", "required": true},
                    {"description": "event details", "name": "event", "in": "body", "schema": {"$ref": "#/definitions/api.transitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Booking"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/flights/route": {
            "get": {
                "produces": ["application/json"],
                "tags": ["flights"],
                "summary": "Direct flights and one transit pair for a day",
                "parameters": [
                    {"type": "string", "description": "origin airport", "name": "origin", "in": "query", "required": true},
                    {"type": "string", "description": "destination airport", "name": "destination", "in": "query", "required": true},
                    {"type": "string", "description": "YYYY-MM-DD", "name": "departure_date", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Route"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.createBookingRequest": {
            "type": "object",
            "properties": {
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "pieces": {"type": "integer"},
                "weight_kg": {"type": "integer"},
                "flightIds": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.transitionRequest": {
            "type": "object",
            "properties": {
                "location": {"type": "string"},
                "flightInfo": {"type": "object", "additionalProperties": true}
            }
        },
        "api.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "domain.Event": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "location": {"type": "string"},
                "flightInfo": {"type": "object", "additionalProperties": true},
                "timestamp": {"type": "string"}
            }
        },
        "domain.Booking": {
            "type": "object",
            "properties": {
                "ref_id": {"type": "string"},
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "pieces": {"type": "integer"},
                "weight_kg": {"type": "integer"},
                "status": {"type": "string", "enum": ["BOOKED", "DEPARTED", "ARRIVED", "DELIVERED", "CANCELLED"]},
                "flightIds": {"type": "array", "items": {"type": "string"}},
                "events": {"type": "array", "items": {"$ref": "#/definitions/domain.Event"}},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "domain.BookingView": {
            "$ref": "#/definitions/domain.Booking"
        },
        "domain.BookingSummary": {
            "type": "object",
            "properties": {
                "ref_id": {"type": "string"},
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "status": {"type": "string"},
                "pieces": {"type": "integer"},
                "weight_kg": {"type": "integer"},
                "createdAt": {"type": "string"}
            }
        },
        "domain.BookingPage": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "count": {"type": "integer"},
                "bookings": {"type": "array", "items": {"$ref": "#/definitions/domain.BookingSummary"}}
            }
        },
        "domain.Flight": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "flightId": {"type": "string"},
                "flightNumber": {"type": "string"},
                "airlineName": {"type": "string"},
                "origin": {"type": "string"},
                "destination": {"type": "string"},
                "departureTime": {"type": "string"},
                "arrivalTime": {"type": "string"}
            }
        },
        "domain.TransitRoute": {
            "type": "object",
            "properties": {
                "first": {"$ref": "#/definitions/domain.Flight"},
                "second": {"$ref": "#/definitions/domain.Flight"}
            }
        },
        "domain.Route": {
            "type": "object",
            "properties": {
                "directFlights": {"type": "array", "items": {"$ref": "#/definitions/domain.Flight"}},
                "transitRoute": {"$ref": "#/definitions/domain.TransitRoute"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Cargo Booking API",
	Description:      "Cargo booking lifecycle and flight route lookup.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
