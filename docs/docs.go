// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/staydesk/main.go
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/rooms": {
            "get": {"tags": ["rooms"], "summary": "List rooms with current occupancy", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["rooms"], "summary": "Create room", "responses": {"201": {"description": "Created"}}}
        },
        "/rooms/available": {
            "get": {"tags": ["rooms"], "summary": "Rooms free for a stay", "responses": {"200": {"description": "OK"}}}
        },
        "/rooms/{id}": {
            "get": {"tags": ["rooms"], "summary": "Get room", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["rooms"], "summary": "Update room", "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["rooms"], "summary": "Delete room", "responses": {"204": {"description": "No Content"}}}
        },
        "/bookings": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "List bookings", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "Create booking (idempotent)", "responses": {"201": {"description": "Created"}}}
        },
        "/bookings/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "List my bookings", "responses": {"200": {"description": "OK"}}}
        },
        "/bookings/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "Get booking", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "Update booking", "responses": {"200": {"description": "OK"}}}
        },
        "/bookings/{id}/cancel": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["bookings"], "summary": "Cancel booking", "responses": {"200": {"description": "OK"}}}
        },
        "/payments": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "List payments", "responses": {"200": {"description": "OK"}}}
        },
        "/payments/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "List my payments", "responses": {"200": {"description": "OK"}}}
        },
        "/payments/initiate": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Initiate mobile-money collection", "responses": {"201": {"description": "Created"}}}
        },
        "/payments/webhook": {
            "post": {"tags": ["payments"], "summary": "Payment provider callback", "responses": {"200": {"description": "OK"}}}
        },
        "/payments/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Get payment", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Set payment status", "responses": {"200": {"description": "OK"}}}
        },
        "/payments/{id}/retry": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["payments"], "summary": "Retry a payment with a new attempt", "responses": {"201": {"description": "Created"}}}
        },
        "/dashboard/stats": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["dashboard"], "summary": "Dashboard counters", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Staydesk API",
	Description:      "Hotel rooms, bookings and mobile-money payments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
