// Package docs is generated by swaggo/swag from the handler annotations.
// Regenerate with: swag init -g cmd/http/main.go
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
        "/health": {
            "get": {
                "description": "Returns the health status of the API, including uptime, open rooms and connections",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Service is healthy", "schema": {"$ref": "#/definitions/health.healthResponse"}},
                    "503": {"description": "Service is unhealthy", "schema": {"$ref": "#/definitions/health.healthResponse"}}
                }
            }
        },
        "/rooms/{code}": {
            "get": {
                "description": "Checks that a join code refers to an open room. Codes are case-insensitive.",
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Look up a room",
                "parameters": [
                    {"type": "string", "description": "Room join code", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Room is open", "schema": {"$ref": "#/definitions/rooms.roomResponse"}},
                    "400": {"description": "Malformed code", "schema": {"$ref": "#/definitions/json.ErrorResponse"}},
                    "404": {"description": "Room not found", "schema": {"$ref": "#/definitions/json.ErrorResponse"}}
                }
            }
        },
        "/ws": {
            "get": {
                "description": "Upgrades to a websocket. The server greets with session.ready; clients then send create_room, join_room, leave_room and send_message frames.",
                "tags": ["chat"],
                "summary": "Open a chat connection",
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "400": {"description": "Not a websocket handshake", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "health.healthResponse": {
            "type": "object",
            "properties": {
                "connections": {"type": "integer", "example": 40},
                "rooms": {"type": "integer", "example": 12},
                "status": {"type": "string", "enum": ["ok", "unhealthy"], "example": "ok"},
                "timestamp": {"type": "string", "example": "2024-01-01T12:00:00Z"},
                "uptime": {"type": "string", "example": "2h30m45s"}
            }
        },
        "json.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "rooms.roomResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "K3P9QZ"},
                "createdAt": {"type": "string", "example": "2024-01-01T12:00:00Z"},
                "memberCount": {"type": "integer", "example": 2}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Huddle API",
	Description:      "Ephemeral room-scoped chat over websockets.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
