// Package docs holds the OpenAPI description served by gin-swagger. It is
// generated from the handler annotations with `swag init -g router.go -d
// internal/http -o internal/http/docs`; edit the annotations, not this file.
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
        "/api/v1/audit": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns audit rows newest first. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "List audit entries (paginated)",
                "operationId": "listAudit",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"type": "string", "description": "Filter by event tag", "name": "event", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 200, "minimum": 1, "type": "integer", "default": 50, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListAuditResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/defaults/publish": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Writes the built-in default of every key lacking a global default row. Existing rows are kept.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Publish built-in defaults",
                "operationId": "publishDefaults",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PublishDefaultsResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/scopes/{scope}/config": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Resolves every non-secret setting for the scope through all tiers and flags keys with a scope override.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Effective configuration of a conversation",
                "operationId": "getScopeConfig",
                "parameters": [
                    {"type": "string", "description": "Group or user id", "name": "scope", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.ScopeConfig"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/scopes/{scope}/messages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Ranks the most recent logged text messages of the scope by word overlap with q.",
                "produces": ["application/json"],
                "tags": ["Admin"],
                "summary": "Search the message log of a conversation",
                "operationId": "searchMessages",
                "parameters": [
                    {"type": "string", "description": "Group or user id", "name": "scope", "in": "path", "required": true},
                    {"type": "string", "description": "Search text", "name": "q", "in": "query", "required": true},
                    {"maximum": 50, "minimum": 1, "type": "integer", "default": 10, "description": "Maximum hits", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SearchMessagesResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/shared/{token}/{path}": {
            "get": {
                "description": "Lists a folder (JSON) or downloads a file from the folder shared by the get-link command.",
                "produces": ["application/json", "application/octet-stream"],
                "tags": ["Shared"],
                "summary": "Browse a shared conversation folder",
                "operationId": "browseShare",
                "parameters": [
                    {"type": "string", "format": "uuid", "description": "Share token", "name": "token", "in": "path", "required": true},
                    {"type": "string", "description": "Path inside the shared folder, '/' for the root", "name": "path", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListingResponse"}},
                    "400": {"description": "Invalid path", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Unknown token or path", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/webhook": {
            "post": {
                "description": "Verifies the X-Line-Signature header (when a channel secret is configured), then processes\nevery event of the delivery in order. Per-event failures do not change the response.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhook"],
                "summary": "Receive a messaging webhook delivery",
                "operationId": "receiveWebhook",
                "parameters": [
                    {"type": "string", "description": "Base64 HMAC-SHA256 of the body", "name": "X-Line-Signature", "in": "header"},
                    {"description": "Delivery payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.WebhookPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.WebhookResponse"}},
                    "400": {"description": "Malformed JSON", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Bad signature", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Body too large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.AuditLog": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "event": {"type": "string"},
                "id": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "domain.WebhookPayload": {
            "type": "object",
            "properties": {
                "destination": {"type": "string"},
                "events": {"type": "array", "items": {"type": "object"}}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"description": "Stable, machine-readable code (see errors.go constants)", "type": "string", "example": "not_found"},
                "message": {"description": "Human-readable message (safe to show to users)", "type": "string", "example": "resource not found"},
                "request_id": {"description": "Correlates server logs and client errors", "type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.ListAuditResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/domain.AuditLog"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.ListingResponse": {
            "type": "object",
            "properties": {
                "entries": {"type": "array", "items": {"$ref": "#/definitions/storage.Entry"}},
                "path": {"type": "string", "example": "/image"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "handlers.PublishDefaultsResponse": {
            "type": "object",
            "properties": {
                "added": {"type": "array", "items": {"type": "string"}, "example": ["SAVE_IMAGE", "COMMAND_GET_LINK"]}
            }
        },
        "handlers.SearchMessagesResponse": {
            "type": "object",
            "properties": {
                "hits": {"type": "array", "items": {"$ref": "#/definitions/services.MessageHit"}},
                "query": {"type": "string", "example": "trip photos"}
            }
        },
        "handlers.WebhookResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        },
        "services.ConfigValue": {
            "type": "object",
            "properties": {
                "key": {"type": "string", "example": "SAVE_IMAGE"},
                "overridden": {"type": "boolean"},
                "value": {"type": "string", "example": "true"}
            }
        },
        "services.MessageHit": {
            "type": "object",
            "properties": {
                "display_name": {"type": "string"},
                "id": {"type": "string"},
                "score": {"type": "number"},
                "sent_at": {"type": "string"},
                "text": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "services.ScopeConfig": {
            "type": "object",
            "properties": {
                "scope": {"type": "string", "example": "C4af4980629b9c0b6b6d2d4a1a1e0f0aa"},
                "values": {"type": "array", "items": {"$ref": "#/definitions/services.ConfigValue"}}
            }
        },
        "storage.Entry": {
            "type": "object",
            "properties": {
                "is_dir": {"type": "boolean"},
                "mod_time": {"type": "string"},
                "name": {"type": "string"},
                "size": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the admin token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Chat Archiver API",
	Description:      "Webhook receiver, shared-folder browser and admin API of the chat attachment archiver.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
