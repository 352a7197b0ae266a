// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
        "/users": {
            "get": {"tags": ["users"], "summary": "List users by role", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "role", "in": "query"},
                    {"type": "integer", "default": 0, "name": "skip", "in": "query"},
                    {"type": "integer", "default": 100, "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/user.User"}}}}},
            "post": {"tags": ["users"], "summary": "Register user", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/user.Create"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/user.User"}},
                    "400": {"description": "Validation error"}, "409": {"description": "telegram_id already registered"}}}
        },
        "/users/me": {
            "get": {"tags": ["users"], "summary": "Current user", "security": [{"TelegramInitData": []}],
                "parameters": [{"type": "integer", "name": "telegram_id", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/user.User"}}, "404": {"description": "Not Found"}}}
        },
        "/users/{id}": {
            "get": {"tags": ["users"], "summary": "Get user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/user.User"}}, "404": {"description": "Not Found"}}},
            "patch": {"tags": ["users"], "summary": "Update user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "user", "in": "body", "required": true, "schema": {"$ref": "#/definitions/user.Update"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/user.User"}}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["users"], "summary": "Deactivate user",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/users/telegram/{telegram_id}": {
            "delete": {"tags": ["users"], "summary": "Delete user by Telegram ID",
                "parameters": [{"type": "integer", "name": "telegram_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "500": {"description": "Transaction rolled back"}}}
        },
        "/health": {"get": {"tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}},
        "/health/db": {"get": {"tags": ["health"], "summary": "Database health check", "responses": {"200": {"description": "OK"}}}},
        "/cache/test": {"get": {"tags": ["cache"], "summary": "Test Redis connection", "responses": {"200": {"description": "OK"}}}},
        "/cache": {
            "post": {"tags": ["cache"], "summary": "Set cache value",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.CacheSetRequest"}}],
                "responses": {"201": {"description": "Created"}, "503": {"description": "Redis unavailable"}}}
        },
        "/cache/{key}": {
            "get": {"tags": ["cache"], "summary": "Get cache value",
                "parameters": [{"type": "string", "name": "key", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/tasks/test": {
            "post": {"tags": ["tasks"], "summary": "Start test task",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.TestTaskRequest"}}],
                "responses": {"202": {"description": "Accepted"}}}
        },
        "/tasks/add": {
            "post": {"tags": ["tasks"], "summary": "Start add_numbers task",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.AddNumbersRequest"}}],
                "responses": {"202": {"description": "Accepted"}}}
        },
        "/tasks/status/{id}": {
            "get": {"tags": ["tasks"], "summary": "Get task status",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/test/db": {
            "get": {"tags": ["test"], "summary": "List test records", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["test"], "summary": "Create test record",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.TestRecordRequest"}}],
                "responses": {"201": {"description": "Created"}}}
        }
    },
    "definitions": {
        "user.User": {"type": "object", "properties": {
            "id": {"type": "integer"}, "telegram_id": {"type": "integer"}, "username": {"type": "string"},
            "first_name": {"type": "string"}, "last_name": {"type": "string"},
            "role": {"type": "string", "enum": ["photographer", "client", "admin"]},
            "language": {"type": "string", "enum": ["ru", "en"]}, "is_active": {"type": "boolean"},
            "created_at": {"type": "string"}, "updated_at": {"type": "string"}}},
        "user.Create": {"type": "object", "required": ["telegram_id", "first_name", "role"], "properties": {
            "telegram_id": {"type": "integer"}, "username": {"type": "string"}, "first_name": {"type": "string"},
            "last_name": {"type": "string"}, "language": {"type": "string", "enum": ["ru", "en"]},
            "role": {"type": "string", "enum": ["photographer", "client"]}}},
        "user.Update": {"type": "object", "properties": {
            "first_name": {"type": "string"}, "last_name": {"type": "string"}, "language": {"type": "string", "enum": ["ru", "en"]}}},
        "http.CacheSetRequest": {"type": "object", "required": ["key", "value"], "properties": {
            "key": {"type": "string"}, "value": {"type": "string"}, "ttl": {"type": "integer", "minimum": 0, "maximum": 2592000}}},
        "http.TestTaskRequest": {"type": "object", "required": ["message"], "properties": {"message": {"type": "string"}}},
        "http.AddNumbersRequest": {"type": "object", "required": ["a", "b"], "properties": {"a": {"type": "number"}, "b": {"type": "number"}}},
        "http.TestRecordRequest": {"type": "object", "required": ["message"], "properties": {"message": {"type": "string"}}}
    },
    "securityDefinitions": {
        "TelegramInitData": {"type": "apiKey", "name": "X-Telegram-Init-Data", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "BrashLens API",
	Description:      "Backend of the BrashLens Telegram Mini App for photographers and their clients.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
