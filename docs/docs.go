// Package docs Swagger-опис HTTP API, який реєструється у swag для /swagger
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
        "/api/auth/refresh": {
            "post": {
                "description": "Оновлює токени з cookie сесії; при відмові провайдера сесія видаляється",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Refresh Tokens",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RefreshResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/auth/status": {
            "get": {
                "description": "Стан сесії за тими ж cookie, що перевіряє Route Gate; токени не оновлюються",
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Auth Status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.AuthStatus"}}
                }
            }
        },
        "/api/auth/token": {
            "post": {
                "description": "Обмінює authorization code на токени і повертає їх у JSON",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Exchange Code",
                "parameters": [
                    {"description": "Authorization Code", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.TokenExchangeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.TokenExchangeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "500": {"description": "Internal Server Error", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/healthcheck": {
            "get": {
                "description": "Повертає статус сервісу і інформацію про збірку",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health Check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/auth/callback": {
            "get": {
                "description": "Обмінює authorization code на токени і зберігає сесію в cookie",
                "tags": ["auth"],
                "summary": "OAuth2 Callback",
                "parameters": [
                    {"type": "string", "description": "Authorization Code", "name": "code", "in": "query"},
                    {"type": "string", "description": "State", "name": "state", "in": "query"},
                    {"type": "string", "description": "Provider error", "name": "error", "in": "query"}
                ],
                "responses": {"303": {"description": "See Other"}}
            }
        },
        "/login": {
            "get": {
                "description": "Перенаправляє на authorize endpoint провайдера з offline доступом",
                "tags": ["auth"],
                "summary": "Login",
                "responses": {"303": {"description": "See Other"}}
            }
        },
        "/logout": {
            "get": {
                "description": "Відкликає токени у провайдера, видаляє cookie сесії і перенаправляє на сторінку входу",
                "tags": ["auth"],
                "summary": "Logout",
                "responses": {"303": {"description": "See Other"}}
            }
        }
    },
    "definitions": {
        "models.AuthStatus": {
            "type": "object",
            "properties": {
                "authenticated": {"type": "boolean"},
                "checked_at": {"type": "string"},
                "expired": {"type": "boolean"},
                "expires_at": {"type": "string"},
                "resource_servers": {"type": "array", "items": {"type": "string"}},
                "user": {"$ref": "#/definitions/models.UserInfo"}
            }
        },
        "models.IdentityClaims": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "organization": {"type": "string"},
                "preferred_username": {"type": "string"},
                "sub": {"type": "string"}
            }
        },
        "models.RefreshResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "tokens": {"$ref": "#/definitions/models.TokenBundle"}
            }
        },
        "models.TokenBundle": {
            "type": "object",
            "properties": {
                "by_resource_server": {"type": "object", "additionalProperties": {"$ref": "#/definitions/models.TokenRecord"}},
                "id_token": {"type": "string"},
                "id_token_claims": {"$ref": "#/definitions/models.IdentityClaims"}
            }
        },
        "models.TokenExchangeRequest": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string"}
            }
        },
        "models.TokenExchangeResponse": {
            "type": "object",
            "properties": {
                "tokens": {"$ref": "#/definitions/models.TokenBundle"},
                "userInfo": {"$ref": "#/definitions/models.UserInfo"}
            }
        },
        "models.TokenRecord": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_at_seconds": {"type": "integer"},
                "refresh_token": {"type": "string"},
                "resource_server": {"type": "string"},
                "scope": {"type": "string"},
                "token_type": {"type": "string"}
            }
        },
        "models.UserInfo": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "organization": {"type": "string"},
                "username": {"type": "string"}
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
	Title:            "Dashboard Gateway API",
	Description:      "OAuth2 token lifecycle and request gating for the dashboard.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
