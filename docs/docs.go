// Package docs registers the API document served at /api/v1/swagger.json
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
        "/r/{code}": {
            "get": {
                "tags": ["Redirect"],
                "summary": "Scan QR Code",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"302": {"description": "Redirect"}, "404": {"description": "Not found"}, "503": {"description": "Unavailable"}}
            }
        },
        "/api/v1/qr": {
            "get": {
                "tags": ["QR Codes"],
                "summary": "List QR Codes",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"},
                    {"type": "string", "name": "created_after", "in": "query"},
                    {"type": "string", "name": "created_before", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            },
            "post": {
                "tags": ["QR Codes"],
                "summary": "Create QR Code",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateQRCodeRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}, "503": {"description": "Unavailable"}}
            }
        },
        "/api/v1/qr/{code}": {
            "get": {
                "tags": ["QR Codes"],
                "summary": "Get QR Code",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "tags": ["QR Codes"],
                "summary": "Update QR Code",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateQRCodeRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "tags": ["QR Codes"],
                "summary": "Delete QR Code",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/qr/{code}/stats": {
            "get": {
                "tags": ["Analytics"],
                "summary": "QR Code Stats",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"type": "integer", "name": "scan_limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/qr/{code}/timeline": {
            "get": {
                "tags": ["Analytics"],
                "summary": "QR Code Timeline",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"type": "string", "name": "period", "in": "query", "enum": ["hours", "days", "weeks"]},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/qr/{code}/scans/export": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Export Scans",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"}
                ],
                "responses": {"200": {"description": "Excel file"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/admin/maintenance/drift": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin Maintenance"],
                "summary": "Detect Scan Counter Drift",
                "parameters": [{"type": "string", "name": "short_code", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}, "503": {"description": "Unavailable"}}
            }
        },
        "/api/v1/admin/maintenance/reconcile": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin Maintenance"],
                "summary": "Reconcile Scan Counters",
                "parameters": [{"name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.ReconcileRequest"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}, "503": {"description": "Unavailable"}}
            }
        },
        "/api/v1/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Unavailable"}}
            }
        }
    },
    "definitions": {
        "dto.CreateQRCodeRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {
                "url": {"type": "string", "maxLength": 2048},
                "title": {"type": "string", "maxLength": 255},
                "description": {"type": "string", "maxLength": 2000}
            }
        },
        "dto.ReconcileRequest": {
            "type": "object",
            "properties": {
                "dry_run": {"type": "boolean"}
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
	Title:            "QR Track API",
	Description:      "QR code short links with scan analytics and scan counter maintenance.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
