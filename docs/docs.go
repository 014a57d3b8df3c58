// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/schemas": {
            "get": {"tags": ["schemas"], "summary": "List registered claim types", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/schemas/{claimType}": {
            "get": {"tags": ["schemas"], "summary": "Get the JSON Schema document of a claim type", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "claimType", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown claim type"}}}
        },
        "/schemas/{claimType}/checklist": {
            "get": {"tags": ["schemas"], "summary": "Documents expected for a claim type", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "claimType", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown claim type"}}}
        },
        "/claims/validate": {
            "post": {"tags": ["claims"], "summary": "Validate a claim document", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "claim", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Body is not JSON"}, "422": {"description": "Unknown claim type"}}}
        },
        "/sessions": {
            "get": {"tags": ["sessions"], "summary": "List the client's sessions", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "status", "in": "query"}, {"type": "integer", "name": "offset", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["sessions"], "summary": "Start an intake session", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateSessionRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid request"}}}
        },
        "/sessions/{id}": {
            "get": {"tags": ["sessions"], "summary": "Session with per-receipt progress and the last outcome", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Session not found"}}}
        },
        "/sessions/{id}/receipts": {
            "post": {"tags": ["sessions"], "summary": "Upload one receipt", "consumes": ["multipart/form-data"], "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}, {"type": "file", "name": "file", "in": "formData", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Missing file or unsupported type"}, "409": {"description": "Session busy or submitted"}, "413": {"description": "File too large"}}}
        },
        "/sessions/{id}/receipts/{receiptId}/url": {
            "get": {"tags": ["sessions"], "summary": "Time-limited download link for an uploaded receipt", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "receiptId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/sessions/{id}/process": {
            "post": {"tags": ["sessions"], "summary": "Run the batch: extraction, classification, assembly, validation", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}, {"type": "boolean", "name": "wait", "in": "query"}],
                "responses": {"200": {"description": "Settled session"}, "202": {"description": "Queued"}, "400": {"description": "No receipts"}, "409": {"description": "Session busy or submitted"}}}
        },
        "/sessions/{id}/retry": {
            "post": {"tags": ["sessions"], "summary": "Re-run the full batch from the same uploads", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}, {"type": "boolean", "name": "wait", "in": "query"}],
                "responses": {"200": {"description": "Settled session"}, "202": {"description": "Queued"}, "409": {"description": "Nothing to retry or session busy"}}}
        },
        "/sessions/{id}/cancel": {
            "post": {"tags": ["sessions"], "summary": "Abort a queued or running batch", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Nothing to cancel"}}}
        },
        "/sessions/{id}/submit": {
            "post": {"tags": ["sessions"], "summary": "Submit a validated claim", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Claim not validated or already submitted"}}}
        },
        "/sessions/{id}/export": {
            "get": {"tags": ["sessions"], "summary": "Export receipts and outcome", "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "format", "in": "query", "enum": ["csv", "xlsx"]}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown format"}}}
        },
        "/sessions/{id}/audit": {
            "get": {"tags": ["sessions"], "summary": "Session audit trail, oldest first", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}, {"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/policies/eligible": {
            "get": {"tags": ["policies"], "summary": "Policies the client can claim against", "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "X-Client-ID", "in": "header", "required": true}],
                "responses": {"200": {"description": "OK"}, "502": {"description": "Policy service failure"}}}
        }
    },
    "definitions": {
        "handler.CreateSessionRequest": {
            "type": "object",
            "required": ["life_assured_id", "policy_id"],
            "properties": {
                "life_assured_id": {"type": "string", "example": "LA-1"},
                "notify_email": {"type": "string", "example": "tan@example.com"},
                "policy_id": {"type": "string", "example": "P-778"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Claim Intake API",
	Description:      "Receipt upload, extraction, claim assembly and schema validation for insurance claims.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
