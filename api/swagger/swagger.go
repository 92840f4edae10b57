package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FraudLens API",
        "description": "Review queue processing and filtered views for application fraud screening",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Applications", "description": "Review queue and simulated AI processing"},
        {"name": "Filters", "description": "Processed view queries and saved filter presets"},
        {"name": "Exports", "description": "CSV/PDF exports of the processed view"},
        {"name": "Auth", "description": "Reviewer login"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current reviewer",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications": {
            "get": {
                "tags": ["Applications"],
                "summary": "Queue snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/QueueSnapshot"}}
                }
            }
        },
        "/applications/reload": {
            "post": {
                "tags": ["Applications"],
                "summary": "Reload applications from the source",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Source unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/process-batch": {
            "post": {
                "tags": ["Applications"],
                "summary": "Process every idle queued application",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Batch started", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Nothing to process", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/process": {
            "post": {
                "tags": ["Applications"],
                "summary": "Process a single application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Processing started", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "200": {"description": "Already processing or unknown", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/{id}/decision": {
            "patch": {
                "tags": ["Applications"],
                "summary": "Record a reviewer decision",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/DecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Application still queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/processed": {
            "get": {
                "tags": ["Filters"],
                "summary": "Filtered processed view",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "riskMin", "type": "integer"},
                    {"in": "query", "name": "riskMax", "type": "integer"},
                    {"in": "query", "name": "status", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"in": "query", "name": "stage", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi"},
                    {"in": "query", "name": "from", "type": "string"},
                    {"in": "query", "name": "to", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/FilteredView"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications/processed/search": {
            "post": {
                "tags": ["Filters"],
                "summary": "Filtered processed view from a JSON filter",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/FilterState"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/FilteredView"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/filters": {
            "get": {
                "tags": ["Filters"],
                "summary": "List saved filters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Filters"],
                "summary": "Save a filter preset",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SavePresetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/SavedFilter"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/filters/{id}": {
            "delete": {
                "tags": ["Filters"],
                "summary": "Delete a saved filter",
                "description": "Unknown ids are a no-op reported as applied=false.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PresetActionResult"}}
                }
            }
        },
        "/filters/{id}/pin": {
            "post": {
                "tags": ["Filters"],
                "summary": "Toggle the pinned flag of a saved filter",
                "description": "Unknown ids are a no-op reported as applied=false.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PresetActionResult"}}
                }
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export the filtered processed view",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ExportResult"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export with a signed token",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "token", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Export not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Processing counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "DecisionRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["approved", "rejected", "escalated", "onhold", "in_review", "lowRisk"]}
            }
        },
        "Application": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "studentId": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "stage": {"type": "string", "enum": ["admissions", "financial-aid"]},
                "status": {"type": "string"},
                "riskScore": {"type": "integer"},
                "flags": {"type": "array", "items": {"type": "string"}},
                "aiProcessing": {"type": "boolean"},
                "processingStage": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "QueueSnapshot": {
            "type": "object",
            "properties": {
                "queue": {"type": "array", "items": {"$ref": "#/definitions/Application"}},
                "processed": {"type": "array", "items": {"$ref": "#/definitions/Application"}},
                "isBulkProcessing": {"type": "boolean"},
                "bulkProcessingStatus": {
                    "type": "object",
                    "properties": {
                        "processed": {"type": "integer"},
                        "total": {"type": "integer"}
                    }
                },
                "version": {"type": "integer"},
                "epoch": {"type": "string"}
            }
        },
        "FilterState": {
            "type": "object",
            "properties": {
                "search": {"type": "string"},
                "riskScore": {"type": "array", "items": {"type": "integer"}, "minItems": 2, "maxItems": 2},
                "statuses": {"type": "array", "items": {"type": "string"}},
                "stages": {"type": "array", "items": {"type": "string"}},
                "dateRange": {"type": "array", "items": {"type": "string", "format": "date-time"}, "minItems": 2, "maxItems": 2}
            }
        },
        "FilteredView": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/Application"}},
                "total": {"type": "integer"},
                "version": {"type": "integer"},
                "filter": {"$ref": "#/definitions/FilterState"}
            }
        },
        "SavePresetRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "filter": {"$ref": "#/definitions/FilterState"}
            }
        },
        "SavedFilter": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "filter": {"$ref": "#/definitions/FilterState"},
                "isPinned": {"type": "boolean"}
            }
        },
        "PresetActionResult": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "applied": {"type": "boolean"},
                "preset": {"$ref": "#/definitions/SavedFilter"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "filter": {"$ref": "#/definitions/FilterState"}
            }
        },
        "ExportResult": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "format": {"type": "string"},
                "rows": {"type": "integer"},
                "downloadUrl": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
