package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LE:MORE API",
        "description": "Declutter assistant backend: sessions, items, AI analysis, listings and the declutter calendar",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Sessions", "description": "Declutter session lifecycle"},
        {"name": "Items", "description": "Item registration, analysis and decisions"},
        {"name": "Listings", "description": "AI marketplace copy"},
        {"name": "Challenges", "description": "Declutter calendar"},
        {"name": "Quota", "description": "Free-tier AI usage"},
        {"name": "Dashboard", "description": "Per-user overview"},
        {"name": "Photos", "description": "Signed photo downloads"}
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/photos/{token}": {
            "get": {
                "tags": ["Photos"],
                "summary": "Download a photo via its signed token",
                "produces": ["image/jpeg", "image/png", "image/webp"],
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "photo bytes"}}
            }
        },
        "/quota": {
            "get": {
                "tags": ["Quota"],
                "summary": "Get the caller's free AI usage",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Per-user dashboard counters",
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Start a declutter session",
                "parameters": [{"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CreateSessionRequest"}}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            },
            "get": {
                "tags": ["Sessions"],
                "summary": "List the caller's sessions",
                "parameters": [
                    {"name": "scenario", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get a session with derived counters",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "404": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sessions/{id}/complete": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Mark a session completed",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}, "409": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sessions/{id}/archive": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Archive a session",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}, "409": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sessions/{id}/moving-plan": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Generate the AI moving plan",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "429": {"$ref": "#/responses/Envelope"}}
            },
            "get": {
                "tags": ["Sessions"],
                "summary": "Get the latest generated moving plan",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/sessions/{id}/report": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Download the session report as PDF",
                "produces": ["application/pdf"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "PDF document"}}
            }
        },
        "/sessions/{id}/items": {
            "get": {
                "tags": ["Items"],
                "summary": "List a session's items",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "analysis_status", "in": "query", "type": "string"},
                    {"name": "decision", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            },
            "post": {
                "tags": ["Items"],
                "summary": "Register an item in this session with photos",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "title", "in": "formData", "type": "string", "required": true},
                    {"name": "notes", "in": "formData", "type": "string"},
                    {"name": "photos", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/items": {
            "post": {
                "tags": ["Items"],
                "summary": "Register an item with photos and queue its AI analysis",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "session_id", "in": "formData", "type": "string", "required": true},
                    {"name": "title", "in": "formData", "type": "string", "required": true},
                    {"name": "notes", "in": "formData", "type": "string"},
                    {"name": "photos", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "400": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/items/{id}": {
            "get": {
                "tags": ["Items"],
                "summary": "Get an item with photos",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            },
            "delete": {
                "tags": ["Items"],
                "summary": "Delete an item, its photos and listings",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/items/{id}/analyze": {
            "post": {
                "tags": ["Items"],
                "summary": "Re-queue AI analysis",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"202": {"$ref": "#/responses/Envelope"}, "409": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/items/{id}/decision": {
            "put": {
                "tags": ["Items"],
                "summary": "Record the keep/sell/donate/dispose decision",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SetDecisionRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/items/{id}/price": {
            "post": {
                "tags": ["Items"],
                "summary": "Ask the AI for a resale price band",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}, "502": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/items/{id}/listings": {
            "get": {
                "tags": ["Listings"],
                "summary": "List the listings generated for an item",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/listings/generate": {
            "post": {
                "tags": ["Listings"],
                "summary": "Generate marketplace copy for an item",
                "parameters": [{"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/GenerateListingRequest"}}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}, "502": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/challenges": {
            "post": {
                "tags": ["Challenges"],
                "summary": "Put a task on the declutter calendar",
                "parameters": [{"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ScheduleTaskRequest"}}],
                "responses": {"201": {"$ref": "#/responses/Envelope"}}
            },
            "get": {
                "tags": ["Challenges"],
                "summary": "List calendar tasks",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "completed", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/challenges/export": {
            "get": {
                "tags": ["Challenges"],
                "summary": "Download the calendar as CSV",
                "produces": ["text/csv"],
                "responses": {"200": {"description": "CSV document"}}
            }
        },
        "/challenges/{id}/complete": {
            "post": {
                "tags": ["Challenges"],
                "summary": "Mark a calendar task done",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CompleteTaskRequest"}}
                ],
                "responses": {"200": {"$ref": "#/responses/Envelope"}}
            }
        },
        "/challenges/{id}": {
            "delete": {
                "tags": ["Challenges"],
                "summary": "Remove a calendar task",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "responses": {
        "Envelope": {
            "description": "Standard response envelope",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
        }
    },
    "definitions": {
        "CreateSessionRequest": {
            "type": "object",
            "required": ["scenario"],
            "properties": {
                "scenario": {"type": "string", "enum": ["item-triage", "moving-assistant", "daily-challenge", "quick-listing"]},
                "title": {"type": "string"},
                "move_date": {"type": "string", "format": "date-time"},
                "region": {"type": "string"},
                "trade_method": {"type": "string"},
                "duration_days": {"type": "integer"}
            }
        },
        "SetDecisionRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {
                "decision": {"type": "string", "enum": ["keep", "sell", "donate", "dispose"]},
                "reason": {"type": "string"}
            }
        },
        "GenerateListingRequest": {
            "type": "object",
            "required": ["item_id", "title"],
            "properties": {
                "item_id": {"type": "string"},
                "title": {"type": "string"},
                "condition": {"type": "string"},
                "features": {"type": "string"},
                "tone": {"type": "string"},
                "languages": {"type": "array", "items": {"type": "string"}},
                "channels": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ScheduleTaskRequest": {
            "type": "object",
            "required": ["name", "scheduled_at"],
            "properties": {
                "name": {"type": "string"},
                "scheduled_at": {"type": "string", "format": "date-time"},
                "tip": {"type": "string"}
            }
        },
        "CompleteTaskRequest": {
            "type": "object",
            "properties": {
                "reflection": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
