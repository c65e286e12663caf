package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Coverage API",
        "description": "Absence coverage assignment engine for school operations",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Absences", "description": "Absence lifecycle and coverage requests"},
        {"name": "Coverage", "description": "Candidate classification and assignment"},
        {"name": "Distribution", "description": "Single-absence and mode-driven bulk runs"},
        {"name": "Modes", "description": "Operational mode configurations"},
        {"name": "Substitutions", "description": "Substitution ledger and exports"},
        {"name": "Metrics", "description": "Engine observability"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/absences": {
            "get": {
                "tags": ["Absences"],
                "summary": "List absences",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Absences"],
                "summary": "File or update an absence",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAbsenceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"},
                    "412": {"description": "Teacher has no lessons on this date"}
                }
            }
        },
        "/api/v1/absences/{id}": {
            "get": {
                "tags": ["Absences"],
                "summary": "Get absence detail with coverage requests",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Absences"],
                "summary": "Cancel an absence and its pending requests",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"}
                }
            }
        },
        "/api/v1/absences/{id}/distribution": {
            "post": {
                "tags": ["Distribution"],
                "summary": "Plan coverage for one absence",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "commit", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Decision grid", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/coverage/candidates": {
            "get": {
                "tags": ["Coverage"],
                "summary": "Classify substitute candidates for a slot",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "integer"},
                    {"name": "absentTeacherId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Candidate tiers", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/coverage/swap": {
            "get": {
                "tags": ["Coverage"],
                "summary": "Analyze a class-swap alternative for a slot",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Swap proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/coverage/requests/{id}/assign": {
            "post": {
                "tags": ["Coverage"],
                "summary": "Assign a substitute to a coverage request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignSubstituteRequest"}}
                ],
                "responses": {
                    "200": {"description": "Assignment committed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Period lock or concurrent resolution"}
                }
            }
        },
        "/api/v1/coverage/requests/{id}": {
            "delete": {
                "tags": ["Coverage"],
                "summary": "Cancel one coverage request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Cancelled"}
                }
            }
        },
        "/api/v1/distribution/modes": {
            "post": {
                "tags": ["Distribution"],
                "summary": "Run a mode-driven bulk distribution",
                "parameters": [
                    {"name": "async", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ModeDistributionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Decision grid", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Run queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/distribution/runs/{id}": {
            "get": {
                "tags": ["Distribution"],
                "summary": "Fetch a distribution run result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Decision grid", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found or expired"}
                }
            }
        },
        "/api/v1/modes": {
            "get": {
                "tags": ["Modes"],
                "summary": "List mode configurations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Modes"],
                "summary": "Create a mode configuration",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveModeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/modes/{id}": {
            "get": {
                "tags": ["Modes"],
                "summary": "Get a mode configuration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Modes"],
                "summary": "Update a mode configuration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveModeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Modes"],
                "summary": "Delete a mode configuration",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/api/v1/substitutions": {
            "get": {
                "tags": ["Substitutions"],
                "summary": "List substitution ledger entries",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "classId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/substitutions/export": {
            "get": {
                "tags": ["Substitutions"],
                "summary": "Export the substitution ledger",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Signed download URL", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{token}": {
            "get": {
                "tags": ["Substitutions"],
                "summary": "Download a rendered export",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "400": {"description": "Invalid or expired token"}
                }
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Aggregated engine metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateAbsenceRequest": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "date": {"type": "string"},
                "kind": {"type": "string", "enum": ["FULL", "PARTIAL", "EARLY_DEPARTURE", "LATE_ARRIVAL"]},
                "affected_periods": {"type": "array", "items": {"type": "integer"}},
                "reason": {"type": "string"},
                "effective_from": {"type": "string"},
                "effective_to": {"type": "string"}
            },
            "required": ["teacher_id", "date", "kind"]
        },
        "AssignSubstituteRequest": {
            "type": "object",
            "properties": {
                "substitute_id": {"type": "string"}
            },
            "required": ["substitute_id"]
        },
        "ModeDistributionRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "modes": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ConfirmedMode"}
                }
            },
            "required": ["date", "modes"]
        },
        "ConfirmedMode": {
            "type": "object",
            "properties": {
                "mode_id": {"type": "string"},
                "class_ids": {"type": "array", "items": {"type": "string"}},
                "periods": {"type": "array", "items": {"type": "integer"}}
            },
            "required": ["mode_id", "class_ids", "periods"]
        },
        "SaveModeRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "linked_event_type": {"type": "string", "enum": ["EXAM", "TRIP", "RAINY_DAY", "EMERGENCY"]},
                "golden_rules": {"type": "array", "items": {"type": "object"}},
                "ladder": {"type": "array", "items": {"type": "object"}},
                "enabled": {"type": "boolean"}
            },
            "required": ["name", "linked_event_type"]
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
