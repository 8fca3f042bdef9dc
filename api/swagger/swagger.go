package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Spa Scheduler API",
        "description": "Staff and room assignment engine for spa bookings",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Assignments", "description": "Candidate lookup, assignment commit and cancellation"},
        {"name": "Availability", "description": "Shift submissions and reviews"},
        {"name": "Roster", "description": "Daily roster and exports"},
        {"name": "Admin", "description": "Maintenance operations"}
    ],
    "parameters": {
        "ActorHeader": {"name": "X-Actor-ID", "in": "header", "type": "string", "description": "Identity recorded on audit entries"},
        "BookingID": {"name": "id", "in": "path", "required": true, "type": "integer"}
    },
    "paths": {
        "/bookings/{id}/candidates": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignable staff and rooms for a booking",
                "parameters": [{"$ref": "#/parameters/BookingID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Booking does not accept assignments", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Booking not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/assignment": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Assign staff and an optional room to a booking",
                "parameters": [
                    {"$ref": "#/parameters/BookingID"},
                    {"$ref": "#/parameters/ActorHeader"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CommitAssignmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "Assigned", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Staff or room already booked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Staff or room not eligible", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bookings/{id}/cancel": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Cancel a booking and release its staff and room",
                "parameters": [
                    {"$ref": "#/parameters/BookingID"},
                    {"$ref": "#/parameters/ActorHeader"}
                ],
                "responses": {
                    "200": {"description": "Cancelled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List shift requests",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated: pending, approved, rejected"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "staff_id", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Submit an availability window for review",
                "parameters": [
                    {"$ref": "#/parameters/ActorHeader"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ShiftRequestPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/review": {
            "post": {
                "tags": ["Availability"],
                "summary": "Approve or reject pending shift requests",
                "parameters": [
                    {"$ref": "#/parameters/ActorHeader"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-id outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or missing reject notes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/shifts": {
            "post": {
                "tags": ["Availability"],
                "summary": "Create an approved shift on behalf of a staff member",
                "parameters": [
                    {"$ref": "#/parameters/ActorHeader"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ShiftRequestPayload"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/roster": {
            "get": {
                "tags": ["Roster"],
                "summary": "Daily roster of committed assignments",
                "produces": ["application/json", "text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/admin/index/rebuild": {
            "post": {
                "tags": ["Admin"],
                "summary": "Rebuild the in-memory conflict index from the database",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CommitAssignmentRequest": {
            "type": "object",
            "required": ["staff_id"],
            "properties": {
                "staff_id": {"type": "integer"},
                "room_id": {"type": "integer"}
            }
        },
        "ShiftRequestPayload": {
            "type": "object",
            "required": ["staff_id", "schedule_date", "start_time", "end_time"],
            "properties": {
                "staff_id": {"type": "integer"},
                "schedule_date": {"type": "string", "format": "date"},
                "start_time": {"type": "string", "example": "10:00"},
                "end_time": {"type": "string", "example": "14:00"},
                "notes": {"type": "string", "maxLength": 500}
            }
        },
        "ReviewAvailabilityRequest": {
            "type": "object",
            "required": ["schedule_ids", "action"],
            "properties": {
                "schedule_ids": {"type": "array", "items": {"type": "integer"}},
                "action": {"type": "string", "enum": ["approve", "reject"]},
                "notes": {"type": "string", "maxLength": 500, "description": "Required when rejecting"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
