// Package docs holds the OpenAPI description served by the Swagger UI.
// Keep it in step with the godoc annotations in internal/http/handlers.
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
        "/chats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "List chats",
                "operationId": "listChats",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListChatsResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "consumes": ["application/json", "text/plain"],
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "Import a transcript",
                "operationId": "importChat",
                "parameters": [
                    {"type": "string", "description": "Retry key", "name": "Idempotency-Key", "in": "header"},
                    {"type": "string", "description": "Client identity", "name": "X-Client-ID", "in": "header"},
                    {"description": "Transcript", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.TranscriptRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replayed import", "schema": {"$ref": "#/definitions/domain.Chat"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Chat"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chats/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "Get a chat",
                "operationId": "getChat",
                "parameters": [{"type": "string", "description": "Chat ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Chat"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Chats"],
                "summary": "Delete a chat with its messages and bookmarks",
                "operationId": "deleteChat",
                "parameters": [{"type": "string", "description": "Chat ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chats/{id}/export": {
            "get": {
                "produces": ["text/plain"],
                "tags": ["Chats"],
                "summary": "Export the original transcript",
                "operationId": "exportChat",
                "parameters": [{"type": "string", "description": "Chat ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Transcript", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chats/{id}/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "Chat statistics",
                "operationId": "chatStats",
                "parameters": [{"type": "string", "description": "Chat ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.ChatStats"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chats/{id}/activate": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Chats"],
                "summary": "Make a chat active",
                "operationId": "activateChat",
                "parameters": [{"type": "string", "description": "Chat ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StateResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/chats/{id}/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "List a chat's messages",
                "operationId": "listMessages",
                "parameters": [
                    {"type": "string", "description": "Chat ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 100, "description": "Page size (1..1000)", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "Offset", "name": "offset", "in": "query"},
                    {"type": "boolean", "description": "Force a reload", "name": "refresh", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessagesPage"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Search messages",
                "operationId": "searchMessages",
                "parameters": [
                    {"type": "string", "description": "Query", "name": "q", "in": "query", "required": true},
                    {"type": "string", "description": "Restrict to one chat", "name": "chat_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SearchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/messages/{id}/bookmark": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Bookmarks"],
                "summary": "Bookmark status of a message",
                "operationId": "getBookmark",
                "parameters": [{"type": "string", "description": "Message ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.BookmarkStatus"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Bookmarks"],
                "summary": "Toggle a bookmark",
                "operationId": "toggleBookmark",
                "parameters": [
                    {"type": "string", "description": "Message ID", "name": "id", "in": "path", "required": true},
                    {"description": "Optional chat check and note", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/handlers.ToggleBookmarkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.BookmarkStatus"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/bookmarks": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Bookmarks"],
                "summary": "List bookmarks",
                "operationId": "listBookmarks",
                "parameters": [{"type": "string", "description": "Restrict to one chat", "name": "chat_id", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.BookmarksResponse"}}
                }
            }
        },
        "/transcripts/validate": {
            "post": {
                "consumes": ["application/json", "text/plain"],
                "produces": ["application/json"],
                "tags": ["Transcripts"],
                "summary": "Validate a transcript without importing it",
                "operationId": "validateTranscript",
                "parameters": [{"description": "Transcript", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.TranscriptRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/parser.Validation"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/transcripts/preview": {
            "post": {
                "consumes": ["application/json", "text/plain"],
                "produces": ["application/json"],
                "tags": ["Transcripts"],
                "summary": "Preview the head of a transcript",
                "operationId": "previewTranscript",
                "parameters": [{"description": "Transcript", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.TranscriptRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/parser.PreviewResult"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/state": {
            "get": {
                "produces": ["application/json"],
                "tags": ["State"],
                "summary": "Archive state snapshot",
                "operationId": "getState",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StateResponse"}}
                }
            }
        },
        "/state/search": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["State"],
                "summary": "Set the live message filter",
                "operationId": "setSearchQuery",
                "parameters": [{"description": "Query", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SearchQueryRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Chat": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "participants": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"},
                "last_message_at": {"type": "string"},
                "message_count": {"type": "integer"}
            }
        },
        "domain.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "chat_id": {"type": "string"},
                "timestamp": {"type": "string"},
                "sender": {"type": "string"},
                "content": {"type": "string"},
                "message_index": {"type": "integer"}
            }
        },
        "domain.Bookmark": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "message_id": {"type": "string"},
                "chat_id": {"type": "string"},
                "created_at": {"type": "string"},
                "note": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "chat_not_found"},
                "message": {"type": "string", "example": "chat not found"}
            }
        },
        "handlers.TranscriptRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string", "example": "2/24/24, 21:56 - Alice: Hello there!"}
            }
        },
        "handlers.ListChatsResponse": {
            "type": "object",
            "properties": {
                "chats": {"type": "array", "items": {"$ref": "#/definitions/domain.Chat"}},
                "total": {"type": "integer"}
            }
        },
        "handlers.MessagesPage": {
            "type": "object",
            "properties": {
                "chat_id": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "total": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "handlers.SearchResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "chat_id": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "total": {"type": "integer"}
            }
        },
        "handlers.ToggleBookmarkRequest": {
            "type": "object",
            "properties": {
                "chat_id": {"type": "string"},
                "note": {"type": "string", "example": "remember this"}
            }
        },
        "handlers.BookmarkStatus": {
            "type": "object",
            "properties": {
                "message_id": {"type": "string"},
                "bookmarked": {"type": "boolean"}
            }
        },
        "handlers.BookmarksResponse": {
            "type": "object",
            "properties": {
                "bookmarks": {"type": "array", "items": {"$ref": "#/definitions/services.BookmarkedMessage"}},
                "total": {"type": "integer"}
            }
        },
        "handlers.SearchQueryRequest": {
            "type": "object",
            "properties": {
                "query": {"type": "string", "example": "dinner"}
            }
        },
        "handlers.StateResponse": {
            "type": "object",
            "properties": {
                "chats": {"type": "array", "items": {"$ref": "#/definitions/domain.Chat"}},
                "active_chat_id": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "bookmarks": {"type": "object", "additionalProperties": {"type": "boolean"}},
                "loading": {"type": "boolean"},
                "search_query": {"type": "string"},
                "current_chat": {"$ref": "#/definitions/domain.Chat"},
                "filtered_messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "current_chat_bookmarks": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}}
            }
        },
        "services.BookmarkedMessage": {
            "type": "object",
            "properties": {
                "bookmark": {"$ref": "#/definitions/domain.Bookmark"},
                "message": {"$ref": "#/definitions/domain.Message"}
            }
        },
        "services.ChatStats": {
            "type": "object",
            "properties": {
                "chat_id": {"type": "string"},
                "name": {"type": "string"},
                "total_messages": {"type": "integer"},
                "sender_counts": {"type": "object", "additionalProperties": {"type": "integer"}},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "day_span": {"type": "integer"},
                "average_per_day": {"type": "number"}
            }
        },
        "parser.Message": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "sender": {"type": "string"},
                "content": {"type": "string"}
            }
        },
        "parser.Validation": {
            "type": "object",
            "properties": {
                "is_valid": {"type": "boolean"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "parser.PreviewResult": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/parser.Message"}},
                "participants": {"type": "array", "items": {"type": "string"}},
                "estimated_messages": {"type": "integer"}
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
	Title:            "Chat Archive API",
	Description:      "Import, browse, search and bookmark exported chat transcripts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
