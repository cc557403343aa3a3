// Package handlers implements the HTTP API layer for inventoryd.
//
// This package contains HTTP handlers that expose the inventory's
// functionality via a RESTful API. Handlers delegate business logic to the
// services layer and focus on request validation, response formatting, and
// HTTP semantics.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     HTTP Request (Gin)                          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Handler (this package)                     │
//	│  - Request validation                                           │
//	│  - Parameter parsing                                            │
//	│  - Error mapping to HTTP status codes                           │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Services Layer                             │
//	│  Inventory │ analytics.Analyze │ analytics.Suggest              │
//	└─────────────────────────────────────────────────────────────────┘
//
// # API Endpoints
//
// Device Endpoints (devices.go):
//
//	┌────────┬──────────────────────────────┬────────────────────────────────────┐
//	│ Method │ Endpoint                     │ Description                        │
//	├────────┼──────────────────────────────┼────────────────────────────────────┤
//	│ GET    │ /devices                     │ List devices (filters, pagination) │
//	│ GET    │ /devices/{id}/history        │ Discovery history, newest first    │
//	│ POST   │ /devices/{id}/decommission   │ Retire a device                    │
//	│ POST   │ /devices/{id}/reactivate     │ Return a device to the fleet       │
//	│ POST   │ /discoveries                 │ Ingest a batch of discoveries      │
//	└────────┴──────────────────────────────┴────────────────────────────────────┘
//
// Analytics Endpoints (analytics.go):
//
//	┌────────┬──────────────────┬──────────────────────────────────────┐
//	│ Method │ Endpoint         │ Description                          │
//	├────────┼──────────────────┼──────────────────────────────────────┤
//	│ GET    │ /topology        │ Fleet-wide topology summary          │
//	│ GET    │ /recommendations │ Deployment placement suggestions     │
//	└────────┴──────────────────┴──────────────────────────────────────┘
//
// # Error Mapping
//
// Service errors are mapped to HTTP status codes by reason:
//
//	┌──────────────────────────┬──────────────────────────┐
//	│ Reason                   │ Status                   │
//	├──────────────────────────┼──────────────────────────┤
//	│ device not found         │ 404 Not Found            │
//	│ storage unavailable      │ 503 Service Unavailable  │
//	│ constraint violation     │ 409 Conflict             │
//	│ anything else            │ 500 Internal Server Error│
//	└──────────────────────────┴──────────────────────────┘
//
// A discovery batch with partial failures returns 207 Multi-Status with one
// result per input document, in input order.
package handlers
