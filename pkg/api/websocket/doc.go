// Package websocket streams task progress to clients.
//
// Clients connect to /api/v1/tasks/:id/ws and receive the task as JSON each
// time its status or progress changes. The stream ends once the task reaches
// a terminal state.
package websocket
