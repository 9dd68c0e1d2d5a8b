// Package websocket streams run events to browser clients. Hub implements
// the run manager's WebSocketHub; Handler upgrades HTTP requests and
// attaches the connection to the hub.
package websocket
