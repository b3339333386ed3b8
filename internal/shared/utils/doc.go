// Package utils holds input validation shared by the HTTP and websocket
// surfaces.
package utils
