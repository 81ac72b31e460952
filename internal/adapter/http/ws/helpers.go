package wshandler

import (
	ws "github.com/navatransportes/nava-fleet/pkg/wsHub"
)

func errorResponse(conn *ws.Conn, message any) error {
	return conn.Send(
		map[string]any{
			"type":  "error",
			"error": message,
		})
}
