package cmd

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"heatstore/server"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServeCmd 实时推送服务
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live runs over websocket, with /metrics and /chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return true
		}
		ctx, cancel := signalContext()
		defer cancel()
		return server.NewServer(cfg, upgrader).Serve(ctx)
	},
}

func init() {
	ServeCmd.Flags().String("addr", "", "listen address, overrides [server] addr")
}
