package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/fbanim/bannerd/internal/bridge"
	"github.com/fbanim/bannerd/internal/config"
	"github.com/fbanim/bannerd/internal/logging"
)

const shutdownTimeout = 5 * time.Second

func bridgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "bridge",
		Usage: "forward control commands received over WebSocket to the command pipe",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "`HOST:PORT` to serve /control on (default 127.0.0.1:8090)",
			},
			&cli.StringFlag{
				Name:  "pipe",
				Usage: "command pipe to write to (defaults to --command-pipe)",
			},
		},
		Action: bridgeAction,
	}
}

func bridgeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, "")
	if err != nil {
		return err
	}

	server, err := createServer(cfg)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			logging.Warn("Bridge shutdown: %v", err)
		}
	}()

	logging.Info("Bridge listening on %s, forwarding to %s", server.Addr, cfg.Bridge.Pipe)
	return startServer(server)
}

// createServer resolves the pipe the bridge writes to and wraps the control
// endpoint in the logging and header middleware.
func createServer(cfg *config.Config) (*http.Server, error) {
	bc := cfg.Bridge
	if bc.Pipe == "" {
		bc.Pipe = cfg.Animation.CommandPipe
	}
	if bc.Pipe == "" {
		return nil, cli.Exit("bridge needs --pipe or --command-pipe", 2)
	}
	cfg.Bridge.Pipe = bc.Pipe

	server := bridge.NewServer(bc)
	server.Handler = requestLoggingMiddleware(securityHeadersMiddleware(server.Handler))
	return server, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug("%s %s %s %s", r.RemoteAddr, r.Method, r.URL.Path, time.Since(start))
	})
}

func startServer(server *http.Server) error {
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
