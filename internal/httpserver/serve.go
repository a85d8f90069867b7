package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/goldyy12/files/internal/logutil"
)

type (
	// Options tune the server; zero values fall back to defaults that
	// leave enough room for a slow upload of a full sized file.
	Options struct {
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}
)

func (o Options) withDefaults() Options {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 5 * time.Minute
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Minute
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 30 * time.Second
	}
	return o
}

// Serve listens on bind and serves handler until ctx is cancelled.
func Serve(ctx context.Context, bind string, handler http.Handler, opts Options) error {
	lis, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	return ServeListener(ctx, lis, handler, opts)
}

// ServeListener is Serve over an already open listener, the listener is
// closed when the server stops.
func ServeListener(ctx context.Context, lis net.Listener, handler http.Handler, opts Options) error {
	opts = opts.withDefaults()
	server := http.Server{
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
		ReadHeaderTimeout: time.Minute,
		IdleTimeout:       time.Minute * 5,
		// in-flight requests keep the values of ctx but must survive its
		// cancellation until Shutdown drains them
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	err := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, &server, lis, opts.ShutdownTimeout, err, done)
	<-done
	return <-err
}

func serveInBackground(ctx context.Context, server *http.Server, lis net.Listener, grace time.Duration, firstErr chan<- error, done chan<- struct{}) {
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", lis.Addr().String()).Logger()
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer close(firstErr)
		log.Info().Msg("Starting HTTP server")
		err := server.Serve(lis)
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			return
		} else if err != nil {
			select {
			case firstErr <- err:
			default:
			}
			return
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), grace)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Shutdown did not complete cleanly")
		}
		log.Info().Msg("Shutdown completed")
	}
}
