package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ammoru/pulseroom/config"
	deps "github.com/ammoru/pulseroom/internal/debs"
	"github.com/go-chi/chi/v5"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:        fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout: defaultIdleTimeout,
		ReadTimeout: defaultReadTimeout,
		// No write timeout: the websocket endpoint holds its
		// connection open for the life of the subscription.
		Handler: api.setUpServerHandler(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) setUpServerHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(RequestTracing)

	mux.Get("/",
		func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("PulseRoom API"))
		},
	)

	mux.Mount("/api/polls", api.PollRoutes())
	mux.Get("/ws", api.HandlePollSocket)

	return mux
}

func (api *API) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return api.Server.Shutdown(ctx)
}
