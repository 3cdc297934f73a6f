// Package api serves the rig over HTTP.
package api

import (
	"net"
	"net/http"

	"github.com/ardufsm/rigd/rig"
	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
)

// compile time check for protocol compatibility
var _ rig.Api = (*Api)(nil)

type Config struct {
	Log Logger
}

type Api struct {
	rig    *rig.Rig
	router *mux.Router
	log    Logger
}

func New(config *Config) *Api {
	api := &Api{
		router: mux.NewRouter(),
	}

	if config.Log != nil {
		api.log = config.Log
	} else {
		api.log = noopLogger{}
	}

	api.router.Handle("/api/v1/devices", api.handleGetDevices()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/devices/{id}/actions", api.handlePostAction()).Methods(http.MethodPost)

	api.router.Handle("/api/v1/ticks", api.handlePostTick()).Methods(http.MethodPost)

	api.router.Handle("/api/v1/periods", api.handlePostPeriod()).Methods(http.MethodPost)
	api.router.Handle("/api/v1/periods/end", api.handlePostPeriodEnd()).Methods(http.MethodPost)

	api.router.Handle("/api/v1/events", api.handleGetEvents()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/logs", api.handleGetLogs()).Methods(http.MethodGet)

	api.router.Handle("/api/v1/profile", api.handleGetProfile()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/profile", api.handlePutProfile()).Methods(http.MethodPut)

	return api
}

func (a *Api) SetRig(rig *rig.Rig) {
	a.rig = rig
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *Api) Serve(l net.Listener) error {
	err := http.Serve(l, a.router)
	if err != nil {
		return errors.Errorf("Unable to serve api: %v", err)
	}

	return nil
}
