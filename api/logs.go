package api

import (
	"net/http"

	"github.com/ardufsm/rigd/riglog"
)

func (a *Api) handleGetLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rigLog := a.rig.RigLog()
		if rigLog == nil {
			a.jsonResponse(w, []riglog.Entry{}, http.StatusOK)
			return
		}

		a.jsonResponse(w, rigLog.Entries(), http.StatusOK)
	}
}
