package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ardufsm/rigd/actuator"
	"github.com/ardufsm/rigd/rig"
	"github.com/gorilla/mux"
)

type postActionRequest struct {
	Action actuator.Action `json:"action"`
}

type postTickRequest struct {
	Actions []actuator.Action `json:"actions"`
}

func (a *Api) handleGetDevices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.jsonResponse(w, a.rig.Devices(), http.StatusOK)
	}
}

func (a *Api) handlePostAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			a.jsonError(w, "invalid device id", http.StatusBadRequest)
			return
		}

		req := postActionRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = a.rig.Trigger(id, req.Action)
		if err == rig.ErrUnknownDevice {
			a.jsonError(w, err.Error(), http.StatusNotFound)
			return
		} else if err != nil {
			a.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		a.jsonResponse(w, a.rig.Devices()[id], http.StatusOK)
	}
}

func (a *Api) handlePostTick() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := postTickRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = a.rig.Tick(req.Actions)
		if err == rig.ErrTooManyActions {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		} else if err != nil {
			a.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		a.jsonResponse(w, a.rig.Devices(), http.StatusOK)
	}
}
