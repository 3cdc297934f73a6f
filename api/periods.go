package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ardufsm/rigd/actuator"
	"github.com/ardufsm/rigd/rig"
)

type postPeriodRequest struct {
	Duration string            `json:"duration"`
	Interval string            `json:"interval"`
	Actions  []actuator.Action `json:"actions"`
}

type postPeriodResponse struct {
	Duration string `json:"duration"`
	Interval string `json:"interval"`
}

const defaultInterval = 10 * time.Millisecond

func (a *Api) handlePostPeriod() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := postPeriodRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		period := rig.Period{
			Interval: defaultInterval,
			Actions:  req.Actions,
		}

		period.Duration, err = time.ParseDuration(req.Duration)
		if err != nil || period.Duration <= 0 {
			a.jsonError(w, "invalid duration", http.StatusBadRequest)
			return
		}

		if req.Interval != "" {
			period.Interval, err = time.ParseDuration(req.Interval)
			if err != nil || period.Interval <= 0 {
				a.jsonError(w, "invalid interval", http.StatusBadRequest)
				return
			}
		}

		if len(period.Actions) > len(a.rig.Devices()) {
			a.jsonError(w, rig.ErrTooManyActions.Error(), http.StatusBadRequest)
			return
		}

		go func() {
			err := a.rig.RunPeriod(period)
			if err != nil {
				a.log.Errorf("Could not run period: %v", err)
			}
		}()

		a.jsonResponse(w, &postPeriodResponse{
			Duration: period.Duration.String(),
			Interval: period.Interval.String(),
		}, http.StatusAccepted)
	}
}

func (a *Api) handlePostPeriodEnd() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.rig.EndPeriod()

		a.jsonResponse(w, a.rig.Devices(), http.StatusOK)
	}
}
