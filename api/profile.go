package api

import (
	"encoding/json"
	"net/http"

	"github.com/ardufsm/rigd/rigdb"
)

func (a *Api) handleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db := a.rig.DB()
		if db == nil {
			a.jsonError(w, "no database", http.StatusServiceUnavailable)
			return
		}

		profile, err := db.GetProfile()
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if profile == nil {
			a.jsonError(w, "no profile stored", http.StatusNotFound)
			return
		}

		a.jsonResponse(w, profile, http.StatusOK)
	}
}

// The stored profile is applied when the daemon starts.
func (a *Api) handlePutProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db := a.rig.DB()
		if db == nil {
			a.jsonError(w, "no database", http.StatusServiceUnavailable)
			return
		}

		profile := &rigdb.Profile{}
		err := json.NewDecoder(r.Body).Decode(profile)
		if err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := profile.Validate(); err != nil {
			a.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := db.SetProfile(profile); err != nil {
			a.jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		a.log.Infof("Stored profile with %v devices", len(profile.Devices))

		a.jsonResponse(w, profile, http.StatusOK)
	}
}
