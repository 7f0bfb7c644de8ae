package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumina-iot/lumina-core/internal/device"
)

// handleListDevices returns all known devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// handleGetDevice returns a single device by device_id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetColor commands a colour change: POST /devices/{id}/color?r=&g=&b=
func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	red, err := queryInt(r, "r")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	green, err := queryInt(r, "g")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	blue, err := queryInt(r, "b")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	d, err := s.commands.SetColor(r.Context(), chi.URLParam(r, "id"),
		device.Color{R: red, G: green, B: blue})
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetBrightness commands a brightness change:
// POST /devices/{id}/brightness?brightness=
func (s *Server) handleSetBrightness(w http.ResponseWriter, r *http.Request) {
	brightness, err := queryInt(r, "brightness")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	d, err := s.commands.SetBrightness(r.Context(), chi.URLParam(r, "id"), brightness)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetEffect commands an effect change: POST /devices/{id}/effect?effect=
func (s *Server) handleSetEffect(w http.ResponseWriter, r *http.Request) {
	effect := r.URL.Query().Get("effect")
	if effect == "" {
		writeBadRequest(w, "effect query parameter is required")
		return
	}

	d, err := s.commands.SetEffect(r.Context(), chi.URLParam(r, "id"), effect)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetPower commands power on/off: POST /devices/{id}/power?power=
func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("power")
	if raw == "" {
		writeBadRequest(w, "power query parameter is required")
		return
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("power parameter %q is not a boolean", raw))
		return
	}

	d, err := s.commands.SetPower(r.Context(), chi.URLParam(r, "id"), on)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSetName renames a device: POST /devices/{id}/name?friendly_name=
// An absent or blank name clears the friendly name.
func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("friendly_name")

	d, err := s.commands.SetName(r.Context(), chi.URLParam(r, "id"), name)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// queryInt parses a required integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%s query parameter is required", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s parameter %q is not an integer", key, raw)
	}
	return v, nil
}
