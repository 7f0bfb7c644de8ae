package api

import (
	"net/http"
)

// handleHealth returns the service health and broker connectivity.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"mqtt_connected": s.mqttConnected(),
	})
}

// handleDebug compares the in-memory registry against the durable
// store and reports broker details. Divergence between the two device
// lists points at a missed write-through.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	memory := s.registry.List()
	memoryIDs := make([]string, 0, len(memory))
	for _, d := range memory {
		memoryIDs = append(memoryIDs, d.DeviceID)
	}

	resp := map[string]any{
		"memory": map[string]any{
			"count":      len(memoryIDs),
			"device_ids": memoryIDs,
		},
		"broker": map[string]any{
			"address":   s.broker,
			"connected": s.mqttConnected(),
		},
		"version": s.version,
	}

	if s.repo != nil {
		stored, err := s.repo.List(r.Context())
		if err != nil {
			s.logger.Error("debug store listing failed", "error", err)
			writeInternalError(w, "store listing failed")
			return
		}
		storedIDs := make([]string, 0, len(stored))
		for _, d := range stored {
			storedIDs = append(storedIDs, d.DeviceID)
		}
		resp["database"] = map[string]any{
			"count":      len(storedIDs),
			"device_ids": storedIDs,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
