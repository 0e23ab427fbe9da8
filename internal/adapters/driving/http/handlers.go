package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driving"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 4 << 20

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// SettingsResponse is the settings view, the API key itself is never returned
type SettingsResponse struct {
	*domain.Settings
	APIKeyConfigured bool `json:"api_key_configured"`
}

// SynchronizationResponse reports a started pass
type SynchronizationResponse struct {
	Status     string `json:"status" example:"started"`
	Operations int    `json:"operations"`
}

// CompletionStatus is returned by the polling endpoint once a pass is complete
type CompletionStatus struct {
	Complete bool `json:"complete"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings PostgreSQL and, when configured, Redis
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "dependency", "postgres", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "dependency", "redis", "error", err)
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleIssueToken godoc
// @Summary      Issue admin token
// @Description  Exchange the administrator credentials for a bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Admin credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Router       /auth/token [post]
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.IssueToken(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "username and password are required")
		case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			s.logger.Error("token issue failed", "error", err)
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Settings endpoints

// handleGetSettings godoc
// @Summary      Get synchronization settings
// @Tags         Settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SettingsResponse
// @Router       /settings [get]
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsService.Get(r.Context())
	if err != nil {
		s.logger.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(settings))
}

// handleUpdateSettings godoc
// @Summary      Update synchronization settings
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.UpdateSettingsRequest  true  "Partial settings"
// @Success      200      {object}  SettingsResponse
// @Failure      400      {object}  ErrorResponse
// @Router       /settings [put]
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := s.settingsService.Update(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrSynchronizationFailed), errors.Is(err, domain.ErrRemoteUnavailable):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			s.logger.Error("failed to update settings", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update settings")
		}
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(settings))
}

func (s *Server) handleAccountInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.settingsService.AccountInfo(r.Context())
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleAvailableLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.settingsService.AvailableLists(r.Context())
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	if lists == nil {
		lists = []domain.List{}
	}
	writeJSON(w, http.StatusOK, lists)
}

// Ledger endpoints

// handleListRecords godoc
// @Summary      List pending synchronization records
// @Description  Both entity_type and operation select one drain group, otherwise every record is listed
// @Tags         Ledger
// @Produce      json
// @Security     BearerAuth
// @Param        entity_type  query     string  false  "Entity type"
// @Param        operation    query     string  false  "Operation type"
// @Success      200          {array}   domain.SynchronizationRecord
// @Router       /records [get]
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(r.URL.Query().Get("entity_type"))
	op := domain.OperationType(r.URL.Query().Get("operation"))

	if entityType != "" && !entityType.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown entity type %q", entityType))
		return
	}
	if op != "" && !op.IsStorable() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown operation %q", op))
		return
	}

	var (
		records []*domain.SynchronizationRecord
		err     error
	)
	if entityType != "" && op != "" {
		records, err = s.ledger.DrainPending(r.Context(), entityType, op)
	} else {
		records, err = s.ledger.Pending(r.Context())
	}
	if err != nil {
		s.logger.Error("failed to list records", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	result := make([]*domain.SynchronizationRecord, 0, len(records))
	for _, rec := range records {
		if entityType == "" || rec.EntityType == entityType {
			result = append(result, rec)
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// handleClearRecords removes the records of one entity type, or all of them
func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(r.URL.Query().Get("entity_type"))

	var (
		removed int64
		err     error
	)
	switch {
	case entityType == "":
		removed, err = s.ledger.ClearAll(r.Context())
	case !entityType.IsValid():
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown entity type %q", entityType))
		return
	default:
		removed, err = s.ledger.ClearByEntityType(r.Context(), entityType)
	}
	if err != nil {
		s.logger.Error("failed to clear records", "entity_type", entityType, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// handleRecordChanges godoc
// @Summary      Report entity changes
// @Description  Accepts one change event or an array of them
// @Tags         Ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  map[string]int
// @Failure      400  {object}  ErrorResponse
// @Router       /changes [post]
func (s *Server) handleRecordChanges(w http.ResponseWriter, r *http.Request) {
	events, err := decodeEvents(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for i, event := range events {
		if err := s.observer.Observe(r.Context(), event); err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("event %d: %v", i, err))
				return
			}
			s.logger.Error("failed to record change", "event", event.String(), "error", err)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("event %d could not be recorded", i))
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(events)})
}

// Synchronization endpoints

// handleTriggerSynchronization godoc
// @Summary      Start a manual synchronization
// @Description  Rebuilds the ledger from the catalog and dispatches it. Only reports whether the pass started.
// @Tags         Synchronization
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  SynchronizationResponse
// @Failure      400  {object}  ErrorResponse  "Missing API key or list"
// @Failure      502  {object}  ErrorResponse  "Pass did not start"
// @Router       /synchronization [post]
func (s *Server) handleTriggerSynchronization(w http.ResponseWriter, r *http.Request) {
	count, err := s.synchronizer.StartManual(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) || errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "synchronization did not start")
		return
	}
	writeJSON(w, http.StatusAccepted, SynchronizationResponse{Status: "started", Operations: count})
}

// handleSynchronizationStatus godoc
// @Summary      Poll manual synchronization completion
// @Tags         Synchronization
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CompletionStatus
// @Success      204  "Still running"
// @Router       /synchronization/status [get]
func (s *Server) handleSynchronizationStatus(w http.ResponseWriter, r *http.Request) {
	complete, err := s.synchronizer.IsComplete(r.Context())
	if err != nil {
		s.logger.Error("failed to read synchronization status", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read synchronization status")
		return
	}
	if !complete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, CompletionStatus{Complete: true})
}

func settingsResponse(settings *domain.Settings) SettingsResponse {
	return SettingsResponse{Settings: settings, APIKeyConfigured: settings.HasAPIKey()}
}

// writeRemoteError maps a failed remote lookup to a status code
func writeRemoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// decodeEvents accepts a single event object or an array of events
func decodeEvents(r *http.Request) ([]*domain.ChangeEvent, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}

	if body[0] == '[' {
		var events []*domain.ChangeEvent
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, err
		}
		for _, e := range events {
			if e == nil {
				return nil, errors.New("null event")
			}
		}
		return events, nil
	}

	var event domain.ChangeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return []*domain.ChangeEvent{&event}, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
