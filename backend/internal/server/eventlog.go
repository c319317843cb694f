package server

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"artlink/backend/pkg/logger"
)

// EventLog is an append-only JSON-lines record of annotation activity.
// A single mutex serializes writers; the file is opened per append so an
// external rotation never strands a stale handle.
type EventLog struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// NewEventLog creates an event log writing to path.
func NewEventLog(path string) *EventLog {
	return &EventLog{path: path, log: logger.Get()}
}

type logEntry struct {
	Time     time.Time              `json:"time"`
	Username string                 `json:"username"`
	Payload  map[string]interface{} `json:"payload"`
}

// Append records one event. Failures are reported, not swallowed, so the
// boundary can decide whether a lost audit line matters.
func (e *EventLog) Append(username string, payload map[string]interface{}) error {
	line, err := json.Marshal(logEntry{
		Time:     time.Now().UTC(),
		Username: username,
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.OpenFile(e.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}

// handleLogEvent appends a client-side annotation event to the audit log.
func (s *Server) handleLogEvent(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.events == nil {
		c.JSON(http.StatusOK, gin.H{"logged": false})
		return
	}
	if err := s.events.Append(currentUser(c).Username, payload); err != nil {
		s.log.Error("failed to append annotation event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged": true})
}

// logEvent is the server-side variant of handleLogEvent for events the
// handlers themselves emit. Logging never fails a request.
func (s *Server) logEvent(username string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(username, payload); err != nil {
		s.log.Warn("failed to append annotation event", zap.Error(err))
	}
}
