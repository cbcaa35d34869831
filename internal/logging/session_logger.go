package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionLogger writes the transcript of one repair session to its own file.
// All methods are safe on a nil receiver, which discards the output.
type SessionLogger struct {
	sessionID string
	path      string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// StartSessionLogging creates dir if needed and opens a log file for the session.
func StartSessionLogging(dir, sessionID string) (*SessionLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(dir, fmt.Sprintf("session_%s_%s.log", sessionID, timestamp))

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &SessionLogger{
		sessionID: sessionID,
		path:      logPath,
		logFile:   logFile,
		startTime: time.Now(),
	}
	logger.writeHeader()

	return logger, nil
}

// Path returns the log file location.
func (s *SessionLogger) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Log writes a message to the session log
func (s *SessionLogger) Log(format string, args ...interface{}) {
	if s == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	message := fmt.Sprintf(format, args...)
	s.write(message)

	log.Debug().Str("session", s.sessionID).Msg(message)
}

func (s *SessionLogger) write(message string) {
	if s.logFile == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(s.startTime).Round(time.Millisecond)
	s.logFile.WriteString(fmt.Sprintf("[%s] [+%v] %s\n", timestamp, elapsed, message))
	s.logFile.Sync()
}

func (s *SessionLogger) writeRaw(text string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.logFile == nil {
		return
	}
	s.logFile.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		s.logFile.WriteString("\n")
	}
}

// LogSection writes a section header to the log
func (s *SessionLogger) LogSection(title string) {
	if s == nil {
		return
	}

	separator := strings.Repeat("=", 80)
	s.Log("%s", separator)
	s.Log("= %s", title)
	s.Log("%s", separator)
}

// LogTransition records a state change of the repair state machine.
func (s *SessionLogger) LogTransition(from, to string) {
	s.Log("state %s -> %s", from, to)
}

// LogBlock writes a labelled multi-line payload verbatim.
func (s *SessionLogger) LogBlock(label, content string) {
	if s == nil {
		return
	}

	s.Log("--- %s START (%d characters) ---", label, len(content))
	s.writeRaw(content)
	s.Log("--- %s END ---", label)
}

// LogRequest logs an oracle request
func (s *SessionLogger) LogRequest(model, system, user string) {
	if s == nil {
		return
	}

	s.LogSection("ORACLE REQUEST")
	s.Log("Model: %s", model)
	s.LogBlock("SYSTEM", system)
	s.LogBlock("PROMPT", user)
}

// LogResponse logs a raw oracle response
func (s *SessionLogger) LogResponse(response string) {
	if s == nil {
		return
	}

	s.LogSection("ORACLE RESPONSE")
	s.LogBlock("RESPONSE", response)
}

// LogError logs an error
func (s *SessionLogger) LogError(context string, err error) {
	s.Log("ERROR in %s: %v", context, err)
}

// Close finalizes the log file
func (s *SessionLogger) Close() {
	if s == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.logFile != nil {
		s.write(fmt.Sprintf("Session logging completed. Total duration: %v", time.Since(s.startTime).Round(time.Millisecond)))
		s.logFile.Close()
		s.logFile = nil
	}
}

func (s *SessionLogger) writeHeader() {
	header := fmt.Sprintf(`REPAIR SESSION LOG
Session ID: %s
Start Time: %s
Log Format: [HH:MM:SS.mmm] [+duration] message

`, s.sessionID, s.startTime.Format("2006-01-02 15:04:05"))

	s.logFile.WriteString(header)
	s.logFile.Sync()
}
