package portal

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/thsensor/internal/settings"
)

// staticMaxAge is the cache lifetime of static assets, in seconds.
const staticMaxAge = "86400"

// redacted replaces secrets in settings responses.
const redacted = "********"

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>thsensor {{.NodeID}}</title></head>
<body>
<h1>thsensor {{.NodeID}}</h1>
<p>{{if .Configured}}Configured{{else}}Not configured{{end}}</p>
<form id="settings">
<textarea name="doc" rows="20" cols="60">{{.Settings}}</textarea>
<button type="submit">Save</button>
</form>
<script>
document.getElementById("settings").addEventListener("submit", function (e) {
  e.preventDefault();
  fetch("` + settingsPath + `", {method: "POST", headers: {"Content-Type": "application/json"},
    body: e.target.doc.value}).then(function (r) { alert(r.ok ? "Saved" : "Rejected: " + r.status); });
});
</script>
</body>
</html>
`))

type indexData struct {
	NodeID     string
	Configured bool
	Settings   string
}

// handleIndex renders the settings page.
func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	cur, ok := s.current()
	if !ok {
		cur = settings.Default()
	}
	doc, err := json.MarshalIndent(redact(cur), "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, errCodeInternal, "encoding settings")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, indexData{
		NodeID:     s.nodeID,
		Configured: ok,
		Settings:   string(doc),
	}); err != nil {
		s.logger.Warn("rendering index failed", "error", err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatic serves files below the configured static directory.
// Paths containing ".." are rejected.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	if s.cfg.StaticDir == "" || path == "" || strings.Contains(path, "..") {
		writeError(w, http.StatusNotFound, errCodeNotFound, "not found")
		return
	}

	w.Header().Set("Cache-Control", "max-age="+staticMaxAge)
	http.ServeFile(w, r, filepath.Join(s.cfg.StaticDir, filepath.FromSlash(path)))
}

type statusResponse struct {
	NodeID     string `json:"node_id"`
	Configured bool   `json:"configured"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	_, ok := s.current()
	writeJSON(w, http.StatusOK, statusResponse{NodeID: s.nodeID, Configured: ok})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	cur, ok := s.current()
	if !ok {
		writeError(w, http.StatusNotFound, errCodeNotFound, "node is not configured")
		return
	}
	writeJSON(w, http.StatusOK, redact(cur))
}

// handlePostSettings validates a settings document and queues it for the
// Configuration state.
func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		if errBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, errCodeBadRequest, "settings document too large")
			return
		}
		writeError(w, http.StatusBadRequest, errCodeBadRequest, "invalid JSON body")
		return
	}

	next, err := settings.Decode(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, errCodeValidation, err.Error())
		return
	}
	if err := s.keepSecrets(&next); err != nil {
		s.logger.Error("hashing admin password failed", "error", err)
		writeError(w, http.StatusInternalServerError, errCodeInternal, "cannot store admin password")
		return
	}

	select {
	case s.submissions <- Submission{Settings: next}:
		s.logger.Info("settings submitted",
			"department", next.Department,
			"room", next.Room,
		)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	default:
		writeError(w, http.StatusServiceUnavailable, errCodeUnavailable, "a submission is already pending")
	}
}

// keepSecrets hashes a new admin password and restores secrets that came
// back redacted from the settings form.
func (s *Server) keepSecrets(next *settings.Settings) error {
	cur, ok := s.current()
	if next.AdminPassword == redacted {
		next.AdminPassword = ""
		if ok {
			next.AdminPassword = cur.AdminPassword
		}
	}
	if next.WiFi.Passwd == redacted {
		next.WiFi.Passwd = ""
		if ok {
			next.WiFi.Passwd = cur.WiFi.Passwd
		}
	}
	if next.MQTT.Password == redacted {
		next.MQTT.Password = ""
		if ok {
			next.MQTT.Password = cur.MQTT.Password
		}
	}

	if next.AdminPassword != "" && !IsHashed(next.AdminPassword) {
		hash, err := HashPassword(next.AdminPassword)
		if err != nil {
			return err
		}
		next.AdminPassword = hash
	}
	return nil
}

// redact hides secrets before settings leave the node.
func redact(s settings.Settings) settings.Settings {
	if s.AdminPassword != "" {
		s.AdminPassword = redacted
	}
	if s.WiFi.Passwd != "" {
		s.WiFi.Passwd = redacted
	}
	if s.MQTT.Password != "" {
		s.MQTT.Password = redacted
	}
	return s
}

// errBodyTooLarge reports whether err came from the body size limit.
func errBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
