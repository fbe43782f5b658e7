package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagging-ai/tagboard/internal/session"
	"github.com/tagging-ai/tagboard/pkg/models"
)

func init() {
	color.NoColor = true
}

type fakeBackend struct {
	mu      sync.Mutex
	token   string
	records []map[string]any
	revoked bool
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch r.URL.Path {
	case "/api/auth/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "alice" || body["password"] != "secret" {
			reply(http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
			return
		}
		reply(http.StatusOK, map[string]any{"access_token": f.token, "token_type": "bearer", "user": map[string]string{"id": "u1", "username": "alice"}})
		return
	case "/api/auth/register":
		reply(http.StatusCreated, map[string]string{"message": "ok"})
		return
	}

	if f.revoked || r.Header.Get("Authorization") != "Bearer "+f.token {
		reply(http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
		return
	}

	const recordPrefix = "/api/analyze/history/"
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/analyze/history":
		reply(http.StatusOK, f.records)
	case r.Method == http.MethodPost && r.URL.Path == "/api/analyze":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec := map[string]any{"id": fmt.Sprintf("rec-new%03d", len(f.records)), "text": body["text"], "sentiment": "Negative", "priority": "High", "confidence": 0.7, "tags": []string{"outage"}}
		f.records = append([]map[string]any{rec}, f.records...)
		reply(http.StatusOK, rec)
	case r.Method == http.MethodPost && r.URL.Path == "/api/analyze/batch-analyze":
		file, _, err := r.FormFile("file")
		if err != nil {
			reply(http.StatusBadRequest, map[string]string{"detail": "file required"})
			return
		}
		data, _ := io.ReadAll(file)
		var out []map[string]any
		for i, line := range strings.Split(strings.TrimSpace(string(data)), "\n")[1:] {
			out = append(out, map[string]any{"id": fmt.Sprintf("batch-%d", i), "text": line, "sentiment": "Neutral", "priority": "Low", "confidence": 0.5})
		}
		reply(http.StatusOK, out)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, recordPrefix):
		id := strings.TrimPrefix(r.URL.Path, recordPrefix)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, rec := range f.records {
			if rec["id"] == id {
				for k, v := range body {
					rec[k] = v
				}
				reply(http.StatusOK, rec)
				return
			}
		}
		reply(http.StatusNotFound, map[string]string{"detail": "Record not found"})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, recordPrefix):
		id := strings.TrimPrefix(r.URL.Path, recordPrefix)
		for i, rec := range f.records {
			if rec["id"] == id {
				f.records = append(f.records[:i], f.records[i+1:]...)
				reply(http.StatusOK, map[string]string{"message": "deleted"})
				return
			}
		}
		reply(http.StatusNotFound, map[string]string{"detail": "Record not found"})
	case r.URL.Path == "/api/analyze/export/excel":
		_, _ = w.Write([]byte("PK-xlsx"))
	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	backend    *fakeBackend
	configPath string
	sessionDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fb := &fakeBackend{
		token: session.NewTestToken("u1", time.Now().Add(time.Hour)),
		records: []map[string]any{
			{"id": "rec-000001", "text": "Great support team", "sentiment": "Positive", "priority": "Low", "confidence": 0.91, "tags": []string{"support"}},
			{"id": "rec-000002", "text": "Refund still missing", "sentiment": "Negative", "priority": "High", "confidence": 0.8, "tags": []string{"billing"}},
		},
	}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	env := &testEnv{
		backend:    fb,
		configPath: filepath.Join(dir, "tagboard.yaml"),
		sessionDir: filepath.Join(dir, "session"),
	}
	cfg := fmt.Sprintf("backend:\n  base_url: %s\nsession:\n  dir: %s\nlog:\n  level: error\n", srv.URL, env.sessionDir)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o600))
	return env
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	_, _, err := e.run(t, "", "login", "-u", "alice", "-p", "secret")
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "tagboard dev")
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "", "login", "-u", "alice", "-p", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")
	assert.FileExists(t, filepath.Join(env.sessionDir, "session.yaml"))

	out, _, err = env.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	_, _, err = env.run(t, "", "login", "-u", "alice", "-p", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already logged in")

	out, _, err = env.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.NoFileExists(t, filepath.Join(env.sessionDir, "session.yaml"))

	_, _, err = env.run(t, "", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLoginPrompts(t *testing.T) {
	env := newTestEnv(t)
	out, stderr, err := env.run(t, "alice\nsecret\n", "login")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Email or username: ")
	assert.Contains(t, out, "Logged in as alice")
}

func TestLoginFailure(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "", "login", "-u", "alice", "-p", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.NoFileExists(t, filepath.Join(env.sessionDir, "session.yaml"))
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	out, _, err := env.run(t, "", "register", "--fullname", "Alice", "--email", "a@example.com", "--username", "alice", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created")
}

func TestCommandsRequireLogin(t *testing.T) {
	env := newTestEnv(t)
	for _, args := range [][]string{{"history"}, {"analyze", "hi"}, {"stats"}, {"export", "-o", "-"}} {
		_, _, err := env.run(t, "", args...)
		assert.ErrorIs(t, err, errNotLoggedIn, args)
	}
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, stderr, err := env.run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "Great support team")
	assert.Contains(t, out, "000002")
	assert.Contains(t, stderr, "2 of 2 analyses")

	out, _, err = env.run(t, "", "history", "--priority", "high")
	require.NoError(t, err)
	assert.Contains(t, out, "Refund still missing")
	assert.NotContains(t, out, "Great support team")

	out, _, err = env.run(t, "", "--json", "history", "-q", "SUPPORT")
	require.NoError(t, err)
	var got []models.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "rec-000001", got[0].ID)

	_, _, err = env.run(t, "", "history", "--sentiment", "angry")
	assert.ErrorContains(t, err, "unknown sentiment")
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "", "show", "000002")
	require.NoError(t, err)
	assert.Contains(t, out, "Refund still missing")
	assert.Contains(t, out, "DETAILED ANALYSIS")
	assert.Contains(t, out, models.DefaultDetailedAnalysis)
	assert.Contains(t, out, "Confidence: 80%")

	_, _, err = env.run(t, "", "show", "nope")
	assert.ErrorContains(t, err, "no analysis with id nope")
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, stderr, err := env.run(t, "", "analyze", "the", "server", "is", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "the server is down")
	assert.Contains(t, stderr, "High priority text detected")

	out, _, err = env.run(t, "from stdin", "--json", "analyze", "-f", "-")
	require.NoError(t, err)
	var r models.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "from stdin", r.Text)
	assert.Equal(t, models.PriorityHigh, r.Priority)

	_, _, err = env.run(t, "", "analyze", "   ")
	assert.ErrorContains(t, err, "Please enter some text to analyze")
}

func TestBatch(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	path := filepath.Join(t.TempDir(), "feedback.csv")
	require.NoError(t, os.WriteFile(path, []byte("text\nfirst row\nsecond row\n"), 0o600))

	out, stderr, err := env.run(t, "", "batch", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Starting analysis for: feedback.csv")
	assert.Contains(t, stderr, "Successfully analyzed 2 entries")
	assert.Contains(t, stderr, "Batch complete: 2 entries analyzed")
	assert.Contains(t, out, "first row")

	_, stderr, err = env.run(t, "", "batch", "notes.txt")
	assert.ErrorContains(t, err, "Please upload a valid CSV file")
	assert.Contains(t, stderr, "Error: Please upload a valid CSV file")
}

func TestEdit(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, _, err := env.run(t, "", "edit", "000002", "--priority", "low", "--add-tag", "Resolved")
	require.NoError(t, err)

	env.backend.mu.Lock()
	rec := env.backend.records[1]
	env.backend.mu.Unlock()
	assert.Equal(t, "Low", rec["priority"])
	assert.Equal(t, "Refund still missing", rec["text"])
	assert.Equal(t, []any{"billing", "resolved"}, rec["tags"])

	_, _, err = env.run(t, "", "edit", "000002")
	assert.ErrorContains(t, err, "nothing to change")

	_, _, err = env.run(t, "", "edit", "000002", "--text", " ")
	assert.ErrorContains(t, err, "Text cannot be empty")
}

func TestDeleteAsksFirst(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	_, stderr, err := env.run(t, "n\n", "delete", "000001")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Cancelled")
	assert.Len(t, env.backend.records, 2)

	out, _, err := env.run(t, "", "delete", "000001", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted #000001")
	assert.Len(t, env.backend.records, 1)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "", "export", "-o", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ID,Text,Sentiment,Priority,Confidence,Timestamp\n"))
	assert.Contains(t, out, `rec-000001,"Great support team",Positive,Low,0.91,`)

	path := filepath.Join(t.TempDir(), "out.xlsx")
	_, _, err = env.run(t, "", "export", "-f", "xlsx", "-o", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK-xlsx", string(data))

	_, _, err = env.run(t, "", "export", "--upload")
	assert.ErrorContains(t, err, "storage.endpoint is not configured")
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out, _, err := env.run(t, "", "--json", "stats")
	require.NoError(t, err)
	var s models.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 2, s.TotalProcessed)
	assert.Equal(t, 1, s.HighPriority)
	assert.Equal(t, "5.0", s.AvgSentiment)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "", "settings", "set", "save_history", "off")
	require.NoError(t, err)
	assert.Contains(t, out, "Settings saved")

	out, _, err = env.run(t, "", "settings")
	require.NoError(t, err)
	assert.Regexp(t, `save_history\s+false`, out)
	assert.Regexp(t, `notifications\.batch_complete\s+true`, out)

	_, _, err = env.run(t, "", "settings", "set", "theme", "dark")
	assert.ErrorContains(t, err, "unknown setting")

	_, _, err = env.run(t, "", "settings", "set", "api_endpoint", "ftp://nope")
	assert.Error(t, err)

	_, _, err = env.run(t, "", "settings", "reset")
	require.NoError(t, err)
	out, _, err = env.run(t, "", "--json", "settings")
	require.NoError(t, err)
	var s models.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, models.DefaultSettings(), s)
}

func TestRejectedTokenClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	env.backend.mu.Lock()
	env.backend.revoked = true
	env.backend.mu.Unlock()

	_, _, err := env.run(t, "", "history")
	assert.ErrorIs(t, err, errNotLoggedIn)
	assert.NoFileExists(t, filepath.Join(env.sessionDir, "session.yaml"))
}

func TestParseBool(t *testing.T) {
	var b bool
	require.NoError(t, parseBool("on", &b))
	assert.True(t, b)
	require.NoError(t, parseBool("false", &b))
	assert.False(t, b)
	assert.Error(t, parseBool("maybe", &b))
}
