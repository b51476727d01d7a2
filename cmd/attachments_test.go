package cmd

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gmailer/internal/config"
	"github.com/teemow/gmailer/internal/gmail"
)

func TestSelectAttachment(t *testing.T) {
	atts := []gmail.Attachment{
		{Filename: "report.pdf", AttachmentID: "ANGjdJ-1"},
		{Filename: "1", AttachmentID: "ANGjdJ-2"},
		{Filename: "notes.txt", AttachmentID: "ANGjdJ-3"},
	}

	tests := []struct {
		selector string
		wantID   string
		wantOK   bool
	}{
		{selector: "report.pdf", wantID: "ANGjdJ-1", wantOK: true},
		{selector: "1", wantID: "ANGjdJ-2", wantOK: true},
		{selector: "2", wantID: "ANGjdJ-3", wantOK: true},
		{selector: "ANGjdJ-3", wantID: "ANGjdJ-3", wantOK: true},
		{selector: "3", wantOK: false},
		{selector: "-1", wantOK: false},
		{selector: "stale-id", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got, ok := selectAttachment(atts, tt.selector)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got.AttachmentID)
		})
	}
}

// rotatingAttachmentServer hands out a new attachment id on every message
// fetch and serves the content only under the most recent one.
func rotatingAttachmentServer(t *testing.T, content string) *httptest.Server {
	t.Helper()

	var fetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/me/messages/msg-1", func(w http.ResponseWriter, _ *http.Request) {
		n := fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{
			"id": "msg-1",
			"payload": {
				"mimeType": "multipart/mixed",
				"parts": [
					{"mimeType": "text/plain", "body": {"data": "aGk="}},
					{"mimeType": "application/pdf", "filename": "Q3/report.pdf", "body": {"attachmentId": "att-%d", "size": %d}}
				]
			}
		}`, n, len(content))
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/msg-1/attachments/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != fmt.Sprintf("att-%d", fetches.Load()) {
			http.Error(w, `{"error":{"code":400,"message":"Invalid attachment token"}}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"size": %d, "data": %q}`, len(content), base64.URLEncoding.EncodeToString([]byte(content)))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func authorizedConfig(t *testing.T) string {
	t.Helper()
	return writeConfig(t, &config.Document{
		Web:          config.Credentials{ClientID: "abc123", ClientSecret: "def456", AuthURI: config.DefaultAuthURI, TokenURI: config.DefaultTokenURI},
		AccessToken:  "live-token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	})
}

func TestRun_AttachmentsGet(t *testing.T) {
	api := rotatingAttachmentServer(t, "%PDF-1.4")
	t.Setenv(envAPIEndpoint, api.URL+"/")
	path := authorizedConfig(t)

	t.Run("by filename into a directory", func(t *testing.T) {
		dir := t.TempDir()
		stdout, _, err := runCLI(t, "--config", path, "attachments", "get", "msg-1", "Q3/report.pdf", "-o", dir)
		require.NoError(t, err)

		want := filepath.Join(dir, "Q3_report.pdf")
		assert.Contains(t, stdout, want)
		data, err := os.ReadFile(want)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4", string(data))
	})

	t.Run("by position with a chosen name", func(t *testing.T) {
		dir := t.TempDir()
		_, _, err := runCLI(t, "--config", path, "attachments", "get", "msg-1", "0", "-o", dir, "--name", "q3.pdf")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "q3.pdf"))
	})

	t.Run("stale id", func(t *testing.T) {
		_, _, err := runCLI(t, "--config", path, "attachments", "get", "msg-1", "att-0", "-o", t.TempDir())
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "400"), "got %q", err.Error())
	})
}
