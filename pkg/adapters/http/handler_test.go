// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/doodlechat/doodle-gw/pkg/auth"
	"github.com/doodlechat/doodle-gw/pkg/core/api"
	"github.com/doodlechat/doodle-gw/pkg/core/services"
	"github.com/doodlechat/doodle-gw/pkg/extractor"
	filememory "github.com/doodlechat/doodle-gw/pkg/filestore/memory"
	"github.com/doodlechat/doodle-gw/pkg/observability/logging"
	transcriptmemory "github.com/doodlechat/doodle-gw/pkg/storage/memory"
)

// fakeIdentity accepts one password per email.
type fakeIdentity struct {
	users map[string]string
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password string) (*auth.Credential, error) {
	if _, ok := f.users[email]; ok {
		return nil, &auth.ProviderError{Code: auth.CodeEmailInUse, Message: "An account with this email already exists."}
	}
	if len(password) < 6 {
		return nil, &auth.ProviderError{Code: auth.CodeWeakPassword, Message: "Password should be at least 6 characters."}
	}
	f.users[email] = password
	return &auth.Credential{UserID: "uid-" + email, Email: email, ProviderID: "password"}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*auth.Credential, error) {
	if f.users[email] != password || password == "" {
		return nil, &auth.ProviderError{Code: auth.CodeInvalidCredential, Message: "Invalid email or password."}
	}
	return &auth.Credential{UserID: "uid-" + email, Email: email, ProviderID: "password"}, nil
}

func (f *fakeIdentity) SignInWithGoogle(_ context.Context, token string) (*auth.Credential, error) {
	if token != "google-jwt" {
		return nil, errors.New("connection reset")
	}
	return &auth.Credential{UserID: "uid-google", Email: "g@example.com", ProviderID: "google.com"}, nil
}

type testServer struct {
	handler *Handler
	client  *api.MockChatCompletionClient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	client := api.NewMockChatCompletionClient()
	opts := services.ChatOptions{Model: "text-model", VisionModel: "vision-model", Temperature: 0.7}
	ex := extractor.New()
	files := filememory.New()
	transcripts := transcriptmemory.New(5)
	t.Cleanup(func() {
		files.Close(context.Background())
		transcripts.Close()
	})

	h := New(logging.Discard(), Options{
		Chat:           services.NewChatService(client, opts),
		Files:          services.NewFileService(files, ex, 1<<20),
		Models:         services.NewModelsService(opts),
		Extractor:      ex,
		Transcripts:    transcripts,
		Identity:       &fakeIdentity{users: map[string]string{"ada@example.com": "hunter22"}},
		Sessions:       auth.NewSessionManager(0),
		MaxUploadBytes: 1 << 20,
	})
	return &testServer{handler: h, client: client}
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path, token string, v any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(data)
	}
	return s.do(t, method, path, token, body, "application/json")
}

func (s *testServer) signIn(t *testing.T) string {
	t.Helper()
	rec := s.doJSON(t, "POST", "/api/auth/signin", "", map[string]string{"email": "ada@example.com", "password": "hunter22"})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d: %s", rec.Code, rec.Body)
	}
	var resp sessionResponse
	decode(t, rec, &resp)
	return resp.Token
}

func multipartBody(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	} else {
		mw.WriteField("other", "value")
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, "GET", "/health", "", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestListModels(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, "GET", "/api/models", "", nil, "")
	var resp services.ListModelsResponse
	decode(t, rec, &resp)
	if len(resp.Data) != 2 || resp.Data[0].ID != "text-model" || resp.Data[1].ID != "vision-model" {
		t.Errorf("models = %+v", resp.Data)
	}
}

func TestChat_MessageForm(t *testing.T) {
	s := newTestServer(t)
	rec := s.doJSON(t, "POST", "/api/chat", "", map[string]any{
		"message":     "What is photosynthesis?",
		"chatHistory": []map[string]string{{"role": "user", "content": "hi"}, {"role": "assistant", "content": "hello"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	decode(t, rec, &resp)
	if resp["result"] != "Mock response to: What is photosynthesis?" {
		t.Errorf("result = %q", resp["result"])
	}

	reqs := s.client.Requests()
	if len(reqs) != 1 {
		t.Fatalf("upstream calls = %d", len(reqs))
	}
	msgs := reqs[0].Messages
	if msgs[0].Role != api.RoleSystem || msgs[0].Content != services.SystemPrompt {
		t.Error("system prompt is not the first upstream message")
	}
	if len(msgs) != 4 {
		t.Errorf("upstream messages = %d, want 4", len(msgs))
	}
}

func TestChat_MessagesForm(t *testing.T) {
	s := newTestServer(t)
	rec := s.doJSON(t, "POST", "/api/chat", "", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "Explain gravity"}},
	})
	var resp map[string]string
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || resp["message"] != "Mock response to: Explain gravity" {
		t.Errorf("response = %d %v", rec.Code, resp)
	}
	if _, ok := resp["result"]; ok {
		t.Error("messages form must not answer with result")
	}
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		upErr   error
		status  int
		wantErr string
	}{
		{"malformed json", `{"message":`, nil, http.StatusBadRequest, "Failed to parse request body"},
		{"empty", `{}`, nil, http.StatusBadRequest, services.ErrEmptyChatRequest.Error()},
		{"bad role", `{"messages":[{"role":"tool","content":"x"}]}`, nil, http.StatusBadRequest, services.ErrInvalidRole.Error()},
		{"bad image", `{"message":"look","image":"not-a-data-url"}`, nil, http.StatusBadRequest, services.ErrInvalidImage.Error()},
		{"upstream failure", `{"message":"hi"}`, errors.New("groq: 503 secret detail"), http.StatusInternalServerError, "Failed to process request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.client.Err = tt.upErr
			rec := s.do(t, "POST", "/api/chat", "", strings.NewReader(tt.body), "application/json")
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := errorOf(t, rec); got != tt.wantErr {
				t.Errorf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestChat_Stream(t *testing.T) {
	s := newTestServer(t)
	rec := s.doJSON(t, "POST", "/api/chat", "", map[string]any{"message": "hi there", "stream": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	var text strings.Builder
	var done bool
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			done = true
			continue
		}
		var chunk map[string]string
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			t.Fatalf("chunk %q: %v", data, err)
		}
		text.WriteString(chunk["content"])
	}
	if !done {
		t.Error("missing [DONE]")
	}
	if text.String() != "Mock streaming response to: hi there" {
		t.Errorf("streamed text = %q", text.String())
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		status   int
		wantErr  string
	}{
		{"text", "notes.md", []byte("# Cells\nmitochondria"), http.StatusOK, ""},
		{"unsupported", "photo.heic", []byte("x"), http.StatusUnsupportedMediaType, "Unsupported file type"},
		{"powerpoint", "slides.pptx", []byte("PK"), http.StatusNotImplemented, "PowerPoint files are not supported. Please convert to PDF first."},
		{"corrupt pdf", "broken.pdf", []byte("not a pdf"), http.StatusUnprocessableEntity, "Failed to read pdf file: open PDF: not a PDF file: invalid header"},
		{"missing file", "", nil, http.StatusBadRequest, "No file provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			body, ct := multipartBody(t, "file", tt.filename, tt.content)
			rec := s.do(t, "POST", "/api/extract", "", body, ct)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
			if tt.wantErr != "" {
				if got := errorOf(t, rec); got != tt.wantErr {
					t.Errorf("error = %q, want %q", got, tt.wantErr)
				}
				return
			}
			var resp extractResponse
			decode(t, rec, &resp)
			if resp.Filename != "notes.md" || resp.Format != "text" || resp.Text != "# Cells\nmitochondria" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestExtract_TooLarge(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, "file", "big.txt", bytes.Repeat([]byte("a"), 2<<20))
	rec := s.do(t, "POST", "/api/extract", "", body, ct)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestAuthenticatedRoutes_RejectUnknownTokens(t *testing.T) {
	s := newTestServer(t)
	routes := []struct{ method, path string }{
		{"POST", "/api/files"},
		{"GET", "/api/files"},
		{"GET", "/api/files/file_1"},
		{"GET", "/api/files/file_1/content"},
		{"GET", "/api/files/file_1/text"},
		{"DELETE", "/api/files/file_1"},
		{"GET", "/api/transcript"},
		{"PUT", "/api/transcript"},
		{"POST", "/api/transcript/messages"},
		{"DELETE", "/api/transcript"},
	}
	for _, rt := range routes {
		for _, token := range []string{"", "bogus"} {
			rec := s.do(t, rt.method, rt.path, token, nil, "")
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s %s token=%q: status = %d", rt.method, rt.path, token, rec.Code)
			}
		}
	}
}

func TestAuth_Flow(t *testing.T) {
	s := newTestServer(t)

	rec := s.doJSON(t, "POST", "/api/auth/signup", "", map[string]string{"email": "new@example.com", "password": "secret99"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup = %d: %s", rec.Code, rec.Body)
	}
	var sess sessionResponse
	decode(t, rec, &sess)
	if sess.Token == "" || sess.User.UserID != "uid-new@example.com" {
		t.Errorf("session = %+v", sess)
	}

	if rec := s.do(t, "GET", "/api/transcript", sess.Token, nil, ""); rec.Code != http.StatusOK {
		t.Errorf("transcript with fresh session = %d", rec.Code)
	}

	if rec := s.do(t, "POST", "/api/auth/signout", sess.Token, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("signout = %d", rec.Code)
	}
	if rec := s.do(t, "GET", "/api/transcript", sess.Token, nil, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("transcript after signout = %d", rec.Code)
	}
	if rec := s.do(t, "POST", "/api/auth/signout", sess.Token, nil, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("second signout = %d", rec.Code)
	}
}

func TestAuth_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"duplicate", "/api/auth/signup", map[string]string{"email": "ada@example.com", "password": "whatever"}, http.StatusConflict, auth.CodeEmailInUse},
		{"weak", "/api/auth/signup", map[string]string{"email": "b@example.com", "password": "1"}, http.StatusBadRequest, auth.CodeWeakPassword},
		{"wrong password", "/api/auth/signin", map[string]string{"email": "ada@example.com", "password": "nope"}, http.StatusUnauthorized, auth.CodeInvalidCredential},
		{"provider down", "/api/auth/google", map[string]string{"idToken": "other"}, http.StatusBadGateway, auth.CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.doJSON(t, "POST", tt.path, "", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["code"] != tt.code || body["error"] == "" {
				t.Errorf("body = %v", body)
			}
			if strings.Contains(body["error"], "connection reset") {
				t.Error("provider detail leaked to client")
			}
		})
	}
}

func TestAuth_NotConfigured(t *testing.T) {
	s := newTestServer(t)
	s.handler.opts.Identity = nil
	rec := s.doJSON(t, "POST", "/api/auth/signin", "", map[string]string{"email": "a@b.c", "password": "x"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAuth_Google(t *testing.T) {
	s := newTestServer(t)
	rec := s.doJSON(t, "POST", "/api/auth/google", "", map[string]string{"idToken": "google-jwt"})
	var sess sessionResponse
	decode(t, rec, &sess)
	if rec.Code != http.StatusOK || sess.User.ProviderID != "google.com" {
		t.Errorf("google = %d %+v", rec.Code, sess)
	}
}
