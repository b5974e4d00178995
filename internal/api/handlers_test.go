package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pintarai.app/server/internal/catalog"
	"pintarai.app/server/internal/core"
	"pintarai.app/server/internal/store"
)

const testJWTSecret = "test-secret"

type stubGenerator struct {
	answer     string
	answerErr  error
	prompts    []catalog.ExamplePrompt
	promptsErr error
	summary    string
}

func (g *stubGenerator) AnswerQuestion(ctx context.Context, in core.AnswerInput) (string, error) {
	return g.answer, g.answerErr
}

func (g *stubGenerator) GeneratePrompts(ctx context.Context, classLevel, subject string) ([]catalog.ExamplePrompt, error) {
	return g.prompts, g.promptsErr
}

func (g *stubGenerator) SummarizeQuestion(ctx context.Context, question string) (string, error) {
	return g.summary, nil
}

type stubChecker struct {
	status *coreapi.TransactionStatusResponse
	err    *midtrans.Error
}

func (c *stubChecker) CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, *midtrans.Error) {
	return c.status, c.err
}

type stubSnap struct {
	resp *snap.Response
}

func (s *stubSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	return s.resp, nil
}

type testServer struct {
	srv       *httptest.Server
	dbStore   *store.SQLiteStore
	generator *stubGenerator
	checker   *stubChecker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dbStore, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	gen := &stubGenerator{answer: "Jawaban dari model.", summary: "Ringkasan"}
	checker := &stubChecker{}
	snapClient := &stubSnap{resp: &snap.Response{Token: "snap-token", RedirectURL: "https://example.test/pay"}}

	users := core.NewUserService(dbStore, 10)
	sessions := core.NewSessionService(dbStore, gen)
	payments := core.NewPaymentService(dbStore, checker, snapClient)

	handler := NewAPIHandler(users, sessions, payments, gen, testJWTSecret)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, dbStore: dbStore, generator: gen, checker: checker}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// registerAndLogin creates a user through the API and returns a bearer token.
func (ts *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	resp := ts.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"email": email, "password": "rahasia123", "display_name": "Budi",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": "rahasia123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body["token"])
	return body["token"]
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile store.UserProfile
	decodeBody(t, resp, &profile)
	assert.Equal(t, "budi@example.com", profile.Email)
	assert.Equal(t, 10, profile.TokenBalance)

	// Duplicate registration is rejected.
	resp = ts.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"email": "budi@example.com", "password": "lain", "display_name": "Budi Kedua",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "budi@example.com", "password": "salah",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/chats", "invalid-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAskFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodPost, "/api/chats", token, map[string]string{
		"question_text": "Apa itu fotosintesis?",
		"class_level":   "SD Kelas 4",
		"subject":       "IPA (Sains)",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session store.ChatSession
	decodeBody(t, resp, &session)
	require.Len(t, session.Messages, 1)
	assert.Equal(t, "Jawaban dari model.", session.Messages[0].Answer)

	// Follow-up in the same session.
	resp = ts.do(t, http.MethodPost, "/api/chats/"+session.ID+"/ask", token, map[string]string{
		"question_text": "Berikan contohnya.",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &session)
	assert.Len(t, session.Messages, 2)

	// History lists the session.
	resp = ts.do(t, http.MethodGet, "/api/chats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessions []store.ChatSession
	decodeBody(t, resp, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)

	// Each question spent one token.
	resp = ts.do(t, http.MethodGet, "/api/me", token, nil)
	var profile store.UserProfile
	decodeBody(t, resp, &profile)
	assert.Equal(t, 8, profile.TokenBalance)
}

func TestAskValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodPost, "/api/chats", token, map[string]string{
		"question_text": "", "class_level": "SD Kelas 4", "subject": "IPA (Sains)",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/chats", token, map[string]string{
		"question_text": "Pertanyaan tanpa konteks",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/api/chats/no-such-session/ask", token, map[string]string{
		"question_text": "Pertanyaan",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAskInsufficientBalanceStatus(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	// Drain the starting grant directly.
	profile, err := ts.dbStore.GetUserByEmail(context.Background(), "budi@example.com")
	require.NoError(t, err)
	for i := 0; i < profile.TokenBalance; i++ {
		require.NoError(t, ts.dbStore.SpendToken(context.Background(), profile.UID))
	}

	resp := ts.do(t, http.MethodPost, "/api/chats", token, map[string]string{
		"question_text": "Apa itu fotosintesis?",
		"class_level":   "SD Kelas 4",
		"subject":       "IPA (Sains)",
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestChatOwnership(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.registerAndLogin(t, "budi@example.com")
	intruder := ts.registerAndLogin(t, "siti@example.com")

	resp := ts.do(t, http.MethodPost, "/api/chats", owner, map[string]string{
		"question_text": "Apa itu fotosintesis?",
		"class_level":   "SD Kelas 4",
		"subject":       "IPA (Sains)",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session store.ChatSession
	decodeBody(t, resp, &session)

	resp = ts.do(t, http.MethodGet, "/api/chats/"+session.ID, intruder, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/chats/"+session.ID, intruder, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/api/chats/"+session.ID, owner, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteAllChats(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	for i := 0; i < 2; i++ {
		resp := ts.do(t, http.MethodPost, "/api/chats", token, map[string]string{
			"question_text": "Apa itu fotosintesis?",
			"class_level":   "SD Kelas 4",
			"subject":       "IPA (Sains)",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := ts.do(t, http.MethodDelete, "/api/chats", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/chats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sessions []store.ChatSession
	decodeBody(t, resp, &sessions)
	assert.Empty(t, sessions)
}

func TestCatalogAndPackages(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodGet, "/api/catalog", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cat struct {
		ClassLevels    []string            `json:"class_levels"`
		SubjectsByTier map[string][]string `json:"subjects_by_tier"`
	}
	decodeBody(t, resp, &cat)
	assert.Len(t, cat.ClassLevels, 12)
	assert.Contains(t, cat.SubjectsByTier, "SMA")

	resp = ts.do(t, http.MethodGet, "/api/packages", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var packages []catalog.TokenPackage
	decodeBody(t, resp, &packages)
	assert.Len(t, packages, 3)
}

func TestPromptsFallsBackOnGeneratorFailure(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")
	ts.generator.promptsErr = errors.New("model unavailable")

	resp := ts.do(t, http.MethodGet, "/api/prompts?class_level=SD+Kelas+4&subject=IPA+(Sains)", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Prompts []catalog.ExamplePrompt `json:"prompts"`
		Source  string                  `json:"source"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "fallback", body.Source)
	assert.NotEmpty(t, body.Prompts)
}

func TestPromptsRejectsUnknownContext(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodGet, "/api/prompts?class_level=SD+Kelas+4&subject=Astrofisika", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaymentFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodPost, "/api/payments", token, map[string]string{"package_id": "student"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payment map[string]string
	decodeBody(t, resp, &payment)
	assert.Equal(t, "snap-token", payment["token"])
	require.NotEmpty(t, payment["order_id"])

	// Gateway settles the order and calls the webhook.
	ts.checker.status = &coreapi.TransactionStatusResponse{
		OrderID:           payment["order_id"],
		TransactionStatus: "settlement",
		FraudStatus:       "accept",
	}
	resp = ts.do(t, http.MethodPost, "/api/payment-notification", "", map[string]string{"order_id": payment["order_id"]})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/me", token, nil)
	var profile store.UserProfile
	decodeBody(t, resp, &profile)
	assert.Equal(t, 260, profile.TokenBalance)

	// Replay credits nothing further.
	resp = ts.do(t, http.MethodPost, "/api/payment-notification", "", map[string]string{"order_id": payment["order_id"]})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/me", token, nil)
	decodeBody(t, resp, &profile)
	assert.Equal(t, 260, profile.TokenBalance)
}

func TestPaymentNotificationRejectsForeignOrder(t *testing.T) {
	ts := newTestServer(t)
	ts.checker.status = &coreapi.TransactionStatusResponse{
		OrderID:           "OTHERAPP-u1-student-1",
		TransactionStatus: "settlement",
		FraudStatus:       "accept",
	}

	resp := ts.do(t, http.MethodPost, "/api/payment-notification", "", map[string]string{"order_id": "OTHERAPP-u1-student-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePaymentUnknownPackage(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodPost, "/api/payments", token, map[string]string{"package_id": "platinum"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteAccount(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodDelete, "/api/me", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSummarize(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin(t, "budi@example.com")

	resp := ts.do(t, http.MethodPost, "/api/summarize", token, map[string]string{"question": "Jelaskan proses fotosintesis pada tumbuhan hijau secara lengkap"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Ringkasan", body["summary"])
}
