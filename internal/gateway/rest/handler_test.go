package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratusbase/stratus/internal/identity"
	idconfig "github.com/stratusbase/stratus/internal/identity/config"
	"github.com/stratusbase/stratus/internal/index"
	"github.com/stratusbase/stratus/internal/index/memstore"
	"github.com/stratusbase/stratus/internal/rules"
	"github.com/stratusbase/stratus/internal/storage/memory"
	"github.com/stratusbase/stratus/internal/storage/types"
	"github.com/stratusbase/stratus/pkg/model"
)

type stubTriggers struct {
	handle     string
	failErr    error
	provisions int
	retired    int
}

func (s *stubTriggers) Provision(_ context.Context, rule *model.Rule) (string, error) {
	s.provisions++
	if s.failErr != nil {
		return "", s.failErr
	}
	if !rule.Enabled() || rule.Trigger.Type == model.RuleTypeOneTime {
		return "", nil
	}
	return s.handle, nil
}

func (s *stubTriggers) Deprovision(_ context.Context, _ *model.Rule) error {
	s.retired++
	return nil
}

type inlineNotifier struct{ idx index.RuleIndex }

func (n *inlineNotifier) Upsert(rule model.Rule) {
	_ = n.idx.Upsert(context.Background(), model.ViewOf(rule))
}

func (n *inlineNotifier) Remove(name string) {
	_ = n.idx.Remove(context.Background(), name)
}

type testEnv struct {
	mux      *http.ServeMux
	store    *memory.RuleStore
	triggers *stubTriggers
	tokens   *identity.TokenService

	token         string // active principal
	expiredToken  string
	unknownToken  string // subject with no principal record
	disabledToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := idconfig.Config{
		PrivateKeyFile: filepath.Join(t.TempDir(), "private.pem"),
		TokenTTL:       time.Hour,
	}
	tokens, err := identity.NewTokenService(cfg)
	require.NoError(t, err)

	principals := memory.NewPrincipalStore()
	principals.Put(types.Principal{ID: "ops", Username: "ops"})
	principals.Put(types.Principal{ID: "benched", Username: "benched", Disabled: true})

	store := memory.NewRuleStore()
	registry := memory.NewRegistry()
	registry.AddWorkflow("IngestGranule")
	registry.AddWorkflow("DiscoverGranules")
	registry.AddProvider("podaac")
	registry.AddCollection(model.CollectionRef{Name: "MOD09GQ", Version: "006"})

	triggers := &stubTriggers{handle: "arn:aws:events:us-east-1:000000000000:rule/stratus-test"}
	idx := memstore.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := rules.NewService(store, registry, triggers, &inlineNotifier{idx: idx}, idx, logger)

	gate, err := identity.NewGate(cfg, principals)
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(svc, gate).RegisterRoutes(mux)

	env := &testEnv{mux: mux, store: store, triggers: triggers, tokens: tokens}
	env.token, err = tokens.GenerateServiceToken("ops", []string{"operator"})
	require.NoError(t, err)
	env.expiredToken, err = tokens.GenerateExpiredToken("ops")
	require.NoError(t, err)
	env.unknownToken, err = tokens.GenerateServiceToken("ghost", nil)
	require.NoError(t, err)
	env.disabledToken, err = tokens.GenerateServiceToken("benched", nil)
	require.NoError(t, err)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func ruleBody(name string, typ model.RuleType, value string) map[string]any {
	return map[string]any{
		"name":       name,
		"workflow":   "IngestGranule",
		"provider":   "podaac",
		"collection": map[string]string{"name": "MOD09GQ", "version": "006"},
		"rule":       map[string]string{"type": string(typ), "value": value},
		"state":      "ENABLED",
	}
}

func TestAuthGate(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing", "", http.StatusUnauthorized, "authorization missing"},
		{"wrong scheme", "Basic b3BzOnNlY3JldA==", http.StatusUnauthorized, "invalid token"},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized, "invalid token"},
		{"expired", "Bearer " + env.expiredToken, http.StatusUnauthorized, "invalid token"},
		{"unknown principal", "Bearer " + env.unknownToken, http.StatusForbidden, "unauthorized user"},
		{"disabled principal", "Bearer " + env.disabledToken, http.StatusForbidden, "unauthorized user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/rules", bytes.NewReader([]byte(`{"name":"x"}`)))
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			env.mux.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decodeBody(t, rec)["message"])
		})
	}

	// None of the rejected requests reached the store or the
	// provisioner.
	records, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, env.triggers.provisions)
}

func TestCreateRule(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("nightly", model.RuleTypeScheduled, "rate(1 day)"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Record saved", body["message"])
	record, ok := body["record"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "nightly", record["name"])
	assert.Equal(t, env.triggers.handle, record["triggerHandle"])
	assert.NotZero(t, record["createdAt"])
}

func TestCreateDuplicateRule(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("make_coffee", model.RuleTypeOneTime, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("make_coffee", model.RuleTypeOneTime, ""))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "a record already exists for make_coffee", body["message"])
	assert.NotContains(t, body, "record")
}

func TestCreateRuleValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	bad := ruleBody("bad", model.RuleTypeScheduled, "")
	rec := env.do(t, http.MethodPost, "/v1/rules", env.token, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateIgnoresClientHandle(t *testing.T) {
	env := newTestEnv(t)

	body := ruleBody("sneaky", model.RuleTypeOneTime, "")
	body["triggerHandle"] = "arn:aws:events:us-east-1:000000000000:rule/forged"
	rec := env.do(t, http.MethodPost, "/v1/rules", env.token, body)
	require.Equal(t, http.StatusOK, rec.Code)

	record := decodeBody(t, rec)["record"].(map[string]any)
	assert.NotContains(t, record, "triggerHandle")
}

func TestGetRule(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("lookup", model.RuleTypeOneTime, ""))

	rec := env.do(t, http.MethodGet, "/v1/rules/lookup", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lookup", decodeBody(t, rec)["name"])

	rec = env.do(t, http.MethodGet, "/v1/rules/ghost", env.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Record does not exist", decodeBody(t, rec)["message"])
}

func TestUpdateRule(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("mutable", model.RuleTypeOneTime, ""))

	rec := env.do(t, http.MethodPut, "/v1/rules/mutable", env.token, map[string]any{"workflow": "DiscoverGranules"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DiscoverGranules", decodeBody(t, rec)["workflow"])

	rec = env.do(t, http.MethodPut, "/v1/rules/ghost", env.token, map[string]any{"workflow": "DiscoverGranules"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Record does not exist", decodeBody(t, rec)["message"])
}

func TestUpdateSurfacesProvisioningWarning(t *testing.T) {
	env := newTestEnv(t)

	body := ruleBody("brittle", model.RuleTypeScheduled, "rate(1 day)")
	body["state"] = "DISABLED"
	rec := env.do(t, http.MethodPost, "/v1/rules", env.token, body)
	require.Equal(t, http.StatusOK, rec.Code)

	env.triggers.failErr = errors.New("events endpoint unreachable")
	rec = env.do(t, http.MethodPut, "/v1/rules/brittle", env.token, map[string]any{"state": "ENABLED"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, "ENABLED", got["state"])
	require.Contains(t, got, "warning")
	assert.Contains(t, got["warning"], "brittle")

	// The record committed despite the degraded trigger; a retry can
	// finish provisioning later.
	stored, err := env.store.Get(context.Background(), "brittle")
	require.NoError(t, err)
	assert.Equal(t, model.RuleStateEnabled, stored.State)
}

func TestDeleteRuleNeverEchoesRecord(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("doomed", model.RuleTypeScheduled, "rate(1 day)"))

	rec := env.do(t, http.MethodDelete, "/v1/rules/doomed", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Record deleted", body["message"])
	assert.NotContains(t, body, "record")

	rec = env.do(t, http.MethodGet, "/v1/rules/doomed", env.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRules(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("list_a", model.RuleTypeOneTime, ""))
	env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("list_b", model.RuleTypeScheduled, "rate(1 day)"))
	env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("other", model.RuleTypeOneTime, ""))

	rec := env.do(t, http.MethodGet, "/v1/rules", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)["results"].([]any)
	assert.Len(t, results, 3)

	rec = env.do(t, http.MethodGet, "/v1/rules?prefix=list_&limit=1", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results = decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "list_a", results[0].(map[string]any)["name"])
}

// The canonical onetime lifecycle: create fires the workflow once,
// disabling and re-enabling fires it again, delete leaves no trace.
func TestMakeCoffeeLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/rules", env.token, ruleBody("make_coffee", model.RuleTypeOneTime, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.triggers.provisions)

	rec = env.do(t, http.MethodPut, "/v1/rules/make_coffee", env.token, map[string]any{"state": "DISABLED"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/v1/rules/make_coffee", env.token, map[string]any{"state": "ENABLED"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/v1/rules/make_coffee", env.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Record deleted", decodeBody(t, rec)["message"])
}

func TestHealthRequiresNoAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}
