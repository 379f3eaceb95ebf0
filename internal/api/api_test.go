package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/reclaimhq/reclaim/internal/auth"
	"github.com/reclaimhq/reclaim/internal/db"
	"github.com/reclaimhq/reclaim/internal/model"
)

const testSecret = "api-test-secret"

// fakeVerifier maps known ID tokens to external claims.
type fakeVerifier struct {
	tokens map[string]*auth.ExternalClaims
}

func (v *fakeVerifier) Verify(_ context.Context, rawToken string) (*auth.ExternalClaims, error) {
	claims, ok := v.tokens[rawToken]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)

	verifier := &fakeVerifier{tokens: map[string]*auth.ExternalClaims{
		"fb-token-ana": {Subject: "fb-ana", Email: "ana@x.com", Name: "Ana", Picture: "https://p/ana.jpg"},
	}}

	router := NewRouter(database, Config{Secret: testSecret, Verifier: verifier})
	server := httptest.NewServer(LoggingMiddleware(router))
	t.Cleanup(server.Close)

	return server, database
}

// newClient returns an HTTP client with its own cookie jar, i.e. one logged-in
// browser session.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

// register creates a local account and leaves its session in the client's jar.
func register(t *testing.T, client *http.Client, serverURL, name, email string) model.User {
	t.Helper()
	resp := doJSON(t, client, "POST", serverURL+"/users/register", map[string]string{
		"name": name, "email": email, "password": "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	var user model.User
	decodeBody(t, resp, &user)
	return user
}

func createItem(t *testing.T, client *http.Client, serverURL string) model.Item {
	t.Helper()
	resp := doJSON(t, client, "POST", serverURL+"/inventory", map[string]string{
		"postType":  "lost",
		"thumbnail": "u",
		"title":     "Wallet",
		"category":  "Accessories",
		"location":  "Park",
		"date":      "2024-01-01",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create item: status %d", resp.StatusCode)
	}
	var item model.Item
	decodeBody(t, resp, &item)
	return item
}

func TestRegisterLoginProfile(t *testing.T) {
	server, _ := setupTestServer(t)
	client := newClient(t)

	register(t, client, server.URL, "Ana", "a@x.com")

	resp := doJSON(t, client, "GET", server.URL+"/users/profile", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: status %d", resp.StatusCode)
	}
	var profile model.User
	decodeBody(t, resp, &profile)
	if profile.Email != "a@x.com" {
		t.Errorf("expected a@x.com, got %q", profile.Email)
	}

	// Logout discards the credential; profile is unauthorized again.
	doJSON(t, client, "POST", server.URL+"/users/logout", nil).Body.Close()
	resp = doJSON(t, client, "GET", server.URL+"/users/profile", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("after logout: expected 401, got %d", resp.StatusCode)
	}

	// Fresh client, wrong password.
	other := newClient(t)
	resp = doJSON(t, other, "POST", server.URL+"/users/login", map[string]string{
		"email": "a@x.com", "password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", resp.StatusCode)
	}

	// Right password.
	resp = doJSON(t, other, "POST", server.URL+"/users/login", map[string]string{
		"email": "a@x.com", "password": "password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("login: expected 200, got %d", resp.StatusCode)
	}
}

func TestFirebaseLoginProvisionsOnce(t *testing.T) {
	server, database := setupTestServer(t)
	client := newClient(t)

	resp := doJSON(t, client, "POST", server.URL+"/users/firebase-login", map[string]string{
		"idToken": "fb-token-ana",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("firebase login: status %d", resp.StatusCode)
	}
	var user model.User
	decodeBody(t, resp, &user)
	if user.Email != "ana@x.com" {
		t.Errorf("expected ana@x.com, got %q", user.Email)
	}

	// Session cookie works against protected endpoints.
	resp = doJSON(t, client, "GET", server.URL+"/users/profile", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("profile with external session: status %d", resp.StatusCode)
	}

	// Repeated logins never create a second record.
	for range 3 {
		doJSON(t, client, "POST", server.URL+"/users/firebase-login", map[string]string{
			"idToken": "fb-token-ana",
		}).Body.Close()
	}
	var count int
	database.QueryRow(`SELECT COUNT(*) FROM users WHERE email = 'ana@x.com'`).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 user record, got %d", count)
	}

	// Bad token.
	resp = doJSON(t, newClient(t), "POST", server.URL+"/users/firebase-login", map[string]string{
		"idToken": "forged",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("forged token: expected 401, got %d", resp.StatusCode)
	}
}

func TestBearerTokenResolvesPrincipal(t *testing.T) {
	server, _ := setupTestServer(t)

	// No session cookie at all: the external credential alone authenticates
	// and provisions the user.
	req, _ := http.NewRequest("GET", server.URL+"/users/profile", nil)
	req.Header.Set("Authorization", "Bearer fb-token-ana")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var profile model.User
	decodeBody(t, resp, &profile)
	if profile.Email != "ana@x.com" {
		t.Errorf("expected provisioned principal, got %+v", profile)
	}
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	server, _ := setupTestServer(t)

	resp := doJSON(t, http.DefaultClient, "POST", server.URL+"/inventory", map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateItem(t *testing.T) {
	server, _ := setupTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "Ana", "a@x.com")

	item := createItem(t, client, server.URL)
	if item.Status != model.StatusNotRecovered {
		t.Errorf("expected not-recovered, got %q", item.Status)
	}
	if item.ContactEmail != "a@x.com" {
		t.Errorf("contact email must come from the principal, got %q", item.ContactEmail)
	}

	// Public lookup.
	resp := doJSON(t, http.DefaultClient, "GET", server.URL+"/inventory/"+item.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get item: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Validation failures.
	for name, body := range map[string]map[string]string{
		"bad post type": {"postType": "stolen", "thumbnail": "u", "title": "T", "category": "C", "location": "L", "date": "2024-01-01"},
		"missing title": {"postType": "lost", "thumbnail": "u", "category": "C", "location": "L", "date": "2024-01-01"},
		"bad date":      {"postType": "lost", "thumbnail": "u", "title": "T", "category": "C", "location": "L", "date": "not-a-date"},
	} {
		resp := doJSON(t, client, "POST", server.URL+"/inventory", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", name, resp.StatusCode)
		}
	}
}

func TestRecoveryWorkflow(t *testing.T) {
	server, database := setupTestServer(t)

	anaClient := newClient(t)
	register(t, anaClient, server.URL, "Ana", "a@x.com")
	item := createItem(t, anaClient, server.URL)

	borClient := newClient(t)
	register(t, borClient, server.URL, "Bor", "b@x.com")

	// Invalid date: no recovery created.
	resp := doJSON(t, borClient, "POST", server.URL+"/inventory/"+item.ID+"/recover", map[string]string{
		"recoveredLocation": "Station", "recoveredDate": "not-a-date",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", resp.StatusCode)
	}
	var count int
	database.QueryRow(`SELECT COUNT(*) FROM recoveries`).Scan(&count)
	if count != 0 {
		t.Fatalf("expected no recovery after validation failure, got %d", count)
	}

	// B recovers A's item.
	resp = doJSON(t, borClient, "POST", server.URL+"/inventory/"+item.ID+"/recover", map[string]string{
		"recoveredLocation": "Station", "recoveredDate": "2024-01-05",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("recover: status %d", resp.StatusCode)
	}
	var recovery model.Recovery
	decodeBody(t, resp, &recovery)
	if recovery.RecoveredByEmail != "b@x.com" || recovery.OwnerEmail != "a@x.com" {
		t.Errorf("wrong parties: %+v", recovery)
	}
	if recovery.RecoveryStatus != model.RecoveryStatusPending {
		t.Errorf("expected pending, got %q", recovery.RecoveryStatus)
	}

	// Item flipped to recovered.
	resp = doJSON(t, http.DefaultClient, "GET", server.URL+"/inventory/"+item.ID, nil)
	var got model.Item
	decodeBody(t, resp, &got)
	if got.Status != model.StatusRecovered {
		t.Errorf("expected recovered, got %q", got.Status)
	}

	// Both parties see the recovery.
	for name, client := range map[string]*http.Client{"owner": anaClient, "claimant": borClient} {
		resp := doJSON(t, client, "GET", server.URL+"/recoveries", nil)
		var list []model.Recovery
		decodeBody(t, resp, &list)
		if len(list) != 1 {
			t.Errorf("%s: expected 1 recovery, got %d", name, len(list))
		}
	}

	// Deleting the item removes the recovery with it.
	resp = doJSON(t, anaClient, "DELETE", server.URL+"/inventory/"+item.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}

	resp = doJSON(t, http.DefaultClient, "GET", server.URL+"/inventory/"+item.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("after delete: expected 404, got %d", resp.StatusCode)
	}

	resp = doJSON(t, borClient, "GET", server.URL+"/recoveries", nil)
	var remaining []model.Recovery
	decodeBody(t, resp, &remaining)
	if len(remaining) != 0 {
		t.Errorf("expected no recoveries after item deletion, got %d", len(remaining))
	}
}

func TestSelfRecoveryRejected(t *testing.T) {
	server, _ := setupTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "Ana", "a@x.com")
	item := createItem(t, client, server.URL)

	resp := doJSON(t, client, "POST", server.URL+"/inventory/"+item.ID+"/recover", map[string]string{
		"recoveredLocation": "Station", "recoveredDate": "2024-01-05",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("self-recovery: expected 400, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.DefaultClient, "GET", server.URL+"/inventory/"+item.ID, nil)
	var got model.Item
	decodeBody(t, resp, &got)
	if got.Status != model.StatusNotRecovered {
		t.Errorf("item must stay not-recovered, got %q", got.Status)
	}
}

func TestUpdateItemAllowlist(t *testing.T) {
	server, _ := setupTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "Ana", "a@x.com")
	item := createItem(t, client, server.URL)

	// Allowlisted, ignored, and forbidden-by-design fields in one request.
	resp := doJSON(t, client, "PATCH", server.URL+"/inventory/"+item.ID, map[string]any{
		"title":        "Brown Wallet",
		"status":       "recovered",
		"contactEmail": "attacker@x.com",
		"bogus":        42,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: status %d", resp.StatusCode)
	}
	var result map[string]int64
	decodeBody(t, resp, &result)
	if result["modifiedCount"] != 1 {
		t.Errorf("expected modifiedCount 1, got %d", result["modifiedCount"])
	}

	resp = doJSON(t, http.DefaultClient, "GET", server.URL+"/inventory/"+item.ID, nil)
	var got model.Item
	decodeBody(t, resp, &got)
	if got.Title != "Brown Wallet" {
		t.Errorf("title not updated: %q", got.Title)
	}
	if got.Status != model.StatusNotRecovered {
		t.Errorf("status must not be writable through updates, got %q", got.Status)
	}
	if got.ContactEmail != "a@x.com" {
		t.Errorf("contact email must not be writable, got %q", got.ContactEmail)
	}

	// Missing item.
	resp = doJSON(t, client, "PATCH", server.URL+"/inventory/missing", map[string]any{"title": "X"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing item: expected 404, got %d", resp.StatusCode)
	}
}

func TestUpdateAndDeleteForbiddenForNonOwner(t *testing.T) {
	server, _ := setupTestServer(t)

	anaClient := newClient(t)
	register(t, anaClient, server.URL, "Ana", "a@x.com")
	item := createItem(t, anaClient, server.URL)

	borClient := newClient(t)
	register(t, borClient, server.URL, "Bor", "b@x.com")

	resp := doJSON(t, borClient, "PATCH", server.URL+"/inventory/"+item.ID, map[string]any{"title": "Mine Now"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner patch: expected 403, got %d", resp.StatusCode)
	}

	resp = doJSON(t, borClient, "DELETE", server.URL+"/inventory/"+item.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner delete: expected 403, got %d", resp.StatusCode)
	}
}

func TestUpdateRecoveryScoping(t *testing.T) {
	server, _ := setupTestServer(t)

	anaClient := newClient(t)
	register(t, anaClient, server.URL, "Ana", "a@x.com")
	item := createItem(t, anaClient, server.URL)

	borClient := newClient(t)
	register(t, borClient, server.URL, "Bor", "b@x.com")

	resp := doJSON(t, borClient, "POST", server.URL+"/inventory/"+item.ID+"/recover", map[string]string{
		"recoveredLocation": "Station", "recoveredDate": "2024-01-05",
	})
	var recovery model.Recovery
	decodeBody(t, resp, &recovery)

	// Claimant may update mutable fields.
	resp = doJSON(t, borClient, "PATCH", server.URL+"/recoveries/"+recovery.ID, map[string]any{
		"recoveryStatus": model.RecoveryStatusCompleted,
		"itemId":         "ignored-field",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("claimant patch: status %d", resp.StatusCode)
	}
	var updated model.Recovery
	decodeBody(t, resp, &updated)
	if updated.RecoveryStatus != model.RecoveryStatusCompleted {
		t.Errorf("expected completed, got %q", updated.RecoveryStatus)
	}
	if updated.ItemID != recovery.ItemID {
		t.Errorf("itemId must be immutable, got %q", updated.ItemID)
	}

	// A third party may not.
	ceneClient := newClient(t)
	register(t, ceneClient, server.URL, "Cene", "c@x.com")
	resp = doJSON(t, ceneClient, "PATCH", server.URL+"/recoveries/"+recovery.ID, map[string]any{"notes": "hi"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("third-party patch: expected 403, got %d", resp.StatusCode)
	}

	// Empty mutable set is a validation failure.
	resp = doJSON(t, borClient, "PATCH", server.URL+"/recoveries/"+recovery.ID, map[string]any{"itemId": "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty update: expected 400, got %d", resp.StatusCode)
	}

	// Missing recovery.
	resp = doJSON(t, borClient, "PATCH", server.URL+"/recoveries/missing", map[string]any{"notes": "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing recovery: expected 404, got %d", resp.StatusCode)
	}
}

func TestMyItems(t *testing.T) {
	server, _ := setupTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "Ana", "a@x.com")
	createItem(t, client, server.URL)

	resp := doJSON(t, client, "GET", server.URL+"/my-items?email=a%40x.com", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("my-items: status %d", resp.StatusCode)
	}
	var items []model.Item
	decodeBody(t, resp, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestListItemsFilters(t *testing.T) {
	server, _ := setupTestServer(t)
	client := newClient(t)
	register(t, client, server.URL, "Ana", "a@x.com")
	createItem(t, client, server.URL)

	resp := doJSON(t, http.DefaultClient, "GET", server.URL+"/inventory?type=lost&status=active&search=wallet", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d", resp.StatusCode)
	}
	var items []model.Item
	decodeBody(t, resp, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}

	resp = doJSON(t, http.DefaultClient, "GET", server.URL+"/inventory?type=found", nil)
	decodeBody(t, resp, &items)
	if len(items) != 0 {
		t.Errorf("expected 0 found items, got %d", len(items))
	}
}

func TestHighlights(t *testing.T) {
	server, database := setupTestServer(t)
	client := newClient(t)
	user := register(t, client, server.URL, "Ana", "a@x.com")

	// Non-admin create is forbidden.
	resp := doJSON(t, client, "POST", server.URL+"/highlights", map[string]any{
		"title": "Spring drive", "imageURL": "https://img/1.jpg",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", resp.StatusCode)
	}

	if _, err := database.Exec(`UPDATE users SET is_admin = 1 WHERE id = ?`, user.ID); err != nil {
		t.Fatalf("promoting admin: %v", err)
	}

	resp = doJSON(t, client, "POST", server.URL+"/highlights", map[string]any{
		"title": "Spring drive", "imageURL": "https://img/1.jpg",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("admin create: expected 201, got %d", resp.StatusCode)
	}

	// Public read.
	resp = doJSON(t, http.DefaultClient, "GET", server.URL+"/highlights", nil)
	var highlights []model.Highlight
	decodeBody(t, resp, &highlights)
	if len(highlights) != 1 {
		t.Errorf("expected 1 highlight, got %d", len(highlights))
	}
}
