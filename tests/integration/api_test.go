//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRegisterDuplicateUsername(t *testing.T) {
	registerUser(t, "dup_user")

	resp := performJSONRequest(t, suite.router, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"username": "dup_user",
		"password": "another-pass",
		"role":     "Client",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	body := decodeObject(t, resp.Body.Bytes())
	if body["message"] != "Username already exists." {
		t.Fatalf("unexpected message %q", body["message"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	registerUser(t, "login_user")

	resp := performJSONRequest(t, suite.router, http.MethodPost, "/api/auth/login", map[string]interface{}{
		"username": "login_user",
		"password": "wrong",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}

	resp = performJSONRequest(t, suite.router, http.MethodPost, "/api/auth/login", map[string]interface{}{
		"username": "login_user",
		"password": "integration-pass",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	body := decodeObject(t, resp.Body.Bytes())
	if body["role"] != "Client" {
		t.Fatalf("unexpected role %v", body["role"])
	}
}

func TestSessionLifecycle(t *testing.T) {
	registerUser(t, "session_user")
	userID := lookupUserID(t, "session_user")

	resp := performJSONRequest(t, suite.router, http.MethodPost, "/api/proxy/sessions/start", map[string]interface{}{
		"userId":    userID,
		"ipAddress": "192.168.1.20",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("start session failed: %d %s", resp.Code, resp.Body.String())
	}
	body := decodeObject(t, resp.Body.Bytes())
	sessionID := int64(body["sessionId"].(float64))
	if sessionID <= 0 {
		t.Fatalf("invalid session id %v", body["sessionId"])
	}

	resp = performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/proxy/sessions/user/%d", userID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list sessions failed: %d", resp.Code)
	}
	sessions := decodeArray(t, resp.Body.Bytes())
	if len(sessions) != 1 || sessions[0]["status"] != "Active" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}

	resp = performJSONRequest(t, suite.router, http.MethodPost,
		fmt.Sprintf("/api/proxy/sessions/%d/stop", sessionID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("stop session failed: %d", resp.Code)
	}

	resp = performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/proxy/sessions/user/%d", userID), nil)
	sessions = decodeArray(t, resp.Body.Bytes())
	if len(sessions) != 0 {
		t.Fatalf("expected no active sessions, got %+v", sessions)
	}

	// Stopping again is a silent success.
	resp = performJSONRequest(t, suite.router, http.MethodPost,
		fmt.Sprintf("/api/proxy/sessions/%d/stop", sessionID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("repeated stop should succeed: %d", resp.Code)
	}
}

func TestSettingsDefaultedAndUpserted(t *testing.T) {
	registerUser(t, "settings_user")
	userID := lookupUserID(t, "settings_user")

	resp := performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/proxy/settings/user/%d", userID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get settings failed: %d", resp.Code)
	}
	body := decodeObject(t, resp.Body.Bytes())
	if body["enable_payment_filter"] != true || body["auto_approval"] != false {
		t.Fatalf("unexpected defaults %+v", body)
	}

	// Reading defaults must not create a row.
	var count int
	if err := suite.pool.QueryRow(t.Context(),
		`SELECT COUNT(*) FROM proxy_settings WHERE user_id = $1`, userID).Scan(&count); err != nil {
		t.Fatalf("count settings rows: %v", err)
	}
	if count != 0 {
		t.Fatal("default settings were persisted")
	}

	resp = performJSONRequest(t, suite.router, http.MethodPut,
		fmt.Sprintf("/api/proxy/settings/user/%d", userID), map[string]interface{}{
			"autoApproval": true,
		})
	if resp.Code != http.StatusOK {
		t.Fatalf("update settings failed: %d %s", resp.Code, resp.Body.String())
	}

	resp = performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/proxy/settings/user/%d", userID), nil)
	body = decodeObject(t, resp.Body.Bytes())
	if body["auto_approval"] != true {
		t.Fatalf("auto_approval not persisted: %+v", body)
	}
	if body["enable_payment_filter"] != true {
		t.Fatalf("omitted field lost its default: %+v", body)
	}

	// A second update upserts the same row rather than inserting another.
	resp = performJSONRequest(t, suite.router, http.MethodPut,
		fmt.Sprintf("/api/proxy/settings/user/%d", userID), map[string]interface{}{
			"enablePaymentFilter": false,
		})
	if resp.Code != http.StatusOK {
		t.Fatalf("second update failed: %d", resp.Code)
	}
	if err := suite.pool.QueryRow(t.Context(),
		`SELECT COUNT(*) FROM proxy_settings WHERE user_id = $1`, userID).Scan(&count); err != nil {
		t.Fatalf("count settings rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single settings row, got %d", count)
	}
}

func TestTrafficLogsNewestFirstAndPaymentFilter(t *testing.T) {
	registerUser(t, "traffic_user")
	userID := lookupUserID(t, "traffic_user")

	resp := performJSONRequest(t, suite.router, http.MethodPost, "/api/proxy/sessions/start", map[string]interface{}{
		"userId": userID,
	})
	sessionID := int64(decodeObject(t, resp.Body.Bytes())["sessionId"].(float64))

	base := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		payload := map[string]interface{}{
			"sessionId":        sessionID,
			"timestamp":        base.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
			"url":              fmt.Sprintf("https://example.com/page-%d", i),
			"method":           "GET",
			"statusCode":       200,
			"isPaymentRelated": i == 2,
		}
		resp = performJSONRequest(t, suite.router, http.MethodPost, "/api/proxy/logs", payload)
		if resp.Code != http.StatusOK {
			t.Fatalf("add log %d failed: %d %s", i, resp.Code, resp.Body.String())
		}
	}

	resp = performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/proxy/logs/session/%d", sessionID), nil)
	logs := decodeArray(t, resp.Body.Bytes())
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	if logs[0]["url"] != "https://example.com/page-2" {
		t.Fatalf("logs not newest-first: %+v", logs[0])
	}

	resp = performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/proxy/logs/payments/user/%d", userID), nil)
	payments := decodeArray(t, resp.Body.Bytes())
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment log, got %d", len(payments))
	}
	if payments[0]["is_payment_related"] != true {
		t.Fatalf("unexpected payment log %+v", payments[0])
	}
}

func TestPaymentLogsLimitNewestFirst(t *testing.T) {
	registerUser(t, "payment_limit_user")
	userID := lookupUserID(t, "payment_limit_user")

	resp := performJSONRequest(t, suite.router, http.MethodPost, "/api/proxy/sessions/start", map[string]interface{}{
		"userId": userID,
	})
	sessionID := int64(decodeObject(t, resp.Body.Bytes())["sessionId"].(float64))

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		resp = performJSONRequest(t, suite.router, http.MethodPost, "/api/proxy/logs", map[string]interface{}{
			"sessionId":        sessionID,
			"timestamp":        base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
			"url":              fmt.Sprintf("https://pay.example.com/charge-%d", i),
			"method":           "POST",
			"statusCode":       200,
			"isPaymentRelated": true,
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("add payment log %d failed: %d %s", i, resp.Code, resp.Body.String())
		}
	}

	resp = performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/proxy/logs/payments/user/%d?limit=2", userID), nil)
	payments := decodeArray(t, resp.Body.Bytes())
	if len(payments) != 2 {
		t.Fatalf("expected limit=2 to return 2 rows, got %d", len(payments))
	}
	if payments[0]["url"] != "https://pay.example.com/charge-2" {
		t.Fatalf("rows not newest-first: %+v", payments[0])
	}
	if payments[1]["url"] != "https://pay.example.com/charge-1" {
		t.Fatalf("second row should be the next-newest: %+v", payments[1])
	}

	// No limit parameter falls back to the default, which covers all three.
	resp = performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/proxy/logs/payments/user/%d", userID), nil)
	payments = decodeArray(t, resp.Body.Bytes())
	if len(payments) != 3 {
		t.Fatalf("expected default limit to return all 3 rows, got %d", len(payments))
	}
	if payments[0]["url"] != "https://pay.example.com/charge-2" {
		t.Fatalf("default listing not newest-first: %+v", payments[0])
	}
}

func TestStatsAdditiveUpsert(t *testing.T) {
	registerUser(t, "stats_user")
	userID := lookupUserID(t, "stats_user")

	for i := 0; i < 2; i++ {
		resp := performJSONRequest(t, suite.router, http.MethodPost, "/api/stats/record", map[string]interface{}{
			"userId":          userID,
			"requestsCount":   10,
			"dataTransferred": 2048,
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("record stats failed: %d %s", resp.Code, resp.Body.String())
		}
	}

	resp := performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/stats/daily/%d", userID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("daily stats failed: %d", resp.Code)
	}
	rows := decodeArray(t, resp.Body.Bytes())
	if len(rows) != 1 {
		t.Fatalf("expected single daily row, got %d", len(rows))
	}
	if rows[0]["requests_count"].(float64) != 20 {
		t.Fatalf("counters not additive: %+v", rows[0])
	}
	if rows[0]["data_transferred"].(float64) != 4096 {
		t.Fatalf("data_transferred not additive: %+v", rows[0])
	}

	resp = performJSONRequest(t, suite.router, http.MethodGet,
		fmt.Sprintf("/api/stats/monthly/%d", userID), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("monthly stats failed: %d", resp.Code)
	}
	months := decodeArray(t, resp.Body.Bytes())
	if len(months) != 1 {
		t.Fatalf("expected single monthly row, got %d", len(months))
	}
	if months[0]["requests_count"].(float64) != 20 {
		t.Fatalf("monthly aggregation wrong: %+v", months[0])
	}
}

func TestApprovalDecisionRoundTrip(t *testing.T) {
	resp := performJSONRequest(t, suite.router, http.MethodPost, "/api/approvals/intercepted", map[string]interface{}{
		"url":    "https://pay.example/charge",
		"method": "POST",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("intercepted failed: %d", resp.Code)
	}
	flowID := decodeObject(t, resp.Body.Bytes())["flowId"].(string)

	done := make(chan []byte, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/approvals/"+flowID+"/wait", nil)
		waitResp := httptest.NewRecorder()
		suite.router.ServeHTTP(waitResp, req)
		done <- waitResp.Body.Bytes()
	}()

	time.Sleep(50 * time.Millisecond)
	resp = performJSONRequest(t, suite.router, http.MethodPost,
		"/api/approvals/"+flowID+"/decision", map[string]interface{}{"action": "approve"})
	if resp.Code != http.StatusOK {
		t.Fatalf("decision failed: %d %s", resp.Code, resp.Body.String())
	}

	select {
	case raw := <-done:
		body := decodeObject(t, raw)
		if body["decision"] != "approve" {
			t.Fatalf("long-poll returned %v", body["decision"])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("long-poll did not complete")
	}
}
