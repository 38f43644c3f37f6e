package httpapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/transito-regional/licensing-api/internal/adapters/httpapi"
	memdriverrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/driverrepo"
	mementityrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/entityrepo"
	memexamrepo "github.com/transito-regional/licensing-api/internal/adapters/memory/examrepo"
	memlicenserepo "github.com/transito-regional/licensing-api/internal/adapters/memory/licenserepo"
	"github.com/transito-regional/licensing-api/internal/app/exams"
	"github.com/transito-regional/licensing-api/internal/app/licenses"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestHandler(t *testing.T, today time.Time) http.Handler {
	t.Helper()

	licenseRepo := memlicenserepo.NewRepo()
	examRepo := memexamrepo.NewRepo()
	driverRepo := memdriverrepo.NewRepo()
	entityRepo := mementityrepo.NewRepo()

	licenseSvc := licenses.NewService(licenseRepo, driverRepo, fixedClock{now: today})
	examSvc := exams.NewService(examRepo, driverRepo, entityRepo)

	return httpapi.NewRouter(httpapi.NewServer(licenseSvc, examSvc, driverRepo, entityRepo))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func createDriver(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, body := doJSON(t, h, http.MethodPost, "/drivers", map[string]any{
		"documentId": "DOC-1",
		"fullName":   "Ana Fuentes",
		"birthDate":  "1992-09-03",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create driver: status=%d body=%v", rec.Code, body)
	}
	return body["id"].(string)
}

func createEntity(t *testing.T, h http.Handler, entityType string) string {
	t.Helper()
	rec, body := doJSON(t, h, http.MethodPost, "/entities", map[string]any{
		"name":       "Entity " + entityType,
		"entityType": entityType,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create entity: status=%d body=%v", rec.Code, body)
	}
	return body["id"].(string)
}

func passExam(t *testing.T, h http.Handler, driverID, entityID, examType string) {
	t.Helper()
	rec, body := doJSON(t, h, http.MethodPost, "/exams", map[string]any{
		"examType": examType,
		"date":     "2024-02-01",
		"result":   "PASSED",
		"entityId": entityID,
		"driverId": driverID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record %s: status=%d body=%v", examType, rec.Code, body)
	}
}

func passAllExams(t *testing.T, h http.Handler, driverID string) {
	t.Helper()
	clinic := createEntity(t, h, "CLINIC")
	school := createEntity(t, h, "DRIVING_SCHOOL")
	passExam(t, h, driverID, clinic, "MEDICAL")
	passExam(t, h, driverID, school, "THEORETICAL")
	passExam(t, h, driverID, school, "PRACTICAL")
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error envelope in %v", body)
	}
	code, _ := e["code"].(string)
	return code
}

func TestAPI_IssuanceGatedOnExamChain(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	driverID := createDriver(t, h)

	issueReq := map[string]any{
		"driverId":      driverID,
		"licenseType":   "B",
		"category":      "AUTOMOVIL",
		"validityYears": 5,
	}

	rec, body := doJSON(t, h, http.MethodPost, "/licenses", issueReq)
	if rec.Code != http.StatusConflict || errorCode(t, body) != "EXAMS_INCOMPLETE" {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}

	passAllExams(t, h, driverID)

	rec, body = doJSON(t, h, http.MethodGet, "/drivers/"+driverID+"/exams/complete", nil)
	if rec.Code != http.StatusOK || body["complete"] != true {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}

	rec, body = doJSON(t, h, http.MethodPost, "/licenses", issueReq)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}
	if body["points"] != float64(20) || body["renewed"] != false || body["status"] != "ACTIVE" {
		t.Fatalf("body=%v", body)
	}
	if body["issueDate"] != "2024-03-01" || body["expiryDate"] != "2029-03-01" {
		t.Fatalf("dates: %v .. %v", body["issueDate"], body["expiryDate"])
	}
}

func TestAPI_LicenseLifecycle(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	driverID := createDriver(t, h)
	passAllExams(t, h, driverID)

	rec, body := doJSON(t, h, http.MethodPost, "/licenses", map[string]any{
		"driverId":      driverID,
		"licenseType":   "B",
		"category":      "AUTOMOVIL",
		"validityYears": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue: status=%d body=%v", rec.Code, body)
	}
	licenseID := body["id"].(string)

	// Points ledger over HTTP.
	rec, body = doJSON(t, h, http.MethodPost, "/licenses/"+licenseID+"/points/deduct", map[string]any{"points": 8})
	if rec.Code != http.StatusOK || body["points"] != float64(12) {
		t.Fatalf("deduct: status=%d body=%v", rec.Code, body)
	}
	rec, body = doJSON(t, h, http.MethodPost, "/licenses/"+licenseID+"/points/deduct", map[string]any{"points": 8})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, body) != "INVALID_LICENSE_DATA" {
		t.Fatalf("deduct below floor: status=%d body=%v", rec.Code, body)
	}
	rec, body = doJSON(t, h, http.MethodPost, "/licenses/"+licenseID+"/points/restore", map[string]any{"points": 3})
	if rec.Code != http.StatusOK || body["points"] != float64(15) {
		t.Fatalf("restore: status=%d body=%v", rec.Code, body)
	}

	// Renewal.
	rec, body = doJSON(t, h, http.MethodGet, "/licenses/"+licenseID+"/renewal", nil)
	if rec.Code != http.StatusOK || body["renewable"] != true || body["state"] != "ACTIVE" {
		t.Fatalf("renewal status: status=%d body=%v", rec.Code, body)
	}
	rec, body = doJSON(t, h, http.MethodPost, "/licenses/"+licenseID+"/renew", map[string]any{"newExpiryDate": "2030-03-01"})
	if rec.Code != http.StatusOK || body["renewed"] != true || body["expiryDate"] != "2030-03-01" {
		t.Fatalf("renew: status=%d body=%v", rec.Code, body)
	}
	rec, body = doJSON(t, h, http.MethodPost, "/licenses/"+licenseID+"/renew", map[string]any{"newExpiryDate": "2031-03-01"})
	if rec.Code != http.StatusConflict || errorCode(t, body) != "LICENSE_ALREADY_RENEWED" {
		t.Fatalf("second renew: status=%d body=%v", rec.Code, body)
	}

	// Revocation is terminal.
	rec, body = doJSON(t, h, http.MethodPost, "/licenses/"+licenseID+"/revoke", map[string]any{"reason": "court order"})
	if rec.Code != http.StatusOK || body["status"] != "REVOKED" {
		t.Fatalf("revoke: status=%d body=%v", rec.Code, body)
	}
	rec, body = doJSON(t, h, http.MethodPost, "/licenses/"+licenseID+"/points/deduct", map[string]any{"points": 1})
	if rec.Code != http.StatusConflict || errorCode(t, body) != "LICENSE_REVOKED" {
		t.Fatalf("deduct after revoke: status=%d body=%v", rec.Code, body)
	}
}

func TestAPI_IssueRejectsIncompatiblePair(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	driverID := createDriver(t, h)
	passAllExams(t, h, driverID)

	rec, body := doJSON(t, h, http.MethodPost, "/licenses", map[string]any{
		"driverId":      driverID,
		"licenseType":   "A",
		"category":      "AUTOMOVIL",
		"validityYears": 5,
	})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, body) != "INVALID_LICENSE_DATA" {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}
}

func TestAPI_ExamEligibilityAndRetake(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	driverID := createDriver(t, h)
	school := createEntity(t, h, "DRIVING_SCHOOL")

	eligibilityPath := fmt.Sprintf("/drivers/%s/exams/eligibility?type=THEORETICAL", driverID)
	rec, body := doJSON(t, h, http.MethodGet, eligibilityPath, nil)
	if rec.Code != http.StatusOK || body["eligible"] != true {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}

	passExam(t, h, driverID, school, "THEORETICAL")

	rec, body = doJSON(t, h, http.MethodGet, eligibilityPath, nil)
	if rec.Code != http.StatusOK || body["eligible"] != false {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}

	rec, body = doJSON(t, h, http.MethodPost, "/exams", map[string]any{
		"examType": "THEORETICAL",
		"date":     "2024-03-01",
		"result":   "FAILED",
		"entityId": school,
		"driverId": driverID,
	})
	if rec.Code != http.StatusConflict || errorCode(t, body) != "EXAM_ALREADY_PASSED" {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}
}

func TestAPI_ExamEntityMismatch(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	driverID := createDriver(t, h)
	clinic := createEntity(t, h, "CLINIC")

	rec, body := doJSON(t, h, http.MethodPost, "/exams", map[string]any{
		"examType": "PRACTICAL",
		"date":     "2024-03-01",
		"result":   "PASSED",
		"entityId": clinic,
		"driverId": driverID,
	})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, body) != "INVALID_EXAM_DATA" {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}
}

func TestAPI_PassRateStats(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	school := createEntity(t, h, "DRIVING_SCHOOL")

	d1 := createDriver(t, h)
	d2 := createDriver(t, h)
	passExam(t, h, d1, school, "THEORETICAL")
	if rec, body := doJSON(t, h, http.MethodPost, "/exams", map[string]any{
		"examType": "THEORETICAL",
		"date":     "2024-02-01",
		"result":   "FAILED",
		"entityId": school,
		"driverId": d2,
	}); rec.Code != http.StatusCreated {
		t.Fatalf("record failed: status=%d body=%v", rec.Code, body)
	}

	rec, body := doJSON(t, h, http.MethodGet, "/stats/exams/pass-rate?type=THEORETICAL", nil)
	if rec.Code != http.StatusOK || body["passed"] != float64(1) || body["total"] != float64(2) || body["rate"] != float64(50) {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/stats/exams/pass-rate?entityId="+school, nil)
	if rec.Code != http.StatusOK || body["total"] != float64(2) {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/stats/exams/pass-rate", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}
}

func TestAPI_ListLicensesFilters(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	driverID := createDriver(t, h)
	passAllExams(t, h, driverID)

	for _, in := range []map[string]any{
		{"driverId": driverID, "licenseType": "B", "category": "AUTOMOVIL", "validityYears": 2},
		{"driverId": driverID, "licenseType": "A", "category": "MOTO", "validityYears": 10},
	} {
		if rec, body := doJSON(t, h, http.MethodPost, "/licenses", in); rec.Code != http.StatusCreated {
			t.Fatalf("issue: status=%d body=%v", rec.Code, body)
		}
	}

	count := func(path string) int {
		t.Helper()
		rec, body := doJSON(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status=%d body=%v", path, rec.Code, body)
		}
		ls, _ := body["licenses"].([]any)
		return len(ls)
	}

	if n := count("/licenses"); n != 2 {
		t.Fatalf("all = %d", n)
	}
	if n := count("/licenses?driverId=" + driverID); n != 2 {
		t.Fatalf("byDriver = %d", n)
	}
	if n := count("/licenses?type=A"); n != 1 {
		t.Fatalf("byType = %d", n)
	}
	if n := count("/licenses?category=AUTOMOVIL"); n != 1 {
		t.Fatalf("byCategory = %d", n)
	}
	if n := count("/licenses?state=ACTIVE"); n != 2 {
		t.Fatalf("active = %d", n)
	}
	if n := count("/licenses?expiringFrom=2026-01-01&expiringTo=2026-12-31"); n != 1 {
		t.Fatalf("expiringBetween = %d", n)
	}

	rec, _ := doJSON(t, h, http.MethodGet, "/licenses?state=BOGUS", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bogus state: status=%d", rec.Code)
	}
}

func TestAPI_ErrorEnvelopeCarriesRequestID(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	rec, body := doJSON(t, h, http.MethodGet, "/licenses/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%v", rec.Code, body)
	}
	e := body["error"].(map[string]any)
	if e["code"] != "LICENSE_NOT_FOUND" {
		t.Fatalf("body=%v", body)
	}
	if rid, ok := e["requestId"].(string); !ok || rid == "" {
		t.Fatalf("missing requestId: %v", body)
	}
}
