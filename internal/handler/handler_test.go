package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/ledger"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/model"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/service"
	"github.com/mohammedshaibaaz/pulse-strength-gym/internal/testutil"
)

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, string, string, model.ClassSession) {}

type apiResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	Message string             `json:"message"`
	Error   string             `json:"error"`
	Errors  []model.FieldError `json:"errors"`
	Data    json.RawMessage    `json:"data"`
}

type classView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	BookedCount    int    `json:"booked_count"`
	AvailableSpots int    `json:"available_spots"`
	IsFull         bool   `json:"is_full"`
}

type bookingView struct {
	ID     string     `json:"id"`
	Email  string     `json:"email"`
	Status string     `json:"status"`
	Class  *classView `json:"class"`
}

type testServer struct {
	srv    *httptest.Server
	stores testutil.Stores
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	stores := testutil.OpenStores(t)
	svc := service.NewBookingService(stores.Classes, stores.Bookings, ledger.New(stores.Classes), discardNotifier{})

	site := t.TempDir()
	if err := os.WriteFile(filepath.Join(site, "index.html"), []byte("<h1>Pulse Strength Club</h1>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	srv := httptest.NewServer(NewRouter(NewBookingHandler(svc), site, "*"))
	t.Cleanup(srv.Close)
	return testServer{srv: srv, stores: stores}
}

func (ts testServer) do(t *testing.T, method, path string, body any) (int, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func bookBody(classID, email string) map[string]string {
	return map[string]string{
		"name":     "Member",
		"email":    email,
		"phone":    "+49 30 1234567",
		"class_id": classID,
	}
}

func (ts testServer) class(t *testing.T, id string) classView {
	t.Helper()
	status, resp := ts.do(t, http.MethodGet, "/api/classes/"+id, nil)
	if status != http.StatusOK {
		t.Fatalf("get class status = %d", status)
	}
	var c classView
	if err := json.Unmarshal(resp.Data, &c); err != nil {
		t.Fatalf("decode class: %v", err)
	}
	return c
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.srv.Client().Get(ts.srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" || body["timestamp"] == "" {
		t.Fatalf("health = %d %v", resp.StatusCode, body)
	}
}

func TestListClassesEmptyIsArray(t *testing.T) {
	ts := newTestServer(t)
	status, resp := ts.do(t, http.MethodGet, "/api/classes", nil)
	if status != http.StatusOK || !resp.Success || resp.Count != 0 {
		t.Fatalf("list = %d %+v", status, resp)
	}
	if string(resp.Data) != "[]" {
		t.Fatalf("data = %s, want []", resp.Data)
	}
}

func TestListClassesIncludesDerivedFields(t *testing.T) {
	ts := newTestServer(t)
	testutil.CreateClass(t, ts.stores.Classes, 4)

	status, resp := ts.do(t, http.MethodGet, "/api/classes", nil)
	if status != http.StatusOK || resp.Count != 1 {
		t.Fatalf("list = %d %+v", status, resp)
	}
	var classes []classView
	if err := json.Unmarshal(resp.Data, &classes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if classes[0].AvailableSpots != 4 || classes[0].IsFull {
		t.Fatalf("class = %+v", classes[0])
	}
}

func TestGetClassNotFound(t *testing.T) {
	ts := newTestServer(t)
	status, resp := ts.do(t, http.MethodGet, "/api/classes/0b0c7d0e-6a44-4c4e-9c3f-1f2e3d4c5b6a", nil)
	if status != http.StatusNotFound || resp.Success || resp.Error != "Class not found" {
		t.Fatalf("get = %d %+v", status, resp)
	}
}

func TestPersonalTrainingScenarioOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	class := testutil.CreateClass(t, ts.stores.Classes, 1)

	status, resp := ts.do(t, http.MethodPost, "/api/book", bookBody(class.ID, "alice@example.com"))
	if status != http.StatusCreated || !resp.Success || !strings.HasPrefix(resp.Message, "Class booked successfully!") {
		t.Fatalf("alice = %d %+v", status, resp)
	}
	var alice bookingView
	if err := json.Unmarshal(resp.Data, &alice); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if alice.Class == nil || alice.Class.BookedCount != 1 || !alice.Class.IsFull {
		t.Fatalf("alice booking class = %+v", alice.Class)
	}

	status, resp = ts.do(t, http.MethodPost, "/api/book", bookBody(class.ID, "bob@example.com"))
	if status != http.StatusBadRequest || resp.Error != "Class is full. Please choose another class or time." {
		t.Fatalf("bob = %d %+v", status, resp)
	}

	status, resp = ts.do(t, http.MethodPost, "/api/book", bookBody(class.ID, "alice@example.com"))
	if status != http.StatusBadRequest || resp.Error != "You have already booked this class." {
		t.Fatalf("alice retry = %d %+v", status, resp)
	}

	status, resp = ts.do(t, http.MethodDelete, "/api/booking/"+alice.ID, nil)
	if status != http.StatusOK || resp.Message != "Booking cancelled successfully" {
		t.Fatalf("cancel = %d %+v", status, resp)
	}
	if c := ts.class(t, class.ID); c.BookedCount != 0 || c.IsFull {
		t.Fatalf("after cancel = %+v", c)
	}

	// A second cancel is a no-op success.
	status, _ = ts.do(t, http.MethodDelete, "/api/booking/"+alice.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("second cancel = %d", status)
	}
	if c := ts.class(t, class.ID); c.BookedCount != 0 {
		t.Fatalf("after second cancel = %+v", c)
	}
}

func TestBookValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]string{"name": "", "email": "nope", "phone": "", "class_id": "1"}

	status, resp := ts.do(t, http.MethodPost, "/api/book", body)
	if status != http.StatusBadRequest || resp.Success {
		t.Fatalf("book = %d %+v", status, resp)
	}
	want := map[string]string{
		"name":     "Name is required",
		"email":    "Valid email is required",
		"phone":    "Phone number is required",
		"class_id": "Valid class ID is required",
	}
	if len(resp.Errors) != len(want) {
		t.Fatalf("errors = %+v", resp.Errors)
	}
	for _, fe := range resp.Errors {
		if want[fe.Field] != fe.Msg {
			t.Errorf("field %s msg = %q, want %q", fe.Field, fe.Msg, want[fe.Field])
		}
	}
}

func TestBookRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{`{"name":`, `{"name":"A","unexpected":true}`} {
		status, resp := ts.do(t, http.MethodPost, "/api/book", body)
		if status != http.StatusBadRequest || !strings.HasPrefix(resp.Error, "invalid request body") {
			t.Fatalf("body %s = %d %+v", body, status, resp)
		}
	}
}

func TestBookUnknownClass(t *testing.T) {
	ts := newTestServer(t)
	status, resp := ts.do(t, http.MethodPost, "/api/book", bookBody("0b0c7d0e-6a44-4c4e-9c3f-1f2e3d4c5b6a", "a@example.com"))
	if status != http.StatusNotFound || resp.Error != "Class not found" {
		t.Fatalf("book = %d %+v", status, resp)
	}
}

func TestListBookingsByEmail(t *testing.T) {
	ts := newTestServer(t)
	class := testutil.CreateClass(t, ts.stores.Classes, 5)

	if status, resp := ts.do(t, http.MethodPost, "/api/book", bookBody(class.ID, "Carol@Example.com")); status != http.StatusCreated {
		t.Fatalf("book = %d %+v", status, resp)
	}

	status, resp := ts.do(t, http.MethodGet, "/api/bookings/carol@example.com", nil)
	if status != http.StatusOK || resp.Count != 1 {
		t.Fatalf("list = %d %+v", status, resp)
	}
	var bookings []bookingView
	if err := json.Unmarshal(resp.Data, &bookings); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bookings[0].Email != "carol@example.com" || bookings[0].Status != "confirmed" || bookings[0].Class == nil {
		t.Fatalf("booking = %+v", bookings[0])
	}

	status, resp = ts.do(t, http.MethodGet, "/api/bookings/nobody@example.com", nil)
	if status != http.StatusOK || resp.Count != 0 || string(resp.Data) != "[]" {
		t.Fatalf("empty list = %d %+v", status, resp)
	}
}

func TestCancelUnknownBooking(t *testing.T) {
	ts := newTestServer(t)
	status, resp := ts.do(t, http.MethodDelete, "/api/booking/missing", nil)
	if status != http.StatusNotFound || resp.Error != "Booking not found" {
		t.Fatalf("cancel = %d %+v", status, resp)
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	ts := newTestServer(t)
	status, resp := ts.do(t, http.MethodGet, "/api/memberships", nil)
	if status != http.StatusNotFound || resp.Error != "Route not found" {
		t.Fatalf("unknown route = %d %+v", status, resp)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.srv.URL+"/api/book", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "https://pulsestrength.club")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("allow methods = %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}
}

func TestCORSWithSpecificOriginAllowsCredentials(t *testing.T) {
	h := CORS("https://pulsestrength.club")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classes", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials to be allowed for a fixed origin")
	}
}

func TestServesStaticSite(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.srv.Client().Get(ts.srv.URL + "/")
	if err != nil {
		t.Fatalf("get /: %v", err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(buf.String(), "Pulse Strength Club") {
		t.Fatalf("static = %d %q", resp.StatusCode, buf.String())
	}
}
