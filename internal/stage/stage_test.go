package stage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const plansJSON = `{
	"items": [
		{"identifier": "free", "name": "Free", "draft": false, "monthlyUnitAmount": 0, "yearlyUnitAmount": 0, "features": {"items": []}},
		{"identifier": "pro-monthly", "name": "Pro", "draft": false, "monthlyUnitAmount": 999, "yearlyUnitAmount": 9990, "features": {"items": [{"identifier": "seats", "name": "Seats", "limit": 5}]}},
		{"identifier": "enterprise", "name": "Enterprise", "draft": true, "monthlyUnitAmount": 9999, "yearlyUnitAmount": 99990, "features": {"items": []}}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
}

func TestListPlans(t *testing.T) {
	var gotAccept, gotAuth, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(plansJSON))
	})

	plans, err := client.ListPlans(context.Background())
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}

	if gotPath != "/plans" {
		t.Errorf("path = %q, want /plans", gotPath)
	}
	if gotAccept != "application/vnd.heystage.v1+json" {
		t.Errorf("accept = %q, want versioned content type", gotAccept)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q, want bearer key", gotAuth)
	}
	if len(plans.Items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(plans.Items))
	}
	if plans.Items[1].Features.Items[0].Limit == nil || *plans.Items[1].Features.Items[0].Limit != 5 {
		t.Error("expected seats feature limit 5")
	}
}

func TestGetUserPlans(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/u-123/plans" {
			t.Errorf("path = %q, want /users/u-123/plans", r.URL.Path)
		}
		w.Write([]byte(`{"planIdentifier": "pro-monthly", "plans": ` + plansJSON + `}`))
	})

	up, err := client.GetUserPlans(context.Background(), "u-123")
	if err != nil {
		t.Fatalf("get user plans: %v", err)
	}
	if up.PlanIdentifier != "pro-monthly" {
		t.Errorf("planIdentifier = %q, want pro-monthly", up.PlanIdentifier)
	}
	if len(up.Plans.Items) != 3 {
		t.Errorf("len(plans) = %d, want 3", len(up.Plans.Items))
	}
}

func TestCreateUser(t *testing.T) {
	var body map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users" {
			t.Errorf("got %s %s, want POST /users", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	})

	if err := client.CreateUser(context.Background(), "u-123"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if body["identifier"] != "u-123" {
		t.Errorf("identifier = %q, want u-123", body["identifier"])
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	var params CheckoutParams
	var gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/u-123/plans/pro-monthly/checkout-sessions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&params)
		w.Write([]byte(`{"url": "https://checkout.stripe.com/c/pay_abc"}`))
	})

	url, err := client.CreateCheckoutSession(context.Background(), "u-123", "pro-monthly", CheckoutParams{
		SuccessURL:      "https://demo.test",
		CancelURL:       "https://demo.test",
		BillingInterval: BillingIntervalMonth,
	})
	if err != nil {
		t.Fatalf("create checkout session: %v", err)
	}

	if url != "https://checkout.stripe.com/c/pay_abc" {
		t.Errorf("url = %q", url)
	}
	if gotKey == "" {
		t.Error("expected an idempotency key header")
	}
	if params.BillingInterval != "MONTH" {
		t.Errorf("billingInterval = %q, want MONTH", params.BillingInterval)
	}
	if params.SuccessURL != "https://demo.test" || params.CancelURL != "https://demo.test" {
		t.Errorf("urls = %q / %q, want origin both", params.SuccessURL, params.CancelURL)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int
	var keys []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"url": "https://checkout.stripe.com/c/pay_abc"}`))
	})

	url, err := client.CreateCheckoutSession(context.Background(), "u-1", "pro-monthly", CheckoutParams{})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if url == "" {
		t.Error("expected non-empty url")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// Same key on every attempt, so Stage can deduplicate.
	for _, k := range keys {
		if k != keys[0] {
			t.Errorf("idempotency key changed across retries: %v", keys)
		}
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.ListPlans(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %T, want *UpstreamError", err)
	}
	if ue.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", ue.Status)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", calls)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetUserPlans(context.Background(), "nobody")
	if err == nil {
		t.Fatal("expected error")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %T, want *UpstreamError", err)
	}
	if ue.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", ue.Status)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}

func TestConfigured(t *testing.T) {
	if !NewClient("key").Configured() {
		t.Error("expected Configured() = true")
	}
	if NewClient("").Configured() {
		t.Error("expected Configured() = false")
	}
}
