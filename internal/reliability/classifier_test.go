package reliability

import "testing"

func TestRecoverable(t *testing.T) {
	cases := []struct {
		kind FailureKind
		want bool
	}{
		{FailureCredential, false},
		{FailureTimeout, true},
		{FailureProvider, true},
		{FailureStorage, true},
		{FailureNone, true},
	}
	for _, tc := range cases {
		if got := tc.kind.Recoverable(); got != tc.want {
			t.Fatalf("Recoverable(%q) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("IsRetryableHTTPStatus(%d) = false, want true", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("IsRetryableHTTPStatus(%d) = true, want false", code)
		}
	}
}
