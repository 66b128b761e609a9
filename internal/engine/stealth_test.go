package engine

import "testing"

func TestBrowserHeaders(t *testing.T) {
	h := BrowserHeaders()

	required := []string{"accept", "accept-language", "user-agent"}
	for _, key := range required {
		if _, ok := h[key]; !ok {
			t.Errorf("BrowserHeaders() missing key %q", key)
		}
	}

	ua := h["user-agent"]
	if len(ua) < 20 {
		t.Errorf("user-agent too short: %q", ua)
	}
	if h["accept-language"] != "en-US,en;q=0.9" {
		t.Errorf("accept-language = %q", h["accept-language"])
	}
}
