package endpoint

import "testing"

func TestResolveSelectsHostByRegion(t *testing.T) {
	cases := []struct {
		region Region
		want   string
	}{
		{RegionChina, "wss://dashscope.aliyuncs.com/api-ws/v1/realtime?model=qwen3-asr-flash-realtime"},
		{RegionInternational, "wss://dashscope-intl.aliyuncs.com/api-ws/v1/realtime?model=qwen3-asr-flash-realtime"},
		{"", "wss://dashscope-intl.aliyuncs.com/api-ws/v1/realtime?model=qwen3-asr-flash-realtime"},
	}

	for _, tc := range cases {
		ep, err := Resolve(Config{Region: tc.region, Model: "qwen3-asr-flash-realtime", APIKey: "sk-test"})
		if err != nil {
			t.Fatalf("expected no error for region %q, got %v", tc.region, err)
		}
		if ep.URL != tc.want {
			t.Fatalf("expected url %q for region %q, got %q", tc.want, tc.region, ep.URL)
		}
		if got := ep.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("expected bearer header, got %q", got)
		}
	}
}

func TestResolveRejectsIncompleteConfig(t *testing.T) {
	if _, err := Resolve(Config{Model: "m"}); err == nil {
		t.Fatalf("expected error without api key")
	}
	if _, err := Resolve(Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected error without model")
	}
	if _, err := Resolve(Config{Region: "mars", Model: "m", APIKey: "k"}); err == nil {
		t.Fatalf("expected error for unknown region")
	}
}

func TestParseRegion(t *testing.T) {
	for in, want := range map[string]Region{
		"":              RegionInternational,
		"intl":          RegionInternational,
		"International": RegionInternational,
		"cn":            RegionChina,
		" china ":       RegionChina,
	} {
		got, err := ParseRegion(in)
		if err != nil {
			t.Fatalf("expected %q to parse, got %v", in, err)
		}
		if got != want {
			t.Fatalf("expected %q to parse as %q, got %q", in, want, got)
		}
	}
	if _, err := ParseRegion("eu"); err == nil {
		t.Fatalf("expected error for unsupported region")
	}
}

func TestResolveBaseURLOverride(t *testing.T) {
	ep, err := Resolve(Config{Model: "qwen-tts-realtime", APIKey: "k", BaseURL: "ws://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ep.URL != "ws://127.0.0.1:8080/api-ws/v1/realtime?model=qwen-tts-realtime" {
		t.Fatalf("unexpected url %s", ep.URL)
	}
	if _, err := Resolve(Config{Model: "m", APIKey: "k", BaseURL: "http://127.0.0.1"}); err == nil {
		t.Fatalf("expected error for a non websocket base url")
	}
}
