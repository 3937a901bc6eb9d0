package realtime

import "testing"

func TestAudioAssemblerReassemblesAnyChunking(t *testing.T) {
	payload := []byte("audio1audio2")
	for _, size := range []int{len(payload), 6, 5, 1} {
		var a AudioAssembler
		chunks := 0
		for start := 0; start < len(payload); start += size {
			end := min(start+size, len(payload))
			a.Append(payload[start:end])
			chunks++
		}
		if got := string(a.Bytes()); got != "audio1audio2" {
			t.Fatalf("expected %q with chunk size %d, got %q", "audio1audio2", size, got)
		}
		if a.Chunks() != chunks {
			t.Fatalf("expected %d chunks, got %d", chunks, a.Chunks())
		}
	}
}

func TestAudioAssemblerEmptyChunksAddNothing(t *testing.T) {
	var a AudioAssembler
	a.Append([]byte("ab"))
	a.Append(nil)
	a.Append([]byte("c"))

	if a.Len() != 3 || string(a.Bytes()) != "abc" {
		t.Fatalf("expected abc, got %q", a.Bytes())
	}
	if a.Chunks() != 3 {
		t.Fatalf("expected 3 chunks counted, got %d", a.Chunks())
	}
}

func TestAudioAssemblerBytesIsACopy(t *testing.T) {
	var a AudioAssembler
	a.Append([]byte("abc"))
	out := a.Bytes()
	out[0] = 'x'

	if string(a.Bytes()) != "abc" {
		t.Fatalf("expected assembler to be unaffected by callers, got %q", a.Bytes())
	}
}

func TestTextAssemblerPrefersFinalSegments(t *testing.T) {
	var a TextAssembler
	a.SetPartial("hel")
	a.SetPartial("hello wor")
	if a.Partial() != "hello wor" {
		t.Fatalf("expected latest partial, got %q", a.Partial())
	}
	if a.Text() != "hello wor" {
		t.Fatalf("expected partial fallback, got %q", a.Text())
	}

	a.AddFinal(" hello world ")
	a.AddFinal("")
	a.SetPartial("second")
	a.AddFinal("second turn")

	if !a.HasFinal() {
		t.Fatalf("expected final segments")
	}
	if a.Partial() != "" {
		t.Fatalf("expected final segment to clear the partial, got %q", a.Partial())
	}
	if got := a.Text(); got != "hello world second turn" {
		t.Fatalf("expected joined finals, got %q", got)
	}
}

func TestTextAssemblerJoinsSegmentsPerScript(t *testing.T) {
	tests := []struct {
		segments []string
		want     string
	}{
		{[]string{"hello world.", "second turn"}, "hello world. second turn"},
		{[]string{"今天天气很好。", "我们去公园吧"}, "今天天气很好。我们去公园吧"},
		{[]string{"你好", "世界"}, "你好世界"},
		{[]string{"こんにちは", "元気ですか"}, "こんにちは元気ですか"},
		{[]string{"打开 Wi-Fi", "OK"}, "打开 Wi-Fi OK"},
		{[]string{"我用", "Go"}, "我用Go"},
	}
	for _, tt := range tests {
		var a TextAssembler
		for _, segment := range tt.segments {
			a.AddFinal(segment)
		}
		if got := a.Text(); got != tt.want {
			t.Fatalf("expected %q for %q, got %q", tt.want, tt.segments, got)
		}
	}
}
