package textnorm

import "testing"

func TestStripNewlinesOffsetMap(t *testing.T) {
	raw := []byte("ab\r\ncd")
	stripped, m := StripNewlines(raw)
	if string(stripped) != "abcd" {
		t.Fatalf("stripped = %q", stripped)
	}
	want := []int{0, 1, 4, 5}
	for i, w := range want {
		if got := m.Original(i); got != w {
			t.Errorf("Original(%d) = %d, want %d", i, got, w)
		}
	}
	if got := m.Original(len(stripped)); got != len(raw) {
		t.Errorf("Original(len) = %d, want %d", got, len(raw))
	}
}

func TestNewlineBoundariesMarksGaps(t *testing.T) {
	_, m := StripNewlines([]byte("ab\r\ncd\nef"))
	got := m.NewlineBoundaries()
	want := []int{2, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("boundary %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestExtractTextSkipsScriptAndStyle(t *testing.T) {
	doc := []byte("<html><head><style>.a{color:red}</style></head>" +
		"<body><p>Hello</p><script>alert(1)</script><p>World</p></body></html>")
	got := string(ExtractText(doc))
	if !contains(got, "Hello") || !contains(got, "World") {
		t.Fatalf("got %q", got)
	}
	if contains(got, "alert") || contains(got, "color:red") {
		t.Fatalf("script/style leaked into text: %q", got)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestExtractTextPreservesPreformattedNewlinesAsSpaces(t *testing.T) {
	doc := []byte("<p>a\nb</p><pre>line1\r\nline2\nline3</pre><p>c\nd</p>")
	got := string(ExtractText(doc))
	if !contains(got, "line1 line2 line3") {
		t.Fatalf("pre newlines not collapsed to spaces: %q", got)
	}
	if contains(got, "line1\r\n") || contains(got, "line1\n") {
		t.Fatalf("pre block kept a real line break: %q", got)
	}
}

func TestExtractTextTextareaAlsoTreatedAsPreformatted(t *testing.T) {
	doc := []byte("<textarea>foo\nbar</textarea>")
	got := string(ExtractText(doc))
	if !contains(got, "foo bar") {
		t.Fatalf("textarea newline not collapsed to space: %q", got)
	}
}

func TestExtractTextNewlinesOutsidePreUntouched(t *testing.T) {
	doc := []byte("<pre>x\ny</pre><span>before\nafter</span>")
	got := string(ExtractText(doc))
	if !contains(got, "before\nafter") {
		t.Fatalf("newline outside <pre> was altered: %q", got)
	}
}

func TestDetectScriptLatin(t *testing.T) {
	r := DetectScript("hello world this is english text")
	if r.Script != "Latin" {
		t.Fatalf("script = %q, want Latin", r.Script)
	}
	if r.Code != "en" || r.Language != "english" {
		t.Errorf("code=%q language=%q", r.Code, r.Language)
	}
}

func TestDetectScriptCyrillic(t *testing.T) {
	r := DetectScript("привет как дела")
	if r.Script != "Cyrillic" {
		t.Fatalf("script = %q, want Cyrillic", r.Script)
	}
	if r.Code != "ru" {
		t.Errorf("code = %q, want ru", r.Code)
	}
}

func TestDetectScriptEmptyForNoLetters(t *testing.T) {
	r := DetectScript("12345 !@#$%")
	if r.Script != "" {
		t.Errorf("script = %q, want empty", r.Script)
	}
}
