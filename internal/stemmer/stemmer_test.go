package stemmer

import "testing"

func TestNoopReturnsInputUnchanged(t *testing.T) {
	s := Noop()
	for _, w := range []string{"running", "dogs", "", "ran"} {
		if got := s.Stem(w); got != w {
			t.Errorf("Stem(%q) = %q, want unchanged", w, got)
		}
	}
}

func TestFuncAdaptsPlainFunction(t *testing.T) {
	var s Stemmer = Func(func(w string) string { return w + "!" })
	if got := s.Stem("x"); got != "x!" {
		t.Errorf("got %q", got)
	}
}
