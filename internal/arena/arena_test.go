package arena

import "testing"

func TestAllocZeroed(t *testing.T) {
	a := New()
	defer a.Close()
	b := a.Alloc(16)
	for _, c := range b {
		if c != 0 {
			t.Fatalf("expected zeroed memory, got %v", b)
		}
	}
}

func TestAllocBytesCopies(t *testing.T) {
	a := New()
	defer a.Close()
	src := []byte("hello")
	got := a.AllocBytes(src)
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
	src[0] = 'X'
	if string(got) != "hello" {
		t.Fatalf("arena copy aliased source: %q", got)
	}
}

func TestDestructorsRunInReverseOrder(t *testing.T) {
	a := New()
	var order []int
	a.Defer(func() { order = append(order, 1) })
	a.Defer(func() { order = append(order, 2) })
	a.Defer(func() { order = append(order, 3) })
	a.Close()
	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestCloseIdempotent(t *testing.T) {
	a := New()
	calls := 0
	a.Defer(func() { calls++ })
	a.Close()
	a.Close()
	if calls != 1 {
		t.Fatalf("destructor ran %d times, want 1", calls)
	}
}

func TestAllocSpansChunks(t *testing.T) {
	a := New()
	defer a.Close()
	big := a.Alloc(defaultChunkSize + 1)
	if len(big) != defaultChunkSize+1 {
		t.Fatalf("got len %d", len(big))
	}
	small := a.Alloc(8)
	if len(small) != 8 {
		t.Fatalf("got len %d", len(small))
	}
}
