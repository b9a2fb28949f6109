package ecgbuf

import "testing"

func TestAppend_AssignsSequentialGlobalIndex(t *testing.T) {
	b := New[int](10)
	for i := 0; i < 5; i++ {
		idx := b.Append(i * 10)
		if idx != int64(i) {
			t.Fatalf("Append() = %d, want %d", idx, i)
		}
	}
}

func TestAt_RetainedAndAgedOut(t *testing.T) {
	b := New[int](3)
	for i := 0; i < 5; i++ {
		b.Append(i)
	}
	// capacity 3, 5 written: indices 0,1 aged out; 2,3,4 retained.
	if _, ok := b.At(1); ok {
		t.Fatal("expected index 1 to be aged out")
	}
	v, ok := b.At(4)
	if !ok || v != 4 {
		t.Fatalf("At(4) = (%v, %v), want (4, true)", v, ok)
	}
}

func TestWindow_ReturnsOldestFirstWithFirstIndex(t *testing.T) {
	b := New[int](10)
	for i := 0; i < 5; i++ {
		b.Append(i)
	}
	window, first := b.Window(3)
	if first != 2 {
		t.Fatalf("firstIndex = %d, want 2", first)
	}
	want := []int{2, 3, 4}
	for i, v := range want {
		if window[i] != v {
			t.Fatalf("Window(3) = %v, want %v", window, want)
		}
	}
}

func TestWindow_ZeroMeansFullRetainedSet(t *testing.T) {
	b := New[int](3)
	for i := 0; i < 5; i++ {
		b.Append(i)
	}
	window, first := b.Window(0)
	if len(window) != 3 || first != 2 {
		t.Fatalf("Window(0) = %v (first=%d), want 3 elements starting at 2", window, first)
	}
}

func TestLatestAndOldestIndex(t *testing.T) {
	b := New[int](3)
	if _, ok := b.LatestIndex(); ok {
		t.Fatal("expected LatestIndex to report false on empty buffer")
	}
	for i := 0; i < 5; i++ {
		b.Append(i)
	}
	latest, ok := b.LatestIndex()
	if !ok || latest != 4 {
		t.Fatalf("LatestIndex() = (%d, %v), want (4, true)", latest, ok)
	}
	if oldest := b.OldestIndex(); oldest != 2 {
		t.Fatalf("OldestIndex() = %d, want 2", oldest)
	}
}

func TestUpdate_MutatesRetainedEntryInPlace(t *testing.T) {
	b := New[int](5)
	idx := b.Append(1)
	ok := b.Update(idx, func(v *int) { *v = 99 })
	if !ok {
		t.Fatal("expected Update to succeed for a retained index")
	}
	v, _ := b.At(idx)
	if v != 99 {
		t.Fatalf("At(idx) = %d, want 99", v)
	}
}

func TestUpdate_FailsForAgedOutIndex(t *testing.T) {
	b := New[int](2)
	idx := b.Append(1)
	b.Append(2)
	b.Append(3)
	if ok := b.Update(idx, func(v *int) { *v = 99 }); ok {
		t.Fatal("expected Update to fail for an aged-out index")
	}
}

func TestReset(t *testing.T) {
	b := New[int](3)
	b.Append(1)
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
	if _, ok := b.LatestIndex(); ok {
		t.Fatal("expected LatestIndex to report false after Reset")
	}
}
