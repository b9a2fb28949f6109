package ringbuf

import "testing"

func TestAddAndAll_PreservesOrder(t *testing.T) {
	b := New[int](3)
	b.Add(1)
	b.Add(2)
	b.Add(3)
	got := b.All()
	want := []int{1, 2, 3}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("All() = %v, want %v", got, want)
		}
	}
}

func TestAdd_EvictsOldestOnOverflow(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}
	got := b.All()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("len(All()) = %d, want %d", len(got), len(want))
	}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("All() = %v, want %v", got, want)
		}
	}
}

func TestLen(t *testing.T) {
	b := New[int](5)
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
	b.Add(1)
	b.Add(2)
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
}

func TestLast(t *testing.T) {
	b := New[int](3)
	if _, ok := b.Last(); ok {
		t.Fatal("expected Last() to report false on empty buffer")
	}
	b.Add(7)
	b.Add(9)
	v, ok := b.Last()
	if !ok || v != 9 {
		t.Fatalf("Last() = (%v, %v), want (9, true)", v, ok)
	}
}

func TestReset(t *testing.T) {
	b := New[int](3)
	b.Add(1)
	b.Add(2)
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", b.Len())
	}
	if got := b.All(); got != nil {
		t.Fatalf("All() after Reset = %v, want nil", got)
	}
}

func TestSetCapacity_KeepsMostRecent(t *testing.T) {
	b := New[int](5)
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}
	b.SetCapacity(2)
	got := b.All()
	want := []int{4, 5}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("All() after SetCapacity = %v, want %v", got, want)
	}
}
