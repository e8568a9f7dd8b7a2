package slice_test

import (
	"testing"

	"github.com/leftmike/kvcore/slice"
)

func sign(n int) int {
	if n < 0 {
		return -1
	} else if n > 0 {
		return 1
	}
	return 0
}

func expectPanic(t *testing.T, what string, fn func()) {
	t.Helper()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("%s did not panic", what)
		}
	}()
	fn()
}

func TestConstruct(t *testing.T) {
	cases := []struct {
		s    slice.Slice
		want string
	}{
		{slice.Slice{}, ""},
		{slice.New(nil), ""},
		{slice.New([]byte("abc")), "abc"},
		{slice.New([]byte{0, 1, 0xff}), "\x00\x01\xff"},
		{slice.FromString(""), ""},
		{slice.FromString("hello"), "hello"},
		{slice.FromCString([]byte("hello\x00world")), "hello"},
		{slice.FromCString([]byte("\x00abc")), ""},
		{slice.FromCString([]byte("no terminator")), "no terminator"},
	}

	for _, c := range cases {
		if c.s.Len() != len(c.want) {
			t.Errorf("Len(%q) got %d want %d", c.want, c.s.Len(), len(c.want))
		}
		if c.s.Empty() != (len(c.want) == 0) {
			t.Errorf("Empty(%q) got %v want %v", c.want, c.s.Empty(), len(c.want) == 0)
		}
		if c.s.String() != c.want {
			t.Errorf("String() got %q want %q", c.s.String(), c.want)
		}
		if string(c.s.Bytes()) != c.want {
			t.Errorf("Bytes() got %q want %q", c.s.Bytes(), c.want)
		}
		for i := 0; i < len(c.want); i++ {
			if c.s.At(i) != c.want[i] {
				t.Errorf("At(%d) of %q got %d want %d", i, c.want, c.s.At(i), c.want[i])
			}
		}
	}
}

func TestNoCopy(t *testing.T) {
	b := []byte("abcdef")
	s := slice.New(b)
	b[0] = 'x'
	if s.At(0) != 'x' {
		t.Errorf("New(b) copied b: At(0) got %c want x", s.At(0))
	}

	c := s
	c.RemovePrefix(2)
	if s.Len() != 6 || c.Len() != 4 {
		t.Errorf("RemovePrefix on copy changed original: got %d and %d", s.Len(), c.Len())
	}
	if &c.Data()[0] != &b[2] {
		t.Error("RemovePrefix(2) does not refer to the original bytes")
	}
}

func TestOwnedCopy(t *testing.T) {
	b := []byte("hello")
	s := slice.New(b)
	str := s.String()
	cpy := s.Bytes()
	b[0] = 'j'
	if str != "hello" {
		t.Errorf("String() changed with backing memory: got %q", str)
	}
	if string(cpy) != "hello" {
		t.Errorf("Bytes() changed with backing memory: got %q", cpy)
	}
}

func TestAtPanics(t *testing.T) {
	s := slice.FromString("abc")
	expectPanic(t, "At(3)", func() { s.At(3) })
	expectPanic(t, "At(-1)", func() { s.At(-1) })
	expectPanic(t, "At(0) on empty", func() { slice.Slice{}.At(0) })
}

func TestClear(t *testing.T) {
	b := []byte("abc")
	s := slice.New(b)
	s.Clear()
	if !s.Empty() || s.Len() != 0 {
		t.Errorf("Clear() got length %d want 0", s.Len())
	}
	if string(b) != "abc" {
		t.Errorf("Clear() modified referenced memory: %q", b)
	}
	if !s.Equal(slice.Slice{}) {
		t.Error("Clear() not equal to empty slice")
	}
}

func TestRemovePrefix(t *testing.T) {
	s := slice.FromString("hello world")
	s.RemovePrefix(6)
	if s.String() != "world" {
		t.Errorf("RemovePrefix(6) got %q want %q", s.String(), "world")
	}
	s.RemovePrefix(0)
	if s.String() != "world" {
		t.Errorf("RemovePrefix(0) got %q want %q", s.String(), "world")
	}

	expectPanic(t, "RemovePrefix(6) of 5 bytes", func() { s.RemovePrefix(6) })
	expectPanic(t, "RemovePrefix(-1)", func() { s.RemovePrefix(-1) })

	for _, str := range []string{"", "a", "abc", "hello world"} {
		for n := 0; n <= len(str); n++ {
			s := slice.FromString(str)
			s.RemovePrefix(n)
			s.RemovePrefix(s.Len())
			if !s.Empty() {
				t.Errorf("RemovePrefix(%d); RemovePrefix(Len()) of %q got %q want empty", n, str,
					s.String())
			}
		}
	}
}

var views = []string{
	"",
	"\x00",
	"\x00\x00",
	"\x01",
	"\xff",
	"a",
	"ab",
	"abc",
	"abd",
	"b",
	"ba",
	"hello",
	"help",
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		cmp  int
	}{
		{"", "", 0},
		{"", "a", -1},
		{"a", "", 1},
		{"abc", "abc", 0},
		{"abc", "abd", -1},
		{"abd", "abc", 1},
		{"ab", "abc", -1},
		{"abc", "ab", 1},
		{"\x7f", "\x80", -1},
		{"\xff", "\x00", 1},
		{"b", "abc", 1},
	}

	for _, c := range cases {
		a := slice.FromString(c.a)
		b := slice.FromString(c.b)
		if cmp := a.Compare(b); cmp != c.cmp {
			t.Errorf("Compare(%q, %q) got %d want %d", c.a, c.b, cmp, c.cmp)
		}
	}
}

func TestCompareProperties(t *testing.T) {
	for _, sa := range views {
		a := slice.FromString(sa)
		for _, sb := range views {
			b := slice.New([]byte(sb))
			ab := a.Compare(b)
			if (ab == 0) != a.Equal(b) {
				t.Errorf("Compare(%q, %q) == 0 is %v but Equal is %v", sa, sb, ab == 0, a.Equal(b))
			}
			if sign(ab) != -sign(b.Compare(a)) {
				t.Errorf("Compare(%q, %q) not antisymmetric", sa, sb)
			}

			for _, sc := range views {
				c := slice.FromString(sc)
				if ab <= 0 && b.Compare(c) <= 0 && a.Compare(c) > 0 {
					t.Errorf("Compare not transitive: %q <= %q <= %q", sa, sb, sc)
				}
			}
		}
	}
}

func TestEqual(t *testing.T) {
	b := []byte("same")
	a := slice.New(b)
	if !a.Equal(slice.New([]byte("same"))) {
		t.Error("Equal() depends on backing memory")
	}
	if a.Equal(slice.FromString("sam")) {
		t.Error("Equal(\"same\", \"sam\") got true want false")
	}
	if a.Equal(slice.FromString("samE")) {
		t.Error("Equal(\"same\", \"samE\") got true want false")
	}
}

func TestHasPrefix(t *testing.T) {
	cases := []struct {
		s, x string
		ret  bool
	}{
		{"hello", "he", true},
		{"hello", "ha", false},
		{"hello", "", true},
		{"hello", "hello", true},
		{"hello", "hello!", false},
		{"", "", true},
		{"", "a", false},
	}

	for _, c := range cases {
		s := slice.FromString(c.s)
		if ret := s.HasPrefix(slice.FromString(c.x)); ret != c.ret {
			t.Errorf("HasPrefix(%q, %q) got %v want %v", c.s, c.x, ret, c.ret)
		}
	}

	for _, sa := range views {
		a := slice.FromString(sa)
		if !a.HasPrefix(a) {
			t.Errorf("HasPrefix(%q, %q) got false", sa, sa)
		}
		if !a.HasPrefix(slice.Slice{}) {
			t.Errorf("HasPrefix(%q, \"\") got false", sa)
		}
	}
}

func TestNoAlloc(t *testing.T) {
	b := []byte("abcdef")
	allocs := testing.AllocsPerRun(100,
		func() {
			s := slice.New(b)
			s.RemovePrefix(1)
			_ = s.Compare(slice.FromString("bcd"))
			_ = s.HasPrefix(slice.FromString("bc"))
			s.Clear()
		})
	if allocs != 0 {
		t.Errorf("Slice operations allocated: got %v want 0", allocs)
	}
}
