package status_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leftmike/kvcore/slice"
	"github.com/leftmike/kvcore/status"
)

func s(str string) slice.Slice {
	return slice.FromString(str)
}

func predicates(st status.Status) []bool {
	return []bool{st.IsOK(), st.IsNotFound(), st.IsCorruption(), st.IsIOError(),
		st.IsNotSupported(), st.IsInvalidArgument()}
}

func TestOK(t *testing.T) {
	var zero status.Status
	for _, st := range []status.Status{status.OK(), zero} {
		if !st.IsOK() {
			t.Error("OK().IsOK() got false want true")
		}
		if st.String() != "OK" {
			t.Errorf("OK().String() got %q want %q", st.String(), "OK")
		}
		if st.Code() != status.CodeOK {
			t.Errorf("OK().Code() got %s want OK", st.Code())
		}
		if st.Err() != nil {
			t.Errorf("OK().Err() got %v want nil", st.Err())
		}
		if st.Encode() != nil {
			t.Errorf("OK().Encode() got %v want nil", st.Encode())
		}
	}

	allocs := testing.AllocsPerRun(100,
		func() {
			st := status.OK()
			if !st.IsOK() || st.String() != "OK" {
				panic("OK status is not OK")
			}
			var cpy status.Status
			cpy.Assign(st)
			cpy.Move(&st)
			_ = cpy.Err()
		})
	if allocs != 0 {
		t.Errorf("OK() allocated: got %v want 0", allocs)
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		st   status.Status
		code status.Code
		msg  string
		want string
	}{
		{status.NotFound(s("foo")), status.CodeNotFound, "foo", "NotFound: foo"},
		{status.IOError(s("disk"), s("full")), status.CodeIOError, "disk: full",
			"IO error: disk: full"},
		{status.Corruption(s("bad block"), s("")), status.CodeCorruption, "bad block",
			"Corruption: bad block"},
		{status.NotSupported(s("compaction")), status.CodeNotSupported, "compaction",
			"Not implemented: compaction"},
		{status.InvalidArgument(s("key"), s("empty")), status.CodeInvalidArgument,
			"key: empty", "Invalid argument: key: empty"},
		{status.NotFound(s("")), status.CodeNotFound, "", "NotFound: "},
		{status.IOError(s(""), s("x")), status.CodeIOError, ": x", "IO error: : x"},
		{status.Corruption(slice.New([]byte{0, 1}), slice.New([]byte{0xff})),
			status.CodeCorruption, "\x00\x01: \xff", "Corruption: \x00\x01: \xff"},
	}

	for _, c := range cases {
		if c.st.IsOK() {
			t.Errorf("%q: IsOK() got true want false", c.want)
		}
		if c.st.Code() != c.code {
			t.Errorf("%q: Code() got %s want %s", c.want, c.st.Code(), c.code)
		}
		if c.st.Message() != c.msg {
			t.Errorf("%q: Message() got %q want %q", c.want, c.st.Message(), c.msg)
		}
		if c.st.String() != c.want {
			t.Errorf("String() got %q want %q", c.st.String(), c.want)
		}
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		st   status.Status
		want int
	}{
		{status.OK(), 0},
		{status.NotFound(s("a")), 1},
		{status.Corruption(s("a")), 2},
		{status.IOError(s("a")), 3},
		{status.NotSupported(s("a")), 4},
		{status.InvalidArgument(s("a")), 5},
	}

	for _, c := range cases {
		preds := predicates(c.st)
		for i, p := range preds {
			if p != (i == c.want) {
				t.Errorf("%s: predicate %d got %v want %v", c.st, i, p, i == c.want)
			}
		}
	}
}

func TestLayout(t *testing.T) {
	cases := []struct {
		st   status.Status
		code status.Code
		msg  string
	}{
		{status.NotFound(s("foo")), status.CodeNotFound, "foo"},
		{status.IOError(s("disk"), s("full")), status.CodeIOError, "disk: full"},
		{status.InvalidArgument(s("")), status.CodeInvalidArgument, ""},
	}

	for _, c := range cases {
		b := c.st.Encode()
		if len(b) != 5+len(c.msg) {
			t.Errorf("Encode(%s) got %d bytes want %d", c.st, len(b), 5+len(c.msg))
			continue
		}
		if n := binary.LittleEndian.Uint32(b); n != uint32(len(c.msg)) {
			t.Errorf("Encode(%s) length got %d want %d", c.st, n, len(c.msg))
		}
		if status.Code(b[4]) != c.code {
			t.Errorf("Encode(%s) code got %d want %d", c.st, b[4], c.code)
		}
		if string(b[5:]) != c.msg {
			t.Errorf("Encode(%s) message got %q want %q", c.st, b[5:], c.msg)
		}

		dst, err := status.Decode(b)
		if err != nil {
			t.Errorf("Decode(%v) failed with %s", b, err)
		} else if dst.String() != c.st.String() {
			t.Errorf("Decode(Encode(%s)) got %s", c.st, dst)
		}
	}
}

func TestDecode(t *testing.T) {
	st, err := status.Decode(nil)
	if err != nil || !st.IsOK() {
		t.Errorf("Decode(nil) got %s, %v want OK", st, err)
	}

	unknown := []byte{3, 0, 0, 0, 42, 'a', 'b', 'c'}
	st, err = status.Decode(unknown)
	if err != nil {
		t.Errorf("Decode(%v) failed with %s", unknown, err)
	} else {
		if st.String() != "Unknown code(42): abc" {
			t.Errorf("String() got %q want %q", st.String(), "Unknown code(42): abc")
		}
		if st.IsOK() {
			t.Error("unknown code: IsOK() got true want false")
		}
		for i, p := range predicates(st) {
			if p {
				t.Errorf("unknown code: predicate %d got true", i)
			}
		}
		if st.Code().String() != "Unknown code(42)" {
			t.Errorf("Code().String() got %q", st.Code().String())
		}
	}

	unknown[0] = 'x'
	if st.String() != "Unknown code(42): abc" {
		t.Errorf("Decode did not copy the buffer: got %q", st.String())
	}

	fails := [][]byte{
		{1, 0, 0},
		{0, 0, 0, 0, 0},
		{4, 0, 0, 0, 1, 'a'},
		{0, 0, 0, 0, 1, 'a'},
		{0, 0, 0, 1, 1},
	}
	for _, b := range fails {
		_, err := status.Decode(b)
		if err == nil {
			t.Errorf("Decode(%v) did not fail", b)
		}
	}
}

func TestClone(t *testing.T) {
	a := status.Corruption(s("block"), s("checksum"))
	want := a.String()
	b := a.Clone()
	a = status.OK()
	if b.String() != want {
		t.Errorf("Clone() got %q want %q", b.String(), want)
	}

	var c status.Status
	c.Assign(b)
	b.Move(&status.Status{})
	if c.String() != want {
		t.Errorf("Assign() got %q want %q", c.String(), want)
	}
	if !b.IsOK() {
		t.Errorf("Move(OK) got %s want OK", b)
	}

	enc := c.Encode()
	enc[5] = 'X'
	if c.String() != want {
		t.Errorf("Encode() shares memory: got %q want %q", c.String(), want)
	}
}

func TestAssign(t *testing.T) {
	a := status.NotFound(s("key"), s("k1"))
	var b status.Status
	b.Assign(a)
	a.Assign(status.IOError(s("other")))
	if b.String() != "NotFound: key: k1" {
		t.Errorf("Assign() got %q want %q", b.String(), "NotFound: key: k1")
	}

	b.Assign(status.OK())
	if !b.IsOK() {
		t.Errorf("Assign(OK) got %s want OK", b)
	}

	before := a.String()
	a.Assign(a)
	if a.String() != before {
		t.Errorf("Assign(self) got %q want %q", a.String(), before)
	}
}

func TestMove(t *testing.T) {
	a := status.IOError(s("disk"), s("full"))
	var b status.Status
	b.Move(&a)
	if !a.IsOK() {
		t.Errorf("Move() source got %s want OK", a)
	}
	if b.String() != "IO error: disk: full" {
		t.Errorf("Move() got %q want %q", b.String(), "IO error: disk: full")
	}

	b.Move(&b)
	if b.String() != "IO error: disk: full" {
		t.Errorf("Move(self) got %q want %q", b.String(), "IO error: disk: full")
	}

	c := status.NotFound(s("x"))
	c.Move(&b)
	if c.String() != "IO error: disk: full" || !b.IsOK() {
		t.Errorf("Move() over error got %s and %s", c, b)
	}

	allocs := testing.AllocsPerRun(100,
		func() {
			c.Move(&b)
			b.Move(&c)
		})
	if allocs != 0 {
		t.Errorf("Move() allocated: got %v want 0", allocs)
	}
}

func TestTooManyMessages(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NotFound(a, b, c) did not panic")
		}
	}()
	status.NotFound(s("a"), s("b"), s("c"))
}

func TestErr(t *testing.T) {
	cases := []struct {
		st       status.Status
		sentinel error
	}{
		{status.NotFound(s("k")), status.ErrNotFound},
		{status.Corruption(s("k")), status.ErrCorruption},
		{status.NotSupported(s("k")), status.ErrNotSupported},
		{status.InvalidArgument(s("k")), status.ErrInvalidArgument},
		{status.IOError(s("k")), status.ErrIOError},
	}

	for _, c := range cases {
		err := c.st.Err()
		if err == nil {
			t.Errorf("Err(%s) got nil", c.st)
			continue
		}
		if err.Error() != c.st.String() {
			t.Errorf("Err(%s).Error() got %q", c.st, err.Error())
		}
		if !errors.Is(err, c.sentinel) {
			t.Errorf("errors.Is(%s, %s) got false", c.st, c.sentinel)
		}
		if errors.Is(err, status.ErrIOError) != (c.sentinel == status.ErrIOError) {
			t.Errorf("errors.Is(%s, ErrIOError) matched the wrong kind", c.st)
		}

		wrapped := fmt.Errorf("kvcore: %w", err)
		if st := status.FromError(wrapped); st.String() != c.st.String() {
			t.Errorf("FromError(Err(%s)) got %s", c.st, st)
		}
	}
}

func TestFromError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "OK"},
		{io.EOF, "NotFound: EOF"},
		{&os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist},
			"NotFound: open x: file does not exist"},
		{os.ErrInvalid, "Invalid argument: invalid argument"},
		{errors.New("disk on fire"), "IO error: disk on fire"},
	}

	var got, want []string
	for _, c := range cases {
		got = append(got, status.FromError(c.err).String())
		want = append(want, c.want)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromError() mismatch (-want +got):\n%s", diff)
	}
}
