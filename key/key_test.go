package key

import (
	"bytes"
	"math"
	"testing"
)

func TestBytesComponentEscapeRoundtrip(t *testing.T) {
	cases := [][]byte{
		[]byte("part1|hello"),
		[]byte(""),
		[]byte("1"),
		[]byte("|"),
		[]byte("||"),
		[]byte("|||"),
		[]byte("||||||"),
	}
	for _, v := range cases {
		escaped := escapeBytes(nil, v)
		_, got := parseBytes(escaped)
		if !bytes.Equal(got, v) {
			t.Errorf("escape/parse roundtrip for %q: got %q", v, got)
		}
	}
}

func TestKeyComponentsRoundtrip(t *testing.T) {
	cases := [][]Component{
		{F64Component(0)},
		{},
		{I64Component(0)},
		{F64Component(12)},
		{BytesComponent([]byte("h"))},
		{
			BytesComponent([]byte("h")),
			BytesComponent([]byte("e")),
			BytesComponent([]byte("l")),
			BytesComponent([]byte("l")),
			BytesComponent([]byte("o")),
			BytesComponent([]byte(" ")),
			BytesComponent([]byte("w")),
			BytesComponent([]byte("o")),
			BytesComponent([]byte("u")),
			BytesComponent([]byte("|")),
			BytesComponent([]byte("d")),
			I64Component(12231232131231232),
		},
	}

	for _, components := range cases {
		k := FromComponents(components)
		got := k.AsComponents()
		if len(got) != len(components) {
			t.Fatalf("got %d components, want %d", len(got), len(components))
		}
		for i := range components {
			if !got[i].Equal(components[i]) {
				t.Errorf("component %d = %+v, want %+v", i, got[i], components[i])
			}
		}
	}
}

func TestKeyOrderMatchesComponentOrder(t *testing.T) {
	tests := []struct {
		name string
		l, r []Component
		want int
	}{
		{"f64-less", []Component{F64Component(0)}, []Component{F64Component(1)}, -1},
		{"i64-less", []Component{I64Component(123)}, []Component{I64Component(567)}, -1},
		{"empty-equal", nil, nil, 0},
		{"empty-less-i64", nil, []Component{I64Component(567)}, -1},
		{"i64-greater-empty", []Component{I64Component(567)}, nil, 1},
		{"i64-less-f64-by-type", []Component{I64Component(567)}, []Component{F64Component(0)}, -1},
		{
			"longer-prefix-greater",
			[]Component{I64Component(567), I64Component(1)},
			[]Component{I64Component(567)},
			1,
		},
		{
			"empty-bytes-greater-than-missing",
			[]Component{I64Component(567), BytesComponent([]byte(""))},
			[]Component{I64Component(567)},
			1,
		},
		{
			"equal-bytes-tail",
			[]Component{I64Component(567), BytesComponent([]byte("|"))},
			[]Component{I64Component(567), BytesComponent([]byte("|"))},
			0,
		},
		{
			"empty-bytes-less-than-nonempty", // S2
			[]Component{I64Component(567), BytesComponent([]byte(""))},
			[]Component{I64Component(567), BytesComponent([]byte("|"))},
			-1,
		},
		{
			"hello-less-than-iello", // S2
			[]Component{I64Component(567), BytesComponent([]byte("hello"))},
			[]Component{I64Component(567), BytesComponent([]byte("iello"))},
			-1,
		},
		{
			"ab-less-than-a-pipe", // S3
			[]Component{BytesComponent([]byte("ab"))},
			[]Component{BytesComponent([]byte("a|"))},
			-1,
		},
		{
			"a-less-than-a-nul", // S4
			[]Component{BytesComponent([]byte("a"))},
			[]Component{BytesComponent([]byte("a\x00"))},
			-1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := FromComponents(tt.l)
			r := FromComponents(tt.r)
			if got := l.Compare(r); sign(got) != tt.want {
				t.Errorf("Key.Compare() = %d, want %d", got, tt.want)
			}
			if got := bytes.Compare(l.Bytes(), r.Bytes()); sign(got) != tt.want {
				t.Errorf("byte-level compare = %d, want %d", got, tt.want)
			}
		})
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

func TestKeyInt64Extraction(t *testing.T) {
	k := FromI64(42)
	got, err := k.Int64()
	if err != nil {
		t.Fatalf("Int64() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Int64() = %d, want 42", got)
	}

	multi := FromComponents([]Component{I64Component(1), I64Component(2)})
	if _, err := multi.Int64(); err != ErrTypeMismatch {
		t.Errorf("err = %v, want %v", err, ErrTypeMismatch)
	}
}

func FuzzKeyComponentsRoundtrip(f *testing.F) {
	f.Add(int64(0), 0.0, []byte(""))
	f.Add(int64(-1), 3.5, []byte{0, 0, 1})
	f.Add(int64(1<<40), -2.25, []byte("hello\x00world"))

	f.Fuzz(func(t *testing.T, i int64, fl float64, b []byte) {
		components := []Component{I64Component(i), F64Component(fl), BytesComponent(b)}
		k := FromComponents(components)
		got := k.AsComponents()
		if len(got) != 3 {
			t.Fatalf("got %d components, want 3", len(got))
		}
		if got[0].Int64() != i {
			t.Errorf("I64 = %v, want %v", got[0].Int64(), i)
		}
		if got[1].Float64() != fl && !(math.IsNaN(got[1].Float64()) && math.IsNaN(fl)) {
			t.Errorf("F64 = %v, want %v", got[1].Float64(), fl)
		}
		if !bytes.Equal(got[2].BytesValue(), b) && !(len(got[2].BytesValue()) == 0 && len(b) == 0) {
			t.Errorf("Bytes = %q, want %q", got[2].BytesValue(), b)
		}
	})
}
