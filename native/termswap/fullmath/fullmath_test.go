package fullmath

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestMulDivRounding(t *testing.T) {
	cases := []struct {
		x, y, d  uint64
		down, up uint64
	}{
		{x: 10, y: 10, d: 3, down: 33, up: 34},
		{x: 10, y: 3, d: 5, down: 6, up: 6},
		{x: 0, y: 7, d: 5, down: 0, up: 0},
		{x: 1, y: 1, d: 2, down: 0, up: 1},
	}
	for _, tc := range cases {
		down, err := MulDiv(u(tc.x), u(tc.y), u(tc.d))
		if err != nil {
			t.Fatalf("muldiv %d*%d/%d: %v", tc.x, tc.y, tc.d, err)
		}
		if down.Uint64() != tc.down {
			t.Fatalf("muldiv %d*%d/%d: got %s want %d", tc.x, tc.y, tc.d, down, tc.down)
		}
		up, err := MulDivUp(u(tc.x), u(tc.y), u(tc.d))
		if err != nil {
			t.Fatalf("muldivup %d*%d/%d: %v", tc.x, tc.y, tc.d, err)
		}
		if up.Uint64() != tc.up {
			t.Fatalf("muldivup %d*%d/%d: got %s want %d", tc.x, tc.y, tc.d, up, tc.up)
		}
	}
}

func TestMulDivKeepsWideIntermediate(t *testing.T) {
	max := new(uint256.Int).SetAllOne()
	got, err := MulDiv(max, max, max)
	if err != nil {
		t.Fatalf("muldiv: %v", err)
	}
	if !got.Eq(max) {
		t.Fatalf("expected max, got %s", got.Hex())
	}
	if _, err := MulDiv(max, u(2), u(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := MulDiv(u(1), u(1), u(0)); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
}

func TestDivUpAndShiftRightUp(t *testing.T) {
	got, err := DivUp(u(7), u(2))
	if err != nil || got.Uint64() != 4 {
		t.Fatalf("divup 7/2: got %v err %v", got, err)
	}
	got, err = DivUp(u(8), u(2))
	if err != nil || got.Uint64() != 4 {
		t.Fatalf("divup 8/2: got %v err %v", got, err)
	}
	if v := ShiftRightUp(u(16), 4); v.Uint64() != 1 {
		t.Fatalf("shift 16>>4: got %s", v)
	}
	if v := ShiftRightUp(u(17), 4); v.Uint64() != 2 {
		t.Fatalf("shift 17>>4: got %s", v)
	}
	if v := ShiftRightUp(u(0), 25); !v.IsZero() {
		t.Fatalf("shift 0: got %s", v)
	}
}

func TestCheckedArithmetic(t *testing.T) {
	if _, err := Sub(u(1), u(2)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	max := new(uint256.Int).SetAllOne()
	if _, err := Add(max, u(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := Mul(max, u(2)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if err := CheckWidth(new(uint256.Int).Lsh(u(1), 112), 112); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected width overflow, got %v", err)
	}
	if err := CheckWidth(new(uint256.Int).Sub(new(uint256.Int).Lsh(u(1), 112), u(1)), 112); err != nil {
		t.Fatalf("unexpected width error: %v", err)
	}
}

func TestMinAndProducts(t *testing.T) {
	a, b, c := u(5), u(3), u(9)
	got := Min(a, b, c)
	if got.Uint64() != 3 {
		t.Fatalf("min: got %s", got)
	}
	got.SetUint64(100)
	if b.Uint64() != 3 {
		t.Fatalf("min must return a copy")
	}

	big := new(uint256.Int).Lsh(u(1), 200)
	if CmpProducts(big, big, big, u(1)) <= 0 {
		t.Fatalf("expected 2^400 > 2^200")
	}
	if CmpTriple(big, big, big, big, big, big) != 0 {
		t.Fatalf("expected equal triple products")
	}
	if CmpTriple(u(2), u(3), u(4), u(1), u(5), u(5)) >= 0 {
		t.Fatalf("expected 24 < 25")
	}
}
