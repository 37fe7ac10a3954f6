package common

import (
	"strconv"
	"testing"
)

// ---------- GenerateRandByteArray ----------

func TestGenerateRandByteArray_Size(t *testing.T) {
	for _, size := range []int{0, 1, 32} {
		b := GenerateRandByteArray(size)
		if len(b) != size {
			t.Fatalf("expected %d bytes, got %d", size, len(b))
		}
	}
}

// ---------- MakeOTPCode ----------

func TestMakeOTPCode_Range(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := MakeOTPCode()
		if err != nil {
			t.Fatalf("MakeOTPCode error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code is not numeric: %q", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code out of range: %d", n)
		}
	}
}
