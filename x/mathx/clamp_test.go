package mathx

import "testing"

func TestClampAndBetween(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("Clamp(5,0,3)=%d", got)
	}
	if got := Clamp(5, 3, 0); got != 3 {
		t.Fatalf("swapped bounds: Clamp(5,3,0)=%d", got)
	}
	if !Between(int32(100), 0, 32767) || Between(int32(-1), 0, 32767) {
		t.Fatal("Between misjudged window membership")
	}
}

func TestAbs(t *testing.T) {
	if Abs(int32(-150)) != 150 || Abs(int32(150)) != 150 {
		t.Fatal("Abs mismatch")
	}
}
