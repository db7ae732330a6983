package decryptengine

import "testing"

func TestProfileForSize(t *testing.T) {
	cases := []struct {
		name string
		size int64
		want Profile
	}{
		{"small", 1 << 20, SmallFileProfile()},
		{"large", 300 << 20, LargeFileProfile()},
		{"mid", 64 << 20, AutoProfile()},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ProfileForSize(c.size)
			if got != c.want {
				t.Fatalf("ProfileForSize(%d) = %+v, want %+v", c.size, got, c.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := clamp(2, 4, 32); got != 4 {
		t.Fatalf("clamp below range: got %d, want 4", got)
	}
	if got := clamp(40, 4, 32); got != 32 {
		t.Fatalf("clamp above range: got %d, want 32", got)
	}
	if got := clamp(10, 4, 32); got != 10 {
		t.Fatalf("clamp in range: got %d, want 10", got)
	}
}
