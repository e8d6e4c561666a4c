package formats

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		path     string
		expected SourceType
	}{
		{"shot/render.0001.exr", SourceImage},
		{"plates/PLATE_010.MOV", SourceVideo},
		{"caches/char.abc", SourceScene},
		{"scenes/shot_010_anim_v002.ma", SourceScene},
		{"notes.txt", SourceOther},
		{"noextension", SourceOther},
		{"comp.####.DPX", SourceImage},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Classify(tt.path); got != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestIsLinear(t *testing.T) {
	if !IsLinear("render.0001.EXR") {
		t.Error("exr should be linear")
	}
	if IsLinear("thumb.jpg") {
		t.Error("jpg should not be linear")
	}
}

func TestIsBrowsable(t *testing.T) {
	if IsBrowsable("cache.tmp") {
		t.Error("unknown extensions are not browsable")
	}
	if !IsBrowsable("take.0100.png") {
		t.Error("png is browsable")
	}
}
