package actions

import "testing"

func TestParseCPU(t *testing.T) {
	tests := []struct {
		in       string
		millis   int64
		unit     string
		wantErr  bool
	}{
		{in: "", millis: 0, unit: "m"},
		{in: "500m", millis: 500, unit: "m"},
		{in: "0.5", millis: 500, unit: ""},
		{in: "2", millis: 2000, unit: ""},
		{in: "1.5", millis: 1500, unit: ""},
		{in: " 250m ", millis: 250, unit: "m"},
		{in: "abc", wantErr: true},
		{in: "500mi", wantErr: true},
		{in: "-1", wantErr: true},
	}

	for _, tt := range tests {
		millis, unit, err := ParseCPU(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCPU(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCPU(%q): unexpected error %v", tt.in, err)
			continue
		}
		if millis != tt.millis || unit != tt.unit {
			t.Errorf("ParseCPU(%q) = (%d, %q), want (%d, %q)", tt.in, millis, unit, tt.millis, tt.unit)
		}
	}
}

func TestFormatCPU(t *testing.T) {
	tests := []struct {
		millis int64
		unit   string
		want   string
	}{
		{1000, "m", "1000m"},
		{1000, "", "1"},
		{1500, "", "1.5"},
		{750, "", "0.75"},
		{50, "m", "50m"},
	}

	for _, tt := range tests {
		if got := FormatCPU(tt.millis, tt.unit); got != tt.want {
			t.Errorf("FormatCPU(%d, %q) = %q, want %q", tt.millis, tt.unit, got, tt.want)
		}
	}
}

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in      string
		bytes   int64
		unit    string
		wantErr bool
	}{
		{in: "", bytes: 0, unit: "Mi"},
		{in: "256Mi", bytes: 256 * 1024 * 1024, unit: "Mi"},
		{in: "1Gi", bytes: 1024 * 1024 * 1024, unit: "Gi"},
		{in: "512", bytes: 512, unit: "B"},
		{in: "512B", bytes: 512, unit: "B"},
		{in: "100M", bytes: 100 * 1000 * 1000, unit: "M"},
		{in: "1K", bytes: 1000, unit: "K"},
		{in: "2Ki", bytes: 2048, unit: "Ki"},
		{in: "0.5Gi", bytes: 512 * 1024 * 1024, unit: "Gi"},
		{in: "256Xi", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		bytes, unit, err := ParseMemory(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMemory(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMemory(%q): unexpected error %v", tt.in, err)
			continue
		}
		if bytes != tt.bytes || unit != tt.unit {
			t.Errorf("ParseMemory(%q) = (%d, %q), want (%d, %q)", tt.in, bytes, unit, tt.bytes, tt.unit)
		}
	}
}

func TestFormatMemory(t *testing.T) {
	tests := []struct {
		bytes int64
		unit  string
		want  string
	}{
		{768 * 1024 * 1024, "Mi", "768Mi"},
		{1024 * 1024 * 1024, "Gi", "1Gi"},
		{512, "B", "512B"},
		{1000, "K", "1K"},
		// Does not divide evenly in Gi, falls back to Mi.
		{1536 * 1024 * 1024, "Gi", "1536Mi"},
	}

	for _, tt := range tests {
		if got := FormatMemory(tt.bytes, tt.unit); got != tt.want {
			t.Errorf("FormatMemory(%d, %q) = %q, want %q", tt.bytes, tt.unit, got, tt.want)
		}
	}
}
