package types

import "testing"

func TestPoints(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]interface{}
		want   float64
	}{
		{"float value", map[string]interface{}{"story_points": 5.0}, 5},
		{"int value", map[string]interface{}{"story_points": 3}, 3},
		{"absent field", map[string]interface{}{"other": 9.0}, 0},
		{"nil fields", nil, 0},
		{"non-numeric", map[string]interface{}{"story_points": "8"}, 0},
		{"null value", map[string]interface{}{"story_points": nil}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Key: "R-1", Fields: tt.fields}
			if got := r.Points("story_points"); got != tt.want {
				t.Errorf("Points() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFieldConfigApplyDefaults(t *testing.T) {
	var c FieldConfig
	c.ApplyDefaults()
	if c.FormulaType != FormulaStoryPointSum {
		t.Errorf("FormulaType = %q, want %q", c.FormulaType, FormulaStoryPointSum)
	}
	if c.PointsField != DefaultPointsField {
		t.Errorf("PointsField = %q, want %q", c.PointsField, DefaultPointsField)
	}
	if c.MaxDepth != DefaultDepth {
		t.Errorf("MaxDepth = %d, want %d", c.MaxDepth, DefaultDepth)
	}

	// Out-of-range depths clamp rather than error.
	c = FieldConfig{MaxDepth: 99}
	c.ApplyDefaults()
	if c.MaxDepth != MaxDepth {
		t.Errorf("MaxDepth = %d, want %d", c.MaxDepth, MaxDepth)
	}
	c = FieldConfig{MaxDepth: -1}
	c.ApplyDefaults()
	if c.MaxDepth != MinDepth {
		t.Errorf("MaxDepth = %d, want %d", c.MaxDepth, MinDepth)
	}
}

func TestFieldConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     FieldConfig
		wantErr bool
	}{
		{"valid preset", FieldConfig{FormulaType: FormulaChildCount}, false},
		{"valid custom", FieldConfig{FormulaType: FormulaCustom, Formula: "childCount * 2"}, false},
		{"unknown type", FieldConfig{FormulaType: "velocity"}, true},
		{"custom without formula", FieldConfig{FormulaType: FormulaCustom}, true},
		{"custom with blank formula", FieldConfig{FormulaType: FormulaCustom, Formula: "   "}, true},
		{"depth too deep", FieldConfig{FormulaType: FormulaChildCount, MaxDepth: 6}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
