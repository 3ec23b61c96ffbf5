package query

// StringPtr is a helper function that returns a pointer to a string.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr is a helper function that returns a pointer to an int64.
func Int64Ptr(i int64) *int64 {
	return &i
}

// Float64Ptr is a helper function that returns a pointer to a float64.
func Float64Ptr(f float64) *float64 {
	return &f
}

// BoolPtr is a helper function that returns a pointer to a bool.
func BoolPtr(b bool) *bool {
	return &b
}

// ToFloat64 converts a normalised numeric item to a float64. Integer items are
// accepted so that number fields backed by integer accessors still compare.
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
