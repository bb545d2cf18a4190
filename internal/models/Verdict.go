package models

// Verdict is derived from a Reading on demand and never stored.
type Verdict struct {
	IsSafe     bool    `json:"is_safe"`
	Violations []Field `json:"violations"`
}

func (v Verdict) Label() string {
	if v.IsSafe {
		return "safe"
	}
	return "unsafe"
}
