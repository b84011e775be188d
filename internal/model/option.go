package model

// Option types accepted by the options vocabulary.
const (
	OptionItemName = "itemName"
	OptionSize     = "size"
	OptionLength   = "length"
)

// Option mirrors the 'options' table: a (type, value) pair that feeds the
// client-side dropdowns.
type Option struct {
	ID    uint64 `json:"id"`
	Type  string `json:"type"`
	Value string `json:"value"`
}
