package generic

// Void is a zero-size placeholder for "no value", e.g. Result[Void] for operations that
// only return an error, or as the value type of set-like maps.
type Void = struct{}

// NewVoid returns the Void value.
func NewVoid() Void {
	return Void{}
}
