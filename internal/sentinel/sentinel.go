package sentinel

var _ error = Error("")

// Error is a constant-friendly error value. Two Error values compare equal
// when their text matches, so errors.Is works through %w wrapping without
// any Is method.
type Error string

// Error returns the message text.
func (e Error) Error() string {
	return string(e)
}
