package plate

// Reader runs normalize, correct and validate over one raw token.
type Reader struct {
	validator *Validator
	corrector *Corrector
}

// NewReader builds a Reader. A nil corrector skips the correction step.
func NewReader(validator *Validator, corrector *Corrector) *Reader {
	return &Reader{validator: validator, corrector: corrector}
}

// Read returns the canonical, corrected plate text of raw and whether it
// passed validation.
func (r *Reader) Read(raw string) (string, bool) {
	text := Normalize(raw)
	if text == "" {
		return "", false
	}
	if r.corrector != nil {
		text = r.corrector.Correct(text)
	}
	return text, r.validator.Valid(text)
}

// Validator returns the validator the reader checks against.
func (r *Reader) Validator() *Validator {
	return r.validator
}
