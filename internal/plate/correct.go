package plate

// LeadingDigitToLetter maps digits to the letters they are mistaken for.
// Applied to position 0 only.
var LeadingDigitToLetter = map[rune]rune{
	'0': 'O',
	'1': 'I',
	'2': 'Z',
	'3': 'E',
	'4': 'A',
	'5': 'S',
	'6': 'G',
	'7': 'T',
	'8': 'B',
	'9': 'Q',
}

// TrailingLetterToDigit maps letters to the digits they are mistaken for.
// Applied to every position after the first. B, E, A and Q are left out:
// they are common series letters after the first position.
var TrailingLetterToDigit = map[rune]rune{
	'O': '0',
	'I': '1',
	'Z': '2',
	'S': '5',
	'G': '6',
	'T': '7',
}

// Corrector repairs glyph confusions using position-dependent tables.
type Corrector struct {
	leading  map[rune]rune
	trailing map[rune]rune
}

// NewCorrector builds a corrector from the two tables. Nil tables disable
// the corresponding rule.
func NewCorrector(leading, trailing map[rune]rune) *Corrector {
	return &Corrector{leading: copyTable(leading), trailing: copyTable(trailing)}
}

// DefaultCorrector uses LeadingDigitToLetter and TrailingLetterToDigit.
func DefaultCorrector() *Corrector {
	return NewCorrector(LeadingDigitToLetter, TrailingLetterToDigit)
}

// Correct remaps confusable characters of a canonical string. It never
// inserts, deletes or reorders characters.
func (c *Corrector) Correct(text string) string {
	if text == "" {
		return text
	}
	out := []rune(text)
	if r, ok := c.leading[out[0]]; ok {
		out[0] = r
	}
	for i := 1; i < len(out); i++ {
		if r, ok := c.trailing[out[i]]; ok {
			out[i] = r
		}
	}
	return string(out)
}

func copyTable(t map[rune]rune) map[rune]rune {
	out := make(map[rune]rune, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
