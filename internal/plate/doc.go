// Package plate turns raw recognizer tokens into canonical plate strings.
//
// Three steps run in a fixed order for every token:
//
//  1. Normalize: fold alternate digit glyphs and fullwidth forms to ASCII,
//     upper-case, and drop everything that is not A-Z or 0-9.
//  2. Correct: positional character-confusion repair. A confusable digit
//     in position 0 becomes its look-alike letter; a confusable letter in
//     any later position becomes its look-alike digit. Length is preserved.
//  3. Validate: length bounds, letter/digit class requirements and a
//     table of regular expressions chosen per locale, with an optional
//     permissive majority-digit fallback.
//
// NormalizeConfidence maps the many confidence scales reported by OCR
// engines (0-1 floats, 0-100 percentages, "-1" sentinels, strings) into
// [0, 1].
//
// Everything in this package is pure and safe for concurrent use.
package plate
