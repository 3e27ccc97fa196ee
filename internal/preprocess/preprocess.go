// Package preprocess normalizes raw ticket text before it is embedded in a
// prompt: HTML is stripped, sensitive values are redacted, unicode is folded
// to ASCII, and overly long fields are truncated at sentence boundaries.
package preprocess

import (
	stdhtml "html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"triago/internal/models"
)

// Placeholders written in place of absent or blank values so the model sees
// an explicit token instead of silence.
const (
	PlaceholderEmpty     = "[EMPTY]"
	PlaceholderMissing   = "[MISSING]"
	PlaceholderEmptyID   = "[EMPTY_TRACKING_INDEX]"
	PlaceholderMissingID = "[MISSING_TRACKING_INDEX]"
)

// Redaction markers.
const (
	MarkerIP    = "[IP_ADDRESS]"
	MarkerEmail = "[EMAIL]"
	MarkerPhone = "[PHONE_NUMBER]"
	MarkerURL   = "[URL]"
)

var (
	ipPattern    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b(\+\d{1,2}\s?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	urlPattern   = regexp.MustCompile(`https?://[A-Za-z0-9$\-_@.&+!*\\(\\),%/:=?#~]+`)

	// Keeps letters, digits, whitespace, basic punctuation, and the
	// bracket/underscore characters the redaction markers are made of.
	specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?\[\]_-]`)

	asciiFold = transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
)

// Options controls the cleaning pipeline.
type Options struct {
	// Redact replaces IPs, emails, phone numbers, and URLs with markers.
	Redact bool
	// MaxFieldLength truncates cleaned field values to this many runes at a
	// sentence boundary. 0 disables truncation.
	MaxFieldLength int
}

// Clean runs the full normalization pipeline over one text value.
func Clean(text string, opts Options) string {
	text = stdhtml.UnescapeString(text)
	text = StripHTML(text)
	if opts.Redact {
		text = Redact(text)
	}
	text = foldASCII(text)
	text = specialChars.ReplaceAllString(text, "")
	text = normalizeWhitespace(text)
	if opts.MaxFieldLength > 0 {
		text = Truncate(text, opts.MaxFieldLength)
	}
	return text
}

// StripHTML drops tags and returns the text content, skipping script and
// style bodies. Input that is not actually HTML passes through unchanged
// apart from tag-like fragments.
func StripHTML(text string) string {
	if !strings.ContainsRune(text, '<') {
		return text
	}
	var (
		b    strings.Builder
		skip int
	)
	tz := html.NewTokenizer(strings.NewReader(text))
	for {
		switch tz.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tz.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := tz.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(tz.Text())
			}
		}
	}
}

// Redact masks IP addresses, email addresses, US phone numbers, and URLs.
func Redact(text string) string {
	text = ipPattern.ReplaceAllString(text, MarkerIP)
	text = emailPattern.ReplaceAllString(text, MarkerEmail)
	text = phonePattern.ReplaceAllString(text, MarkerPhone)
	text = urlPattern.ReplaceAllString(text, MarkerURL)
	return text
}

// foldASCII maps unicode characters to their closest ASCII representation
// and drops whatever has none.
func foldASCII(text string) string {
	out, _, err := transform.String(asciiFold, text)
	if err != nil {
		return text
	}
	return out
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Truncate cuts text down to at most maxRunes runes, preferring a sentence
// boundary and falling back to a word boundary when the first sentence alone
// is too long.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	tokenizer := sentences.NewSentenceTokenizer(nil)
	var (
		b     strings.Builder
		count int
	)
	for _, s := range tokenizer.Tokenize(text) {
		sent := strings.TrimSpace(s.Text)
		if sent == "" {
			continue
		}
		n := utf8.RuneCountInString(sent)
		sep := 0
		if b.Len() > 0 {
			sep = 1
		}
		if count+sep+n > maxRunes {
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(sent)
		count += sep + n
	}
	if b.Len() > 0 {
		return b.String()
	}

	// No full sentence fits; cut on words instead.
	words := strings.Fields(text)
	count = 0
	for _, w := range words {
		n := utf8.RuneCountInString(w)
		sep := 0
		if b.Len() > 0 {
			sep = 1
		}
		if count+sep+n > maxRunes {
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		count += sep + n
	}
	if b.Len() == 0 {
		return string([]rune(text)[:maxRunes])
	}
	return b.String()
}

// Ticket builds a models.Ticket from one table row: selected columns are
// cleaned, blank or absent values get their placeholders, and the identifier
// is taken verbatim from idColumn.
func Ticket(row map[string]string, columns []string, idColumn string, opts Options) models.Ticket {
	fields := make(map[string]string, len(columns))
	for _, column := range columns {
		value, ok := row[column]
		switch {
		case !ok:
			fields[column] = PlaceholderMissing
		case strings.TrimSpace(value) == "":
			fields[column] = PlaceholderEmpty
		default:
			fields[column] = Clean(value, opts)
		}
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	return models.Ticket{ID: TicketID(row, idColumn), Columns: cols, Fields: fields}
}

// TicketID resolves the identifier for one row. Blank and absent identifiers
// map to fixed placeholders, so every row still has a key that results can be
// matched back on.
func TicketID(row map[string]string, idColumn string) string {
	id, ok := row[idColumn]
	switch {
	case !ok:
		return PlaceholderMissingID
	case strings.TrimSpace(id) == "":
		return PlaceholderEmptyID
	}
	return strings.TrimSpace(id)
}
