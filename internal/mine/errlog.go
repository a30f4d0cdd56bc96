package mine

import (
	"io"
	"strings"
)

// ErrorLog accumulates the parse_full_text error log. Entries are kept in
// the order they were recorded.
type ErrorLog struct {
	b       strings.Builder
	entries int
}

// Sentence records a citation tag that failed to parse.
func (l *ErrorLog) Sentence(articleID, sentence, part string, err error) {
	l.add(articleID, "sentence: "+sentence, "part: "+part, "error: "+err.Error())
}

// Paragraph records a paragraph that could not be segmented.
func (l *ErrorLog) Paragraph(articleID, paragraph string, err error) {
	l.add(articleID, "paragraph: "+paragraph, "paragrapherror: "+err.Error())
}

// Reference records an article whose reference list could not be resolved.
func (l *ErrorLog) Reference(path string, err error) {
	l.add(path, "refdicterror: "+err.Error())
}

// Paper records an article whose extraction failed as a whole.
func (l *ErrorLog) Paper(path string, err error) {
	l.add(path, "papererror: "+err.Error())
}

// Len returns the number of entries recorded.
func (l *ErrorLog) Len() int { return l.entries }

// String returns the log contents.
func (l *ErrorLog) String() string { return l.b.String() }

// WriteTo writes the log contents to w.
func (l *ErrorLog) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, l.b.String())
	return int64(n), err
}

func (l *ErrorLog) add(head string, lines ...string) {
	l.b.WriteString(head)
	for _, line := range lines {
		l.b.WriteByte('\n')
		l.b.WriteString(line)
	}
	l.b.WriteString("\n\n")
	l.entries++
}
