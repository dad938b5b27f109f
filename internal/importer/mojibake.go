package importer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// UTF-8 text that was decoded as Latin-1 / Windows-1252 somewhere upstream.
var mojibake = []struct{ bad, good string }{
	{"Ã¦", "æ"}, {"Ã¸", "ø"}, {"Ã¥", "å"},
	{"Ã†", "Æ"}, {"Ã˜", "Ø"}, {"Ã…", "Å"},
	{"Ã¤", "ä"}, {"Ã¶", "ö"}, {"Ã¼", "ü"}, {"ÃŸ", "ß"}, {"Ã\u009f", "ß"},
	{"Ã©", "é"}, {"Ã¨", "è"}, {"Ãª", "ê"},
	{"Ã³", "ó"}, {"Ã´", "ô"}, {"Ãº", "ú"}, {"Ã¡", "á"},
	{"Â", ""},
}

// FixMojibake repairs the common double-encoding of Nordic and other
// accented letters and returns the text in NFC.
func FixMojibake(s string) string {
	hit := false
	for _, m := range mojibake {
		if strings.Contains(s, m.bad) {
			hit = true
			s = strings.ReplaceAll(s, m.bad, m.good)
		}
	}

	// sequences not in the table above may still decode as a whole
	if hit {
		if fixed, ok := latin1ToUTF8(s); ok {
			s = fixed
		}
	}

	return norm.NFC.String(s)
}

func latin1ToUTF8(s string) (string, bool) {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return "", false
		}
		b = append(b, byte(r))
	}
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}
