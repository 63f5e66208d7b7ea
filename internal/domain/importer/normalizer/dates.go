package normalizer

import (
	"fmt"
	"strings"
	"time"
)

// dayFirstFormats are tried first for European-style files; monthFirst
// for US-style. ISO and timestamped variants are shared.
var (
	dayFirstFormats = []string{
		"02/01/2006", "02-01-2006", "02.01.2006", "02/01/06",
		"2/1/2006", "02/01/2006 15:04",
	}
	monthFirstFormats = []string{
		"01/02/2006", "01-02-2006", "1/2/2006", "01/02/2006 15:04",
	}
	isoFormats = []string{
		"2006-01-02", "2006/01/02", "2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05", "2006-01-02 15:04",
	}
	monthNameFormats = []string{
		"02 Jan 2006", "2 Jan 2006", "02 January 2006", "2 January 2006",
		"Jan 2, 2006", "January 2, 2006",
	}
)

// localizedMonths maps common Portuguese, Spanish and French month tokens
// to English so month-name dates parse with the standard library.
var localizedMonths = map[string]string{
	"janeiro": "January", "janvier": "January", "enero": "January",
	"fevereiro": "February", "février": "February", "fevrier": "February", "febrero": "February",
	"março": "March", "marco": "March", "mars": "March", "marzo": "March",
	"abril": "April", "avril": "April",
	"maio": "May", "mai": "May", "mayo": "May",
	"junho": "June", "juin": "June", "junio": "June",
	"julho": "July", "juillet": "July", "julio": "July",
	"agosto": "August", "août": "August", "aout": "August",
	"setembro": "September", "septembre": "September", "septiembre": "September",
	"outubro": "October", "octobre": "October", "octubre": "October",
	"novembro": "November", "novembre": "November", "noviembre": "November",
	"dezembro": "December", "décembre": "December", "decembre": "December", "diciembre": "December",
	"jan": "Jan", "fev": "Feb", "fév": "Feb", "feb": "Feb",
	"mar": "Mar", "abr": "Apr", "avr": "Apr",
	"jun": "Jun", "jul": "Jul", "ago": "Aug", "set": "Sep", "sep": "Sep",
	"out": "Oct", "oct": "Oct", "nov": "Nov", "dez": "Dec", "déc": "Dec", "dic": "Dec",
}

// parseDate tries the locale's common formats in priority order.
func parseDate(raw string, dayFirst bool, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if loc == nil {
		loc = time.UTC
	}

	var formats []string
	if dayFirst {
		formats = append(formats, dayFirstFormats...)
		formats = append(formats, isoFormats...)
		formats = append(formats, monthFirstFormats...)
	} else {
		formats = append(formats, monthFirstFormats...)
		formats = append(formats, isoFormats...)
		formats = append(formats, dayFirstFormats...)
	}

	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, loc); err == nil {
			return t, nil
		}
	}

	// Month-name dates, possibly localized.
	anglicized := anglicizeMonths(s)
	for _, format := range monthNameFormats {
		if t, err := time.ParseInLocation(format, anglicized, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format")
}

func anglicizeMonths(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		trimmed := strings.Trim(w, ".,")
		if english, ok := localizedMonths[trimmed]; ok {
			words[i] = english
		} else {
			words[i] = w
		}
	}
	return strings.Join(words, " ")
}
