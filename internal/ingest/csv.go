package ingest

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Record is one CSV data row keyed by header name
type Record map[string]string

// ParseCSV parses a header line plus data lines into records.
// Rows whose field count differs from the header count are dropped.
func ParseCSV(content string) []Record {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) < 2 {
		return []Record{}
	}

	headers := strings.Split(strings.TrimRight(lines[0], "\r"), ",")
	for i, h := range headers {
		headers[i] = unquote(strings.TrimSpace(h))
	}

	records := make([]Record, 0, len(lines)-1)
	dropped := 0

	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		values := splitLine(line)
		if len(values) != len(headers) {
			dropped++
			continue
		}

		record := make(Record, len(headers))
		for i, header := range headers {
			record[header] = values[i]
		}
		records = append(records, record)
	}

	logrus.Debugf("Parsed %d CSV rows (%d malformed rows dropped, %d columns)", len(records), dropped, len(headers))
	return records
}

// splitLine splits on commas outside double quotes; the quote characters themselves are not kept
func splitLine(line string) []string {
	var fields []string
	var current strings.Builder
	insideQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			insideQuotes = !insideQuotes
		case r == ',' && !insideQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	return append(fields, strings.TrimSpace(current.String()))
}

func unquote(s string) string {
	if len(s) >= 1 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if len(s) >= 1 && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}
