package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/prism/internal/table"
)

// sniffBytes is how much input SniffDelimiter looks at.
const sniffBytes = 64 * 1024

// Delimiters are the separators SniffDelimiter chooses between, in order of
// preference on a tie.
var Delimiters = []rune{',', ';', '\t', '|'}

// SniffDelimiter picks the candidate separator that occurs most often,
// outside quotes, in the first line of head. It defaults to a comma.
func SniffDelimiter(head []byte) rune {
	counts := make(map[rune]int, len(Delimiters))
	inQuotes := false
	for _, c := range string(head) {
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		if c == '\n' || c == '\r' {
			break
		}
		counts[c]++
	}

	best, bestCount := ',', 0
	for _, d := range Delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

func readDelimited(ctx context.Context, r io.Reader, opts Options) (*table.Table, error) {
	br := bufio.NewReaderSize(cleanText(r), sniffBytes)

	delim := opts.Delimiter
	if delim == 0 {
		head, _ := br.Peek(sniffBytes)
		delim = SniffDelimiter(head)
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var records [][]string
	for {
		if len(records)%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("read cancelled after %d rows: %w", len(records), err)
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		if len(rec) > len(header) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d has %d fields, expected %d", ErrRaggedRow, line, len(rec), len(header))
		}
		records = append(records, rec)
		if err := checkRows(len(records), opts); err != nil {
			return nil, err
		}
	}

	return fromRecords(ctx, header, records)
}
