package scoring

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
)

const maxRecordLine = 1 << 20

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxRecordLine)
	return s
}

// ParsePredictedPairs reads `head\ttail\tfp` lines. Malformed lines are
// skipped and counted.
func ParsePredictedPairs(r io.Reader) ([]common.PredictedPair, int, error) {
	var pairs []common.PredictedPair
	skipped := 0
	scanner := newScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 || fields[0] == "" || fields[1] == "" {
			skipped++
			continue
		}
		pairs = append(pairs, common.PredictedPair{
			Pair: common.Pair{Head: fields[0], Tail: fields[1]},
			FP:   strings.TrimSpace(fields[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read predicted pairs: %w", err)
	}
	if skipped > 0 {
		logger.Warn("[Scoring] Skipped malformed predicted pair lines", "skipped", skipped)
	}
	return pairs, skipped, nil
}

// WriteRecords writes `head\ttail\tCSSM\tFSCM\tRIS\tfp` lines with four
// decimals, in the given order.
func WriteRecords(w io.Writer, records []common.ScoreRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%.4f\t%.4f\t%.4f\t%s\n",
			r.Pair.Head, r.Pair.Tail, r.CSSM, r.FSCM, r.RIS, r.FP); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseRecords reads score output back. Both the six-column score format
// and the five-column `head\ttail\tCSSM\tFSCM\tfp` form are accepted; the
// latter leaves RIS at 0 until the records are rescored.
func ParseRecords(r io.Reader) ([]common.ScoreRecord, int, error) {
	var records []common.ScoreRecord
	skipped := 0
	scanner := newScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseRecord(strings.Split(line, "\t"))
		if err != nil {
			skipped++
			logger.Debug("[Scoring] Skipping malformed record", "line", lineNo, "err", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read score records: %w", err)
	}
	if skipped > 0 {
		logger.Warn("[Scoring] Skipped malformed score records", "skipped", skipped)
	}
	return records, skipped, nil
}

func parseRecord(fields []string) (common.ScoreRecord, error) {
	if len(fields) != 5 && len(fields) != 6 {
		return common.ScoreRecord{}, fmt.Errorf("expected 5 or 6 fields, got %d", len(fields))
	}
	nums := make([]float64, len(fields)-3)
	for i := range nums {
		v, err := strconv.ParseFloat(fields[2+i], 64)
		if err != nil {
			return common.ScoreRecord{}, fmt.Errorf("field %d: %w", 3+i, err)
		}
		nums[i] = v
	}
	rec := common.ScoreRecord{
		Pair: common.Pair{Head: fields[0], Tail: fields[1]},
		CSSM: nums[0],
		FSCM: nums[1],
		FP:   fields[len(fields)-1],
	}
	if len(nums) == 3 {
		rec.RIS = nums[2]
	}
	return rec, nil
}

// WritePairs writes `head\ttail` lines.
func WritePairs(w io.Writer, pairs []common.Pair) error {
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		if _, err := fmt.Fprintf(bw, "%s\t%s\n", p.Head, p.Tail); err != nil {
			return err
		}
	}
	return bw.Flush()
}
