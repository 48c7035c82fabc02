package rules

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
)

// ErrNoRules is returned when a rule source yields no usable rule.
var ErrNoRules = errors.New("no rules loaded")

const maxLineSize = 1 << 20

// Repository is the normalized, read-only rule set of one run.
type Repository struct {
	rules   []common.Rule
	skipped int
}

// Parse reads `chain\tfreq[\textra]` lines and normalizes frequencies into
// confidences. Malformed lines are skipped and counted; blank lines are
// ignored without counting.
func Parse(r io.Reader) (*Repository, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	repo := &Repository{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rule, err := parseLine(line)
		if err != nil {
			repo.skipped++
			logger.Debug("[Rules] Skipping malformed line", "line", lineNo, "err", err)
			continue
		}
		repo.rules = append(repo.rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	if repo.skipped > 0 {
		logger.Warn("[Rules] Skipped malformed rule lines", "skipped", repo.skipped)
	}
	if len(repo.rules) == 0 {
		return nil, ErrNoRules
	}

	normalize(repo.rules)
	logger.Info("[Rules] Loaded rules", "count", len(repo.rules), "skipped", repo.skipped)
	return repo, nil
}

// ParseBytes is Parse over an in-memory rule file.
func ParseBytes(data []byte) (*Repository, error) {
	return Parse(bytes.NewReader(data))
}

// New builds a repository from already parsed chains and raw frequencies.
func New(rules []common.Rule) (*Repository, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}
	out := make([]common.Rule, len(rules))
	for i, r := range rules {
		if len(r.Relations) == 0 {
			return nil, fmt.Errorf("rule %d has an empty chain", i)
		}
		out[i] = common.Rule{
			Relations: append(common.Chain(nil), r.Relations...),
			Freq:      r.Freq,
		}
	}
	normalize(out)
	return &Repository{rules: out}, nil
}

func parseLine(line string) (common.Rule, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 || len(fields) > 3 {
		return common.Rule{}, fmt.Errorf("expected 2 or 3 fields, got %d", len(fields))
	}

	parts := strings.Split(fields[0], common.ChainSeparator)
	chain := make(common.Chain, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return common.Rule{}, fmt.Errorf("empty relation label in %q", fields[0])
		}
		chain = append(chain, p)
	}

	freq, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return common.Rule{}, fmt.Errorf("frequency %q: %w", fields[1], err)
	}

	return common.Rule{Relations: chain, Freq: freq}, nil
}

// normalize sets conf = (freq-min)/(max-min), or 1.0 for every rule when
// all frequencies are equal.
func normalize(rules []common.Rule) {
	lo, hi := rules[0].Freq, rules[0].Freq
	for _, r := range rules[1:] {
		lo = min(lo, r.Freq)
		hi = max(hi, r.Freq)
	}
	for i := range rules {
		if hi > lo {
			rules[i].Conf = (rules[i].Freq - lo) / (hi - lo)
		} else {
			rules[i].Conf = 1.0
		}
	}
}

// Rules returns a copy of the loaded rules in file order.
func (r *Repository) Rules() []common.Rule {
	out := make([]common.Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

func (r *Repository) Len() int { return len(r.rules) }

// Skipped is the number of malformed lines dropped during Parse.
func (r *Repository) Skipped() int { return r.skipped }

// Top returns the rules whose confidence is at least that of the k-th best
// rule, ordered by confidence descending. Ties at the cut are all kept, and
// every rule is returned when there are fewer than k.
func (r *Repository) Top(k int) []common.Rule {
	sorted := r.Rules()
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Conf > sorted[j].Conf
	})
	if k <= 0 {
		return nil
	}
	if k >= len(sorted) {
		return sorted
	}
	cut := sorted[k-1].Conf
	n := k
	for n < len(sorted) && sorted[n].Conf >= cut {
		n++
	}
	return sorted[:n]
}
