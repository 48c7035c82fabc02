package embedding

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/ris/pkg/logger"
)

// ParseOpenKE builds a MemoryStore from an entity2id listing and an
// entity2vec matrix. The first line of entity2id is the entity count and
// every following line is `name\tid`; line i of entity2vec holds the vector
// of the i-th listed entity.
func ParseOpenKE(entityIDs, vectors []byte) (*MemoryStore, error) {
	names, err := parseEntityList(entityIDs)
	if err != nil {
		return nil, err
	}

	store := NewMemoryStore()
	scanner := bufio.NewScanner(bytes.NewReader(vectors))
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	row := 0
	extra := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if row >= len(names) {
			extra++
			row++
			continue
		}
		fields := strings.Fields(line)
		vec := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("entity2vec line %d: %w", row+1, err)
			}
			vec[i] = float32(v)
		}
		if store.Dim() != 0 && len(vec) != store.Dim() {
			return nil, fmt.Errorf("entity2vec line %d: expected %d dimensions, got %d", row+1, store.Dim(), len(vec))
		}
		store.Put(names[row], vec)
		row++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read entity2vec: %w", err)
	}

	if extra > 0 {
		logger.Warn("[Embedding] More vectors than entities, ignoring the rest", "extra", extra)
	}
	if row < len(names) {
		logger.Warn("[Embedding] Fewer vectors than entities", "entities", len(names), "vectors", row)
	}
	logger.Info("[Embedding] Loaded vectors", "count", store.Len(), "dim", store.Dim())
	return store, nil
}

func parseEntityList(data []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var names []string
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			if _, err := strconv.Atoi(line); err != nil {
				return nil, fmt.Errorf("entity2id header %q is not a count", line)
			}
			continue
		}
		if line == "" {
			continue
		}
		name, _, _ := strings.Cut(line, "\t")
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read entity2id: %w", err)
	}
	return names, nil
}
