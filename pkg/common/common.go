package common

import "strings"

// ChainSeparator joins relation labels of a rule chain in rule files and in
// path signatures.
const ChainSeparator = "->"

// Pair is an ordered (head, tail) pair of entity identifiers. Head and tail
// may be equal; callers must tolerate that.
type Pair struct {
	Head string `json:"head"`
	Tail string `json:"tail"`
}

// Less orders pairs by head, then tail.
func (p Pair) Less(o Pair) bool {
	if p.Head != o.Head {
		return p.Head < o.Head
	}
	return p.Tail < o.Tail
}

// Chain is an ordered sequence of relation labels. It is the abstract pattern
// handed to the graph oracle; query text is built from it only inside an
// oracle adapter.
type Chain []string

// String renders the chain in rule-file notation (r1->r2->r3).
func (c Chain) String() string {
	return strings.Join(c, ChainSeparator)
}

// Rule is a mined relation chain with its raw frequency and the confidence
// derived from it by min-max normalization over the loaded rule set.
type Rule struct {
	Relations Chain   `json:"relations"`
	Freq      float64 `json:"freq"`
	Conf      float64 `json:"conf"`
}

// Path is a simple path between two entities: Nodes holds the visited entity
// identifiers in order (no repeats) and Relations the edge labels between them,
// so len(Relations) == len(Nodes)-1.
type Path struct {
	Nodes     []string `json:"nodes"`
	Relations []string `json:"relations"`
}

// Signature identifies a path by its relation-label sequence only. Two paths
// through different nodes with the same labels share a signature.
func (p Path) Signature() string {
	return strings.Join(p.Relations, ChainSeparator)
}

// Clone returns a deep copy of the path.
func (p Path) Clone() Path {
	return Path{
		Nodes:     append([]string(nil), p.Nodes...),
		Relations: append([]string(nil), p.Relations...),
	}
}

// ClonePaths deep-copies a path slice. A nil input yields an empty, non-nil
// slice.
func ClonePaths(paths []Path) []Path {
	out := make([]Path, len(paths))
	for i := range paths {
		out[i] = paths[i].Clone()
	}
	return out
}

// EntityProps holds the structural features of a single entity node.
// Degree counts incident relation edges in both directions and
// RelationTypeCount the distinct labels among them.
type EntityProps struct {
	Degree            int `json:"degree"`
	RelationTypeCount int `json:"relation_type_count"`
}

// GraphStats are graph-wide normalizers: the largest entity degree and the
// number of distinct relation labels.
type GraphStats struct {
	MaxDegree     int `json:"max_degree"`
	RelationTypes int `json:"relation_types"`
}

// CaseScore is a case pair annotated with its support degree.
type CaseScore struct {
	Pair Pair    `json:"pair"`
	SD   float64 `json:"sd"`
}

// PredictedPair is a pair to be scored. FP is the externally supplied
// false-positive flag ("0" or "1"); it is carried through to the output and
// never read by the scoring engine.
type PredictedPair struct {
	Pair Pair   `json:"pair"`
	FP   string `json:"fp"`
}

// ScoreRecord is the immutable result of scoring one predicted pair.
type ScoreRecord struct {
	Pair     Pair    `json:"pair"`
	CSSM     float64 `json:"cssm"`
	FSCM     float64 `json:"fscm"`
	RIS      float64 `json:"ris"`
	FP       string  `json:"fp"`
	Accepted bool    `json:"accepted"`
}
