package pgx

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/ris/pkg/common"
)

// chainJoin renders the relation joins for chain. Alias r0 is the first hop
// and r<N-1> the last; consecutive hops share a node and no relation row is
// used twice. Labels become positional arguments starting at $offset+1.
func chainJoin(chain common.Chain, offset int) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(chain))
	args = append(args, chain[0])
	fmt.Fprintf(&b, "FROM relations r0")
	for i := 1; i < len(chain); i++ {
		args = append(args, chain[i])
		fmt.Fprintf(&b, "\n\t\tJOIN relations r%d ON r%d.source_id = r%d.target_id AND r%d.name = $%d", i, i, i-1, i, offset+i+1)
		for j := 0; j < i; j++ {
			fmt.Fprintf(&b, " AND r%d.id <> r%d.id", i, j)
		}
	}
	fmt.Fprintf(&b, "\n\t\tJOIN entities h ON h.id = r0.source_id")
	fmt.Fprintf(&b, "\n\t\tJOIN entities t ON t.id = r%d.target_id", len(chain)-1)
	return b.String(), args
}

func matchChainQuery(chain common.Chain) (string, []any) {
	joins, args := chainJoin(chain, 0)
	return fmt.Sprintf(`
		SELECT DISTINCT h.name, t.name
		%s
		WHERE r0.name = $1
		ORDER BY 1, 2
	`, joins), args
}

func chainExistsQuery(chain common.Chain, head, tail string) (string, []any) {
	joins, args := chainJoin(chain, 0)
	n := len(args)
	args = append(args, head, tail)
	return fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1
			%s
			WHERE r0.name = $1 AND h.name = $%d AND t.name = $%d
		)
	`, joins, n+1, n+2), args
}

// simplePathsQuery enumerates node-distinct directed walks from $1 and
// keeps the ones ending at $2. Walks stop expanding once they reach the
// tail or $3 hops.
const simplePathsQuery = `
	WITH RECURSIVE target AS (
		SELECT id FROM entities WHERE name = $2
	), walk(node_id, node_ids, rel_names) AS (
		SELECT r.target_id, ARRAY[h.id, r.target_id], ARRAY[r.name]
		FROM entities h
		JOIN relations r ON r.source_id = h.id
		WHERE h.name = $1 AND r.target_id <> h.id
	UNION ALL
		SELECT r.target_id, w.node_ids || r.target_id, w.rel_names || r.name
		FROM walk w
		CROSS JOIN target tg
		JOIN relations r ON r.source_id = w.node_id
		WHERE cardinality(w.rel_names) < $3
		  AND w.node_id <> tg.id
		  AND NOT r.target_id = ANY(w.node_ids)
	)
	SELECT
		ARRAY(
			SELECT e.name
			FROM unnest(w.node_ids) WITH ORDINALITY AS u(id, ord)
			JOIN entities e ON e.id = u.id
			ORDER BY u.ord
		) AS node_names,
		w.rel_names
	FROM walk w
	JOIN target tg ON tg.id = w.node_id
	ORDER BY cardinality(w.rel_names), w.rel_names, w.node_ids
`

const sameRelationPairsQuery = `
	SELECT DISTINCT h.name, t.name
	FROM relations r
	JOIN entities h ON h.id = r.source_id
	JOIN entities t ON t.id = r.target_id
	WHERE r.name = $1
	ORDER BY 1, 2
`

const nodePropsQuery = `
	SELECT COUNT(i.rel_id), COUNT(DISTINCT i.rel_name)
	FROM entities e
	LEFT JOIN LATERAL (
		SELECT id AS rel_id, name AS rel_name FROM relations WHERE source_id = e.id
		UNION ALL
		SELECT id, name FROM relations WHERE target_id = e.id
	) i ON true
	WHERE e.name = $1
	GROUP BY e.id
`

const maxDegreeQuery = `
	SELECT COALESCE(MAX(degree), 0)
	FROM (
		SELECT COUNT(*) AS degree
		FROM (
			SELECT source_id AS id FROM relations
			UNION ALL
			SELECT target_id FROM relations
		) incident
		GROUP BY id
	) degrees
`

const relationTypesQuery = `SELECT COUNT(DISTINCT name) FROM relations`
