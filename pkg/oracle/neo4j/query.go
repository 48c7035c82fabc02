package neo4j

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/ris/pkg/common"
)

// chainPattern renders chain as a directed Cypher pattern from (h) to (t).
// Relation labels are bound as $r0..$rN, never spliced into the query.
func chainPattern(chain common.Chain) (string, map[string]any) {
	var b strings.Builder
	params := make(map[string]any, len(chain))
	b.WriteString("(h:Entity)")
	for i, rel := range chain {
		key := fmt.Sprintf("r%d", i)
		params[key] = rel
		next := fmt.Sprintf("(n%d)", i)
		if i == len(chain)-1 {
			next = "(t:Entity)"
		}
		fmt.Fprintf(&b, "-[:RELATION {name: $%s}]->%s", key, next)
	}
	return b.String(), params
}

func matchChainQuery(chain common.Chain) (string, map[string]any) {
	pattern, params := chainPattern(chain)
	return fmt.Sprintf(`
		MATCH %s
		RETURN DISTINCT h.name AS head, t.name AS tail
	`, pattern), params
}

func chainExistsQuery(chain common.Chain, head, tail string) (string, map[string]any) {
	pattern, params := chainPattern(chain)
	params["h_name"] = head
	params["t_name"] = tail
	return fmt.Sprintf(`
		MATCH (h:Entity {name: $h_name}), (t:Entity {name: $t_name})
		RETURN EXISTS { MATCH %s } AS found
	`, pattern), params
}

func simplePathsQuery(head, tail string, maxDepth int) (string, map[string]any) {
	return fmt.Sprintf(`
		MATCH path = (h:Entity {name: $h_name})-[:RELATION*1..%d]->(t:Entity {name: $t_name})
		WHERE all(n IN nodes(path) WHERE single(x IN nodes(path) WHERE x = n))
		RETURN [n IN nodes(path) | n.name] AS node_names,
		       [r IN relationships(path) | r.name] AS rel_names
	`, maxDepth), map[string]any{"h_name": head, "t_name": tail}
}

const sameRelationPairsQuery = `
	MATCH (h:Entity)-[r:RELATION]->(t:Entity)
	WHERE r.name = $relation_name
	RETURN DISTINCT h.name AS head, t.name AS tail
`

const nodePropsQuery = `
	MATCH (n:Entity {name: $name})
	OPTIONAL MATCH (n)-[r:RELATION]-()
	RETURN COUNT(r) AS degree, COUNT(DISTINCT r.name) AS relation_types
`

const maxDegreeQuery = `
	MATCH (n:Entity)
	RETURN n.name AS entity, COUNT { (n)-[:RELATION]-() } AS degree
	ORDER BY degree DESC
	LIMIT 1
`

const relationTypesQuery = `
	MATCH ()-[r:RELATION]->()
	RETURN COUNT(DISTINCT r.name) AS relation_types
`
