package query

import (
	"fmt"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/pathfs"
	"github.com/panoptikon-app/panoptikon/internal/perror"
)

const defaultPlanCacheSize = 256

// Predicate evaluates a parsed query directly against a FileRecord,
// without touching SQL. Query execution (cache.go, resultset.go) runs the
// SQL fragment only; Predicate is exercised by tests.
type Predicate func(rec catalog.FileRecord) bool

// Plan is a compiled query: a SQL WHERE fragment (using "?" placeholders)
// plus its bound arguments in order, and an equivalent in-process
// Predicate. Plans are cached by query string rather than as prepared
// statements, since statement shapes vary per query but the compiled
// node tree for a given query string is stable.
type Plan struct {
	Where     string
	Args      []any
	Predicate Predicate

	// volatile marks a Plan whose Where/Args were derived from the
	// suffix index's current in-memory contents (an id list) rather than
	// a pattern expression that stays valid as rows change. A volatile
	// Plan is never cached, since the index can be mutated by the next
	// indexing run.
	volatile bool
}

// Planner compiles parsed query trees into Plans, caching by the query's
// canonical (trimmed) source text so repeated searches (e.g. re-typing
// the same filter while browsing) skip re-parsing and re-compiling.
type Planner struct {
	suffixIndex *catalog.SuffixIndex
	cache       *lru.Cache[string, Plan]
}

// NewPlanner creates a Planner. suffixIndex may be nil, in which case
// unanchored substring literals fall back to a SQL LIKE scan instead of
// the suffix-accelerated id list.
func NewPlanner(suffixIndex *catalog.SuffixIndex, cacheSize int) (*Planner, error) {
	if cacheSize <= 0 {
		cacheSize = defaultPlanCacheSize
	}

	cache, err := lru.New[string, Plan](cacheSize)
	if err != nil {
		return nil, err
	}

	return &Planner{suffixIndex: suffixIndex, cache: cache}, nil
}

// Plan parses and compiles src, returning a cached Plan on repeat input.
func (pl *Planner) Plan(src string) (Plan, error) {
	canonical := strings.TrimSpace(src)

	if plan, ok := pl.cache.Get(canonical); ok {
		return plan, nil
	}

	node, err := Parse(canonical)
	if err != nil {
		return Plan{}, err
	}

	plan, err := pl.compile(node)
	if err != nil {
		return Plan{}, perror.New(perror.CategoryQueryPlan, "query.plan", "", "compiling query", err)
	}

	if !plan.volatile {
		pl.cache.Add(canonical, plan)
	}

	return plan, nil
}

// Invalidate drops a cached plan. Plans built from the live suffix index
// (planFromIDs) are never cached in the first place, so this only ever
// evicts a field/range/cloud plan, which the result cache calls when a
// mutation could change which rows it should match.
func (pl *Planner) Invalidate(src string) {
	pl.cache.Remove(strings.TrimSpace(src))
}

func (pl *Planner) compile(node Node) (Plan, error) {
	switch n := node.(type) {
	case LiteralNode:
		return pl.compileLiteral(n.Pattern, n.CaseSensitive, n.Anchored, "name")

	case FieldNode:
		return pl.compileField(n)

	case RangeNode:
		return pl.compileRange(n)

	case CloudNode:
		return pl.compileCloud(n)

	case AndNode:
		return pl.compileBool(n.Left, n.Right, "AND", func(a, b bool) bool { return a && b })

	case OrNode:
		return pl.compileBool(n.Left, n.Right, "OR", func(a, b bool) bool { return a || b })

	case NotNode:
		inner, err := pl.compile(n.Operand)
		if err != nil {
			return Plan{}, err
		}

		return Plan{
			Where:     fmt.Sprintf("NOT (%s)", inner.Where),
			Args:      inner.Args,
			Predicate: func(rec catalog.FileRecord) bool { return !inner.Predicate(rec) },
			volatile:  inner.volatile,
		}, nil

	default:
		return Plan{}, fmt.Errorf("query: unhandled node type %T", node)
	}
}

func (pl *Planner) compileBool(left, right Node, op string, combine func(a, b bool) bool) (Plan, error) {
	l, err := pl.compile(left)
	if err != nil {
		return Plan{}, err
	}

	r, err := pl.compile(right)
	if err != nil {
		return Plan{}, err
	}

	args := make([]any, 0, len(l.Args)+len(r.Args))
	args = append(args, l.Args...)
	args = append(args, r.Args...)

	return Plan{
		Where:     fmt.Sprintf("(%s) %s (%s)", l.Where, op, r.Where),
		Args:      args,
		Predicate: func(rec catalog.FileRecord) bool { return combine(l.Predicate(rec), r.Predicate(rec)) },
		volatile:  l.volatile || r.volatile,
	}, nil
}

// compileLiteral handles a bare pattern (no field prefix), matched by
// default against the file's name.
func (pl *Planner) compileLiteral(pattern string, caseSensitive bool, anchor AnchorMode, field string) (Plan, error) {
	column := fieldColumn(field)

	// The suffix index covers basenames only, so it can answer a
	// case-insensitive unanchored substring over the name column but not
	// over path; path: falls through to a LIKE on the path column.
	if column == "name_nocase" && !caseSensitive && anchor == AnchorNone && !hasWildcard(pattern) && pl.suffixIndex != nil {
		ids := pl.suffixIndex.Contains(pathfs.Normalize(pattern))
		return planFromIDs(ids, matchSubstring(pattern, false, field)), nil
	}

	like, args := likeClause(column, pattern, caseSensitive, anchor)

	return Plan{
		Where:     like,
		Args:      args,
		Predicate: matchPattern(pattern, caseSensitive, anchor, field),
	}, nil
}

func (pl *Planner) compileField(n FieldNode) (Plan, error) {
	switch n.Field {
	case "ext":
		return Plan{
			Where:     "LOWER(extension) = ?",
			Args:      []any{strings.ToLower(strings.TrimPrefix(n.Pattern, "."))},
			Predicate: func(rec catalog.FileRecord) bool { return strings.EqualFold(rec.Extension, strings.TrimPrefix(n.Pattern, ".")) },
		}, nil

	case "path", "name":
		return pl.compileLiteral(n.Pattern, n.CaseSensitive, n.Anchored, n.Field)

	default:
		return Plan{}, fmt.Errorf("query: unsupported field %q", n.Field)
	}
}

func (pl *Planner) compileRange(n RangeNode) (Plan, error) {
	column, extract := rangeColumn(n.Field)
	if column == "" {
		return Plan{}, fmt.Errorf("query: unsupported range field %q", n.Field)
	}

	switch n.Op {
	case RangeGT:
		return Plan{Where: column + " > ?", Args: []any{n.Lo}, Predicate: rangePredicate(extract, n.Op, n.Lo, n.Hi)}, nil
	case RangeGE:
		return Plan{Where: column + " >= ?", Args: []any{n.Lo}, Predicate: rangePredicate(extract, n.Op, n.Lo, n.Hi)}, nil
	case RangeLT:
		return Plan{Where: column + " < ?", Args: []any{n.Lo}, Predicate: rangePredicate(extract, n.Op, n.Lo, n.Hi)}, nil
	case RangeLE:
		return Plan{Where: column + " <= ?", Args: []any{n.Lo}, Predicate: rangePredicate(extract, n.Op, n.Lo, n.Hi)}, nil
	case RangeBetween:
		return Plan{Where: "(" + column + " >= ? AND " + column + " <= ?)", Args: []any{n.Lo, n.Hi}, Predicate: rangePredicate(extract, n.Op, n.Lo, n.Hi)}, nil
	default:
		return Plan{}, fmt.Errorf("query: unsupported range operator")
	}
}

func (pl *Planner) compileCloud(n CloudNode) (Plan, error) {
	switch n.Field {
	case "cloud":
		provider := catalog.CloudProvider(n.Value)
		return Plan{
			Where:     "cloud_provider = ?",
			Args:      []any{string(provider)},
			Predicate: func(rec catalog.FileRecord) bool { return rec.CloudProvider == provider },
		}, nil

	case "status":
		status := cloudStatusValue(n.Value)
		return Plan{
			Where:     "cloud_status = ?",
			Args:      []any{string(status)},
			Predicate: func(rec catalog.FileRecord) bool { return rec.CloudStatus == status },
		}, nil

	default:
		return Plan{}, fmt.Errorf("query: unsupported cloud field %q", n.Field)
	}
}

// cloudStatusValue maps the user-facing status token to the stored enum
// value: "status:online" means online_only on disk.
func cloudStatusValue(token string) catalog.CloudStatus {
	switch token {
	case "online", "online_only":
		return catalog.CloudStatusOnlineOnly
	default:
		return catalog.CloudStatus(token)
	}
}

func fieldColumn(field string) string {
	switch field {
	case "path":
		return "path"
	default:
		return "name_nocase"
	}
}

func rangeColumn(field string) (column string, extract func(catalog.FileRecord) int64) {
	switch field {
	case "size":
		return "size", func(rec catalog.FileRecord) int64 { return rec.Size }
	case "modified":
		return "modified_at", func(rec catalog.FileRecord) int64 { return rec.ModifiedAt }
	case "created":
		return "created_at", func(rec catalog.FileRecord) int64 { return rec.CreatedAt }
	default:
		return "", nil
	}
}

func rangePredicate(extract func(catalog.FileRecord) int64, op RangeOp, lo, hi int64) Predicate {
	return func(rec catalog.FileRecord) bool {
		v := extract(rec)

		switch op {
		case RangeGT:
			return v > lo
		case RangeGE:
			return v >= lo
		case RangeLT:
			return v < lo
		case RangeLE:
			return v <= lo
		case RangeBetween:
			return v >= lo && v <= hi
		default:
			return false
		}
	}
}

func planFromIDs(ids []int64, fallback Predicate) Plan {
	if len(ids) == 0 {
		return Plan{Where: "0", Predicate: func(catalog.FileRecord) bool { return false }, volatile: true}
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))

	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	return Plan{
		Where:     "id IN (" + strings.Join(placeholders, ",") + ")",
		Args:      args,
		Predicate: fallback,
		volatile:  true,
	}
}

// hasWildcard reports whether pattern contains * or ? glob metacharacters.
func hasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

// likeClause converts pattern (with */? globs and optional ^/$ anchors)
// into a SQL LIKE expression, escaping literal % and _ so they aren't
// mistaken for the wildcards LIKE itself uses.
func likeClause(column, pattern string, caseSensitive bool, anchor AnchorMode) (string, []any) {
	escaped := strings.NewReplacer("%", "\\%", "_", "\\_").Replace(pattern)
	escaped = strings.ReplaceAll(escaped, "*", "%")
	escaped = strings.ReplaceAll(escaped, "?", "_")

	prefix, suffix := "%", "%"
	if anchor == AnchorStart || anchor == AnchorBoth {
		prefix = ""
	}

	if anchor == AnchorEnd || anchor == AnchorBoth {
		suffix = ""
	}

	value := prefix + escaped + suffix
	if !caseSensitive {
		value = strings.ToLower(value)
		return fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", column), []any{value}
	}

	return fmt.Sprintf("%s LIKE ? ESCAPE '\\'", column), []any{value}
}

// matchPattern builds the in-process Predicate mirroring likeClause's SQL
// semantics. When no suffix index is available, a contains term runs
// through likeClause's SQL LIKE, not through this Predicate.
func matchPattern(pattern string, caseSensitive bool, anchor AnchorMode, field string) Predicate {
	return func(rec catalog.FileRecord) bool {
		subject := fieldValue(rec, field)
		return globMatch(subject, pattern, caseSensitive, anchor)
	}
}

func matchSubstring(pattern string, caseSensitive bool, field string) Predicate {
	return matchPattern(pattern, caseSensitive, AnchorNone, field)
}

func fieldValue(rec catalog.FileRecord, field string) string {
	switch field {
	case "path":
		return rec.Path
	default:
		return rec.Name
	}
}

// globMatch implements * (any run) and ? (single rune) glob matching with
// optional ^/$ anchoring, case-fold applied up front when !caseSensitive,
// by translating the glob to a regexp rather than hand-rolling
// backtracking.
func globMatch(subject, pattern string, caseSensitive bool, anchor AnchorMode) bool {
	if !caseSensitive {
		subject = strings.ToLower(subject)
		pattern = strings.ToLower(pattern)
	}

	re, err := globRegexp(pattern, anchor)
	if err != nil {
		return false
	}

	return re.MatchString(subject)
}

func globRegexp(pattern string, anchor AnchorMode) (*regexp.Regexp, error) {
	var b strings.Builder

	if anchor == AnchorStart || anchor == AnchorBoth {
		b.WriteString("^")
	} else {
		b.WriteString("^.*")
	}

	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	if anchor == AnchorEnd || anchor == AnchorBoth {
		b.WriteString("$")
	} else {
		b.WriteString(".*$")
	}

	return regexp.Compile(b.String())
}
