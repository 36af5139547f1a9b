/*
Package patterns tags an example's source with the SQL techniques it uses.

Detection is a fixed, ordered table of case-sensitive rules. Each rule is
either a literal substring or a regular expression. The result is a Set of
tags; the table order gives Set.Tags a stable listing.
*/
package patterns

import (
	"regexp"
	"sort"
	"strings"
)

// Tag identifies one detected technique.
type Tag string

const (
	TableCreation      Tag = "table_creation"
	DataInsertion      Tag = "data_insertion"
	DataQuerying       Tag = "data_querying"
	DataUpdate         Tag = "data_update"
	DataDeletion       Tag = "data_deletion"
	Joining            Tag = "joining"
	Aggregation        Tag = "aggregation"
	Grouping           Tag = "grouping"
	GroupFiltering     Tag = "group_filtering"
	Ordering           Tag = "ordering"
	CommonTableExpr    Tag = "common_table_expression"
	RecursiveCTE       Tag = "recursive_cte"
	WindowFunctions    Tag = "window_functions"
	JSONOperations     Tag = "json_operations"
	PrimaryKey         Tag = "primary_key"
	ForeignKey         Tag = "foreign_key"
	UniqueConstraint   Tag = "unique_constraint"
	CheckConstraint    Tag = "check_constraint"
	Indexing           Tag = "indexing"
	ViewCreation       Tag = "view_creation"
	ExistenceCheck     Tag = "existence_check"
	Subquery           Tag = "subquery"
	SetOperations      Tag = "set_operations"
	ConditionalLogic   Tag = "conditional_logic"
	Pagination         Tag = "pagination"
	TransactionControl Tag = "transaction_control"
	Upsert             Tag = "upsert"
	StoredFunction     Tag = "stored_function"
	Trigger            Tag = "trigger"
	StringFunctions    Tag = "string_functions"
	DateFunctions      Tag = "date_functions"
	ArrayOperations    Tag = "array_operations"
	FullTextSearch     Tag = "full_text_search"
	LateralJoin        Tag = "lateral_join"
	NullHandling       Tag = "null_handling"
	TypeCasting        Tag = "type_casting"
)

// HighValue lists the advanced techniques that earn a score bonus.
var HighValue = []Tag{RecursiveCTE, WindowFunctions, JSONOperations}

type rule struct {
	tag     Tag
	literal string
	re      *regexp.Regexp
}

func (r rule) match(source string) bool {
	if r.re != nil {
		return r.re.MatchString(source)
	}
	return strings.Contains(source, r.literal)
}

func lit(tag Tag, s string) rule { return rule{tag: tag, literal: s} }

func pat(tag Tag, expr string) rule { return rule{tag: tag, re: regexp.MustCompile(expr)} }

var rules = []rule{
	lit(TableCreation, "CREATE TABLE"),
	lit(DataInsertion, "INSERT INTO"),
	lit(DataQuerying, "SELECT"),
	pat(DataUpdate, `\bUPDATE\s+\S+\s+SET\b`),
	lit(DataDeletion, "DELETE FROM"),
	pat(Joining, `\bJOIN\b`),
	pat(Aggregation, `\b(COUNT|SUM|AVG|MIN|MAX)\s*\(`),
	lit(Grouping, "GROUP BY"),
	pat(GroupFiltering, `\bHAVING\b`),
	lit(Ordering, "ORDER BY"),
	pat(CommonTableExpr, `\bWITH\s+(RECURSIVE\s+)?\w+(\s*\([^)]*\))?\s+AS\b`),
	lit(RecursiveCTE, "WITH RECURSIVE"),
	pat(WindowFunctions, `\bOVER\s*\(`),
	pat(JSONOperations, `\bJSONB?\b|->>|#>>|\bjsonb?_\w+\(`),
	lit(PrimaryKey, "PRIMARY KEY"),
	pat(ForeignKey, `\bFOREIGN KEY\b|\bREFERENCES\b`),
	lit(UniqueConstraint, "UNIQUE"),
	pat(CheckConstraint, `\bCHECK\s*\(`),
	pat(Indexing, `\bCREATE\s+(UNIQUE\s+)?INDEX\b`),
	pat(ViewCreation, `\bCREATE\s+(OR\s+REPLACE\s+)?(MATERIALIZED\s+)?VIEW\b`),
	pat(ExistenceCheck, `\bEXISTS\s*\(`),
	pat(Subquery, `\(\s*SELECT\b`),
	pat(SetOperations, `\b(UNION|INTERSECT|EXCEPT)\b`),
	pat(ConditionalLogic, `\bCASE\b|\bCOALESCE\s*\(|\bNULLIF\s*\(`),
	pat(Pagination, `\bLIMIT\s+\d+|\bOFFSET\s+\d+|\bFETCH\s+(FIRST|NEXT)\b`),
	pat(TransactionControl, `\b(BEGIN|COMMIT|ROLLBACK|SAVEPOINT)\b`),
	lit(Upsert, "ON CONFLICT"),
	pat(StoredFunction, `\bCREATE\s+(OR\s+REPLACE\s+)?(FUNCTION|PROCEDURE)\b`),
	pat(Trigger, `\bCREATE\s+(OR\s+REPLACE\s+)?TRIGGER\b`),
	pat(StringFunctions, `\b(CONCAT|SUBSTRING|UPPER|LOWER|TRIM|LENGTH|REPLACE|STRING_AGG)\s*\(`),
	pat(DateFunctions, `\b(NOW|CURRENT_DATE|CURRENT_TIMESTAMP|DATE_TRUNC|EXTRACT|AGE|INTERVAL)\b`),
	pat(ArrayOperations, `\bARRAY\[|\bUNNEST\s*\(|\bARRAY_AGG\s*\(|\bANY\s*\(`),
	pat(FullTextSearch, `\bto_tsvector\s*\(|\bto_tsquery\s*\(|@@`),
	lit(LateralJoin, "LATERAL"),
	pat(NullHandling, `\bIS\s+(NOT\s+)?NULL\b`),
	pat(TypeCasting, `::\w+|\bCAST\s*\(`),
}

var ruleIndex = func() map[Tag]int {
	idx := make(map[Tag]int, len(rules))
	for i, r := range rules {
		idx[r.tag] = i
	}
	return idx
}()

// Known reports whether tag is produced by some rule.
func Known(tag Tag) bool {
	_, ok := ruleIndex[tag]
	return ok
}

// All returns every tag in rule order.
func All() []Tag {
	tags := make([]Tag, len(rules))
	for i, r := range rules {
		tags[i] = r.tag
	}
	return tags
}

// Detect returns the set of tags whose rule matches source.
// It is pure and deterministic; empty source yields an empty set.
func Detect(source string) Set {
	set := make(Set)
	if source == "" {
		return set
	}
	for _, r := range rules {
		if r.match(source) {
			set[r.tag] = struct{}{}
		}
	}
	return set
}

// Set is an unordered collection of tags.
type Set map[Tag]struct{}

// NewSet builds a set from tags.
func NewSet(tags ...Tag) Set {
	s := make(Set, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether tag is in the set.
func (s Set) Has(tag Tag) bool {
	_, ok := s[tag]
	return ok
}

// Len returns the number of tags.
func (s Set) Len() int {
	return len(s)
}

// HasHighValue reports whether the set contains any advanced technique.
func (s Set) HasHighValue() bool {
	for _, t := range HighValue {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Tags lists the set in rule order. Unknown tags sort last, alphabetically.
func (s Set) Tags() []Tag {
	tags := make([]Tag, 0, len(s))
	for t := range s {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		ii, iok := ruleIndex[tags[i]]
		jj, jok := ruleIndex[tags[j]]
		switch {
		case iok && jok:
			return ii < jj
		case iok != jok:
			return iok
		default:
			return tags[i] < tags[j]
		}
	})
	return tags
}

// Strings returns Tags as plain strings.
func (s Set) Strings() []string {
	tags := s.Tags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
