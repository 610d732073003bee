package domain

import "fmt"

// Filterable field names, as they appear in stored documents.
const (
	FieldOwner = "userId"
	FieldName  = "name"
)

// Operator is a query comparison operator.
type Operator string

// OpEqual is the only operator the stores support.
const OpEqual Operator = "=="

// Filter is a single-field predicate on documents.
type Filter struct {
	Field string
	Op    Operator
	Value string
}

// Query selects documents from a collection.
type Query struct {
	Collection string
	Where      Filter
}

// OwnedBy returns the query for every recipe owned by p.
func OwnedBy(p Principal) Query {
	return Query{
		Collection: CollectionRecipes,
		Where:      Filter{Field: FieldOwner, Op: OpEqual, Value: string(p)},
	}
}

// Validate returns ErrUnsupportedQuery for fields or operators the stores
// cannot evaluate.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("%w: empty collection", ErrUnsupportedQuery)
	}
	if q.Where.Op != OpEqual {
		return fmt.Errorf("%w: operator %q", ErrUnsupportedQuery, q.Where.Op)
	}
	switch q.Where.Field {
	case FieldOwner, FieldName:
		return nil
	default:
		return fmt.Errorf("%w: field %q", ErrUnsupportedQuery, q.Where.Field)
	}
}

// Matches reports whether r satisfies the filter. Unknown fields never match.
func (f Filter) Matches(r Recipe) bool {
	if f.Op != OpEqual {
		return false
	}
	switch f.Field {
	case FieldOwner:
		return string(r.Owner) == f.Value
	case FieldName:
		return r.Name == f.Value
	default:
		return false
	}
}

// String renders the filter the way it is written in queries.
func (f Filter) String() string {
	return fmt.Sprintf("%s %s %q", f.Field, f.Op, f.Value)
}
