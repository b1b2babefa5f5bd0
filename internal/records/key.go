package records

// Key selects a single record in Store.Get: a Scalar for kinds with a
// natural key, a Filter for Subscription.
type Key interface {
	key()
}

// Scalar is the natural key value of a record (its url, or user_id for MangaOutput).
type Scalar string

// Filter maps field names to the values they must equal.
type Filter map[string]any

func (Scalar) key() {}
func (Filter) key() {}
