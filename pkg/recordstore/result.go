package recordstore

// Status is the outcome of a read.
type Status int

const (
	// StatusFound means the backend returned a value.
	StatusFound Status = iota
	// StatusEmpty means the read succeeded but there was nothing to return:
	// no settings row, a null settings value, or an empty collection.
	StatusEmpty
	// StatusFailed means the backend reported an error.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of Lookup.
type Result struct {
	Status Status

	// Value is the setting value or the []Record of a collection. It is
	// only set when Status is StatusFound.
	Value any

	Key   string
	Table string
	Kind  Kind

	// Err is the backend error when Status is StatusFailed.
	Err error
}

// ValueOr returns the found value, or def for empty and failed reads.
func (r Result) ValueOr(def any) any {
	if r.Status == StatusFound {
		return r.Value
	}
	return def
}

// Records returns the collection records of a found result.
func (r Result) Records() []Record {
	records, _ := r.Value.([]Record)
	return records
}
