package filing

// Record is the serialized form of an entity handed to publishers and
// exporters.
type Record map[string]any

// Recorder is implemented by every entity that leaves the process.
type Recorder interface {
	Record() Record
}

// History is an ordered filing history.
type History []*SecFiling

// Records converts each filing in order.
func (h History) Records() []Record {
	out := make([]Record, 0, len(h))
	for _, f := range h {
		out = append(out, f.Record())
	}
	return out
}
