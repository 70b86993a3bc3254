package crawler

import "math/rand/v2"

// QueueState classifies a persisted queue.
type QueueState int

// Queue states. A run that stops on error leaves the queue Populated.
const (
	NoQueue QueueState = iota
	Populated
)

func (s QueueState) String() string {
	if s == Populated {
		return "populated"
	}
	return "no_queue"
}

// Shuffler permutes a queue in place.
type Shuffler func(queue []Combination)

// RandomShuffle permutes the queue uniformly at random.
func RandomShuffle(queue []Combination) {
	rand.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
}

// CrossProduct returns every field/region pair, fields outermost.
// Duplicate codes in either list are ignored.
func CrossProduct(fields, regions []string) []Combination {
	fields = dedupe(fields)
	regions = dedupe(regions)
	out := make([]Combination, 0, len(fields)*len(regions))
	for _, field := range fields {
		for _, region := range regions {
			out = append(out, Combination{Field: field, Region: region})
		}
	}
	return out
}

// NewQueue builds the full cross product and permutes it with shuffle.
// A nil shuffle leaves the cross product in order.
func NewQueue(fields, regions []string, shuffle Shuffler) []Combination {
	queue := CrossProduct(fields, regions)
	if shuffle != nil {
		shuffle(queue)
	}
	return queue
}

// State reports whether queue has pending work.
func State(queue []Combination) QueueState {
	if len(queue) == 0 {
		return NoQueue
	}
	return Populated
}

// Advance drops the head of the queue. The input slice is not modified.
func Advance(queue []Combination) []Combination {
	if len(queue) <= 1 {
		return []Combination{}
	}
	out := make([]Combination, len(queue)-1)
	copy(out, queue[1:])
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
