package playback

import "slices"

// HistoryLimit is the number of recently played video IDs remembered.
const HistoryLimit = 20

// History is a bounded list of recently played video IDs, oldest first.
// It is not safe for concurrent use; the Machine guards it.
type History struct {
	ids   []string
	limit int
}

func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Push appends id, dropping the oldest entry when full.
func (h *History) Push(id string) {
	h.ids = append(h.ids, id)
	if over := len(h.ids) - h.limit; over > 0 {
		h.ids = slices.Delete(h.ids, 0, over)
	}
}

func (h *History) Contains(id string) bool {
	return slices.Contains(h.ids, id)
}

// IDs returns a copy of the history, oldest first.
func (h *History) IDs() []string {
	return slices.Clone(h.ids)
}

func (h *History) Len() int {
	return len(h.ids)
}

func (h *History) Clear() {
	h.ids = nil
}
