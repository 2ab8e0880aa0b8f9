package domain

// Insertion places Item at Index. PreviousIndex is the row in the previous
// list the item was reused from, or -1.
type Insertion struct {
	Index         int                  `json:"index"`
	Item          ParticipantViewModel `json:"item"`
	PreviousIndex int                  `json:"previous_index"`
}

// Update overwrites the row at Index with Item. PreviousIndex is where the
// same peer lived in the previous list.
type Update struct {
	Index         int                  `json:"index"`
	Item          ParticipantViewModel `json:"item"`
	PreviousIndex int                  `json:"previous_index"`
}

// Diff turns one participant list into the next. Removed is in descending
// order; Inserted and Updated are in ascending index order.
type Diff struct {
	Removed  []int       `json:"removed"`
	Inserted []Insertion `json:"inserted"`
	Updated  []Update    `json:"updated"`
}

func (d Diff) Empty() bool {
	return len(d.Removed) == 0 && len(d.Inserted) == 0 && len(d.Updated) == 0
}

// Apply replays the diff on a copy of previous.
func (d Diff) Apply(previous []ParticipantViewModel) []ParticipantViewModel {
	list := make([]ParticipantViewModel, len(previous))
	copy(list, previous)
	for _, i := range d.Removed {
		list = append(list[:i], list[i+1:]...)
	}
	for _, ins := range d.Inserted {
		list = append(list, ParticipantViewModel{})
		copy(list[ins.Index+1:], list[ins.Index:])
		list[ins.Index] = ins.Item
	}
	for _, upd := range d.Updated {
		list[upd.Index] = upd.Item
	}
	return list
}
