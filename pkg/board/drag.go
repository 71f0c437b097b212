package board

// DragState is the state of a drag gesture.
type DragState int

// These constants are the states of a DragSession.
const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}

	return "idle"
}

// Slot is an insertion point: an index among a list's displayed cards.
type Slot struct {
	ListID ID
	Index  int
}

// Drop describes a completed gesture: which card was dragged, from where, and where it was
// released.
type Drop struct {
	CardID ID
	From   Slot
	To     Slot
}

// DragSession tracks a single drag gesture. The zero value is Idle and ready to use.
// It is not safe for concurrent use; Board guards its own session.
type DragSession struct {
	cardID   ID
	origin   Slot
	hover    Slot
	hovering bool
}

// State reports whether a card is currently being dragged.
func (d DragSession) State() DragState {
	if d.cardID == "" {
		return Idle
	}

	return Dragging
}

// CardID returns the dragged card's id, or "" when Idle.
func (d DragSession) CardID() ID {
	return d.cardID
}

// Origin returns the slot the dragged card was picked up from.
func (d DragSession) Origin() (Slot, bool) {
	return d.origin, d.cardID != ""
}

// HoverSlot returns the slot currently highlighted as the drop target.
func (d DragSession) HoverSlot() (Slot, bool) {
	return d.hover, d.hovering
}

// Start begins a gesture on the given card. A gesture already in progress is replaced.
func (d *DragSession) Start(cardID, listID ID, index int) {
	d.reset()

	if cardID == "" {
		return
	}

	d.cardID = cardID
	d.origin = Slot{ListID: listID, Index: index}
}

// Hover moves the highlighted drop target. It reports whether the target changed; hovering the
// same slot again, or hovering while Idle, changes nothing.
func (d *DragSession) Hover(listID ID, index int) bool {
	if d.cardID == "" {
		return false
	}

	slot := Slot{ListID: listID, Index: index}
	if d.hovering && d.hover == slot {
		return false
	}

	d.hover = slot
	d.hovering = true

	return true
}

// Drop ends the gesture and returns the drop target. ok is false when no card was being dragged
// or no slot was hovered. The session is Idle afterwards in every case.
func (d *DragSession) Drop() (Drop, bool) {
	defer d.reset()

	if d.cardID == "" || !d.hovering {
		return Drop{}, false
	}

	return Drop{CardID: d.cardID, From: d.origin, To: d.hover}, true
}

// Cancel ends the gesture without a drop.
func (d *DragSession) Cancel() {
	d.reset()
}

func (d *DragSession) reset() {
	*d = DragSession{}
}
