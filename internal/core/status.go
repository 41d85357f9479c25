package core

// Status is a purchase order lifecycle state. The values are the Spanish
// labels the dashboard has always used; they are stored verbatim.
type Status string

const (
	StatusBorrador   Status = "BORRADOR"
	StatusPendiente  Status = "PENDIENTE"
	StatusAprobada   Status = "APROBADA"
	StatusEnviada    Status = "ENVIADA"
	StatusParcial    Status = "PARCIAL"
	StatusCompletada Status = "COMPLETADA"
	StatusCancelada  Status = "CANCELADA"
)

// userTransitions lists the states a caller may request directly.
// PARCIAL and COMPLETADA are never user targets: they are derived from
// item quantities by the receiving engine.
var userTransitions = map[Status][]Status{
	StatusBorrador:   {StatusPendiente, StatusCancelada},
	StatusPendiente:  {StatusAprobada, StatusCancelada},
	StatusAprobada:   {StatusEnviada, StatusCancelada},
	StatusEnviada:    {StatusCancelada},
	StatusParcial:    {StatusCancelada},
	StatusCompletada: {},
	StatusCancelada:  {},
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s Status) bool {
	_, ok := userTransitions[s]
	return ok
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompletada || s == StatusCancelada
}

// CanTransition reports whether a caller may move an order from cur to
// target. Derived states are excluded by construction.
func CanTransition(cur, target Status) bool {
	for _, t := range userTransitions[cur] {
		if t == target {
			return true
		}
	}
	return false
}

// receivable lists the states in which goods may be received.
func receivable(s Status) bool {
	return s == StatusAprobada || s == StatusEnviada || s == StatusParcial
}

// itemProgress is the subset of item state DeriveStatus needs.
type itemProgress struct {
	ordered  int
	received int
}

// DeriveStatus recomputes an order's status from its item quantities.
// It returns COMPLETADA when every item is fully received, PARCIAL when
// any quantity has been received, and ENVIADA otherwise. The caller only
// applies the result when it advances past the current status, so orders
// with nothing received keep whatever state they were in.
func DeriveStatus(items []itemProgress) Status {
	if len(items) == 0 {
		return StatusEnviada
	}
	full := true
	any := false
	for _, it := range items {
		if it.received > 0 {
			any = true
		}
		if it.received < it.ordered {
			full = false
		}
	}
	switch {
	case full:
		return StatusCompletada
	case any:
		return StatusParcial
	default:
		return StatusEnviada
	}
}

// DeriveStatusFromItems is the exported form working on full item rows.
func DeriveStatusFromItems(items []PurchaseOrderItem) Status {
	progress := make([]itemProgress, len(items))
	for i, it := range items {
		progress[i] = itemProgress{ordered: it.QtyOrdered, received: it.QtyReceived}
	}
	return DeriveStatus(progress)
}
