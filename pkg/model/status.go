package model

// Status is the three-level health status reported for namespaces,
// clusters, and the system as a whole. The string values are the
// wire values the dashboard renders; do not change them.
type Status string

// Health statuses, least to most severe.
const (
	StatusSaludable   Status = "Saludable"
	StatusAdvertencia Status = "Advertencia"
	StatusCritico     Status = "Crítico"
)

// Severity returns the comparable rank of a status. Higher is worse.
// Unknown values rank below Saludable so a corrupted status can never
// mask a real problem during worst-of aggregation.
func (s Status) Severity() int {
	switch s {
	case StatusCritico:
		return 3
	case StatusAdvertencia:
		return 2
	case StatusSaludable:
		return 1
	default:
		return 0
	}
}

// Worst returns the more severe of two statuses. Ties resolve to the
// status itself, making the ordering total and stable.
func Worst(a, b Status) Status {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// WorstOf folds Worst over a set of statuses. An empty set is
// Saludable: a parent with no children has nothing wrong with it.
func WorstOf(statuses []Status) Status {
	worst := StatusSaludable
	for _, s := range statuses {
		worst = Worst(worst, s)
	}
	return worst
}
