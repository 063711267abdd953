package automation

// ConditionOp is the comparison a gating condition applies.
type ConditionOp string

const (
	ConditionEquals    ConditionOp = "equals"
	ConditionNotEquals ConditionOp = "not_equals"
	ConditionExists    ConditionOp = "exists"
)

// StepCondition is a structured predicate over job/payment/gallery facts,
// e.g. {Field: "job.status", Op: "equals", Value: "completed"}. Conditions
// are checked best-effort at scheduling time and authoritatively at
// delivery time.
type StepCondition struct {
	Field string      `json:"field"`
	Op    ConditionOp `json:"op"`
	Value string      `json:"value,omitempty"`
}

// Evaluate resolves the condition against the facts in the bag. The second
// return reports whether the fact was knowable at all: a condition over a
// record that is absent from the bag is unknown rather than false, so that
// scheduling-time checks can stay a best-effort pre-filter.
func (c *StepCondition) Evaluate(bag DataBag) (holds, known bool) {
	value, known := lookupField(bag, c.Field)
	if !known {
		return false, false
	}

	switch c.Op {
	case ConditionEquals:
		return value == c.Value, true

	case ConditionNotEquals:
		return value != c.Value, true

	case ConditionExists:
		return value != "", true

	default:
		return false, false
	}
}
