package filter

import (
	"reflect"

	"github.com/awcullen/opcua/ua"
)

// SubtypeChecker reports whether sub is a subtype of super. It lets OfType
// clauses match derived event types when an address space is available.
type SubtypeChecker func(sub, super ua.NodeID) bool

var attributeOperandEventType = ua.SimpleAttributeOperand{
	TypeDefinitionID: ua.ObjectTypeIDBaseEventType,
	BrowsePath:       ua.ParseBrowsePath("EventType"),
	AttributeID:      ua.AttributeIDValue,
}

// EventFields evaluates the where clause of ef against evt and, if it matches,
// returns the selected fields in clause order.
func EventFields(ef ua.EventFilter, evt ua.Event, isSubtype SubtypeChecker) ([]ua.Variant, bool) {
	if res, ok := where(ef, evt, 0, isSubtype).(bool); !ok || !res {
		return nil, false
	}
	fields := make([]ua.Variant, len(ef.SelectClauses))
	for i, clause := range ef.SelectClauses {
		fields[i] = evt.GetAttribute(clause)
	}
	return fields, true
}

func where(ef ua.EventFilter, evt ua.Event, idx int, isSubtype SubtypeChecker) any {
	if idx >= len(ef.WhereClause.Elements) {
		return true
	}
	element := ef.WhereClause.Elements[idx]
	switch element.FilterOperator {
	case ua.FilterOperatorEquals:
		if len(element.FilterOperands) != 2 {
			return false
		}
		a, ok := operand(ef, evt, idx, element.FilterOperands[0], isSubtype)
		if !ok {
			return false
		}
		b, ok := operand(ef, evt, idx, element.FilterOperands[1], isSubtype)
		if !ok {
			return false
		}
		return reflect.DeepEqual(a, b)

	case ua.FilterOperatorOfType:
		if len(element.FilterOperands) != 1 {
			return false
		}
		lit, ok := element.FilterOperands[0].(ua.LiteralOperand)
		if !ok {
			return false
		}
		super, ok := lit.Value.(ua.NodeID)
		if !ok {
			return false
		}
		typ, ok := evt.GetAttribute(attributeOperandEventType).(ua.NodeID)
		if !ok {
			return false
		}
		return typ == super || (isSubtype != nil && isSubtype(typ, super))
	}
	return false
}

// operand resolves o. Element operands must point forward.
func operand(ef ua.EventFilter, evt ua.Event, idx int, o ua.ExtensionObject, isSubtype SubtypeChecker) (any, bool) {
	switch c := o.(type) {
	case ua.LiteralOperand:
		return c.Value, true
	case ua.SimpleAttributeOperand:
		return evt.GetAttribute(c), true
	case ua.ElementOperand:
		if int(c.Index) <= idx {
			return nil, false
		}
		return where(ef, evt, int(c.Index), isSubtype), true
	}
	return nil, false
}
