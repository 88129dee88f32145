package constraints

// Operator is the closed set of constraint operators.
type Operator string

const (
	Equal         Operator = "EQ"
	NotEqual      Operator = "NOT_EQ"
	In            Operator = "IN"
	NotIn         Operator = "NOT_IN"
	NumEqual      Operator = "NUM_EQ"
	NumGreater    Operator = "NUM_GT"
	NumGreaterEq  Operator = "NUM_GTE"
	NumLess       Operator = "NUM_LT"
	NumLessEq     Operator = "NUM_LTE"
	StrContains   Operator = "STR_CONTAINS"
	StrStarts     Operator = "STR_STARTS_WITH"
	StrEnds       Operator = "STR_ENDS_WITH"
	SemverEqual   Operator = "SEMVER_EQ"
	SemverGreater Operator = "SEMVER_GT"
	SemverLess    Operator = "SEMVER_LT"
	DateAfter     Operator = "DATE_AFTER"
	DateBefore    Operator = "DATE_BEFORE"
)

type kind uint8

const (
	kindUnknown kind = iota
	kindString
	kindNumeric
	kindSemver
	kindDate
)

var operatorKinds = map[Operator]kind{
	Equal:         kindString,
	NotEqual:      kindString,
	In:            kindString,
	NotIn:         kindString,
	StrContains:   kindString,
	StrStarts:     kindString,
	StrEnds:       kindString,
	NumEqual:      kindNumeric,
	NumGreater:    kindNumeric,
	NumGreaterEq:  kindNumeric,
	NumLess:       kindNumeric,
	NumLessEq:     kindNumeric,
	SemverEqual:   kindSemver,
	SemverGreater: kindSemver,
	SemverLess:    kindSemver,
	DateAfter:     kindDate,
	DateBefore:    kindDate,
}

// IsValid reports whether the operator belongs to the known enumeration.
func (o Operator) IsValid() bool {
	_, ok := operatorKinds[o]
	return ok
}

func (o Operator) kind() kind {
	return operatorKinds[o]
}
