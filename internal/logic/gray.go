package logic

// ToGrayCode maps the levels of lines A and B to their Gray code.
//
//	A    B    code
//	Low  Low  0
//	Low  High 1
//	High High 2
//	High Low  3
func ToGrayCode(a, b Level) GrayCode {
	switch {
	case a == Low && b == Low:
		return 0
	case a == Low && b == High:
		return 1
	case a == High && b == High:
		return 2
	default:
		return 3
	}
}

// Classify returns the rotation between the previous code and the current one.
// A delta of two steps is ambiguous (a sample was missed) and reports None.
func Classify(previous, current GrayCode) Direction {
	switch previous - current {
	case -1, 3:
		return Clockwise
	case 1, -3:
		return AntiClockwise
	default:
		return None
	}
}
