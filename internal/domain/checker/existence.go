package checker

import "github.com/sophialabs/declarecheck/internal/domain/declare"

// count returns the number of qualifying occurrences of activity.
func (s *scan) count(activity string) (int, error) {
	n := 0
	for _, ev := range s.events() {
		ok, err := s.qualifies(ev, activity)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func unary(state declare.TraceState, activations int) declare.CheckerResult {
	return declare.CheckerResult{State: state, NumActivations: declare.IntPtr(activations)}
}

// existence: at least n qualifying occurrences of A.
func (s *scan) existence() (declare.CheckerResult, error) {
	count, err := s.count(s.A)
	if err != nil {
		return declare.CheckerResult{}, err
	}
	switch {
	case count == 0 && s.Rules.VacuousSatisfaction:
		return unary(declare.Satisfied, count), nil
	case count >= s.n():
		return unary(declare.Satisfied, count), nil
	default:
		return unary(s.unresolved(), count), nil
	}
}

// absence: at most n qualifying occurrences of A. Exceeding n cannot be
// undone by later events.
func (s *scan) absence() (declare.CheckerResult, error) {
	count, err := s.count(s.A)
	if err != nil {
		return declare.CheckerResult{}, err
	}
	if count > s.n() {
		return unary(declare.Violated, count), nil
	}
	return unary(s.settled(), count), nil
}

// initial: the trace starts with a qualifying occurrence of A.
func (s *scan) initial() (declare.CheckerResult, error) {
	events := s.events()
	if len(events) == 0 {
		if s.Rules.VacuousSatisfaction {
			return unary(declare.Satisfied, 0), nil
		}
		return unary(s.unresolved(), 0), nil
	}

	ok, err := s.activates(events[0], s.A)
	if err != nil {
		return declare.CheckerResult{}, err
	}
	if ok {
		return unary(declare.Satisfied, 1), nil
	}

	if s.Rules.VacuousSatisfaction {
		for _, ev := range events[1:] {
			act, err := s.activates(ev, s.A)
			if err != nil {
				return declare.CheckerResult{}, err
			}
			if act {
				return unary(declare.Violated, 0), nil
			}
		}
		return unary(declare.Satisfied, 0), nil
	}
	return unary(declare.Violated, 0), nil
}

// exactly: exactly n qualifying occurrences of A.
func (s *scan) exactly() (declare.CheckerResult, error) {
	count, err := s.count(s.A)
	if err != nil {
		return declare.CheckerResult{}, err
	}
	n := s.n()
	switch {
	case count == 0 && s.Rules.VacuousSatisfaction:
		return unary(declare.Satisfied, count), nil
	case count > n:
		return unary(declare.Violated, count), nil
	case count == n:
		return unary(s.settled(), count), nil
	default:
		return unary(s.unresolved(), count), nil
	}
}
