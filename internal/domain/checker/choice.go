package checker

import "github.com/sophialabs/declarecheck/internal/domain/declare"

// choice: A or B occurs.
func (s *scan) choice() (declare.CheckerResult, error) {
	occurs := false
	for _, ev := range s.events() {
		a, err := s.qualifies(ev, s.A)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		b, err := s.qualifies(ev, s.B)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if a || b {
			occurs = true
			break
		}
	}

	switch {
	case occurs, s.Rules.VacuousSatisfaction:
		return declare.CheckerResult{State: declare.Satisfied}, nil
	default:
		return declare.CheckerResult{State: s.unresolved()}, nil
	}
}

// exclusiveChoice: exactly one of A and B occurs.
func (s *scan) exclusiveChoice() (declare.CheckerResult, error) {
	var aOccurs, bOccurs bool
	for _, ev := range s.events() {
		if !aOccurs {
			ok, err := s.qualifies(ev, s.A)
			if err != nil {
				return declare.CheckerResult{}, err
			}
			aOccurs = ok
		}
		if !bOccurs {
			ok, err := s.qualifies(ev, s.B)
			if err != nil {
				return declare.CheckerResult{}, err
			}
			bOccurs = ok
		}
		if aOccurs && bOccurs {
			break
		}
	}

	switch {
	case aOccurs && bOccurs:
		return declare.CheckerResult{State: declare.Violated}, nil
	case aOccurs != bOccurs:
		return declare.CheckerResult{State: s.settled()}, nil
	case s.Rules.VacuousSatisfaction:
		return declare.CheckerResult{State: declare.Satisfied}, nil
	default:
		return declare.CheckerResult{State: s.unresolved()}, nil
	}
}
