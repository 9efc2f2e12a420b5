package checker

import "github.com/sophialabs/declarecheck/internal/domain/declare"

// negation turns the counters of a negative template into a verdict. A
// violation is final; otherwise the prohibition holds only once the trace
// is complete.
func (s *scan) negation(t tally) declare.CheckerResult {
	var state declare.TraceState
	switch {
	case t.activations == 0:
		state = s.vacuous()
	case t.violations > 0:
		state = declare.Violated
	default:
		state = s.settled()
	}
	return counters(state, t.activations, t.fulfillments, t.violations, t.pendings)
}

// unbroken records an activation that has not violated the prohibition yet.
func (t *tally) unbroken(done bool) {
	if done {
		t.fulfillments++
	} else {
		t.pendings++
	}
}

// notRespondedExistence: no A is accompanied by a correlating B anywhere.
func (s *scan) notRespondedExistence() (declare.CheckerResult, error) {
	var t tally
	events := s.events()
	for i, ev := range events {
		act, err := s.activates(ev, s.A)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if !act {
			continue
		}
		t.activations++
		found, err := s.findTarget(ev, s.B, events, i)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if found {
			t.violations++
		} else {
			t.unbroken(s.Done)
		}
	}
	return s.negation(t), nil
}

// notResponse: no A is followed by a correlating B.
func (s *scan) notResponse() (declare.CheckerResult, error) {
	var t tally
	events := s.events()
	for i, ev := range events {
		act, err := s.activates(ev, s.A)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if !act {
			continue
		}
		t.activations++
		found, err := s.findTarget(ev, s.B, events[i+1:], -1)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if found {
			t.violations++
		} else {
			t.unbroken(s.Done)
		}
	}
	return s.negation(t), nil
}

// notChainResponse: no A is immediately followed by a correlating B.
func (s *scan) notChainResponse() (declare.CheckerResult, error) {
	var t tally
	events := s.events()
	for i, ev := range events {
		act, err := s.activates(ev, s.A)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if !act {
			continue
		}
		t.activations++
		if i == len(events)-1 {
			t.unbroken(s.Done)
			continue
		}
		next := events[i+1]
		broken := false
		if next.Activity() == s.B {
			if broken, err = s.correlates(ev, next); err != nil {
				return declare.CheckerResult{}, err
			}
		}
		if broken {
			t.violations++
		} else {
			t.fulfillments++
		}
	}
	return s.negation(t), nil
}

// notPrecedence: no B is preceded by a correlating A. B is the activation.
func (s *scan) notPrecedence() (declare.CheckerResult, error) {
	var t tally
	events := s.events()
	for i, ev := range events {
		act, err := s.activates(ev, s.B)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if !act {
			continue
		}
		t.activations++
		found, err := s.findTarget(ev, s.A, events[:i], -1)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if found {
			t.violations++
		} else {
			t.fulfillments++
		}
	}
	return s.negation(t), nil
}

// notChainPrecedence: no B is immediately preceded by a correlating A.
func (s *scan) notChainPrecedence() (declare.CheckerResult, error) {
	var t tally
	events := s.events()
	for i, ev := range events {
		act, err := s.activates(ev, s.B)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if !act {
			continue
		}
		t.activations++
		broken := false
		if i > 0 && events[i-1].Activity() == s.A {
			if broken, err = s.correlates(ev, events[i-1]); err != nil {
				return declare.CheckerResult{}, err
			}
		}
		if broken {
			t.violations++
		} else {
			t.fulfillments++
		}
	}
	return s.negation(t), nil
}
