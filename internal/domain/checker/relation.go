package checker

import "github.com/sophialabs/declarecheck/internal/domain/declare"

// tally accumulates the relation counters of one checker call.
type tally struct {
	activations  int
	fulfillments int
	violations   int
	pendings     int
}

// open records an activation whose target was never found.
func (t *tally) open(done bool) {
	if done {
		t.violations++
	} else {
		t.pendings++
	}
}

// relation turns the counters of a positive relation template into a verdict.
func (s *scan) relation(t tally) declare.CheckerResult {
	state := declare.Satisfied
	switch {
	case t.activations == 0:
		state = s.vacuous()
	case t.violations > 0 || t.pendings > 0:
		state = s.unresolved()
	}
	return counters(state, t.activations, t.fulfillments, t.violations, t.pendings)
}

// findTarget reports whether some event in events other than skip is an
// occurrence of activity correlating with activation.
func (s *scan) findTarget(activation declare.Event, activity string, events []declare.Event, skip int) (bool, error) {
	for j, ev := range events {
		if j == skip || ev.Activity() != activity {
			continue
		}
		ok, err := s.correlates(activation, ev)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// respondedExistence: every A is accompanied by a correlating B anywhere.
func (s *scan) respondedExistence() (declare.CheckerResult, error) {
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
			t.fulfillments++
		} else {
			t.open(s.Done)
		}
	}
	return s.relation(t), nil
}

// response: every A is eventually followed by a correlating B.
func (s *scan) response() (declare.CheckerResult, error) {
	var t tally
	var pending []declare.Event
	for _, ev := range s.events() {
		if ev.Activity() == s.B && len(pending) > 0 {
			kept := pending[:0]
			for _, p := range pending {
				ok, err := s.correlates(p, ev)
				if err != nil {
					return declare.CheckerResult{}, err
				}
				if ok {
					t.fulfillments++
				} else {
					kept = append(kept, p)
				}
			}
			pending = kept
		}

		act, err := s.activates(ev, s.A)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if act {
			t.activations++
			pending = append(pending, ev)
		}
	}
	for range pending {
		t.open(s.Done)
	}
	return s.relation(t), nil
}

// alternateResponse: like response, but a new A may not open while the
// previous one is still waiting for its B.
func (s *scan) alternateResponse() (declare.CheckerResult, error) {
	var t tally
	var pending declare.Event
	for _, ev := range s.events() {
		if pending != nil && ev.Activity() == s.B {
			ok, err := s.correlates(pending, ev)
			if err != nil {
				return declare.CheckerResult{}, err
			}
			if ok {
				t.fulfillments++
				pending = nil
			}
		}

		act, err := s.activates(ev, s.A)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if act {
			t.activations++
			if pending != nil {
				t.violations++
			}
			pending = ev
		}
	}
	if pending != nil {
		t.open(s.Done)
	}
	return s.relation(t), nil
}

// chainResponse: every A is immediately followed by a correlating B.
func (s *scan) chainResponse() (declare.CheckerResult, error) {
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
			t.open(s.Done)
			continue
		}
		next := events[i+1]
		ok := false
		if next.Activity() == s.B {
			if ok, err = s.correlates(ev, next); err != nil {
				return declare.CheckerResult{}, err
			}
		}
		if ok {
			t.fulfillments++
		} else {
			t.violations++
		}
	}
	return s.relation(t), nil
}

// precedence: every B is preceded by a correlating A. B is the activation.
func (s *scan) precedence() (declare.CheckerResult, error) {
	return s.precede(false)
}

// alternatePrecedence: like precedence, but each A can serve a single B.
func (s *scan) alternatePrecedence() (declare.CheckerResult, error) {
	return s.precede(true)
}

func (s *scan) precede(alternate bool) (declare.CheckerResult, error) {
	var t tally
	var earlier []declare.Event
	for _, ev := range s.events() {
		act, err := s.activates(ev, s.B)
		if err != nil {
			return declare.CheckerResult{}, err
		}
		if act {
			t.activations++
			found, err := s.findTarget(ev, s.A, earlier, -1)
			if err != nil {
				return declare.CheckerResult{}, err
			}
			if found {
				t.fulfillments++
			} else {
				t.violations++
			}
			if alternate {
				earlier = earlier[:0]
			}
		}
		if ev.Activity() == s.A {
			earlier = append(earlier, ev)
		}
	}
	return s.relation(t), nil
}

// chainPrecedence: every B is immediately preceded by a correlating A.
func (s *scan) chainPrecedence() (declare.CheckerResult, error) {
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
		ok := false
		if i > 0 && events[i-1].Activity() == s.A {
			if ok, err = s.correlates(ev, events[i-1]); err != nil {
				return declare.CheckerResult{}, err
			}
		}
		if ok {
			t.fulfillments++
		} else {
			t.violations++
		}
	}
	return s.relation(t), nil
}
