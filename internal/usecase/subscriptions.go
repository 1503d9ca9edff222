package usecase

import "github.com/Gunvolt24/gomarketplace_cart/internal/domain"

// Subscribe — канал снимков корзины. В канале всегда только последний снимок:
// медленный подписчик пропускает промежуточные, но не тормозит запись.
// Если корзина готова, текущий снимок приходит сразу. cancel закрывает канал.
func (s *CartStore) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.state == stateReady {
		ch <- s.snapshotLocked()
	}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// publishLocked — раздаёт снимок подписчикам, вытесняя непрочитанный.
func (s *CartStore) publishLocked(snap domain.Snapshot) {
	for _, ch := range s.subs {
		snap := domain.NewSnapshot(snap.Version, snap.Items)
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
