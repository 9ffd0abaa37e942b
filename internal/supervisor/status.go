package supervisor

// status.go - снимок состояния движка для /status. Trader держит всё
// своё решающее состояние внутри собственной горутины Run и наружу
// его не отдаёт, поэтому снимок строится отдельным наблюдателем -
// ещё одной подпиской на шину событий, которая только накапливает
// последние значения под мьютексом и ничего не решает.

import (
	"sync"

	"marketmaker/internal/models"
)

const statusBufferSize = 64

// PairStatus - последние известные значения по одной паре.
type PairStatus struct {
	Price               string
	FirstBalance        string
	SecondBalance       string
	ActiveOrderCount    int
	CompletedOrderCount int
}

// Status - снимок состояния всех торгуемых пар на момент запроса.
type Status struct {
	Pairs map[string]PairStatus
}

// statusObserver накапливает последние Event'ы по каждой паре.
// Balance-события несут только валюту, не пару, поэтому при
// построении индексируются пары, где эта валюта - первая или вторая
// сторона (currencyToFirstPairs/currencyToSecondPairs).
type statusObserver struct {
	mu    sync.RWMutex
	pairs map[string]*PairStatus

	currencyToFirstPairs  map[string][]string
	currencyToSecondPairs map[string][]string
}

func newStatusObserver(opts []models.TradingOptions) *statusObserver {
	o := &statusObserver{
		pairs:                 make(map[string]*PairStatus, len(opts)),
		currencyToFirstPairs:  make(map[string][]string),
		currencyToSecondPairs: make(map[string][]string),
	}
	for _, p := range opts {
		key := p.Pair.String()
		o.pairs[key] = &PairStatus{}
		o.currencyToFirstPairs[p.Pair.First.Name] = append(o.currencyToFirstPairs[p.Pair.First.Name], key)
		o.currencyToSecondPairs[p.Pair.Second.Name] = append(o.currencyToSecondPairs[p.Pair.Second.Name], key)
	}
	return o
}

func (o *statusObserver) apply(e models.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch e.Kind {
	case models.Price:
		if s, ok := o.pairs[e.Pair.String()]; ok {
			s.Price = e.Value.String()
		}
	case models.Balance:
		for _, key := range o.currencyToFirstPairs[e.Currency.Name] {
			o.pairs[key].FirstBalance = e.Value.String()
		}
		for _, key := range o.currencyToSecondPairs[e.Currency.Name] {
			o.pairs[key].SecondBalance = e.Value.String()
		}
	case models.ActiveOrders:
		if s, ok := o.pairs[e.Pair.String()]; ok {
			s.ActiveOrderCount = len(e.Orders)
		}
	case models.CompletedOrders:
		if s, ok := o.pairs[e.Pair.String()]; ok {
			s.CompletedOrderCount = len(e.Orders)
		}
	}
}

func (o *statusObserver) snapshot() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make(map[string]PairStatus, len(o.pairs))
	for k, s := range o.pairs {
		out[k] = *s
	}
	return Status{Pairs: out}
}
