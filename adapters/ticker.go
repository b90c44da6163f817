package adapters

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patchbrain/rogue/util/log"
)

// Ticker drives the periodic save scheduler: every interval it calls save
// and logs (without retrying) any failure, grounded on the
// goroutine-per-shard time.Timer loop the pack's sharded engine uses for
// its own background maintenance, generalized here from garbage
// collection to persistence.
type Ticker struct {
	interval time.Duration
	save     func(ctx context.Context) error
	log      *logrus.Entry
	stop     chan struct{}
	done     chan struct{}
}

// NewTicker returns a Ticker that calls save every interval once Start is
// called. It does not start any goroutine until Start is called.
func NewTicker(interval time.Duration, save func(ctx context.Context) error) *Ticker {
	return &Ticker{
		interval: interval,
		save:     save,
		log:      logrus.WithField("component", "adapters.ticker"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic save loop. It must be called at most once.
func (t *Ticker) Start() {
	go t.run()
}

func (t *Ticker) run() {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), t.interval)
			if err := t.save(ctx); err != nil {
				log.Trace(t.log.WithError(err)).Warn("periodic save failed")
			}
			cancel()
		case <-t.stop:
			return
		}
	}
}

// Stop ends the periodic save loop and waits for the in-flight tick, if
// any, to finish. The handle must be stopped on engine shutdown.
func (t *Ticker) Stop() {
	close(t.stop)
	<-t.done
}
