package pipeline

import (
	"context"
	"runtime"
	"time"

	"ips-guard/internal/client"
	"ips-guard/internal/hashfn"
	"ips-guard/internal/metrics"
	"ips-guard/internal/model"
	"ips-guard/internal/rules"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const queueDepth = 256

// Pool fans packets from a source out to worker goroutines. Packets of
// the same address pair always go to the same worker.
type Pool struct {
	engine        *rules.Engine
	metrics       *metrics.Metrics
	logger        *logrus.Logger
	workers       int
	flushInterval time.Duration
}

// NewPool returns a pool of workers processors; zero means GOMAXPROCS.
func NewPool(engine *rules.Engine, m *metrics.Metrics, logger *logrus.Logger, workers int, flushInterval time.Duration) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Pool{
		engine:        engine,
		metrics:       m,
		logger:        logger,
		workers:       workers,
		flushInterval: flushInterval,
	}
}

func (pl *Pool) Workers() int { return pl.workers }

// Run streams src until it ends or ctx is cancelled, then drains the
// queues and flushes every worker's profile counters.
func (pl *Pool) Run(ctx context.Context, src client.Source) error {
	if r, ok := src.(client.DecodeErrorReporter); ok && pl.metrics != nil {
		name := src.Name()
		r.OnDecodeError(func(error) { pl.metrics.RecordDecodeError(name) })
	}

	g, ctx := errgroup.WithContext(ctx)

	queues := make([]chan *model.Packet, pl.workers)
	for i := range queues {
		queues[i] = make(chan *model.Packet, queueDepth)
		q := queues[i]
		proc := NewProcessor(pl.engine, pl.metrics, src.Name())
		g.Go(func() error {
			pl.work(ctx, proc, q)
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		return src.Stream(ctx, func(p *model.Packet) {
			select {
			case queues[pl.shard(p)] <- p:
			case <-ctx.Done():
			}
		})
	})

	err := g.Wait()
	pl.logger.Infof("Packet pool stopped (%d workers)", pl.workers)
	return err
}

func (pl *Pool) work(ctx context.Context, proc *Processor, q <-chan *model.Packet) {
	ticker := time.NewTicker(pl.flushInterval)
	defer ticker.Stop()
	defer proc.Flush()

	for {
		select {
		case p, ok := <-q:
			if !ok {
				return
			}
			proc.Process(ctx, p)
		case <-ticker.C:
			proc.Flush()
		}
	}
}

func (pl *Pool) shard(p *model.Packet) int {
	if pl.workers == 1 || !p.HasIP() {
		return 0
	}
	a, b := p.IP.Source, p.IP.Destination
	if a > b {
		a, b = b, a
	}
	_, _, h := hashfn.Final(hashfn.MixString(0, 0, 0, a+"|"+b))
	return int(h % uint32(pl.workers))
}
