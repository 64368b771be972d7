package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/leadmailer/internal/domain"
)

// DefaultInterval — период запуска циклов.
const DefaultInterval = 5 * time.Minute

// Cycler — то, что Driver запускает по таймеру.
type Cycler interface {
	RunCycle(ctx context.Context) *domain.CycleReport
}

// Driver запускает цикл сразу при старте и затем каждые interval.
//
// Каждый тик запускает RunCycle в отдельной горутине: если предыдущий цикл
// ещё идёт, guard диспетчера пропускает тик, а не ставит его в очередь.
// Backoff и jitter нет.
type Driver struct {
	cycler   Cycler
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	loopWG  sync.WaitGroup
	cycleWG sync.WaitGroup
}

// NewDriver создаёт Driver. interval <= 0 — DefaultInterval.
func NewDriver(cycler Cycler, interval time.Duration, logger *slog.Logger) *Driver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cycler:   cycler,
		interval: interval,
		logger:   logger,
	}
}

// Start запускает периодические циклы. Повторный вызов ничего не делает.
// Циклы останавливаются при отмене ctx или вызове Stop.
func (d *Driver) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		d.logger.Debug("scheduler already started")
		return
	}
	d.started = true

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.logger.Info("starting dispatch scheduler", "interval", d.interval)

	d.loopWG.Add(1)
	go func() {
		defer d.loopWG.Done()
		d.loop(ctx)
	}()
}

// Stop останавливает таймер и ждёт завершения текущего цикла.
// Цикл дописывает начатую пару и не берёт следующих. После Stop
// Driver можно снова запустить через Start.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel == nil {
		return
	}

	d.logger.Info("stopping dispatch scheduler...")
	d.cancel()
	d.loopWG.Wait()
	d.cycleWG.Wait()

	d.cancel = nil
	d.started = false
	d.logger.Info("dispatch scheduler stopped")
}

// loop — таймер циклов.
func (d *Driver) loop(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Первый цикл сразу при старте
	d.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.trigger(ctx)
		}
	}
}

func (d *Driver) trigger(ctx context.Context) {
	d.cycleWG.Add(1)
	go func() {
		defer d.cycleWG.Done()
		d.cycler.RunCycle(ctx)
	}()
}
