package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dragonpay/backend/internal/archive"
	"github.com/dragonpay/backend/internal/domain"
)

type archiveEvent struct {
	invoice *domain.Invoice
	payout  *domain.Payout
}

// Publisher mirrors invoice and payout events into the archive from a
// background worker. Publishing never blocks a ledger operation and
// never runs while a wallet lock is held: events are copied onto a
// buffered channel and written by the worker goroutine. When the
// buffer is full the event is dropped and logged; the archive is a
// mirror, not a system of record.
type Publisher struct {
	archiver *archive.Archiver
	logger   *slog.Logger
	events   chan archiveEvent

	closeOnce sync.Once
	done      chan struct{}
}

// NewPublisher starts the background worker with the given buffer size.
func NewPublisher(archiver *archive.Archiver, logger *slog.Logger, buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		archiver: archiver,
		logger:   logger,
		events:   make(chan archiveEvent, buffer),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// PublishInvoice enqueues an invoice event.
func (p *Publisher) PublishInvoice(inv domain.Invoice) {
	p.enqueue(archiveEvent{invoice: &inv})
}

// PublishPayout enqueues a payout event.
func (p *Publisher) PublishPayout(payout domain.Payout) {
	p.enqueue(archiveEvent{payout: &payout})
}

func (p *Publisher) enqueue(ev archiveEvent) {
	select {
	case p.events <- ev:
	default:
		p.logger.Warn("archive buffer full, dropping event")
	}
}

// Close stops accepting events, drains the buffer, and waits for the
// worker to exit.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.events)
	})
	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		switch {
		case ev.invoice != nil:
			err = p.archiver.RecordInvoice(ctx, *ev.invoice)
		case ev.payout != nil:
			err = p.archiver.RecordPayout(ctx, *ev.payout)
		}
		cancel()
		if err != nil {
			p.logger.Warn("archive write failed", "error", err)
		}
	}
}
