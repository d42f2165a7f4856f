package service

import (
	"context"
	"errors"
	"sync"

	"github.com/dragonpay/backend/internal/directory"
	"github.com/dragonpay/backend/internal/domain"
)

// TaskError accumulates multiple errors produced during bulk loading.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkLoader seeds large datasets into the service using worker pools.
// Recipients are inserted directly into the directory so generated
// ids, wallets and statuses survive; invoices and payouts go through
// the service so the full validation path runs.
type BulkLoader struct {
	dir     *directory.Directory
	service *PayoutService
	workers int
}

// NewBulkLoader creates a BulkLoader with the provided concurrency.
func NewBulkLoader(dir *directory.Directory, svc *PayoutService, workers int) *BulkLoader {
	if workers <= 0 {
		workers = 4
	}
	return &BulkLoader{
		dir:     dir,
		service: svc,
		workers: workers,
	}
}

// LoadRecipients inserts pre-built recipients concurrently.
func (bl *BulkLoader) LoadRecipients(ctx context.Context, recipients []domain.Recipient) error {
	return bl.run(ctx, len(recipients), func(idx int) error {
		return bl.dir.Add(recipients[idx])
	})
}

// LoadInvoices creates the provided invoices concurrently.
func (bl *BulkLoader) LoadInvoices(ctx context.Context, invoices []InvoiceInput) error {
	return bl.run(ctx, len(invoices), func(idx int) error {
		_, err := bl.service.CreateInvoice(ctx, invoices[idx])
		return err
	})
}

// LoadPayouts creates the provided payouts concurrently.
func (bl *BulkLoader) LoadPayouts(ctx context.Context, payouts []PayoutInput) error {
	return bl.run(ctx, len(payouts), func(idx int) error {
		_, err := bl.service.CreatePayout(ctx, payouts[idx])
		return err
	})
}

func (bl *BulkLoader) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bl.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
