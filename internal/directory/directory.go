package directory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
)

// SortKey selects an ordering for search results. The zero value keeps
// insertion order.
type SortKey string

const (
	SortInsertion SortKey = ""
	SortName      SortKey = "name"
	SortCreated   SortKey = "created"
	SortBalance   SortKey = "balance"
)

// Query filters a directory search. Filters compose with logical AND;
// an empty Text matches everything.
type Query struct {
	Status domain.RecipientStatus
	Method string
	Text   string
	Sort   SortKey
}

// Stats summarizes the directory for dashboard-style overviews.
type Stats struct {
	TotalRecipients  int
	VerifiedCount    int
	TotalWalletValue decimal.Decimal
}

type entry struct {
	mu        sync.Mutex // serializes wallet mutations for this recipient
	recipient domain.Recipient
}

// Directory stores recipients. Records are append-only: there is no
// delete, and the identifier is immutable for the recipient's lifetime.
// Each recipient's wallet is guarded by its own mutex so concurrent
// payout requests against the same balance cannot race.
type Directory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

// New returns an empty directory.
func New() *Directory {
	return &Directory{entries: make(map[string]*entry)}
}

// Add registers a recipient. The id must be unused.
func (d *Directory) Add(r domain.Recipient) error {
	if r.ID == "" {
		return fmt.Errorf("recipient id is required")
	}
	if err := r.Wallet.Validate(); err != nil {
		return fmt.Errorf("recipient %s wallet: %w", r.ID, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.entries[r.ID]; exists {
		return fmt.Errorf("recipient %s: %w", r.ID, domain.ErrDuplicateID)
	}
	d.entries[r.ID] = &entry{recipient: r}
	d.order = append(d.order, r.ID)
	return nil
}

// Find returns a snapshot of the recipient with the given id.
func (d *Directory) Find(id string) (domain.Recipient, error) {
	d.mu.RLock()
	e, ok := d.entries[id]
	d.mu.RUnlock()
	if !ok {
		return domain.Recipient{}, fmt.Errorf("recipient %s: %w", id, domain.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recipient, nil
}

// Exists reports whether the id resolves to a recipient.
func (d *Directory) Exists(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[id]
	return ok
}

// UpdateWallet applies fn to the recipient's wallet under its lock.
// fn sees the current wallet and returns the replacement; if fn returns
// an error the wallet is left unchanged. The replacement must satisfy
// the wallet invariants.
func (d *Directory) UpdateWallet(id string, fn func(domain.Wallet) (domain.Wallet, error)) error {
	d.mu.RLock()
	e, ok := d.entries[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("recipient %s: %w", id, domain.ErrUnknownRecipient)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.recipient.Wallet)
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("recipient %s wallet update: %w", id, err)
	}
	e.recipient.Wallet = next
	return nil
}

// Credit adds amount to both the total and withdrawable balances. This
// is the entry point for the external funding process.
func (d *Directory) Credit(id string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	return d.UpdateWallet(id, func(w domain.Wallet) (domain.Wallet, error) {
		w.Amount = w.Amount.Add(amount)
		w.WithdrawableAmount = w.WithdrawableAmount.Add(amount)
		return w, nil
	})
}

// SetStatus records a status decision from the external compliance
// process.
func (d *Directory) SetStatus(id string, status domain.RecipientStatus) error {
	if !domain.ValidRecipientStatus(status) {
		return fmt.Errorf("status %q: %w", status, domain.ErrInvalidTransition)
	}
	d.mu.RLock()
	e, ok := d.entries[id]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("recipient %s: %w", id, domain.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.recipient.Status = status
	return nil
}

// Search returns recipients matching the query. Text matches
// case-insensitively against first name, last name and email
// substrings. Results keep insertion order unless a sort key is given.
func (d *Directory) Search(q Query) []domain.Recipient {
	text := strings.ToLower(strings.TrimSpace(q.Text))

	d.mu.RLock()
	ids := make([]string, len(d.order))
	copy(ids, d.order)
	entries := make([]*entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, d.entries[id])
	}
	d.mu.RUnlock()

	var out []domain.Recipient
	for _, e := range entries {
		e.mu.Lock()
		r := e.recipient
		e.mu.Unlock()

		if q.Status != "" && r.Status != q.Status {
			continue
		}
		if q.Method != "" && r.DefaultMethod != q.Method {
			continue
		}
		if text != "" && !matchesText(r, text) {
			continue
		}
		out = append(out, r)
	}

	sortRecipients(out, q.Sort)
	return out
}

// Wallets takes a consistent-enough snapshot of every wallet for
// balance aggregation. Each wallet is read under its own lock.
func (d *Directory) Wallets() []domain.Wallet {
	d.mu.RLock()
	entries := make([]*entry, 0, len(d.order))
	for _, id := range d.order {
		entries = append(entries, d.entries[id])
	}
	d.mu.RUnlock()

	wallets := make([]domain.Wallet, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		wallets = append(wallets, e.recipient.Wallet)
		e.mu.Unlock()
	}
	return wallets
}

// Stats computes directory-wide totals.
func (d *Directory) Stats() Stats {
	stats := Stats{TotalWalletValue: decimal.Zero}
	for _, r := range d.Search(Query{}) {
		stats.TotalRecipients++
		if r.Status == domain.StatusVerified {
			stats.VerifiedCount++
		}
		stats.TotalWalletValue = stats.TotalWalletValue.Add(r.Wallet.Amount)
	}
	return stats
}

func matchesText(r domain.Recipient, text string) bool {
	return strings.Contains(strings.ToLower(r.FirstName), text) ||
		strings.Contains(strings.ToLower(r.LastName), text) ||
		strings.Contains(strings.ToLower(r.Email), text)
}

func sortRecipients(list []domain.Recipient, key SortKey) {
	switch key {
	case SortName:
		sort.SliceStable(list, func(i, j int) bool {
			a := strings.ToLower(list[i].LastName + " " + list[i].FirstName)
			b := strings.ToLower(list[j].LastName + " " + list[j].FirstName)
			return a < b
		})
	case SortCreated:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
	case SortBalance:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Wallet.Amount.GreaterThan(list[j].Wallet.Amount)
		})
	}
}
