package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/methods"
	"github.com/dragonpay/backend/internal/service"
)

// Dataset contains the generated recipients and their transactions.
type Dataset struct {
	Recipients []domain.Recipient     `json:"recipients"`
	Invoices   []service.InvoiceInput `json:"invoices"`
	Payouts    []service.PayoutInput  `json:"payouts"`
}

// Generator produces synthetic payout data aligned with the engine
// validation rules, so a generated dataset loads without errors.
type Generator struct {
	cfg      Config
	rand     *rand.Rand
	reg      *methods.Registry
	pools    namePools
	balances map[string]decimal.Decimal
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	if cfg.NumRecipients <= 0 {
		cfg.NumRecipients = DefaultConfig().NumRecipients
	}
	if cfg.NumInvoices < 0 {
		cfg.NumInvoices = DefaultConfig().NumInvoices
	}
	if cfg.NumPayouts < 0 {
		cfg.NumPayouts = DefaultConfig().NumPayouts
	}
	if cfg.VerifiedChance <= 0 {
		cfg.VerifiedChance = DefaultConfig().VerifiedChance
	}
	if cfg.FlaggedChance <= 0 {
		cfg.FlaggedChance = DefaultConfig().FlaggedChance
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:      cfg,
		rand:     rand.New(rand.NewSource(cfg.Seed)),
		reg:      methods.Default(),
		pools:    defaultNamePools(),
		balances: make(map[string]decimal.Decimal),
	}
}

// Generate synthesises recipients, invoices and payouts. It respects
// context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	recipients := make([]domain.Recipient, g.cfg.NumRecipients)
	now := time.Now().UTC()

	for i := 0; i < g.cfg.NumRecipients; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		id := fmt.Sprintf("RCP-%06d", i+1)
		createdAt := now.Add(-time.Duration(g.rand.Intn(365*24)) * time.Hour)
		wallet := g.randomWallet()
		status := g.randomStatus()

		recipients[i] = domain.Recipient{
			ID:        id,
			FirstName: g.pools.first[g.rand.Intn(len(g.pools.first))],
			LastName:  g.pools.last[g.rand.Intn(len(g.pools.last))],
			Email:     g.randomEmail(i),
			Phone: domain.Phone{
				CountryCode: "+1",
				Number:      fmt.Sprintf("%03d%03d%04d", g.rand.Intn(900)+100, g.rand.Intn(900)+100, g.rand.Intn(10000)),
			},
			DefaultMethod: g.randomMethod(),
			Wallet:        wallet,
			Status:        status,
			Compliance:    g.randomCompliance(status),
			CreatedAt:     createdAt,
		}
		g.balances[id] = wallet.WithdrawableAmount
	}

	invoices := make([]service.InvoiceInput, g.cfg.NumInvoices)
	for i := 0; i < g.cfg.NumInvoices; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		recipient := recipients[g.rand.Intn(len(recipients))]
		var due *time.Time
		if g.rand.Float64() < 0.5 {
			d := now.Add(time.Duration(g.rand.Intn(60*24)) * time.Hour)
			due = &d
		}

		invoices[i] = service.InvoiceInput{
			RecipientID: recipient.ID,
			Amount:      g.randomCents(500, 500000),
			Description: g.pools.notes[g.rand.Intn(len(g.pools.notes))],
			MethodHint:  g.maybeMethodHint(recipient),
			DueDate:     due,
		}
	}

	payouts := make([]service.PayoutInput, 0, g.cfg.NumPayouts)
	specs := g.reg.List()
	for i := 0; i < g.cfg.NumPayouts; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		recipient := recipients[g.rand.Intn(len(recipients))]
		remaining := g.balances[recipient.ID]
		spec, ok := g.pickAffordableMethod(specs, remaining)
		if !ok {
			continue
		}

		upper := decimal.Min(spec.MaxAmount, remaining)
		amount := g.randomAmountBetween(spec.MinAmount, upper)
		g.balances[recipient.ID] = remaining.Sub(amount)

		priority := domain.PriorityStandard
		if g.rand.Float64() < 0.2 {
			priority = domain.PriorityExpress
		}

		payouts = append(payouts, service.PayoutInput{
			RecipientID: recipient.ID,
			Amount:      amount,
			Method:      spec.Name,
			Priority:    priority,
			Description: g.pools.notes[g.rand.Intn(len(g.pools.notes))],
		})
	}

	return Dataset{Recipients: recipients, Invoices: invoices, Payouts: payouts}, nil
}

func (g *Generator) randomWallet() domain.Wallet {
	amount := g.randomCents(0, 2500000)
	withdrawable := amount
	if g.rand.Float64() < 0.4 {
		withdrawable = amount.Mul(decimal.NewFromFloat(g.rand.Float64())).Round(2)
	}
	credit := decimal.Zero
	if g.rand.Float64() < 0.15 {
		credit = g.randomCents(0, 50000)
	}
	return domain.Wallet{
		Amount:             amount,
		WithdrawableAmount: withdrawable,
		CreditBalance:      credit,
	}
}

func (g *Generator) randomStatus() domain.RecipientStatus {
	roll := g.rand.Float64()
	switch {
	case roll < g.cfg.VerifiedChance:
		return domain.StatusVerified
	case roll < g.cfg.VerifiedChance+0.2:
		return domain.StatusUnverified
	case roll < g.cfg.VerifiedChance+0.3:
		return domain.StatusInReview
	default:
		return domain.StatusDisabled
	}
}

func (g *Generator) randomCompliance(status domain.RecipientStatus) domain.Compliance {
	verified := status == domain.StatusVerified
	flagged := g.rand.Float64() < g.cfg.FlaggedChance

	c := domain.Compliance{
		TaxIDCollected:       verified || g.rand.Float64() < 0.5,
		AddressCollected:     verified || g.rand.Float64() < 0.6,
		DateOfBirthCollected: verified || g.rand.Float64() < 0.7,
		IDVerified:           verified,
		Flagged:              flagged,
		OFAC:                 flagged && g.rand.Float64() < 0.3,
	}

	switch {
	case verified:
		c.TaxIDVerification = domain.VerificationVerified
	case c.TaxIDCollected:
		c.TaxIDVerification = domain.VerificationPending
	default:
		c.TaxIDVerification = domain.VerificationUnsubmitted
	}

	switch {
	case c.OFAC:
		c.OFACStatus = domain.OFACFlagged
	case verified:
		c.OFACStatus = domain.OFACUnflagged
	default:
		c.OFACStatus = domain.OFACPending
	}

	return c
}

func (g *Generator) randomEmail(idx int) string {
	first := g.pools.first[g.rand.Intn(len(g.pools.first))]
	last := g.pools.last[g.rand.Intn(len(g.pools.last))]
	domainName := g.pools.domains[g.rand.Intn(len(g.pools.domains))]
	return fmt.Sprintf("%s.%s%d@%s", first, last, idx+1, domainName)
}

func (g *Generator) randomMethod() string {
	specs := g.reg.List()
	return specs[g.rand.Intn(len(specs))].Name
}

func (g *Generator) maybeMethodHint(r domain.Recipient) string {
	if g.rand.Float64() < 0.3 {
		return r.DefaultMethod
	}
	return ""
}

// randomCents returns a decimal dollar amount drawn uniformly from the
// inclusive cent range [minCents, maxCents].
func (g *Generator) randomCents(minCents, maxCents int64) decimal.Decimal {
	cents := minCents + g.rand.Int63n(maxCents-minCents+1)
	return decimal.New(cents, -2)
}

func (g *Generator) randomAmountBetween(low, high decimal.Decimal) decimal.Decimal {
	lowCents := low.Mul(decimal.New(100, 0)).IntPart()
	highCents := high.Mul(decimal.New(100, 0)).IntPart()
	if highCents <= lowCents {
		return low
	}
	return decimal.New(lowCents+g.rand.Int63n(highCents-lowCents+1), -2)
}

func (g *Generator) pickAffordableMethod(specs []methods.Spec, remaining decimal.Decimal) (methods.Spec, bool) {
	affordable := make([]methods.Spec, 0, len(specs))
	for _, spec := range specs {
		if spec.MinAmount.LessThanOrEqual(remaining) {
			affordable = append(affordable, spec)
		}
	}
	if len(affordable) == 0 {
		return methods.Spec{}, false
	}
	return affordable[g.rand.Intn(len(affordable))], true
}

type namePools struct {
	first   []string
	last    []string
	domains []string
	notes   []string
}

func defaultNamePools() namePools {
	return namePools{
		first:   []string{"jane", "john", "alex", "priya", "liu", "maria", "omar", "sofia", "noah", "emma", "lucas", "mia", "ava", "ethan", "zara"},
		last:    []string{"doe", "smith", "chen", "patel", "garcia", "khan", "kim", "ivanov", "nguyen", "silva", "brown", "lee"},
		domains: []string{"example.com", "mail.com", "dragonpay.io", "payments.net", "securepay.org"},
		notes:   []string{"Invoice settlement", "Freelance payout", "Contract milestone", "Referral bonus", "Marketplace earnings", "Support stipend"},
	}
}
